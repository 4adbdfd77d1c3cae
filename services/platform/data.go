package platform

import (
	"context"
	"fmt"
	"net/http"

	"github.com/yedirenklicinar/akademi/core/exam"
	"github.com/yedirenklicinar/akademi/core/quiz"
	"github.com/yedirenklicinar/akademi/core/session"
	"github.com/yedirenklicinar/akademi/core/user"
)

var (
	_ session.ProfileAPI   = (*Client)(nil)
	_ quiz.SubmissionStore = (*Client)(nil)
)

// FetchProfile loads the application-level record for a user id.
func (c *Client) FetchProfile(ctx context.Context, userID string) (user.Profile, error) {
	var prof user.Profile
	err := c.do(ctx, http.MethodGet, "/profiles/"+userID, nil, &prof, true)
	return prof, err
}

// FetchTest loads a test with its full ordered question list, ready to solve.
func (c *Client) FetchTest(ctx context.Context, id int) (exam.Test, error) {
	var t exam.Test
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/tests/%d/solve", id), nil, &t, true)
	return t, err
}

// FetchTests lists the tests available to the signed-in student.
func (c *Client) FetchTests(ctx context.Context) ([]exam.Test, error) {
	var ts []exam.Test
	err := c.do(ctx, http.MethodGet, "/tests", nil, &ts, true)
	return ts, err
}

// CreateSubmission persists a completed attempt.
func (c *Client) CreateSubmission(sub exam.Submission) (exam.Submission, error) {
	var out exam.Submission
	err := c.do(context.Background(), http.MethodPost, "/submissions", sub, &out, true)
	return out, err
}
