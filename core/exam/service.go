package exam

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrNotFound           = errors.New("test not found")
	ErrSubmissionNotFound = errors.New("submission not found")
)

type (
	Repository interface {
		CreateTest(ctx context.Context, t Test) (Test, error)
		QueryTests(ctx context.Context, filter *QueryFilter) ([]Test, error)
		// GetTest loads a test; withQuestions loads its questions (with options)
		// in the test's fixed order.
		GetTest(ctx context.Context, id int, withQuestions bool) (Test, error)
		SetTestActive(ctx context.Context, id int, active bool) (Test, error)
		DeleteTest(ctx context.Context, id int) error

		CreateSubmission(ctx context.Context, sub Submission) (Submission, error)
		QuerySubmissions(ctx context.Context, filter *SubmissionFilter) ([]Submission, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(nt NewTest, createdBy string) (Test, error) {
	return svc.repo.CreateTest(context.Background(), Test{
		Title:           nt.Title,
		DurationMinutes: nt.DurationMinutes,
		IsActive:        nt.IsActive,
		CreatedBy:       createdBy,
		CreatedAt:       time.Now().UTC(),
		QuestionIDs:     nt.QuestionIDs,
		GradeIDs:        nt.GradeIDs,
		StudentIDs:      nt.StudentIDs,
	})
}

func (svc *Service) Query(filter *QueryFilter) ([]Test, error) {
	return svc.repo.QueryTests(context.Background(), filter)
}

func (svc *Service) GetByID(id int) (Test, error) {
	return svc.repo.GetTest(context.Background(), id, false)
}

// GetForSolving loads the test with its full ordered question list; this is
// the payload the quiz screen runs on.
func (svc *Service) GetForSolving(id int) (Test, error) {
	return svc.repo.GetTest(context.Background(), id, true)
}

func (svc *Service) SetActive(id int, active bool) (Test, error) {
	return svc.repo.SetTestActive(context.Background(), id, active)
}

func (svc *Service) Delete(id int) error {
	return svc.repo.DeleteTest(context.Background(), id)
}

func (svc *Service) CreateSubmission(sub Submission) (Submission, error) {
	if sub.CompletedAt.IsZero() {
		sub.CompletedAt = time.Now().UTC()
	}
	return svc.repo.CreateSubmission(context.Background(), sub)
}

func (svc *Service) QuerySubmissions(filter *SubmissionFilter) ([]Submission, error) {
	return svc.repo.QuerySubmissions(context.Background(), filter)
}
