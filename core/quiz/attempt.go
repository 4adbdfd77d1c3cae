package quiz

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/yedirenklicinar/akademi/core"
	"github.com/yedirenklicinar/akademi/core/exam"
	"github.com/yedirenklicinar/akademi/core/question"
)

// mockable
var nowFunc func() time.Time = time.Now

var (
	ErrAttemptClosed   = errors.New("attempt is no longer in progress")
	ErrSubmitInFlight  = errors.New("submission already in flight")
	ErrUnknownQuestion = errors.New("question does not belong to this test")
	ErrUnknownOption   = errors.New("option does not belong to this question")
)

// Status is the lifecycle phase of an Attempt. Transitions are monotonic:
// InProgress -> Submitting -> Submitted, with a single rollback edge from
// Submitting back to InProgress when persistence fails.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusSubmitting Status = "submitting"
	StatusSubmitted  Status = "submitted"
)

type (
	// Identity resolves the signed-in student; the session controller
	// implements this.
	Identity interface {
		CurrentUserID() (string, error)
	}

	// SubmissionStore persists a completed attempt.
	SubmissionStore interface {
		CreateSubmission(sub exam.Submission) (exam.Submission, error)
	}
)

// Attempt is one student's run through a timed test. It owns the answer sheet,
// the cursor over the question list, the countdown, and the submit protocol.
// All methods are safe for concurrent use; the timer goroutine and the UI
// share one instance.
type Attempt struct {
	test     exam.Test
	identity Identity
	store    SubmissionStore
	logger   core.Logger

	mu        sync.Mutex
	status    Status
	answers   map[int]int // question id -> chosen option id
	current   int         // index into test.Questions
	remaining time.Duration
	autoFired bool
	result    *exam.Submission
}

func NewAttempt(t exam.Test, identity Identity, store SubmissionStore, logger core.Logger) *Attempt {
	if logger == nil {
		logger = core.NopLogger{}
	}
	var remaining time.Duration
	if t.DurationMinutes != nil {
		remaining = time.Duration(*t.DurationMinutes) * time.Minute
	}
	return &Attempt{
		test:      t,
		identity:  identity,
		store:     store,
		logger:    logger,
		status:    StatusInProgress,
		answers:   make(map[int]int),
		remaining: remaining,
	}
}

// Start runs the countdown, one tick per second, until the attempt is
// submitted, the timer expires or ctx is cancelled. Untimed tests return
// immediately.
func (a *Attempt) Start(ctx context.Context) {
	if a.test.DurationMinutes == nil {
		return
	}
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if done := a.tick(ctx, time.Second); done {
				return
			}
		}
	}
}

// tick advances the countdown and fires the automatic submit exactly once when
// time runs out. It reports whether the timer loop should stop.
func (a *Attempt) tick(ctx context.Context, d time.Duration) bool {
	a.mu.Lock()
	if a.status == StatusSubmitted {
		a.mu.Unlock()
		return true
	}
	a.remaining -= d
	if a.remaining > 0 {
		a.mu.Unlock()
		return false
	}
	a.remaining = 0
	// the expiry submit must not refire, even if the first one rolls back
	if a.autoFired {
		a.mu.Unlock()
		return true
	}
	if a.status != StatusInProgress {
		// a manual submit holds the Submitting slot; keep ticking so the
		// expiry submit still fires if that submit rolls back
		a.mu.Unlock()
		return false
	}
	a.autoFired = true
	a.mu.Unlock()

	if _, err := a.Submit(ctx); err != nil {
		a.logger.Error("auto-submitting expired attempt", err)
	}
	return true
}

// SelectOption records the student's choice for a question. Selecting again
// overwrites the previous choice.
func (a *Attempt) SelectOption(questionID, optionID int) error {
	q, ok := a.questionByID(questionID)
	if !ok {
		return ErrUnknownQuestion
	}
	if !q.HasOption(optionID) {
		return ErrUnknownOption
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.status != StatusInProgress {
		return ErrAttemptClosed
	}
	a.answers[questionID] = optionID
	return nil
}

// GoTo moves the cursor to index, clamped into the valid range.
func (a *Attempt) GoTo(index int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.status != StatusInProgress {
		return ErrAttemptClosed
	}
	a.current = a.clamp(index)
	return nil
}

func (a *Attempt) Next() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.status != StatusInProgress {
		return ErrAttemptClosed
	}
	a.current = a.clamp(a.current + 1)
	return nil
}

func (a *Attempt) Previous() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.status != StatusInProgress {
		return ErrAttemptClosed
	}
	a.current = a.clamp(a.current - 1)
	return nil
}

// Submit grades the answer sheet and persists it. It is idempotent: once an
// attempt is submitted, subsequent calls return the stored submission without
// writing again. If persistence fails the attempt rolls back to InProgress
// with its answers intact and the failure surfaces as core.SubmissionError.
func (a *Attempt) Submit(ctx context.Context) (exam.Submission, error) {
	a.mu.Lock()
	switch a.status {
	case StatusSubmitted:
		sub := *a.result
		a.mu.Unlock()
		return sub, nil
	case StatusSubmitting:
		a.mu.Unlock()
		return exam.Submission{}, ErrSubmitInFlight
	}
	a.status = StatusSubmitting
	answers := make(map[int]int, len(a.answers))
	for k, v := range a.answers {
		answers[k] = v
	}
	a.mu.Unlock()

	rollback := func() {
		a.mu.Lock()
		a.status = StatusInProgress
		a.mu.Unlock()
	}

	studentID, err := a.identity.CurrentUserID()
	if err != nil {
		rollback()
		return exam.Submission{}, core.NewSubmissionError(err)
	}

	sub, err := a.store.CreateSubmission(exam.Submission{
		StudentID:   studentID,
		TestID:      a.test.ID,
		Score:       Score(a.test, answers),
		Answers:     answers,
		CompletedAt: nowFunc().UTC(),
	})
	if err != nil {
		rollback()
		return exam.Submission{}, core.NewSubmissionError(err)
	}

	a.mu.Lock()
	a.status = StatusSubmitted
	a.result = &sub
	a.mu.Unlock()
	return sub, nil
}

// Status returns the attempt's lifecycle phase.
func (a *Attempt) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Remaining returns the time left on the countdown; zero for untimed tests
// means no limit, not expiry.
func (a *Attempt) Remaining() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.remaining
}

// CurrentIndex returns the cursor position over the question list.
func (a *Attempt) CurrentIndex() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// CurrentQuestion returns the question under the cursor.
func (a *Attempt) CurrentQuestion() (question.Question, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.test.Questions) == 0 {
		return question.Question{}, false
	}
	return a.test.Questions[a.current], true
}

// Answers returns a copy of the answer sheet.
func (a *Attempt) Answers() map[int]int {
	a.mu.Lock()
	defer a.mu.Unlock()
	answers := make(map[int]int, len(a.answers))
	for k, v := range a.answers {
		answers[k] = v
	}
	return answers
}

// Result returns the persisted submission once the attempt is submitted.
func (a *Attempt) Result() (exam.Submission, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.result == nil {
		return exam.Submission{}, false
	}
	return *a.result, true
}

func (a *Attempt) clamp(index int) int {
	if index < 0 {
		return 0
	}
	if max := len(a.test.Questions) - 1; index > max {
		if max < 0 {
			return 0
		}
		return max
	}
	return index
}

func (a *Attempt) questionByID(id int) (question.Question, bool) {
	for _, q := range a.test.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return question.Question{}, false
}
