package quiz

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/yedirenklicinar/akademi/core"
	"github.com/yedirenklicinar/akademi/core/exam"
	"github.com/yedirenklicinar/akademi/core/question"
)

type identityStub struct {
	id  string
	err error
}

func (i identityStub) CurrentUserID() (string, error) { return i.id, i.err }

type storeStub struct {
	mu    sync.Mutex
	subs  []exam.Submission
	err   error
	calls int32
}

func (s *storeStub) CreateSubmission(sub exam.Submission) (exam.Submission, error) {
	atomic.AddInt32(&s.calls, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return exam.Submission{}, s.err
	}
	sub.ID = len(s.subs) + 1
	s.subs = append(s.subs, sub)
	return sub, nil
}

func (s *storeStub) callCount() int { return int(atomic.LoadInt32(&s.calls)) }

// fixtureTest builds a test of n questions; the correct option of question i
// (1-based ids) is option id i*10+1, the wrong one i*10+2.
func fixtureTest(n int, durationMinutes *int) exam.Test {
	t := exam.Test{ID: 42, Title: "Fractions", DurationMinutes: durationMinutes, IsActive: true}
	for i := 1; i <= n; i++ {
		t.Questions = append(t.Questions, question.Question{
			ID: i,
			Options: []question.Option{
				{ID: i*10 + 1, QuestionID: i, Text: "right", IsCorrect: true},
				{ID: i*10 + 2, QuestionID: i, Text: "wrong"},
			},
		})
		t.QuestionIDs = append(t.QuestionIDs, i)
	}
	return t
}

func answerCorrectly(t *testing.T, a *Attempt, questionIDs ...int) {
	t.Helper()
	for _, id := range questionIDs {
		if err := a.SelectOption(id, id*10+1); err != nil {
			t.Fatalf("selecting option for question %d: %v", id, err)
		}
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		correct []int
		want    int
	}{
		{"all correct", 4, []int{1, 2, 3, 4}, 100},
		{"none correct", 4, nil, 0},
		{"three of five", 5, []int{1, 2, 3}, 60},
		{"two of three rounds up", 3, []int{1, 2}, 67},
		{"one of three rounds down", 3, []int{1}, 33},
		{"one of eight rounds half up", 8, []int{1}, 13},
		{"empty test", 0, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fixture := fixtureTest(tt.total, nil)
			answers := make(map[int]int)
			for _, id := range tt.correct {
				answers[id] = id*10 + 1
			}
			// unanswered and wrong answers both count as incorrect
			for i := len(tt.correct) + 1; i <= tt.total; i += 2 {
				answers[i] = i*10 + 2
			}
			if got := Score(fixture, answers); got != tt.want {
				t.Errorf("Score() = %d; expected %d", got, tt.want)
			}
		})
	}
}

func TestAttemptNavigation(t *testing.T) {
	a := NewAttempt(fixtureTest(3, nil), identityStub{id: "uid-1"}, &storeStub{}, core.NopLogger{})

	if idx := a.CurrentIndex(); idx != 0 {
		t.Fatalf("expected cursor at 0, got %d", idx)
	}

	tests := []struct {
		name string
		move func() error
		want int
	}{
		{"next", a.Next, 1},
		{"next again", a.Next, 2},
		{"next clamps at end", a.Next, 2},
		{"previous", a.Previous, 1},
		{"goto end", func() error { return a.GoTo(2) }, 2},
		{"goto clamps above", func() error { return a.GoTo(99) }, 2},
		{"goto clamps below", func() error { return a.GoTo(-5) }, 0},
		{"previous clamps at start", a.Previous, 0},
	}
	for _, tt := range tests {
		if err := tt.move(); err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if idx := a.CurrentIndex(); idx != tt.want {
			t.Errorf("%s: expected cursor %d, got %d", tt.name, tt.want, idx)
		}
	}

	if q, ok := a.CurrentQuestion(); !ok || q.ID != 1 {
		t.Errorf("unexpected current question: %+v (%v)", q, ok)
	}
}

func TestAttemptSelectOption(t *testing.T) {
	a := NewAttempt(fixtureTest(2, nil), identityStub{id: "uid-1"}, &storeStub{}, core.NopLogger{})

	if err := a.SelectOption(1, 12); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	// re-selecting overwrites
	if err := a.SelectOption(1, 11); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := a.Answers(); got[1] != 11 {
		t.Errorf("expected answer 11 for question 1, got %d", got[1])
	}

	if err := a.SelectOption(99, 11); errors.Cause(err) != ErrUnknownQuestion {
		t.Errorf("expected ErrUnknownQuestion, got %v", err)
	}
	if err := a.SelectOption(1, 21); errors.Cause(err) != ErrUnknownOption {
		t.Errorf("expected ErrUnknownOption, got %v", err)
	}
}

func TestAttemptSubmit(t *testing.T) {
	nowFunc = func() time.Time { return time.Date(2021, 5, 10, 14, 0, 0, 0, time.UTC) }
	defer func() { nowFunc = time.Now }()

	store := &storeStub{}
	a := NewAttempt(fixtureTest(5, nil), identityStub{id: "uid-1"}, store, core.NopLogger{})
	answerCorrectly(t, a, 1, 2, 3)

	sub, err := a.Submit(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sub.StudentID != "uid-1" || sub.TestID != 42 {
		t.Errorf("unexpected submission identity: %+v", sub)
	}
	if sub.Score != 60 {
		t.Errorf("expected score 60, got %d", sub.Score)
	}
	if len(sub.Answers) != 3 {
		t.Errorf("expected 3 answers, got %d", len(sub.Answers))
	}
	if !sub.CompletedAt.Equal(nowFunc()) {
		t.Errorf("unexpected completion time: %v", sub.CompletedAt)
	}
	if a.Status() != StatusSubmitted {
		t.Errorf("expected status submitted, got %s", a.Status())
	}
}

func TestAttemptSubmitIdempotent(t *testing.T) {
	store := &storeStub{}
	a := NewAttempt(fixtureTest(2, nil), identityStub{id: "uid-1"}, store, core.NopLogger{})
	answerCorrectly(t, a, 1)

	first, err := a.Submit(context.Background())
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second, err := a.Submit(context.Background())
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("expected the stored submission back, got %d vs %d", first.ID, second.ID)
	}
	if store.callCount() != 1 {
		t.Errorf("expected exactly one persisted record, got %d", store.callCount())
	}
}

func TestAttemptSubmitRollback(t *testing.T) {
	store := &storeStub{err: errors.New("connection refused")}
	a := NewAttempt(fixtureTest(2, nil), identityStub{id: "uid-1"}, store, core.NopLogger{})
	answerCorrectly(t, a, 1, 2)

	_, err := a.Submit(context.Background())
	if !core.IsSubmissionError(err) {
		t.Fatalf("expected SubmissionError, got %v", err)
	}
	if a.Status() != StatusInProgress {
		t.Errorf("expected rollback to in_progress, got %s", a.Status())
	}
	if got := a.Answers(); len(got) != 2 {
		t.Errorf("expected answers preserved through rollback, got %v", got)
	}

	// the retry succeeds with the same answer sheet
	store.mu.Lock()
	store.err = nil
	store.mu.Unlock()
	sub, err := a.Submit(context.Background())
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if sub.Score != 100 {
		t.Errorf("expected score 100 on retry, got %d", sub.Score)
	}
}

func TestAttemptSubmitRequiresIdentity(t *testing.T) {
	store := &storeStub{}
	a := NewAttempt(fixtureTest(1, nil), identityStub{err: errors.New("not authenticated")}, store, core.NopLogger{})

	_, err := a.Submit(context.Background())
	if !core.IsSubmissionError(err) {
		t.Fatalf("expected SubmissionError, got %v", err)
	}
	if a.Status() != StatusInProgress {
		t.Errorf("expected rollback to in_progress, got %s", a.Status())
	}
	if store.callCount() != 0 {
		t.Errorf("expected no persistence attempt, got %d", store.callCount())
	}
}

func TestAttemptClosedAfterSubmit(t *testing.T) {
	a := NewAttempt(fixtureTest(2, nil), identityStub{id: "uid-1"}, &storeStub{}, core.NopLogger{})
	answerCorrectly(t, a, 1)
	if _, err := a.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := a.SelectOption(2, 22); errors.Cause(err) != ErrAttemptClosed {
		t.Errorf("expected ErrAttemptClosed on select, got %v", err)
	}
	if err := a.Next(); errors.Cause(err) != ErrAttemptClosed {
		t.Errorf("expected ErrAttemptClosed on next, got %v", err)
	}
	if err := a.GoTo(0); errors.Cause(err) != ErrAttemptClosed {
		t.Errorf("expected ErrAttemptClosed on goto, got %v", err)
	}
	if got := a.Answers(); len(got) != 1 || got[1] != 11 {
		t.Errorf("expected answer sheet frozen, got %v", got)
	}
}

func TestAttemptTimerAutoSubmit(t *testing.T) {
	duration := 1
	store := &storeStub{}
	a := NewAttempt(fixtureTest(2, &duration), identityStub{id: "uid-1"}, store, core.NopLogger{})
	answerCorrectly(t, a, 1)

	if a.Remaining() != time.Minute {
		t.Fatalf("expected 1m on the clock, got %v", a.Remaining())
	}

	ctx := context.Background()
	for i := 0; i < 59; i++ {
		if done := a.tick(ctx, time.Second); done {
			t.Fatalf("timer stopped early at tick %d", i)
		}
	}
	if a.Status() != StatusInProgress {
		t.Fatalf("expected in_progress before expiry, got %s", a.Status())
	}

	if done := a.tick(ctx, time.Second); !done {
		t.Error("expected the expiry tick to stop the timer")
	}
	if a.Status() != StatusSubmitted {
		t.Errorf("expected auto-submit on expiry, got %s", a.Status())
	}
	sub, ok := a.Result()
	if !ok {
		t.Fatal("expected a stored submission")
	}
	if sub.Score != 50 {
		t.Errorf("expected score 50, got %d", sub.Score)
	}

	// ticks after expiry never submit again
	a.tick(ctx, time.Second)
	a.tick(ctx, time.Second)
	if store.callCount() != 1 {
		t.Errorf("expected exactly one persisted record, got %d", store.callCount())
	}
}

func TestAttemptTimerAutoSubmitFiresOnce(t *testing.T) {
	duration := 1
	store := &storeStub{err: errors.New("connection refused")}
	a := NewAttempt(fixtureTest(1, &duration), identityStub{id: "uid-1"}, store, core.NopLogger{})

	ctx := context.Background()
	a.tick(ctx, time.Minute) // expiry; persist fails, attempt rolls back

	if a.Status() != StatusInProgress {
		t.Fatalf("expected rollback after failed auto-submit, got %s", a.Status())
	}

	// the expiry trigger must not refire on later ticks
	a.tick(ctx, time.Second)
	a.tick(ctx, time.Second)
	if store.callCount() != 1 {
		t.Errorf("expected a single auto-submit attempt, got %d", store.callCount())
	}

	// a manual retry still works
	store.mu.Lock()
	store.err = nil
	store.mu.Unlock()
	if _, err := a.Submit(ctx); err != nil {
		t.Fatalf("manual retry: %v", err)
	}
	if a.Status() != StatusSubmitted {
		t.Errorf("expected submitted after retry, got %s", a.Status())
	}
}

// gatedStore blocks its first CreateSubmission until released; later calls
// pass straight through.
type gatedStore struct {
	mu      sync.Mutex
	calls   int
	entered chan struct{}
	release chan error
}

func (s *gatedStore) CreateSubmission(sub exam.Submission) (exam.Submission, error) {
	s.mu.Lock()
	s.calls++
	first := s.calls == 1
	s.mu.Unlock()
	if first {
		s.entered <- struct{}{}
		if err := <-s.release; err != nil {
			return exam.Submission{}, err
		}
	}
	sub.ID = 1
	return sub, nil
}

func (s *gatedStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestAttemptExpiryDuringManualSubmitRollback(t *testing.T) {
	duration := 1
	store := &gatedStore{entered: make(chan struct{}), release: make(chan error)}
	a := NewAttempt(fixtureTest(1, &duration), identityStub{id: "uid-1"}, store, core.NopLogger{})
	answerCorrectly(t, a, 1)

	ctx := context.Background()
	done := make(chan error, 1)
	go func() {
		_, err := a.Submit(ctx)
		done <- err
	}()
	<-store.entered // the manual submit holds the Submitting slot

	// expiry while the manual submit is in flight must neither fire nor stop
	// the timer loop
	if stopped := a.tick(ctx, time.Minute); stopped {
		t.Fatal("expected the timer loop to keep running")
	}
	if store.callCount() != 1 {
		t.Fatalf("expected no expiry submit yet, got %d calls", store.callCount())
	}

	store.release <- errors.New("connection refused") // the manual submit rolls back
	if err := <-done; !core.IsSubmissionError(err) {
		t.Fatalf("expected SubmissionError, got %v", err)
	}
	if a.Status() != StatusInProgress {
		t.Fatalf("expected rollback to in_progress, got %s", a.Status())
	}

	// the next tick fires the expiry submit
	if stopped := a.tick(ctx, time.Second); !stopped {
		t.Error("expected the expiry tick to stop the timer")
	}
	if a.Status() != StatusSubmitted {
		t.Errorf("expected the expiry submit after rollback, got %s", a.Status())
	}
	if store.callCount() != 2 {
		t.Errorf("expected the expiry submit to persist, got %d calls", store.callCount())
	}
}

func TestAttemptManualSubmitStopsTimer(t *testing.T) {
	duration := 1
	a := NewAttempt(fixtureTest(1, &duration), identityStub{id: "uid-1"}, &storeStub{}, core.NopLogger{})

	if _, err := a.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if done := a.tick(context.Background(), time.Second); !done {
		t.Error("expected the timer loop to stop once submitted")
	}
}

func TestAttemptConcurrentSubmit(t *testing.T) {
	store := &storeStub{}
	a := NewAttempt(fixtureTest(3, nil), identityStub{id: "uid-1"}, store, core.NopLogger{})
	answerCorrectly(t, a, 1, 2, 3)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = a.Submit(context.Background())
		}(i)
	}
	wg.Wait()

	if store.callCount() != 1 {
		t.Errorf("expected exactly one persisted record, got %d", store.callCount())
	}
	for _, err := range errs {
		if err != nil && errors.Cause(err) != ErrSubmitInFlight {
			t.Errorf("unexpected error: %v", err)
		}
	}
}
