package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/yedirenklicinar/akademi/core"
	"github.com/yedirenklicinar/akademi/core/exam"
	"github.com/yedirenklicinar/akademi/core/question"
	"github.com/yedirenklicinar/akademi/core/session"
	"github.com/yedirenklicinar/akademi/core/user"
)

type stubController struct {
	userID string
	snap   session.Snapshot

	loginEmail string
	loginPwd   string
	remembered bool
	loggedOut  bool
	refreshed  bool
}

func (s *stubController) CurrentUserID() (string, error) {
	if s.userID == "" {
		return "", session.ErrNotAuthenticated
	}
	return s.userID, nil
}

func (s *stubController) Login(ctx context.Context, email, password string, rememberMe bool) error {
	s.loginEmail, s.loginPwd, s.remembered = email, password, rememberMe
	s.snap = session.Snapshot{
		User:    &session.User{ID: s.userID, Email: email},
		Profile: &user.Profile{ID: s.userID, Email: email, FullName: "Awe Stud", Role: user.RoleStudent},
		Role:    user.RoleStudent,
	}
	return nil
}

func (s *stubController) Logout(ctx context.Context) error {
	s.loggedOut = true
	s.snap = session.Snapshot{}
	return nil
}

func (s *stubController) RefreshSession(ctx context.Context) error {
	s.refreshed = true
	return nil
}

func (s *stubController) Snapshot() session.Snapshot { return s.snap }

type stubAPI struct {
	tests []exam.Test
}

func (s *stubAPI) FetchTests(ctx context.Context) ([]exam.Test, error) { return s.tests, nil }

func (s *stubAPI) FetchTest(ctx context.Context, id int) (exam.Test, error) {
	for _, t := range s.tests {
		if t.ID == id {
			return t, nil
		}
	}
	return exam.Test{}, errors.New("not found")
}

type stubStore struct {
	subs []exam.Submission
	err  error
}

func (s *stubStore) CreateSubmission(sub exam.Submission) (exam.Submission, error) {
	if s.err != nil {
		return exam.Submission{}, s.err
	}
	sub.ID = len(s.subs) + 1
	s.subs = append(s.subs, sub)
	return sub, nil
}

func newTestQuestion(id int, content string) question.Question {
	return question.Question{
		ID:      id,
		Content: content,
		Options: []question.Option{
			{ID: id*10 + 1, QuestionID: id, Text: "right", IsCorrect: true},
			{ID: id*10 + 2, QuestionID: id, Text: "wrong"},
		},
	}
}

func newTestConsole(script string, ctrl sessionController, api platformAPI, store *stubStore) (*console, *bytes.Buffer) {
	conf := &core.Config{AppName: "Akademi"}
	var out bytes.Buffer
	return newConsole(conf, ctrl, api, store, nil, strings.NewReader(script), &out), &out
}

func Test_console_login(t *testing.T) {
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("s3cret"), nil }

	ctrl := &stubController{userID: "ba7e69b1-1bf0-4de6-8dc5-5086ecc0c375"}
	cli, out := newTestConsole("login\nawe@test.cd\ny\nwhoami\nquit\n", ctrl, &stubAPI{}, &stubStore{})

	if err := cli.run(context.Background()); err != nil {
		t.Fatalf("run() failed, %v", err)
	}
	if ctrl.loginEmail != "awe@test.cd" || ctrl.loginPwd != "s3cret" {
		t.Errorf("login got (%q, %q)", ctrl.loginEmail, ctrl.loginPwd)
	}
	if !ctrl.remembered {
		t.Error("expected rememberMe to be set")
	}
	if want := "signed in as Awe Stud (student)"; !strings.Contains(out.String(), want) {
		t.Errorf("output missing %q:\n%s", want, out.String())
	}
}

func Test_console_listTests(t *testing.T) {
	duration := 30
	api := &stubAPI{tests: []exam.Test{
		{ID: 7, Title: "Algebra Basics", DurationMinutes: &duration, QuestionIDs: []int{1, 2, 3}},
		{ID: 9, Title: "Fractions", QuestionIDs: []int{4}},
	}}
	cli, out := newTestConsole("tests\nquit\n", &stubController{}, api, &stubStore{})

	if err := cli.run(context.Background()); err != nil {
		t.Fatalf("run() failed, %v", err)
	}
	for _, want := range []string{
		"#7  Algebra Basics  (3 questions, 30 min)",
		"#9  Fractions  (1 questions, untimed)",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func Test_console_solve(t *testing.T) {
	duration := 30
	test := exam.Test{
		ID:              7,
		Title:           "Algebra Basics",
		DurationMinutes: &duration,
		Questions: []question.Question{
			newTestQuestion(1, "2 + 2 = ?"),
			newTestQuestion(2, "3 * 3 = ?"),
			newTestQuestion(3, "10 / 2 = ?"),
		},
	}
	ctrl := &stubController{userID: "ba7e69b1-1bf0-4de6-8dc5-5086ecc0c375"}
	store := &stubStore{}
	cli, out := newTestConsole("solve 7\na\nn\nb\nn\na\nsubmit\nquit\n", ctrl, &stubAPI{tests: []exam.Test{test}}, store)

	if err := cli.run(context.Background()); err != nil {
		t.Fatalf("run() failed, %v", err)
	}

	if len(store.subs) != 1 {
		t.Fatalf("len(store.subs) = %d; want 1", len(store.subs))
	}
	sub := store.subs[0]
	if sub.StudentID != ctrl.userID {
		t.Errorf("StudentID = %s; want %s", sub.StudentID, ctrl.userID)
	}
	if sub.TestID != 7 {
		t.Errorf("TestID = %d; want 7", sub.TestID)
	}
	wantAnswers := map[int]int{1: 11, 2: 22, 3: 31}
	for qID, oID := range wantAnswers {
		if sub.Answers[qID] != oID {
			t.Errorf("Answers[%d] = %d; want %d", qID, sub.Answers[qID], oID)
		}
	}
	if sub.Score != 67 { // 2 of 3
		t.Errorf("Score = %d; want 67", sub.Score)
	}
	if want := "submitted: 67/100 (3 of 3 answered)"; !strings.Contains(out.String(), want) {
		t.Errorf("output missing %q:\n%s", want, out.String())
	}
}

func Test_console_solve_persistFailureKeepsAnswers(t *testing.T) {
	test := exam.Test{
		ID:        7,
		Title:     "Algebra Basics",
		Questions: []question.Question{newTestQuestion(1, "2 + 2 = ?")},
	}
	ctrl := &stubController{userID: "ba7e69b1-1bf0-4de6-8dc5-5086ecc0c375"}
	store := &stubStore{err: errors.New("platform unreachable")}
	cli, out := newTestConsole("solve 7\na\nsubmit\nquit\ny\nquit\n", ctrl, &stubAPI{tests: []exam.Test{test}}, store)

	if err := cli.run(context.Background()); err != nil {
		t.Fatalf("run() failed, %v", err)
	}
	if len(store.subs) != 0 {
		t.Fatalf("len(store.subs) = %d; want 0", len(store.subs))
	}
	if want := "platform unreachable"; !strings.Contains(out.String(), want) {
		t.Errorf("output missing %q:\n%s", want, out.String())
	}
	// the failed submit rolled back; the marked answer still renders
	if want := "* a) right"; !strings.Contains(out.String(), want) {
		t.Errorf("output missing %q:\n%s", want, out.String())
	}
}

func Test_letterIndex(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"a", 0},
		{"b", 1},
		{"j", 9},
		{"z", -1},
		{"ab", -1},
		{"", -1},
	}
	for _, tt := range tests {
		if got := letterIndex(tt.in); got != tt.want {
			t.Errorf("letterIndex(%q) = %d; want %d", tt.in, got, tt.want)
		}
	}
}
