// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/yedirenklicinar/akademi/core/academic"
	"github.com/yedirenklicinar/akademi/core/exam"
	"github.com/yedirenklicinar/akademi/core/question"
	"github.com/yedirenklicinar/akademi/core/user"
)

func CreateProfile(
	t *testing.T,
	repo user.Repository,
	name, email, pwd, role string,
	gradeID *int,
	isActive bool,
	createdAt ...time.Time,
) user.Profile {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	prof := user.Profile{
		FullName:  name,
		Email:     email,
		Role:      role,
		GradeID:   gradeID,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	prof.SetActive(isActive)
	if pwd != "" {
		if err := prof.SetPassword(pwd); err != nil {
			t.Fatalf("CreateProfile() failed: %v", err)
		}
	}
	prof, err := repo.CreateProfile(context.Background(), prof)
	if err != nil {
		t.Fatalf("CreateProfile() failed: %v", err)
	}
	return prof
}

func CreateGrade(t *testing.T, repo academic.Repository, name string) academic.Grade {
	t.Helper()

	grade, err := repo.CreateGrade(context.Background(), academic.Grade{Name: name, CreatedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("CreateGrade() failed: %v", err)
	}
	return grade
}

// CreateQuestion makes a question with n options; the first one is correct.
func CreateQuestion(t *testing.T, repo question.Repository, content string, n int) question.Question {
	t.Helper()

	qst := question.Question{Content: content, CreatedAt: time.Now().UTC()}
	for i := 0; i < n; i++ {
		qst.Options = append(qst.Options, question.Option{
			Text:      content + " option",
			IsCorrect: i == 0,
		})
	}
	qst, err := repo.CreateQuestion(context.Background(), qst)
	if err != nil {
		t.Fatalf("CreateQuestion() failed: %v", err)
	}
	return qst
}

func CreateTest(
	t *testing.T,
	repo exam.Repository,
	title, createdBy string,
	active bool,
	questionIDs, gradeIDs []int,
	studentIDs []string,
) exam.Test {
	t.Helper()

	test, err := repo.CreateTest(context.Background(), exam.Test{
		Title:       title,
		IsActive:    active,
		CreatedBy:   createdBy,
		CreatedAt:   time.Now().UTC(),
		QuestionIDs: questionIDs,
		GradeIDs:    gradeIDs,
		StudentIDs:  studentIDs,
	})
	if err != nil {
		t.Fatalf("CreateTest() failed: %v", err)
	}
	return test
}
