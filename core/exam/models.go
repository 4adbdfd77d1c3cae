package exam

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/yedirenklicinar/akademi/core"
	"github.com/yedirenklicinar/akademi/core/question"
)

// Test is a fixed, ordered list of questions, optionally bounded by a
// wall-clock duration, assigned to grades and/or individual students.
type Test struct {
	ID              int       `json:"id"`
	Title           string    `json:"title"`
	DurationMinutes *int      `json:"duration_minutes,omitempty"`
	IsActive        bool      `json:"is_active"`
	CreatedBy       string    `json:"created_by"` // profile UUID
	CreatedAt       time.Time `json:"created_at"` // UTC

	QuestionIDs []int               `json:"question_ids,omitempty"` // ordered
	Questions   []question.Question `json:"questions,omitempty"`    // same order, when loaded
	GradeIDs    []int               `json:"grade_ids,omitempty"`
	StudentIDs  []string            `json:"student_ids,omitempty"`
}

// Submission records one completed quiz attempt.
type Submission struct {
	ID          int         `json:"id"`
	StudentID   string      `json:"student_id"` // profile UUID
	TestID      int         `json:"test_id"`
	Score       int         `json:"score"` // 0..100
	Answers     map[int]int `json:"answers"`
	CompletedAt time.Time   `json:"completed_at"` // UTC
}

type NewTest struct {
	Title           string   `json:"title" validate:"required"`
	DurationMinutes *int     `json:"duration_minutes" validate:"omitempty,gt=0"`
	IsActive        bool     `json:"is_active"`
	QuestionIDs     []int    `json:"question_ids" validate:"required,min=1"`
	GradeIDs        []int    `json:"grade_ids"`
	StudentIDs      []string `json:"student_ids" validate:"omitempty,dive,uuid4"`
}

func (nt *NewTest) Validate(validate *validator.Validate) error {
	nt.Title = core.CleanString(nt.Title)
	return validate.Struct(nt)
}

type QueryFilter struct {
	StudentID string `query:"student_id"`
	GradeID   int    `query:"grade_id"`
	IsActive  *bool  `query:"is_active"`
}

type SubmissionFilter struct {
	TestID    int    `query:"test_id"`
	StudentID string `query:"student_id"`
}
