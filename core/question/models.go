package question

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/yedirenklicinar/akademi/core"
)

type Question struct {
	ID        int       `json:"id"`
	OutcomeID *int      `json:"outcome_id,omitempty"`
	Content   string    `json:"content"`
	ImageURL  string    `json:"image_url,omitempty"`
	Options   []Option  `json:"options"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type Option struct {
	ID         int    `json:"id"`
	QuestionID int    `json:"question_id"`
	Text       string `json:"option_text"`
	IsCorrect  bool   `json:"is_correct"`
}

// CorrectOption returns the designated correct option, if any.
func (q Question) CorrectOption() (Option, bool) {
	for _, o := range q.Options {
		if o.IsCorrect {
			return o, true
		}
	}
	return Option{}, false
}

// HasOption reports whether the option belongs to this question's option set.
func (q Question) HasOption(optionID int) bool {
	for _, o := range q.Options {
		if o.ID == optionID {
			return true
		}
	}
	return false
}

type NewOption struct {
	Text      string `json:"option_text" validate:"required"`
	IsCorrect bool   `json:"is_correct"`
}

type NewQuestion struct {
	OutcomeID *int        `json:"outcome_id"`
	Content   string      `json:"content" validate:"required"`
	ImageURL  string      `json:"image_url"`
	Options   []NewOption `json:"options" validate:"required,min=2,dive"`
}

func (nq *NewQuestion) Validate(validate *validator.Validate) error {
	nq.Content = core.CleanString(nq.Content)
	for i := range nq.Options {
		nq.Options[i].Text = core.CleanString(nq.Options[i].Text)
	}
	if err := validate.Struct(nq); err != nil {
		return err
	}

	var correct int
	for _, o := range nq.Options {
		if o.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		return core.NewValidationError(nil, core.FieldError{
			Field: "options", Error: "exactly one option must be marked correct",
		})
	}
	return nil
}

type QueryFilter struct {
	CourseID  int    `query:"course_id"`
	OutcomeID int    `query:"outcome_id"`
	Search    string `query:"search"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
