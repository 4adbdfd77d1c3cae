package academic

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/yedirenklicinar/akademi/core"
)

// The academic hierarchy: grades → courses → units → topics → learning outcomes.

type Grade struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"` // UTC
	Courses   []Course  `json:"courses,omitempty"`
}

type Course struct {
	ID        int       `json:"id"`
	GradeID   int       `json:"grade_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Units     []Unit    `json:"units,omitempty"`
}

type Unit struct {
	ID       int     `json:"id"`
	CourseID int     `json:"course_id"`
	Name     string  `json:"name"`
	Position int     `json:"position"`
	Topics   []Topic `json:"topics,omitempty"`
}

type Topic struct {
	ID       int               `json:"id"`
	UnitID   int               `json:"unit_id"`
	Name     string            `json:"name"`
	Position int               `json:"position"`
	Outcomes []LearningOutcome `json:"outcomes,omitempty"`
}

type LearningOutcome struct {
	ID          int    `json:"id"`
	TopicID     int    `json:"topic_id"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

type NewGrade struct {
	Name string `json:"name" validate:"required"`
}

func (ng *NewGrade) Validate(validate *validator.Validate) error {
	ng.Name = core.CleanString(ng.Name)
	return validate.Struct(ng)
}

type NewCourse struct {
	GradeID int    `json:"grade_id" validate:"required"`
	Name    string `json:"name" validate:"required"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

type NewUnit struct {
	CourseID int    `json:"course_id" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Position int    `json:"position"`
}

func (nu *NewUnit) Validate(validate *validator.Validate) error {
	nu.Name = core.CleanString(nu.Name)
	return validate.Struct(nu)
}

type NewTopic struct {
	UnitID   int    `json:"unit_id" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Position int    `json:"position"`
}

func (nt *NewTopic) Validate(validate *validator.Validate) error {
	nt.Name = core.CleanString(nt.Name)
	return validate.Struct(nt)
}

type NewOutcome struct {
	TopicID     int    `json:"topic_id" validate:"required"`
	Code        string `json:"code" validate:"omitempty,outcomecode"`
	Description string `json:"description" validate:"required"`
}

func (no *NewOutcome) Validate(validate *validator.Validate) error {
	no.Code = core.CleanString(no.Code)
	no.Description = core.CleanString(no.Description)
	return validate.Struct(no)
}

// Rename updates the name of any node in the hierarchy.
type Rename struct {
	Name string `json:"name" validate:"required"`
}

func (r *Rename) Validate(validate *validator.Validate) error {
	r.Name = core.CleanString(r.Name)
	return validate.Struct(r)
}
