package academic

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("not found")

type (
	Repository interface {
		CreateGrade(ctx context.Context, g Grade) (Grade, error)
		QueryGrades(ctx context.Context, withCourses bool) ([]Grade, error)
		GetGrade(ctx context.Context, id int) (Grade, error)
		RenameGrade(ctx context.Context, id int, name string) (Grade, error)
		DeleteGrade(ctx context.Context, id int) error

		CreateCourse(ctx context.Context, c Course) (Course, error)
		QueryCourses(ctx context.Context, gradeID int) ([]Course, error)
		GetCourse(ctx context.Context, id int, deep bool) (Course, error)
		RenameCourse(ctx context.Context, id int, name string) (Course, error)
		DeleteCourse(ctx context.Context, id int) error

		CreateUnit(ctx context.Context, u Unit) (Unit, error)
		RenameUnit(ctx context.Context, id int, name string) (Unit, error)
		DeleteUnit(ctx context.Context, id int) error

		CreateTopic(ctx context.Context, t Topic) (Topic, error)
		RenameTopic(ctx context.Context, id int, name string) (Topic, error)
		DeleteTopic(ctx context.Context, id int) error

		CreateOutcome(ctx context.Context, o LearningOutcome) (LearningOutcome, error)
		UpdateOutcome(ctx context.Context, o LearningOutcome) (LearningOutcome, error)
		DeleteOutcome(ctx context.Context, id int) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CreateGrade(ng NewGrade) (Grade, error) {
	return svc.repo.CreateGrade(context.Background(), Grade{Name: ng.Name, CreatedAt: time.Now().UTC()})
}

func (svc *Service) QueryGrades(withCourses bool) ([]Grade, error) {
	return svc.repo.QueryGrades(context.Background(), withCourses)
}

func (svc *Service) GetGrade(id int) (Grade, error) {
	return svc.repo.GetGrade(context.Background(), id)
}

func (svc *Service) RenameGrade(id int, r Rename) (Grade, error) {
	return svc.repo.RenameGrade(context.Background(), id, r.Name)
}

func (svc *Service) DeleteGrade(id int) error {
	return svc.repo.DeleteGrade(context.Background(), id)
}

func (svc *Service) CreateCourse(nc NewCourse) (Course, error) {
	return svc.repo.CreateCourse(context.Background(), Course{
		GradeID:   nc.GradeID,
		Name:      nc.Name,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *Service) QueryCourses(gradeID int) ([]Course, error) {
	return svc.repo.QueryCourses(context.Background(), gradeID)
}

// GetCourse returns a course; deep loads its units, topics and outcomes.
func (svc *Service) GetCourse(id int, deep bool) (Course, error) {
	return svc.repo.GetCourse(context.Background(), id, deep)
}

func (svc *Service) RenameCourse(id int, r Rename) (Course, error) {
	return svc.repo.RenameCourse(context.Background(), id, r.Name)
}

func (svc *Service) DeleteCourse(id int) error {
	return svc.repo.DeleteCourse(context.Background(), id)
}

func (svc *Service) CreateUnit(nu NewUnit) (Unit, error) {
	return svc.repo.CreateUnit(context.Background(), Unit{CourseID: nu.CourseID, Name: nu.Name, Position: nu.Position})
}

func (svc *Service) RenameUnit(id int, r Rename) (Unit, error) {
	return svc.repo.RenameUnit(context.Background(), id, r.Name)
}

func (svc *Service) DeleteUnit(id int) error {
	return svc.repo.DeleteUnit(context.Background(), id)
}

func (svc *Service) CreateTopic(nt NewTopic) (Topic, error) {
	return svc.repo.CreateTopic(context.Background(), Topic{UnitID: nt.UnitID, Name: nt.Name, Position: nt.Position})
}

func (svc *Service) RenameTopic(id int, r Rename) (Topic, error) {
	return svc.repo.RenameTopic(context.Background(), id, r.Name)
}

func (svc *Service) DeleteTopic(id int) error {
	return svc.repo.DeleteTopic(context.Background(), id)
}

func (svc *Service) CreateOutcome(no NewOutcome) (LearningOutcome, error) {
	return svc.repo.CreateOutcome(context.Background(), LearningOutcome{
		TopicID:     no.TopicID,
		Code:        no.Code,
		Description: no.Description,
	})
}

func (svc *Service) UpdateOutcome(o LearningOutcome) (LearningOutcome, error) {
	return svc.repo.UpdateOutcome(context.Background(), o)
}

func (svc *Service) DeleteOutcome(id int) error {
	return svc.repo.DeleteOutcome(context.Background(), id)
}
