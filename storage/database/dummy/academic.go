package dummydb

import (
	"context"
	"sort"

	"github.com/yedirenklicinar/akademi/core/academic"
)

type academicRepository struct {
	db *academicTable
}

var _ academic.Repository = (*academicRepository)(nil) // interface compliance check

func NewAcademicRepository(db *DB) academic.Repository {
	return &academicRepository{db: db.academic}
}

func (repo *academicRepository) nextPK() int {
	repo.db.pk++
	return repo.db.pk
}

func (repo *academicRepository) CreateGrade(ctx context.Context, g academic.Grade) (academic.Grade, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	g.ID = repo.nextPK()
	repo.db.grades[g.ID] = &g
	return g, nil
}

func (repo *academicRepository) QueryGrades(ctx context.Context, withCourses bool) ([]academic.Grade, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	grades := make([]academic.Grade, 0, len(repo.db.grades))
	for _, g := range repo.db.grades {
		grade := *g
		if withCourses {
			grade.Courses = repo.coursesOf(grade.ID)
		}
		grades = append(grades, grade)
	}
	sort.Slice(grades, func(i, j int) bool { return grades[i].Name < grades[j].Name })
	return grades, nil
}

func (repo *academicRepository) coursesOf(gradeID int) []academic.Course {
	var courses []academic.Course
	for _, c := range repo.db.courses {
		if c.GradeID == gradeID {
			courses = append(courses, *c)
		}
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Name < courses[j].Name })
	return courses
}

func (repo *academicRepository) GetGrade(ctx context.Context, id int) (academic.Grade, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if g, ok := repo.db.grades[id]; ok {
		return *g, nil
	}
	return academic.Grade{}, academic.ErrNotFound
}

func (repo *academicRepository) RenameGrade(ctx context.Context, id int, name string) (academic.Grade, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	g, ok := repo.db.grades[id]
	if !ok {
		return academic.Grade{}, academic.ErrNotFound
	}
	g.Name = name
	return *g, nil
}

func (repo *academicRepository) DeleteGrade(ctx context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	delete(repo.db.grades, id)
	return nil
}

func (repo *academicRepository) CreateCourse(ctx context.Context, c academic.Course) (academic.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c.ID = repo.nextPK()
	repo.db.courses[c.ID] = &c
	return c, nil
}

func (repo *academicRepository) QueryCourses(ctx context.Context, gradeID int) ([]academic.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if gradeID != 0 {
		return repo.coursesOf(gradeID), nil
	}
	courses := make([]academic.Course, 0, len(repo.db.courses))
	for _, c := range repo.db.courses {
		courses = append(courses, *c)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Name < courses[j].Name })
	return courses, nil
}

func (repo *academicRepository) GetCourse(ctx context.Context, id int, deep bool) (academic.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	c, ok := repo.db.courses[id]
	if !ok {
		return academic.Course{}, academic.ErrNotFound
	}
	course := *c
	if !deep {
		return course, nil
	}

	for _, u := range repo.db.units {
		if u.CourseID != id {
			continue
		}
		unit := *u
		for _, t := range repo.db.topics {
			if t.UnitID != unit.ID {
				continue
			}
			topic := *t
			for _, o := range repo.db.outcomes {
				if o.TopicID == topic.ID {
					topic.Outcomes = append(topic.Outcomes, *o)
				}
			}
			sort.Slice(topic.Outcomes, func(i, j int) bool { return topic.Outcomes[i].ID < topic.Outcomes[j].ID })
			unit.Topics = append(unit.Topics, topic)
		}
		sort.Slice(unit.Topics, func(i, j int) bool { return unit.Topics[i].Position < unit.Topics[j].Position })
		course.Units = append(course.Units, unit)
	}
	sort.Slice(course.Units, func(i, j int) bool { return course.Units[i].Position < course.Units[j].Position })
	return course, nil
}

func (repo *academicRepository) RenameCourse(ctx context.Context, id int, name string) (academic.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c, ok := repo.db.courses[id]
	if !ok {
		return academic.Course{}, academic.ErrNotFound
	}
	c.Name = name
	return *c, nil
}

func (repo *academicRepository) DeleteCourse(ctx context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	delete(repo.db.courses, id)
	return nil
}

func (repo *academicRepository) CreateUnit(ctx context.Context, u academic.Unit) (academic.Unit, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	u.ID = repo.nextPK()
	repo.db.units[u.ID] = &u
	return u, nil
}

func (repo *academicRepository) RenameUnit(ctx context.Context, id int, name string) (academic.Unit, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	u, ok := repo.db.units[id]
	if !ok {
		return academic.Unit{}, academic.ErrNotFound
	}
	u.Name = name
	return *u, nil
}

func (repo *academicRepository) DeleteUnit(ctx context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	delete(repo.db.units, id)
	return nil
}

func (repo *academicRepository) CreateTopic(ctx context.Context, t academic.Topic) (academic.Topic, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	t.ID = repo.nextPK()
	repo.db.topics[t.ID] = &t
	return t, nil
}

func (repo *academicRepository) RenameTopic(ctx context.Context, id int, name string) (academic.Topic, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	t, ok := repo.db.topics[id]
	if !ok {
		return academic.Topic{}, academic.ErrNotFound
	}
	t.Name = name
	return *t, nil
}

func (repo *academicRepository) DeleteTopic(ctx context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	delete(repo.db.topics, id)
	return nil
}

func (repo *academicRepository) CreateOutcome(ctx context.Context, o academic.LearningOutcome) (academic.LearningOutcome, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	o.ID = repo.nextPK()
	repo.db.outcomes[o.ID] = &o
	return o, nil
}

func (repo *academicRepository) UpdateOutcome(ctx context.Context, o academic.LearningOutcome) (academic.LearningOutcome, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.outcomes[o.ID]
	if !ok {
		return academic.LearningOutcome{}, academic.ErrNotFound
	}
	orig.Code = o.Code
	orig.Description = o.Description
	return *orig, nil
}

func (repo *academicRepository) DeleteOutcome(ctx context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	delete(repo.db.outcomes, id)
	return nil
}
