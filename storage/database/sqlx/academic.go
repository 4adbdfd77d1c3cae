package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/yedirenklicinar/akademi/core/academic"
)

type (
	gradeRow struct {
		ID        int       `db:"id"`
		Name      string    `db:"name"`
		CreatedAt time.Time `db:"created_at"`
	}

	courseRow struct {
		ID        int       `db:"id"`
		GradeID   int       `db:"grade_id"`
		Name      string    `db:"name"`
		CreatedAt time.Time `db:"created_at"`
	}

	unitRow struct {
		ID       int    `db:"id"`
		CourseID int    `db:"course_id"`
		Name     string `db:"name"`
		Position int    `db:"position"`
	}

	topicRow struct {
		ID       int    `db:"id"`
		UnitID   int    `db:"unit_id"`
		Name     string `db:"name"`
		Position int    `db:"position"`
	}

	outcomeRow struct {
		ID          int    `db:"id"`
		TopicID     int    `db:"topic_id"`
		Code        string `db:"code"`
		Description string `db:"description"`
	}
)

func (r gradeRow) toGrade() academic.Grade {
	return academic.Grade{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt}
}

func (r courseRow) toCourse() academic.Course {
	return academic.Course{ID: r.ID, GradeID: r.GradeID, Name: r.Name, CreatedAt: r.CreatedAt}
}

func (r unitRow) toUnit() academic.Unit {
	return academic.Unit{ID: r.ID, CourseID: r.CourseID, Name: r.Name, Position: r.Position}
}

func (r topicRow) toTopic() academic.Topic {
	return academic.Topic{ID: r.ID, UnitID: r.UnitID, Name: r.Name, Position: r.Position}
}

func (r outcomeRow) toOutcome() academic.LearningOutcome {
	return academic.LearningOutcome{ID: r.ID, TopicID: r.TopicID, Code: r.Code, Description: r.Description}
}

type academicRepository struct {
	db *sqlx.DB
}

var _ academic.Repository = (*academicRepository)(nil) // interface compliance check

func NewAcademicRepository(db *sqlx.DB) *academicRepository {
	return &academicRepository{db: db}
}

func (repo academicRepository) CreateGrade(ctx context.Context, g academic.Grade) (academic.Grade, error) {
	err := repo.db.GetContext(ctx, &g.ID,
		repo.db.Rebind(`INSERT INTO grade (name, created_at) VALUES (?, ?) RETURNING id`),
		g.Name, g.CreatedAt.UTC())
	if err != nil {
		return academic.Grade{}, errors.Wrap(err, "inserting grade")
	}
	return g, nil
}

func (repo academicRepository) QueryGrades(ctx context.Context, withCourses bool) ([]academic.Grade, error) {
	var rows []gradeRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM grade ORDER BY name`); err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}

	grades := make([]academic.Grade, 0, len(rows))
	for _, row := range rows {
		g := row.toGrade()
		if withCourses {
			courses, err := repo.QueryCourses(ctx, g.ID)
			if err != nil {
				return nil, err
			}
			g.Courses = courses
		}
		grades = append(grades, g)
	}
	return grades, nil
}

func (repo academicRepository) GetGrade(ctx context.Context, id int) (academic.Grade, error) {
	var row gradeRow
	err := repo.db.GetContext(ctx, &row, repo.db.Rebind(`SELECT * FROM grade WHERE id = ?`), id)
	if err != nil {
		return academic.Grade{}, trapNoRowsErr(err, academic.ErrNotFound, "finding grade")
	}
	return row.toGrade(), nil
}

func (repo academicRepository) RenameGrade(ctx context.Context, id int, name string) (academic.Grade, error) {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(`UPDATE grade SET name = ? WHERE id = ?`), name, id)
	if err != nil {
		return academic.Grade{}, errors.Wrap(err, "renaming grade")
	}
	if cnt, _ := res.RowsAffected(); cnt == 0 {
		return academic.Grade{}, academic.ErrNotFound
	}
	return repo.GetGrade(ctx, id)
}

func (repo academicRepository) DeleteGrade(ctx context.Context, id int) error {
	_, err := repo.db.ExecContext(ctx, repo.db.Rebind(`DELETE FROM grade WHERE id = ?`), id)
	return errors.Wrap(err, "deleting grade")
}

func (repo academicRepository) CreateCourse(ctx context.Context, c academic.Course) (academic.Course, error) {
	err := repo.db.GetContext(ctx, &c.ID,
		repo.db.Rebind(`INSERT INTO course (grade_id, name, created_at) VALUES (?, ?, ?) RETURNING id`),
		c.GradeID, c.Name, c.CreatedAt.UTC())
	if err != nil {
		return academic.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (repo academicRepository) QueryCourses(ctx context.Context, gradeID int) ([]academic.Course, error) {
	query := `SELECT * FROM course`
	var args []interface{}
	if gradeID != 0 {
		query += ` WHERE grade_id = ?`
		args = append(args, gradeID)
	}
	query += ` ORDER BY name`

	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]academic.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.toCourse())
	}
	return courses, nil
}

func (repo academicRepository) GetCourse(ctx context.Context, id int, deep bool) (academic.Course, error) {
	var row courseRow
	err := repo.db.GetContext(ctx, &row, repo.db.Rebind(`SELECT * FROM course WHERE id = ?`), id)
	if err != nil {
		return academic.Course{}, trapNoRowsErr(err, academic.ErrNotFound, "finding course")
	}
	c := row.toCourse()
	if !deep {
		return c, nil
	}

	// load the full hierarchy under the course
	var unitRows []unitRow
	if err = repo.db.SelectContext(ctx, &unitRows,
		repo.db.Rebind(`SELECT * FROM unit WHERE course_id = ? ORDER BY position, name`), id); err != nil {
		return academic.Course{}, errors.Wrap(err, "querying units")
	}
	for _, ur := range unitRows {
		u := ur.toUnit()

		var topicRows []topicRow
		if err = repo.db.SelectContext(ctx, &topicRows,
			repo.db.Rebind(`SELECT * FROM topic WHERE unit_id = ? ORDER BY position, name`), u.ID); err != nil {
			return academic.Course{}, errors.Wrap(err, "querying topics")
		}
		for _, tr := range topicRows {
			t := tr.toTopic()

			var outcomeRows []outcomeRow
			if err = repo.db.SelectContext(ctx, &outcomeRows,
				repo.db.Rebind(`SELECT * FROM learning_outcome WHERE topic_id = ? ORDER BY id`), t.ID); err != nil {
				return academic.Course{}, errors.Wrap(err, "querying outcomes")
			}
			for _, or := range outcomeRows {
				t.Outcomes = append(t.Outcomes, or.toOutcome())
			}
			u.Topics = append(u.Topics, t)
		}
		c.Units = append(c.Units, u)
	}
	return c, nil
}

func (repo academicRepository) RenameCourse(ctx context.Context, id int, name string) (academic.Course, error) {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(`UPDATE course SET name = ? WHERE id = ?`), name, id)
	if err != nil {
		return academic.Course{}, errors.Wrap(err, "renaming course")
	}
	if cnt, _ := res.RowsAffected(); cnt == 0 {
		return academic.Course{}, academic.ErrNotFound
	}
	return repo.GetCourse(ctx, id, false)
}

func (repo academicRepository) DeleteCourse(ctx context.Context, id int) error {
	_, err := repo.db.ExecContext(ctx, repo.db.Rebind(`DELETE FROM course WHERE id = ?`), id)
	return errors.Wrap(err, "deleting course")
}

func (repo academicRepository) CreateUnit(ctx context.Context, u academic.Unit) (academic.Unit, error) {
	err := repo.db.GetContext(ctx, &u.ID,
		repo.db.Rebind(`INSERT INTO unit (course_id, name, position) VALUES (?, ?, ?) RETURNING id`),
		u.CourseID, u.Name, u.Position)
	if err != nil {
		return academic.Unit{}, errors.Wrap(err, "inserting unit")
	}
	return u, nil
}

func (repo academicRepository) RenameUnit(ctx context.Context, id int, name string) (academic.Unit, error) {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(`UPDATE unit SET name = ? WHERE id = ?`), name, id)
	if err != nil {
		return academic.Unit{}, errors.Wrap(err, "renaming unit")
	}
	if cnt, _ := res.RowsAffected(); cnt == 0 {
		return academic.Unit{}, academic.ErrNotFound
	}

	var row unitRow
	err = repo.db.GetContext(ctx, &row, repo.db.Rebind(`SELECT * FROM unit WHERE id = ?`), id)
	if err != nil {
		return academic.Unit{}, trapNoRowsErr(err, academic.ErrNotFound, "finding unit")
	}
	return row.toUnit(), nil
}

func (repo academicRepository) DeleteUnit(ctx context.Context, id int) error {
	_, err := repo.db.ExecContext(ctx, repo.db.Rebind(`DELETE FROM unit WHERE id = ?`), id)
	return errors.Wrap(err, "deleting unit")
}

func (repo academicRepository) CreateTopic(ctx context.Context, t academic.Topic) (academic.Topic, error) {
	err := repo.db.GetContext(ctx, &t.ID,
		repo.db.Rebind(`INSERT INTO topic (unit_id, name, position) VALUES (?, ?, ?) RETURNING id`),
		t.UnitID, t.Name, t.Position)
	if err != nil {
		return academic.Topic{}, errors.Wrap(err, "inserting topic")
	}
	return t, nil
}

func (repo academicRepository) RenameTopic(ctx context.Context, id int, name string) (academic.Topic, error) {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(`UPDATE topic SET name = ? WHERE id = ?`), name, id)
	if err != nil {
		return academic.Topic{}, errors.Wrap(err, "renaming topic")
	}
	if cnt, _ := res.RowsAffected(); cnt == 0 {
		return academic.Topic{}, academic.ErrNotFound
	}

	var row topicRow
	err = repo.db.GetContext(ctx, &row, repo.db.Rebind(`SELECT * FROM topic WHERE id = ?`), id)
	if err != nil {
		return academic.Topic{}, trapNoRowsErr(err, academic.ErrNotFound, "finding topic")
	}
	return row.toTopic(), nil
}

func (repo academicRepository) DeleteTopic(ctx context.Context, id int) error {
	_, err := repo.db.ExecContext(ctx, repo.db.Rebind(`DELETE FROM topic WHERE id = ?`), id)
	return errors.Wrap(err, "deleting topic")
}

func (repo academicRepository) CreateOutcome(ctx context.Context, o academic.LearningOutcome) (academic.LearningOutcome, error) {
	err := repo.db.GetContext(ctx, &o.ID,
		repo.db.Rebind(`INSERT INTO learning_outcome (topic_id, code, description) VALUES (?, ?, ?) RETURNING id`),
		o.TopicID, o.Code, o.Description)
	if err != nil {
		return academic.LearningOutcome{}, errors.Wrap(err, "inserting outcome")
	}
	return o, nil
}

func (repo academicRepository) UpdateOutcome(ctx context.Context, o academic.LearningOutcome) (academic.LearningOutcome, error) {
	res, err := repo.db.ExecContext(ctx,
		repo.db.Rebind(`UPDATE learning_outcome SET code = ?, description = ? WHERE id = ?`),
		o.Code, o.Description, o.ID)
	if err != nil {
		return academic.LearningOutcome{}, errors.Wrap(err, "updating outcome")
	}
	if cnt, _ := res.RowsAffected(); cnt == 0 {
		return academic.LearningOutcome{}, academic.ErrNotFound
	}
	return o, nil
}

func (repo academicRepository) DeleteOutcome(ctx context.Context, id int) error {
	_, err := repo.db.ExecContext(ctx, repo.db.Rebind(`DELETE FROM learning_outcome WHERE id = ?`), id)
	return errors.Wrap(err, "deleting outcome")
}
