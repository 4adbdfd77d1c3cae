package sqlxrepos

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/yedirenklicinar/akademi/core/exam"
)

type (
	testRow struct {
		ID              int       `db:"id"`
		Title           string    `db:"title"`
		DurationMinutes *int      `db:"duration_minutes"`
		IsActive        bool      `db:"is_active"`
		CreatedBy       string    `db:"created_by"`
		CreatedAt       time.Time `db:"created_at"`
	}

	submissionRow struct {
		ID          int       `db:"id"`
		StudentID   string    `db:"student_id"`
		TestID      int       `db:"test_id"`
		Score       int       `db:"score"`
		Answers     []byte    `db:"answers"`
		CompletedAt time.Time `db:"completed_at"`
	}
)

func (r testRow) toTest() exam.Test {
	return exam.Test{
		ID:              r.ID,
		Title:           r.Title,
		DurationMinutes: r.DurationMinutes,
		IsActive:        r.IsActive,
		CreatedBy:       r.CreatedBy,
		CreatedAt:       r.CreatedAt,
	}
}

func (r submissionRow) toSubmission() (exam.Submission, error) {
	sub := exam.Submission{
		ID:          r.ID,
		StudentID:   r.StudentID,
		TestID:      r.TestID,
		Score:       r.Score,
		CompletedAt: r.CompletedAt,
	}
	if len(r.Answers) > 0 {
		// answers are stored keyed by question id
		raw := make(map[string]int)
		if err := json.Unmarshal(r.Answers, &raw); err != nil {
			return exam.Submission{}, errors.Wrap(err, "unmarshalling answers")
		}
		sub.Answers = make(map[int]int, len(raw))
		for k, v := range raw {
			id, err := strconv.Atoi(k)
			if err != nil {
				return exam.Submission{}, errors.Wrap(err, "unmarshalling answers")
			}
			sub.Answers[id] = v
		}
	}
	return sub, nil
}

type examRepository struct {
	db *sqlx.DB
}

var _ exam.Repository = (*examRepository)(nil) // interface compliance check

func NewExamRepository(db *sqlx.DB) *examRepository {
	return &examRepository{db: db}
}

func (repo examRepository) CreateTest(ctx context.Context, t exam.Test) (exam.Test, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return exam.Test{}, errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.GetContext(ctx, &t.ID,
		tx.Rebind(`INSERT INTO test (title, duration_minutes, is_active, created_by, created_at) VALUES (?, ?, ?, ?, ?) RETURNING id`),
		t.Title, t.DurationMinutes, t.IsActive, t.CreatedBy, t.CreatedAt.UTC())
	if err != nil {
		return exam.Test{}, errors.Wrap(err, "inserting test")
	}

	for pos, qid := range t.QuestionIDs {
		if _, err = tx.ExecContext(ctx,
			tx.Rebind(`INSERT INTO test_question (test_id, question_id, position) VALUES (?, ?, ?)`),
			t.ID, qid, pos); err != nil {
			return exam.Test{}, errors.Wrap(err, "linking question")
		}
	}
	for _, gid := range t.GradeIDs {
		if _, err = tx.ExecContext(ctx,
			tx.Rebind(`INSERT INTO test_grade (test_id, grade_id) VALUES (?, ?)`), t.ID, gid); err != nil {
			return exam.Test{}, errors.Wrap(err, "assigning grade")
		}
	}
	for _, sid := range t.StudentIDs {
		if _, err = tx.ExecContext(ctx,
			tx.Rebind(`INSERT INTO test_student (test_id, student_id) VALUES (?, ?)`), t.ID, sid); err != nil {
			return exam.Test{}, errors.Wrap(err, "assigning student")
		}
	}

	if err = tx.Commit(); err != nil {
		return exam.Test{}, errors.Wrap(err, "committing tx")
	}
	return t, nil
}

func (repo examRepository) QueryTests(ctx context.Context, filter *exam.QueryFilter) ([]exam.Test, error) {
	query := `SELECT DISTINCT t.* FROM test t`
	var clauses []string
	var args []interface{}

	if filter != nil {
		// a test is visible to a student when assigned directly or via their grade
		if filter.StudentID != "" || filter.GradeID != 0 {
			query += ` LEFT JOIN test_student ts ON ts.test_id = t.id
				LEFT JOIN test_grade tg ON tg.test_id = t.id`
			var visible []string
			if filter.StudentID != "" {
				visible = append(visible, "ts.student_id = ?")
				args = append(args, filter.StudentID)
			}
			if filter.GradeID != 0 {
				visible = append(visible, "tg.grade_id = ?")
				args = append(args, filter.GradeID)
			}
			clauses = append(clauses, "("+strings.Join(visible, " OR ")+")")
		}
		if filter.IsActive != nil {
			clauses = append(clauses, "t.is_active = ?")
			args = append(args, *filter.IsActive)
		}
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY t.id DESC"

	var rows []testRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying tests")
	}

	tests := make([]exam.Test, 0, len(rows))
	for _, row := range rows {
		t := row.toTest()
		if err := repo.loadLinks(ctx, &t); err != nil {
			return nil, err
		}
		tests = append(tests, t)
	}
	return tests, nil
}

func (repo examRepository) loadLinks(ctx context.Context, t *exam.Test) error {
	if err := repo.db.SelectContext(ctx, &t.QuestionIDs,
		repo.db.Rebind(`SELECT question_id FROM test_question WHERE test_id = ? ORDER BY position`), t.ID); err != nil {
		return errors.Wrap(err, "querying test questions")
	}
	if err := repo.db.SelectContext(ctx, &t.GradeIDs,
		repo.db.Rebind(`SELECT grade_id FROM test_grade WHERE test_id = ?`), t.ID); err != nil {
		return errors.Wrap(err, "querying test grades")
	}
	if err := repo.db.SelectContext(ctx, &t.StudentIDs,
		repo.db.Rebind(`SELECT student_id FROM test_student WHERE test_id = ?`), t.ID); err != nil {
		return errors.Wrap(err, "querying test students")
	}
	return nil
}

func (repo examRepository) GetTest(ctx context.Context, id int, withQuestions bool) (exam.Test, error) {
	var row testRow
	err := repo.db.GetContext(ctx, &row, repo.db.Rebind(`SELECT * FROM test WHERE id = ?`), id)
	if err != nil {
		return exam.Test{}, trapNoRowsErr(err, exam.ErrNotFound, "finding test")
	}
	t := row.toTest()
	if err = repo.loadLinks(ctx, &t); err != nil {
		return exam.Test{}, err
	}
	if !withQuestions {
		return t, nil
	}

	// questions come back in the test's fixed order
	var qRows []questionRow
	if err = repo.db.SelectContext(ctx, &qRows, repo.db.Rebind(`
		SELECT q.* FROM question q
		JOIN test_question tq ON tq.question_id = q.id
		WHERE tq.test_id = ?
		ORDER BY tq.position`), id); err != nil {
		return exam.Test{}, errors.Wrap(err, "querying test questions")
	}
	for _, qr := range qRows {
		q := qr.toQuestion()

		var oRows []optionRow
		if err = repo.db.SelectContext(ctx, &oRows,
			repo.db.Rebind(`SELECT * FROM question_option WHERE question_id = ? ORDER BY id`), q.ID); err != nil {
			return exam.Test{}, errors.Wrap(err, "querying options")
		}
		for _, or := range oRows {
			q.Options = append(q.Options, or.toOption())
		}
		t.Questions = append(t.Questions, q)
	}
	return t, nil
}

func (repo examRepository) SetTestActive(ctx context.Context, id int, active bool) (exam.Test, error) {
	res, err := repo.db.ExecContext(ctx,
		repo.db.Rebind(`UPDATE test SET is_active = ? WHERE id = ?`), active, id)
	if err != nil {
		return exam.Test{}, errors.Wrap(err, "updating test")
	}
	if cnt, _ := res.RowsAffected(); cnt == 0 {
		return exam.Test{}, exam.ErrNotFound
	}
	return repo.GetTest(ctx, id, false)
}

func (repo examRepository) DeleteTest(ctx context.Context, id int) error {
	_, err := repo.db.ExecContext(ctx, repo.db.Rebind(`DELETE FROM test WHERE id = ?`), id)
	return errors.Wrap(err, "deleting test")
}

func (repo examRepository) CreateSubmission(ctx context.Context, sub exam.Submission) (exam.Submission, error) {
	answers := make(map[string]int, len(sub.Answers))
	for k, v := range sub.Answers {
		answers[strconv.Itoa(k)] = v
	}
	raw, err := json.Marshal(answers)
	if err != nil {
		return exam.Submission{}, errors.Wrap(err, "marshalling answers")
	}

	err = repo.db.GetContext(ctx, &sub.ID, repo.db.Rebind(`
		INSERT INTO submission (student_id, test_id, score, answers, completed_at)
		VALUES (?, ?, ?, ?, ?) RETURNING id`),
		sub.StudentID, sub.TestID, sub.Score, raw, sub.CompletedAt.UTC())
	if err != nil {
		return exam.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return sub, nil
}

func (repo examRepository) QuerySubmissions(ctx context.Context, filter *exam.SubmissionFilter) ([]exam.Submission, error) {
	query := `SELECT * FROM submission`
	var clauses []string
	var args []interface{}

	if filter != nil {
		if filter.TestID != 0 {
			clauses = append(clauses, "test_id = ?")
			args = append(args, filter.TestID)
		}
		if filter.StudentID != "" {
			clauses = append(clauses, "student_id = ?")
			args = append(args, filter.StudentID)
		}
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY completed_at DESC"

	var rows []submissionRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}

	subs := make([]exam.Submission, 0, len(rows))
	for _, row := range rows {
		sub, err := row.toSubmission()
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}
