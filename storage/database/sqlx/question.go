package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/yedirenklicinar/akademi/core/question"
)

type (
	questionRow struct {
		ID        int       `db:"id"`
		OutcomeID *int      `db:"outcome_id"`
		Content   string    `db:"content"`
		ImageURL  string    `db:"image_url"`
		CreatedAt time.Time `db:"created_at"`
	}

	optionRow struct {
		ID         int    `db:"id"`
		QuestionID int    `db:"question_id"`
		OptionText string `db:"option_text"`
		IsCorrect  bool   `db:"is_correct"`
	}
)

func (r questionRow) toQuestion() question.Question {
	return question.Question{
		ID:        r.ID,
		OutcomeID: r.OutcomeID,
		Content:   r.Content,
		ImageURL:  r.ImageURL,
		CreatedAt: r.CreatedAt,
	}
}

func (r optionRow) toOption() question.Option {
	return question.Option{ID: r.ID, QuestionID: r.QuestionID, Text: r.OptionText, IsCorrect: r.IsCorrect}
}

type questionRepository struct {
	db *sqlx.DB
}

var _ question.Repository = (*questionRepository)(nil) // interface compliance check

func NewQuestionRepository(db *sqlx.DB) *questionRepository {
	return &questionRepository{db: db}
}

func (repo questionRepository) insertOptions(ctx context.Context, tx *sqlx.Tx, q *question.Question) error {
	for i := range q.Options {
		q.Options[i].QuestionID = q.ID
		err := tx.GetContext(ctx, &q.Options[i].ID,
			tx.Rebind(`INSERT INTO question_option (question_id, option_text, is_correct) VALUES (?, ?, ?) RETURNING id`),
			q.ID, q.Options[i].Text, q.Options[i].IsCorrect)
		if err != nil {
			return errors.Wrap(err, "inserting option")
		}
	}
	return nil
}

func (repo questionRepository) CreateQuestion(ctx context.Context, q question.Question) (question.Question, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return question.Question{}, errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.GetContext(ctx, &q.ID,
		tx.Rebind(`INSERT INTO question (outcome_id, content, image_url, created_at) VALUES (?, ?, ?, ?) RETURNING id`),
		q.OutcomeID, q.Content, q.ImageURL, q.CreatedAt.UTC())
	if err != nil {
		return question.Question{}, errors.Wrap(err, "inserting question")
	}
	if err = repo.insertOptions(ctx, tx, &q); err != nil {
		return question.Question{}, err
	}

	if err = tx.Commit(); err != nil {
		return question.Question{}, errors.Wrap(err, "committing tx")
	}
	return q, nil
}

func (repo questionRepository) QueryQuestions(ctx context.Context, filter *question.QueryFilter) ([]question.Question, error) {
	query := `SELECT q.* FROM question q`
	var clauses []string
	var args []interface{}

	if filter != nil {
		if filter.CourseID != 0 {
			query += ` JOIN learning_outcome lo ON lo.id = q.outcome_id
				JOIN topic t ON t.id = lo.topic_id
				JOIN unit u ON u.id = t.unit_id`
			clauses = append(clauses, "u.course_id = ?")
			args = append(args, filter.CourseID)
		}
		if filter.OutcomeID != 0 {
			clauses = append(clauses, "q.outcome_id = ?")
			args = append(args, filter.OutcomeID)
		}
		if filter.Search != "" {
			clauses = append(clauses, "q.content ILIKE ?")
			args = append(args, "%"+filter.Search+"%")
		}
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY q.id"

	var rows []questionRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}

	questions := make([]question.Question, 0, len(rows))
	for _, row := range rows {
		q := row.toQuestion()
		if err := repo.loadOptions(ctx, &q); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func (repo questionRepository) loadOptions(ctx context.Context, q *question.Question) error {
	var rows []optionRow
	err := repo.db.SelectContext(ctx, &rows,
		repo.db.Rebind(`SELECT * FROM question_option WHERE question_id = ? ORDER BY id`), q.ID)
	if err != nil {
		return errors.Wrap(err, "querying options")
	}
	for _, row := range rows {
		q.Options = append(q.Options, row.toOption())
	}
	return nil
}

func (repo questionRepository) GetQuestion(ctx context.Context, id int) (question.Question, error) {
	var row questionRow
	err := repo.db.GetContext(ctx, &row, repo.db.Rebind(`SELECT * FROM question WHERE id = ?`), id)
	if err != nil {
		return question.Question{}, trapNoRowsErr(err, question.ErrNotFound, "finding question")
	}
	q := row.toQuestion()
	if err = repo.loadOptions(ctx, &q); err != nil {
		return question.Question{}, err
	}
	return q, nil
}

// UpdateQuestion replaces the question's content and its whole option set.
func (repo questionRepository) UpdateQuestion(ctx context.Context, q question.Question) (question.Question, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return question.Question{}, errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		tx.Rebind(`UPDATE question SET outcome_id = ?, content = ?, image_url = ? WHERE id = ?`),
		q.OutcomeID, q.Content, q.ImageURL, q.ID)
	if err != nil {
		return question.Question{}, errors.Wrap(err, "updating question")
	}
	if cnt, _ := res.RowsAffected(); cnt == 0 {
		return question.Question{}, question.ErrNotFound
	}

	if _, err = tx.ExecContext(ctx, tx.Rebind(`DELETE FROM question_option WHERE question_id = ?`), q.ID); err != nil {
		return question.Question{}, errors.Wrap(err, "replacing options")
	}
	if err = repo.insertOptions(ctx, tx, &q); err != nil {
		return question.Question{}, err
	}

	if err = tx.Commit(); err != nil {
		return question.Question{}, errors.Wrap(err, "committing tx")
	}
	return repo.GetQuestion(ctx, q.ID)
}

func (repo questionRepository) DeleteQuestionsByID(ctx context.Context, ids ...int) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`DELETE FROM question WHERE id IN (?)`, ids)
	if err != nil {
		return 0, errors.Wrap(err, "deleting questions")
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(query), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting questions")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting questions")
	}
	return int(cnt), nil
}
