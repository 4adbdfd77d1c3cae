package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/yedirenklicinar/akademi/core/question"
)

type questionRepository struct {
	db *questionTable
}

var _ question.Repository = (*questionRepository)(nil) // interface compliance check

func NewQuestionRepository(db *DB) question.Repository {
	return &questionRepository{db: db.question}
}

func (repo *questionRepository) CreateQuestion(ctx context.Context, q question.Question) (question.Question, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.pk++
	q.ID = repo.db.pk
	for i := range q.Options {
		repo.db.optPK++
		q.Options[i].ID = repo.db.optPK
		q.Options[i].QuestionID = q.ID
	}
	repo.db.table[q.ID] = &q
	return q, nil
}

func (repo *questionRepository) QueryQuestions(ctx context.Context, filter *question.QueryFilter) ([]question.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	questions := make([]question.Question, 0, len(repo.db.table))
	for _, q := range repo.db.table {
		if filter != nil {
			if filter.OutcomeID != 0 && (q.OutcomeID == nil || *q.OutcomeID != filter.OutcomeID) {
				continue
			}
			if filter.Search != "" && !strings.Contains(strings.ToLower(q.Content), strings.ToLower(filter.Search)) {
				continue
			}
		}
		questions = append(questions, *q)
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].ID < questions[j].ID })
	return questions, nil
}

func (repo *questionRepository) GetQuestion(ctx context.Context, id int) (question.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if q, ok := repo.db.table[id]; ok {
		return *q, nil
	}
	return question.Question{}, question.ErrNotFound
}

func (repo *questionRepository) UpdateQuestion(ctx context.Context, q question.Question) (question.Question, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[q.ID]
	if !ok {
		return question.Question{}, question.ErrNotFound
	}
	q.CreatedAt = orig.CreatedAt
	for i := range q.Options {
		repo.db.optPK++
		q.Options[i].ID = repo.db.optPK
		q.Options[i].QuestionID = q.ID
	}
	repo.db.table[q.ID] = &q
	return q, nil
}

func (repo *questionRepository) DeleteQuestionsByID(ctx context.Context, ids ...int) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.table[id]; ok {
			delete(repo.db.table, id)
			cnt++
		}
	}
	return cnt, nil
}
