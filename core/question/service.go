package question

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("question not found")

type (
	Repository interface {
		CreateQuestion(ctx context.Context, q Question) (Question, error)
		QueryQuestions(ctx context.Context, filter *QueryFilter) ([]Question, error)
		GetQuestion(ctx context.Context, id int) (Question, error)
		UpdateQuestion(ctx context.Context, q Question) (Question, error)
		DeleteQuestionsByID(ctx context.Context, ids ...int) (int, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(nq NewQuestion) (Question, error) {
	q := Question{
		OutcomeID: nq.OutcomeID,
		Content:   nq.Content,
		ImageURL:  nq.ImageURL,
		CreatedAt: time.Now().UTC(),
	}
	for _, no := range nq.Options {
		q.Options = append(q.Options, Option{Text: no.Text, IsCorrect: no.IsCorrect})
	}
	return svc.repo.CreateQuestion(context.Background(), q)
}

func (svc *Service) Query(filter *QueryFilter) ([]Question, error) {
	return svc.repo.QueryQuestions(context.Background(), filter)
}

func (svc *Service) GetByID(id int) (Question, error) {
	return svc.repo.GetQuestion(context.Background(), id)
}

func (svc *Service) Update(id int, nq NewQuestion) (Question, error) {
	q := Question{
		ID:        id,
		OutcomeID: nq.OutcomeID,
		Content:   nq.Content,
		ImageURL:  nq.ImageURL,
	}
	for _, no := range nq.Options {
		q.Options = append(q.Options, Option{QuestionID: id, Text: no.Text, IsCorrect: no.IsCorrect})
	}
	return svc.repo.UpdateQuestion(context.Background(), q)
}

func (svc *Service) Delete(ids ...int) error {
	_, err := svc.repo.DeleteQuestionsByID(context.Background(), ids...)
	return err
}
