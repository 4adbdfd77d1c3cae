package dummydb

import (
	"context"
	"sort"

	"github.com/yedirenklicinar/akademi/core/exam"
	"github.com/yedirenklicinar/akademi/core/question"
)

type examRepository struct {
	db        *examTable
	questions *questionTable
}

var _ exam.Repository = (*examRepository)(nil) // interface compliance check

func NewExamRepository(db *DB) exam.Repository {
	return &examRepository{db: db.exam, questions: db.question}
}

func (repo *examRepository) CreateTest(ctx context.Context, t exam.Test) (exam.Test, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.testPK++
	t.ID = repo.db.testPK
	repo.db.tests[t.ID] = &t
	return t, nil
}

func (repo *examRepository) QueryTests(ctx context.Context, filter *exam.QueryFilter) ([]exam.Test, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	tests := make([]exam.Test, 0, len(repo.db.tests))
	for _, t := range repo.db.tests {
		if filter != nil {
			if filter.IsActive != nil && t.IsActive != *filter.IsActive {
				continue
			}
			if filter.StudentID != "" || filter.GradeID != 0 {
				if !repo.visibleTo(*t, filter.StudentID, filter.GradeID) {
					continue
				}
			}
		}
		tests = append(tests, *t)
	}
	sort.Slice(tests, func(i, j int) bool { return tests[i].ID > tests[j].ID })
	return tests, nil
}

// visibleTo reports whether the test is assigned to the student directly or
// via their grade.
func (repo *examRepository) visibleTo(t exam.Test, studentID string, gradeID int) bool {
	for _, sid := range t.StudentIDs {
		if sid == studentID {
			return true
		}
	}
	for _, gid := range t.GradeIDs {
		if gid == gradeID && gradeID != 0 {
			return true
		}
	}
	return false
}

func (repo *examRepository) GetTest(ctx context.Context, id int, withQuestions bool) (exam.Test, error) {
	repo.db.RLock()
	t, ok := repo.db.tests[id]
	if !ok {
		repo.db.RUnlock()
		return exam.Test{}, exam.ErrNotFound
	}
	test := *t
	repo.db.RUnlock()

	if withQuestions {
		repo.questions.RLock()
		defer repo.questions.RUnlock()
		test.Questions = make([]question.Question, 0, len(test.QuestionIDs))
		for _, qid := range test.QuestionIDs {
			if q, ok := repo.questions.table[qid]; ok {
				test.Questions = append(test.Questions, *q)
			}
		}
	}
	return test, nil
}

func (repo *examRepository) SetTestActive(ctx context.Context, id int, active bool) (exam.Test, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	t, ok := repo.db.tests[id]
	if !ok {
		return exam.Test{}, exam.ErrNotFound
	}
	t.IsActive = active
	return *t, nil
}

func (repo *examRepository) DeleteTest(ctx context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	delete(repo.db.tests, id)
	return nil
}

func (repo *examRepository) CreateSubmission(ctx context.Context, sub exam.Submission) (exam.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.subPK++
	sub.ID = repo.db.subPK
	repo.db.subs[sub.ID] = &sub
	return sub, nil
}

func (repo *examRepository) QuerySubmissions(ctx context.Context, filter *exam.SubmissionFilter) ([]exam.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subs := make([]exam.Submission, 0, len(repo.db.subs))
	for _, sub := range repo.db.subs {
		if filter != nil {
			if filter.TestID != 0 && sub.TestID != filter.TestID {
				continue
			}
			if filter.StudentID != "" && sub.StudentID != filter.StudentID {
				continue
			}
		}
		subs = append(subs, *sub)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].CompletedAt.After(subs[j].CompletedAt) })
	return subs, nil
}
