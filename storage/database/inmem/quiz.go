package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/eduhive/backend/core"
	"github.com/eduhive/backend/core/quiz"
)

type quizRepository struct {
	db *quizTable
}

var _ quiz.Repository = (*quizRepository)(nil)

func NewQuizRepository(db *DB) quiz.Repository {
	return &quizRepository{db: db.quiz}
}

func (repo *quizRepository) CheckQuizIDUniqueness(ctx context.Context, id string) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if _, ok := repo.db.quizzes[id]; ok {
		return quiz.ErrQuizIDExists
	}
	return nil
}

func (repo *quizRepository) CreateQuiz(ctx context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.quizzes[q.ID]; ok {
		return quiz.Quiz{}, quiz.ErrQuizIDExists
	}
	repo.db.quizzes[q.ID] = &q
	return q, nil
}

func (repo *quizRepository) GetQuizByID(ctx context.Context, id string) (quiz.Quiz, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if q, ok := repo.db.quizzes[id]; ok {
		return *q, nil
	}
	return quiz.Quiz{}, quiz.ErrQuizNotFound
}

func (repo *quizRepository) FilterQuizzes(ctx context.Context, filter quiz.QueryFilter, orderings ...core.DBOrdering) ([]quiz.Quiz, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var quizzes []quiz.Quiz
	for _, q := range repo.db.quizzes {
		if matchesQuizFilter(*q, filter) {
			quizzes = append(quizzes, *q)
		}
	}
	sort.Slice(quizzes, func(i, j int) bool { return quizzes[i].Deadline.Before(quizzes[j].Deadline) })
	return quizzes, nil
}

func matchesQuizFilter(q quiz.Quiz, filter quiz.QueryFilter) bool {
	if filter.Unit != "" && q.Unit != filter.Unit {
		return false
	}
	if filter.Subject != "" && !strings.Contains(strings.ToLower(q.Subject), strings.ToLower(filter.Subject)) {
		return false
	}
	if filter.IsActive != nil && q.IsActive != *filter.IsActive {
		return false
	}
	if filter.CreatedBy != "" && q.CreatedBy != filter.CreatedBy {
		return false
	}
	return true
}

func (repo *quizRepository) UpdateQuiz(ctx context.Context, q quiz.Quiz, isActive *bool) (quiz.Quiz, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.quizzes[q.ID]
	if !ok {
		return quiz.Quiz{}, quiz.ErrQuizNotFound
	}
	q.TotalQuestions = orig.TotalQuestions
	if isActive != nil {
		q.IsActive = *isActive
	} else {
		q.IsActive = orig.IsActive
	}
	repo.db.quizzes[q.ID] = &q
	return q, nil
}

func (repo *quizRepository) DeleteQuizzesByID(ctx context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, id := range ids {
		delete(repo.db.quizzes, id)
		// cascades
		for qid, qn := range repo.db.questions {
			if qn.QuizID == id {
				delete(repo.db.questions, qid)
			}
		}
		for aid, att := range repo.db.attempts {
			if att.QuizID == id {
				delete(repo.db.attempts, aid)
				for rid, rec := range repo.db.records {
					if rec.AttemptID == aid {
						delete(repo.db.records, rid)
					}
				}
			}
		}
	}
	return nil
}

func (repo *quizRepository) CreateQuestions(ctx context.Context, quizID string, questions []quiz.Question) ([]quiz.Question, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	q, ok := repo.db.quizzes[quizID]
	if !ok {
		return nil, quiz.ErrQuizNotFound
	}
	for i := range questions {
		questions[i].ID = uuid.New().String()
		qn := questions[i]
		repo.db.questions[qn.ID] = &qn
	}
	q.TotalQuestions = repo.countQuestions(quizID)
	return questions, nil
}

func (repo *quizRepository) countQuestions(quizID string) int {
	var count int
	for _, qn := range repo.db.questions {
		if qn.QuizID == quizID {
			count++
		}
	}
	return count
}

func (repo *quizRepository) GetQuestionByID(ctx context.Context, id string) (quiz.Question, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if qn, ok := repo.db.questions[id]; ok {
		return *qn, nil
	}
	return quiz.Question{}, quiz.ErrQuestionNotFound
}

func (repo *quizRepository) QueryQuizQuestions(ctx context.Context, quizID string) ([]quiz.Question, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var questions []quiz.Question
	for _, qn := range repo.db.questions {
		if qn.QuizID == quizID {
			questions = append(questions, *qn)
		}
	}
	sort.Slice(questions, func(i, j int) bool {
		if questions[i].OrderIndex != questions[j].OrderIndex {
			return questions[i].OrderIndex < questions[j].OrderIndex
		}
		return questions[i].ID < questions[j].ID
	})
	return questions, nil
}

func (repo *quizRepository) UpdateQuestion(ctx context.Context, q quiz.Question) (quiz.Question, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.questions[q.ID]; !ok {
		return quiz.Question{}, quiz.ErrQuestionNotFound
	}
	repo.db.questions[q.ID] = &q
	return q, nil
}

func (repo *quizRepository) DeleteQuestionsByID(ctx context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	touched := make(map[string]bool)
	for _, id := range ids {
		if qn, ok := repo.db.questions[id]; ok {
			touched[qn.QuizID] = true
			delete(repo.db.questions, id)
		}
	}
	for quizID := range touched {
		if q, ok := repo.db.quizzes[quizID]; ok {
			q.TotalQuestions = repo.countQuestions(quizID)
		}
	}
	return nil
}

func (repo *quizRepository) countUserAttempts(userID, quizID string) int {
	var count int
	for _, att := range repo.db.attempts {
		if att.UserID == userID && att.QuizID == quizID {
			count++
		}
	}
	return count
}

func (repo *quizRepository) CountUserAttempts(ctx context.Context, userID, quizID string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.countUserAttempts(userID, quizID), nil
}

func (repo *quizRepository) CountQuizAttempts(ctx context.Context, quizID string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var count int
	for _, att := range repo.db.attempts {
		if att.QuizID == quizID {
			count++
		}
	}
	return count, nil
}

// CreateAttempt re-checks the attempt ceiling under the write lock, mirroring
// the transactional re-check of the SQL implementation.
func (repo *quizRepository) CreateAttempt(ctx context.Context, att quiz.Attempt, maxAttempts int) (quiz.Attempt, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.quizzes[att.QuizID]; !ok {
		return quiz.Attempt{}, quiz.ErrQuizNotFound
	}
	count := repo.countUserAttempts(att.UserID, att.QuizID)
	if count >= maxAttempts {
		return quiz.Attempt{}, quiz.ErrMaxAttempts
	}

	att.ID = uuid.New().String()
	att.AttemptNumber = count + 1
	repo.db.attempts[att.ID] = &att
	return att, nil
}

func (repo *quizRepository) GetAttemptByID(ctx context.Context, id string) (quiz.Attempt, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if att, ok := repo.db.attempts[id]; ok {
		return *att, nil
	}
	return quiz.Attempt{}, quiz.ErrAttemptNotFound
}

func (repo *quizRepository) QueryUserAttempts(ctx context.Context, userID string, quizID ...string) ([]quiz.Attempt, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var attempts []quiz.Attempt
	for _, att := range repo.db.attempts {
		if att.UserID != userID {
			continue
		}
		if len(quizID) > 0 && att.QuizID != quizID[0] {
			continue
		}
		attempts = append(attempts, *att)
	}
	sort.Slice(attempts, func(i, j int) bool { return attempts[i].TimeStarted.After(attempts[j].TimeStarted) })
	return attempts, nil
}

func (repo *quizRepository) QueryCompletedAttempts(ctx context.Context, quizID string) ([]quiz.Attempt, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var attempts []quiz.Attempt
	for _, att := range repo.db.attempts {
		if att.QuizID == quizID && att.IsCompleted() {
			attempts = append(attempts, *att)
		}
	}
	sort.Slice(attempts, func(i, j int) bool { return attempts[i].TimeStarted.Before(attempts[j].TimeStarted) })
	return attempts, nil
}

func (repo *quizRepository) queryRecords(attemptID string) []quiz.AnswerRecord {
	var records []quiz.AnswerRecord
	for _, rec := range repo.db.records {
		if rec.AttemptID == attemptID {
			records = append(records, *rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].QuestionID < records[j].QuestionID
	})
	return records
}

func (repo *quizRepository) QueryAnswerRecords(ctx context.Context, attemptID string) ([]quiz.AnswerRecord, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.queryRecords(attemptID), nil
}

func (repo *quizRepository) QueryQuizAnswerRecords(ctx context.Context, quizID string) ([]quiz.AnswerRecord, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var records []quiz.AnswerRecord
	for _, rec := range repo.db.records {
		att, ok := repo.db.attempts[rec.AttemptID]
		if ok && att.QuizID == quizID && att.IsCompleted() {
			records = append(records, *rec)
		}
	}
	return records, nil
}

// FinalizeAttempt inserts the new records (ignoring duplicates for already
// answered questions), re-reads the attempt's records and writes the attempt
// last, all under the write lock.
func (repo *quizRepository) FinalizeAttempt(ctx context.Context, att quiz.Attempt, newRecords []quiz.AnswerRecord, aggregate func(records []quiz.AnswerRecord) quiz.Attempt) (quiz.Attempt, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.attempts[att.ID]; !ok {
		return quiz.Attempt{}, quiz.ErrAttemptNotFound
	}

	answered := make(map[string]bool)
	for _, rec := range repo.db.records {
		if rec.AttemptID == att.ID {
			answered[rec.QuestionID] = true
		}
	}
	for i := range newRecords {
		if answered[newRecords[i].QuestionID] {
			continue
		}
		newRecords[i].ID = uuid.New().String()
		rec := newRecords[i]
		repo.db.records[rec.ID] = &rec
		answered[rec.QuestionID] = true
	}

	done := aggregate(repo.queryRecords(att.ID))
	repo.db.attempts[done.ID] = &done
	return done, nil
}
