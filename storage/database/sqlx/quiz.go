package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/eduhive/backend/core"
	"github.com/eduhive/backend/core/quiz"
)

const (
	quizColumns = `id, unit, subject, description, issue_date, deadline, total_questions,
		passing_score, time_limit, max_attempts, is_active, created_by, created_at, updated_at`
	questionColumns = `id, quiz_id, question_text, question_type, options, correct_index,
		correct_text, explanation, points, difficulty, order_index, created_at`
	attemptColumns = `id, user_id, quiz_id, attempt_number, status, score, total_points,
		max_points, correct_answers, total_questions, time_started, time_completed, time_taken,
		ip_address, user_agent`
	recordColumns = `id, attempt_id, question_id, user_answer, is_correct, points_earned,
		time_spent, created_at`
)

type dbQuiz struct {
	quiz.Quiz
	CreatedBy sql.NullString `db:"created_by"`
}

func (q dbQuiz) unpack() quiz.Quiz {
	out := q.Quiz
	out.CreatedBy = q.CreatedBy.String
	return out
}

type dbQuestion struct {
	quiz.Question
	Options pq.StringArray `db:"options"`
}

func (q dbQuestion) unpack() quiz.Question {
	out := q.Question
	out.Options = q.Options
	return out
}

type dbAttempt struct {
	quiz.Attempt
	TimeCompleted sql.NullTime `db:"time_completed"`
}

func (a dbAttempt) unpack() quiz.Attempt {
	out := a.Attempt
	if a.TimeCompleted.Valid {
		out.TimeCompleted = a.TimeCompleted.Time.UTC()
	}
	return out
}

type quizRepository struct {
	db *sqlx.DB
}

var _ quiz.Repository = (*quizRepository)(nil)

func NewQuizRepository(db *sqlx.DB) *quizRepository {
	return &quizRepository{db: db}
}

func (repo quizRepository) trapNoRowsErr(err, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func (repo quizRepository) CheckQuizIDUniqueness(ctx context.Context, id string) error {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM quiz WHERE id = $1)`
	if err := repo.db.GetContext(ctx, &exists, query, id); err != nil {
		return errors.Wrap(err, "checking quiz uniqueness")
	}
	if exists {
		return quiz.ErrQuizIDExists
	}
	return nil
}

func (repo quizRepository) CreateQuiz(ctx context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	query := `
		INSERT INTO quiz (` + quizColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''), $13, $14)`
	_, err := repo.db.ExecContext(ctx, query,
		q.ID, q.Unit, q.Subject, q.Description, q.IssueDate, q.Deadline, q.TotalQuestions,
		q.PassingScore, q.TimeLimit, q.MaxAttempts, q.IsActive, q.CreatedBy, q.CreatedAt, q.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return quiz.Quiz{}, quiz.ErrQuizIDExists
		}
		return quiz.Quiz{}, errors.Wrap(err, "inserting quiz")
	}
	return q, nil
}

func (repo quizRepository) GetQuizByID(ctx context.Context, id string) (quiz.Quiz, error) {
	var row dbQuiz
	query := `SELECT ` + quizColumns + ` FROM quiz WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return quiz.Quiz{}, repo.trapNoRowsErr(err, quiz.ErrQuizNotFound, "finding quiz by ID")
	}
	return row.unpack(), nil
}

func (repo quizRepository) FilterQuizzes(ctx context.Context, filter quiz.QueryFilter, orderings ...core.DBOrdering) ([]quiz.Quiz, error) {
	query := `SELECT ` + quizColumns + ` FROM quiz`
	var conds []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Unit != "" {
		conds = append(conds, "unit = "+arg(filter.Unit))
	}
	if filter.Subject != "" {
		conds = append(conds, "subject ILIKE "+arg("%"+filter.Subject+"%"))
	}
	if filter.IsActive != nil {
		conds = append(conds, "is_active = "+arg(*filter.IsActive))
	}
	if filter.CreatedBy != "" {
		conds = append(conds, "created_by = "+arg(filter.CreatedBy))
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderClause(orderings, "deadline ASC")

	var rows []dbQuiz
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering quizzes")
	}
	quizzes := make([]quiz.Quiz, 0, len(rows))
	for _, row := range rows {
		quizzes = append(quizzes, row.unpack())
	}
	return quizzes, nil
}

func (repo quizRepository) UpdateQuiz(ctx context.Context, q quiz.Quiz, isActive *bool) (quiz.Quiz, error) {
	if isActive != nil {
		q.IsActive = *isActive
	}
	query := `
		UPDATE quiz
		SET unit = $2, subject = $3, description = $4, issue_date = $5, deadline = $6,
			passing_score = $7, time_limit = $8, max_attempts = $9, is_active = $10, updated_at = $11
		WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query,
		q.ID, q.Unit, q.Subject, q.Description, q.IssueDate, q.Deadline,
		q.PassingScore, q.TimeLimit, q.MaxAttempts, q.IsActive, q.UpdatedAt,
	)
	if err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "updating quiz")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return quiz.Quiz{}, quiz.ErrQuizNotFound
	}
	return q, nil
}

func (repo quizRepository) DeleteQuizzesByID(ctx context.Context, ids ...string) error {
	query, args, err := sqlx.In(`DELETE FROM quiz WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "deleting quizzes")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting quizzes")
	}
	return nil
}

// CreateQuestions inserts all questions and refreshes the quiz's cached
// question count in a single transaction.
func (repo quizRepository) CreateQuestions(ctx context.Context, quizID string, questions []quiz.Question) ([]quiz.Question, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "starting transaction")
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO quiz_question (` + questionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	for i := range questions {
		questions[i].ID = uuid.New().String()
		q := questions[i]
		if _, err = tx.ExecContext(ctx, query,
			q.ID, q.QuizID, q.Text, q.Kind, pq.StringArray(q.Options), q.CorrectIndex,
			q.CorrectText, q.Explanation, q.Points, q.Difficulty, q.OrderIndex, q.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "inserting question")
		}
	}

	query = `
		UPDATE quiz
		SET total_questions = (SELECT COUNT(*) FROM quiz_question WHERE quiz_id = $1)
		WHERE id = $1`
	if _, err = tx.ExecContext(ctx, query, quizID); err != nil {
		return nil, errors.Wrap(err, "updating question count")
	}

	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "committing transaction")
	}
	return questions, nil
}

func (repo quizRepository) GetQuestionByID(ctx context.Context, id string) (quiz.Question, error) {
	if _, err := uuid.Parse(id); err != nil {
		return quiz.Question{}, quiz.ErrQuestionNotFound
	}
	var row dbQuestion
	query := `SELECT ` + questionColumns + ` FROM quiz_question WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return quiz.Question{}, repo.trapNoRowsErr(err, quiz.ErrQuestionNotFound, "finding question by ID")
	}
	return row.unpack(), nil
}

func (repo quizRepository) QueryQuizQuestions(ctx context.Context, quizID string) ([]quiz.Question, error) {
	var rows []dbQuestion
	query := `SELECT ` + questionColumns + ` FROM quiz_question WHERE quiz_id = $1 ORDER BY order_index, created_at`
	if err := repo.db.SelectContext(ctx, &rows, query, quizID); err != nil {
		return nil, errors.Wrap(err, "querying quiz questions")
	}
	questions := make([]quiz.Question, 0, len(rows))
	for _, row := range rows {
		questions = append(questions, row.unpack())
	}
	return questions, nil
}

func (repo quizRepository) UpdateQuestion(ctx context.Context, q quiz.Question) (quiz.Question, error) {
	query := `
		UPDATE quiz_question
		SET question_text = $2, options = $3, correct_index = $4, correct_text = $5,
			explanation = $6, points = $7, difficulty = $8, order_index = $9
		WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query,
		q.ID, q.Text, pq.StringArray(q.Options), q.CorrectIndex, q.CorrectText,
		q.Explanation, q.Points, q.Difficulty, q.OrderIndex,
	)
	if err != nil {
		return quiz.Question{}, errors.Wrap(err, "updating question")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return quiz.Question{}, quiz.ErrQuestionNotFound
	}
	return q, nil
}

func (repo quizRepository) DeleteQuestionsByID(ctx context.Context, ids ...string) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "starting transaction")
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := sqlx.In(`DELETE FROM quiz_question WHERE id IN (?) RETURNING quiz_id`, ids)
	if err != nil {
		return errors.Wrap(err, "deleting questions")
	}
	var quizIDs []string
	if err = tx.SelectContext(ctx, &quizIDs, tx.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting questions")
	}

	seen := make(map[string]bool, len(quizIDs))
	for _, quizID := range quizIDs {
		if seen[quizID] {
			continue
		}
		seen[quizID] = true
		query = `
			UPDATE quiz
			SET total_questions = (SELECT COUNT(*) FROM quiz_question WHERE quiz_id = $1)
			WHERE id = $1`
		if _, err = tx.ExecContext(ctx, query, quizID); err != nil {
			return errors.Wrap(err, "updating question count")
		}
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func (repo quizRepository) CountUserAttempts(ctx context.Context, userID, quizID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM quiz_attempt WHERE user_id = $1 AND quiz_id = $2`
	if err := repo.db.GetContext(ctx, &count, query, userID, quizID); err != nil {
		return 0, errors.Wrap(err, "counting user attempts")
	}
	return count, nil
}

func (repo quizRepository) CountQuizAttempts(ctx context.Context, quizID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM quiz_attempt WHERE quiz_id = $1`
	if err := repo.db.GetContext(ctx, &count, query, quizID); err != nil {
		return 0, errors.Wrap(err, "counting quiz attempts")
	}
	return count, nil
}

// CreateAttempt locks the quiz row to serialize concurrent starts, re-checks
// the attempt ceiling and inserts with attempt_number = count + 1. The unique
// (user_id, quiz_id, attempt_number) constraint backs the sequence.
func (repo quizRepository) CreateAttempt(ctx context.Context, att quiz.Attempt, maxAttempts int) (quiz.Attempt, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return quiz.Attempt{}, errors.Wrap(err, "starting transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var quizID string
	if err = tx.GetContext(ctx, &quizID, `SELECT id FROM quiz WHERE id = $1 FOR UPDATE`, att.QuizID); err != nil {
		return quiz.Attempt{}, repo.trapNoRowsErr(err, quiz.ErrQuizNotFound, "locking quiz")
	}

	var count int
	query := `SELECT COUNT(*) FROM quiz_attempt WHERE user_id = $1 AND quiz_id = $2`
	if err = tx.GetContext(ctx, &count, query, att.UserID, att.QuizID); err != nil {
		return quiz.Attempt{}, errors.Wrap(err, "counting user attempts")
	}
	if count >= maxAttempts {
		return quiz.Attempt{}, quiz.ErrMaxAttempts
	}

	att.ID = uuid.New().String()
	att.AttemptNumber = count + 1
	query = `
		INSERT INTO quiz_attempt (` + attemptColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULL, $12, $13, $14)`
	if _, err = tx.ExecContext(ctx, query,
		att.ID, att.UserID, att.QuizID, att.AttemptNumber, att.Status, att.Score,
		att.TotalPoints, att.MaxPoints, att.CorrectAnswers, att.TotalQuestions,
		att.TimeStarted, att.TimeTaken, att.IPAddress, att.UserAgent,
	); err != nil {
		if isUniqueViolation(err) {
			return quiz.Attempt{}, quiz.ErrMaxAttempts
		}
		return quiz.Attempt{}, errors.Wrap(err, "inserting attempt")
	}

	if err = tx.Commit(); err != nil {
		return quiz.Attempt{}, errors.Wrap(err, "committing transaction")
	}
	return att, nil
}

func (repo quizRepository) GetAttemptByID(ctx context.Context, id string) (quiz.Attempt, error) {
	if _, err := uuid.Parse(id); err != nil {
		return quiz.Attempt{}, quiz.ErrAttemptNotFound
	}
	var row dbAttempt
	query := `SELECT ` + attemptColumns + ` FROM quiz_attempt WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return quiz.Attempt{}, repo.trapNoRowsErr(err, quiz.ErrAttemptNotFound, "finding attempt by ID")
	}
	return row.unpack(), nil
}

func (repo quizRepository) QueryUserAttempts(ctx context.Context, userID string, quizID ...string) ([]quiz.Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM quiz_attempt WHERE user_id = $1`
	args := []interface{}{userID}
	if len(quizID) > 0 {
		query += ` AND quiz_id = $2`
		args = append(args, quizID[0])
	}
	query += ` ORDER BY time_started DESC`

	var rows []dbAttempt
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying user attempts")
	}
	return unpackAttempts(rows), nil
}

func (repo quizRepository) QueryCompletedAttempts(ctx context.Context, quizID string) ([]quiz.Attempt, error) {
	var rows []dbAttempt
	query := `SELECT ` + attemptColumns + ` FROM quiz_attempt WHERE quiz_id = $1 AND status = $2 ORDER BY time_started`
	if err := repo.db.SelectContext(ctx, &rows, query, quizID, quiz.AttemptCompleted); err != nil {
		return nil, errors.Wrap(err, "querying completed attempts")
	}
	return unpackAttempts(rows), nil
}

func unpackAttempts(rows []dbAttempt) []quiz.Attempt {
	attempts := make([]quiz.Attempt, 0, len(rows))
	for _, row := range rows {
		attempts = append(attempts, row.unpack())
	}
	return attempts
}

func (repo quizRepository) QueryAnswerRecords(ctx context.Context, attemptID string) ([]quiz.AnswerRecord, error) {
	var records []quiz.AnswerRecord
	query := `SELECT ` + recordColumns + ` FROM answer_record WHERE attempt_id = $1 ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &records, query, attemptID); err != nil {
		return nil, errors.Wrap(err, "querying answer records")
	}
	return records, nil
}

func (repo quizRepository) QueryQuizAnswerRecords(ctx context.Context, quizID string) ([]quiz.AnswerRecord, error) {
	var records []quiz.AnswerRecord
	query := `
		SELECT r.id, r.attempt_id, r.question_id, r.user_answer, r.is_correct, r.points_earned,
			r.time_spent, r.created_at
		FROM answer_record r
		JOIN quiz_attempt a ON a.id = r.attempt_id
		WHERE a.quiz_id = $1 AND a.status = $2`
	if err := repo.db.SelectContext(ctx, &records, query, quizID, quiz.AttemptCompleted); err != nil {
		return nil, errors.Wrap(err, "querying quiz answer records")
	}
	return records, nil
}

// FinalizeAttempt runs the submission in one transaction: duplicate answers
// for an already answered question are ignored, the attempt's records are
// re-read and the attempt row is written last.
func (repo quizRepository) FinalizeAttempt(ctx context.Context, att quiz.Attempt, newRecords []quiz.AnswerRecord, aggregate func(records []quiz.AnswerRecord) quiz.Attempt) (quiz.Attempt, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return quiz.Attempt{}, errors.Wrap(err, "starting transaction")
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO answer_record (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (attempt_id, question_id) DO NOTHING`
	for i := range newRecords {
		newRecords[i].ID = uuid.New().String()
		rec := newRecords[i]
		if _, err = tx.ExecContext(ctx, query,
			rec.ID, rec.AttemptID, rec.QuestionID, rec.UserAnswer, rec.IsCorrect,
			rec.PointsEarned, rec.TimeSpent, rec.CreatedAt,
		); err != nil {
			return quiz.Attempt{}, errors.Wrap(err, "inserting answer record")
		}
	}

	var records []quiz.AnswerRecord
	query = `SELECT ` + recordColumns + ` FROM answer_record WHERE attempt_id = $1 ORDER BY created_at`
	if err = tx.SelectContext(ctx, &records, query, att.ID); err != nil {
		return quiz.Attempt{}, errors.Wrap(err, "reading answer records")
	}

	done := aggregate(records)
	query = `
		UPDATE quiz_attempt
		SET status = $2, score = $3, total_points = $4, max_points = $5, correct_answers = $6,
			total_questions = $7, time_completed = $8, time_taken = $9
		WHERE id = $1`
	if _, err = tx.ExecContext(ctx, query,
		done.ID, done.Status, done.Score, done.TotalPoints, done.MaxPoints,
		done.CorrectAnswers, done.TotalQuestions, done.TimeCompleted, done.TimeTaken,
	); err != nil {
		return quiz.Attempt{}, errors.Wrap(err, "finalizing attempt")
	}

	if err = tx.Commit(); err != nil {
		return quiz.Attempt{}, errors.Wrap(err, "committing transaction")
	}
	return done, nil
}
