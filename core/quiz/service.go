package quiz

import (
	"context"
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/eduhive/backend/core"
	"github.com/eduhive/backend/core/user"
)

var (
	// errors
	ErrQuizNotFound     = errors.New("quiz not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrQuizIDExists     = errors.New("a quiz with this id already exists")
	ErrAttemptCompleted = errors.New("attempt already completed")
	ErrQuizHasAttempts  = errors.New("quiz has recorded attempts")
	// ErrMaxAttempts is returned by Repository.CreateAttempt when the
	// transactional re-check finds the attempt ceiling reached.
	ErrMaxAttempts = errors.New("maximum attempts exceeded")

	errQuestionsFrozen = errors.New("questions cannot be changed once the quiz has attempts")
	errFieldsFrozen    = "frozen once the quiz has attempts"
)

// EligibilityError rejects an attempt start with a human-readable reason.
type EligibilityError struct {
	Reason string
}

func (e EligibilityError) Error() string { return e.Reason }

type (
	Repository interface {
		CheckQuizIDUniqueness(ctx context.Context, id string) error
		CreateQuiz(ctx context.Context, q Quiz) (Quiz, error)
		GetQuizByID(ctx context.Context, id string) (Quiz, error)
		// FilterQuizzes applies AND operation on available QueryFilter fields.
		// QueryFilter.Subject does a case-insensitive partial match.
		FilterQuizzes(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Quiz, error)
		UpdateQuiz(ctx context.Context, q Quiz, isActive *bool) (Quiz, error)
		DeleteQuizzesByID(ctx context.Context, ids ...string) error

		// CreateQuestions inserts all questions and updates the quiz's cached
		// question count in a single transaction; no partial writes.
		CreateQuestions(ctx context.Context, quizID string, questions []Question) ([]Question, error)
		GetQuestionByID(ctx context.Context, id string) (Question, error)
		QueryQuizQuestions(ctx context.Context, quizID string) ([]Question, error)
		UpdateQuestion(ctx context.Context, q Question) (Question, error)
		DeleteQuestionsByID(ctx context.Context, ids ...string) error

		CountUserAttempts(ctx context.Context, userID, quizID string) (int, error)
		CountQuizAttempts(ctx context.Context, quizID string) (int, error)
		// CreateAttempt assigns attempt_number = count+1 and inserts within one
		// transaction; the ceiling is re-checked there and a unique
		// (user_id, quiz_id, attempt_number) constraint backs the sequence.
		// Returns ErrMaxAttempts when the ceiling is reached.
		CreateAttempt(ctx context.Context, att Attempt, maxAttempts int) (Attempt, error)
		GetAttemptByID(ctx context.Context, id string) (Attempt, error)
		QueryUserAttempts(ctx context.Context, userID string, quizID ...string) ([]Attempt, error)
		QueryCompletedAttempts(ctx context.Context, quizID string) ([]Attempt, error)
		QueryAnswerRecords(ctx context.Context, attemptID string) ([]AnswerRecord, error)
		// QueryQuizAnswerRecords returns the answer records of the quiz's
		// completed attempts only.
		QueryQuizAnswerRecords(ctx context.Context, quizID string) ([]AnswerRecord, error)
		// FinalizeAttempt runs the whole submission in one transaction:
		// inserts the new records (duplicates for an already answered question
		// are ignored; unique (attempt_id, question_id) constraint), re-reads
		// the attempt's records, and writes the attempt returned by aggregate
		// as the transaction's last statement.
		FinalizeAttempt(ctx context.Context, att Attempt, newRecords []AnswerRecord, aggregate func(records []AnswerRecord) Attempt) (Attempt, error)
	}

	// XPGranter credits experience points; the user service satisfies it.
	XPGranter interface {
		AddXP(ctx context.Context, id string, xp int) (user.User, error)
	}

	// ScoreBoard mirrors passing-attempt XP onto the leaderboard.
	ScoreBoard interface {
		AddQuizPoints(ctx context.Context, userID string, points int) error
	}

	Service struct {
		repo        Repository
		users       XPGranter
		board       ScoreBoard
		broadcaster core.Broadcaster
		logger      core.Logger
	}
)

func NewService(repo Repository, users XPGranter, board ScoreBoard, broadcaster core.Broadcaster, logger core.Logger) *Service {
	return &Service{
		repo:        repo,
		users:       users,
		board:       board,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

func (svc *Service) CheckQuizIDUniqueness(id string) error {
	if err := svc.repo.CheckQuizIDUniqueness(context.Background(), id); err != nil {
		if err == ErrQuizIDExists {
			return core.NewValidationError(err, core.FieldError{Field: "id", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Question Bank

func (svc *Service) CreateQuiz(ctx context.Context, createdBy string, nq NewQuiz) (Quiz, error) {
	now := NowFunc().UTC()
	q := Quiz{
		ID:           nq.ID,
		Unit:         nq.Unit,
		Subject:      nq.Subject,
		Description:  nq.Description,
		IssueDate:    nq.IssueDate.UTC(),
		Deadline:     nq.Deadline.UTC(),
		PassingScore: DefaultPassingScore,
		TimeLimit:    nq.TimeLimit,
		MaxAttempts:  DefaultMaxAttempts,
		IsActive:     true,
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if nq.IssueDate.IsZero() {
		q.IssueDate = now
	}
	if nq.PassingScore != nil {
		q.PassingScore = *nq.PassingScore
	}
	if nq.MaxAttempts != nil {
		q.MaxAttempts = *nq.MaxAttempts
	}
	if nq.IsActive != nil {
		q.IsActive = *nq.IsActive
	}
	return svc.repo.CreateQuiz(ctx, q)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Quiz, error) {
	return svc.repo.GetQuizByID(ctx, id)
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Quiz, error) {
	return svc.repo.FilterQuizzes(ctx, filter, orderings...)
}

func (svc *Service) UpdateQuiz(ctx context.Context, id string, uq UpdateQuiz) (Quiz, error) {
	orig, err := svc.repo.GetQuizByID(ctx, id)
	if err != nil {
		return Quiz{}, err
	}

	attempts, err := svc.repo.CountQuizAttempts(ctx, id)
	if err != nil {
		return Quiz{}, err
	}
	if attempts > 0 {
		var flds []core.FieldError
		if uq.Deadline != nil {
			flds = append(flds, core.FieldError{Field: "deadline", Error: errFieldsFrozen})
		}
		if uq.PassingScore != nil {
			flds = append(flds, core.FieldError{Field: "passing_score", Error: errFieldsFrozen})
		}
		if uq.MaxAttempts != nil {
			flds = append(flds, core.FieldError{Field: "max_attempts", Error: errFieldsFrozen})
		}
		if flds != nil {
			return Quiz{}, core.NewValidationError(nil, flds...)
		}
	}

	q := orig
	if uq.Unit != "" {
		q.Unit = uq.Unit
	}
	if uq.Subject != "" {
		q.Subject = uq.Subject
	}
	if uq.Description != "" {
		q.Description = uq.Description
	}
	if uq.IssueDate != nil {
		q.IssueDate = uq.IssueDate.UTC()
	}
	if uq.Deadline != nil {
		q.Deadline = uq.Deadline.UTC()
	}
	if uq.PassingScore != nil {
		q.PassingScore = *uq.PassingScore
	}
	if uq.TimeLimit != nil {
		q.TimeLimit = *uq.TimeLimit
	}
	if uq.MaxAttempts != nil {
		q.MaxAttempts = *uq.MaxAttempts
	}
	if !q.Deadline.After(q.IssueDate) {
		return Quiz{}, core.NewValidationError(nil, core.FieldError{Field: "deadline", Error: deadlineText})
	}
	q.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateQuiz(ctx, q, uq.IsActive)
}

// DeleteQuiz refuses to delete a quiz with recorded attempts unless forced.
func (svc *Service) DeleteQuiz(ctx context.Context, id string, force bool) error {
	if _, err := svc.repo.GetQuizByID(ctx, id); err != nil {
		return err
	}
	if !force {
		attempts, err := svc.repo.CountQuizAttempts(ctx, id)
		if err != nil {
			return err
		}
		if attempts > 0 {
			return ErrQuizHasAttempts
		}
	}
	return svc.repo.DeleteQuizzesByID(ctx, id)
}

// AddQuestions adds all questions or none; the quiz's cached question count
// is updated in the same transaction.
func (svc *Service) AddQuestions(ctx context.Context, quizID string, nqs []NewQuestion) ([]Question, error) {
	if _, err := svc.repo.GetQuizByID(ctx, quizID); err != nil {
		return nil, err
	}
	if err := svc.checkQuestionsFrozen(ctx, quizID); err != nil {
		return nil, err
	}

	now := NowFunc().UTC()
	questions := make([]Question, 0, len(nqs))
	for i := range nqs {
		if err := nqs[i].Validate(); err != nil {
			return nil, err
		}
		q := nqs[i].question()
		q.QuizID = quizID
		q.CreatedAt = now
		questions = append(questions, q)
	}
	return svc.repo.CreateQuestions(ctx, quizID, questions)
}

func (svc *Service) QueryQuestions(ctx context.Context, quizID string) ([]Question, error) {
	return svc.repo.QueryQuizQuestions(ctx, quizID)
}

func (svc *Service) UpdateQuestion(ctx context.Context, quizID, questionID string, uq UpdateQuestion) (Question, error) {
	if err := svc.checkQuestionsFrozen(ctx, quizID); err != nil {
		return Question{}, err
	}
	orig, err := svc.repo.GetQuestionByID(ctx, questionID)
	if err != nil {
		return Question{}, err
	}
	if orig.QuizID != quizID {
		return Question{}, ErrQuestionNotFound
	}

	q := orig
	if uq.Text != "" {
		q.Text = uq.Text
	}
	if uq.Options != nil {
		q.Options = uq.Options
	}
	if uq.CorrectIndex != nil {
		q.CorrectIndex = *uq.CorrectIndex
	}
	if uq.CorrectText != "" {
		q.CorrectText = uq.CorrectText
	}
	if uq.Explanation != "" {
		q.Explanation = uq.Explanation
	}
	if uq.Points != nil {
		q.Points = *uq.Points
	}
	if uq.Difficulty != "" {
		q.Difficulty = uq.Difficulty
	}
	if uq.OrderIndex != nil {
		q.OrderIndex = *uq.OrderIndex
	}

	// re-check the kind-dependent answer fields on the merged question
	merged := NewQuestion{
		Text:         q.Text,
		Kind:         q.Kind,
		Options:      q.Options,
		CorrectIndex: &q.CorrectIndex,
		CorrectText:  q.CorrectText,
		Explanation:  q.Explanation,
		Points:       &q.Points,
		Difficulty:   q.Difficulty,
		OrderIndex:   q.OrderIndex,
	}
	if err := merged.Validate(); err != nil {
		return Question{}, err
	}
	return svc.repo.UpdateQuestion(ctx, q)
}

func (svc *Service) DeleteQuestion(ctx context.Context, quizID, questionID string) error {
	if err := svc.checkQuestionsFrozen(ctx, quizID); err != nil {
		return err
	}
	q, err := svc.repo.GetQuestionByID(ctx, questionID)
	if err != nil {
		return err
	}
	if q.QuizID != quizID {
		return ErrQuestionNotFound
	}
	return svc.repo.DeleteQuestionsByID(ctx, questionID)
}

func (svc *Service) checkQuestionsFrozen(ctx context.Context, quizID string) error {
	attempts, err := svc.repo.CountQuizAttempts(ctx, quizID)
	if err != nil {
		return err
	}
	if attempts > 0 {
		return core.NewValidationError(errQuestionsFrozen)
	}
	return nil
}

// Eligibility Guard

// CanAttempt re-evaluates the eligibility policy against the clock and the
// current attempt count; results are never cached.
func (svc *Service) CanAttempt(ctx context.Context, userID string, q Quiz) (bool, string, error) {
	if !q.IsActive || q.Status() != StatusActive {
		return false, "quiz is not available", nil
	}
	count, err := svc.repo.CountUserAttempts(ctx, userID, q.ID)
	if err != nil {
		return false, "", err
	}
	if count >= q.MaxAttempts {
		return false, fmt.Sprintf("maximum attempts (%d) exceeded", q.MaxAttempts), nil
	}
	return true, "can attempt", nil
}

// Attempt Ledger

func (svc *Service) Start(ctx context.Context, userID, quizID, ip, userAgent string) (Attempt, error) {
	q, err := svc.repo.GetQuizByID(ctx, quizID)
	if err != nil {
		return Attempt{}, err
	}

	ok, reason, err := svc.CanAttempt(ctx, userID, q)
	if err != nil {
		return Attempt{}, errors.Wrap(err, "checking eligibility")
	}
	if !ok {
		return Attempt{}, EligibilityError{Reason: reason}
	}

	att := Attempt{
		UserID:      userID,
		QuizID:      quizID,
		Status:      AttemptInProgress,
		TimeStarted: NowFunc().UTC(),
		IPAddress:   ip,
		UserAgent:   userAgent,
	}
	att, err = svc.repo.CreateAttempt(ctx, att, q.MaxAttempts)
	if err != nil {
		if errors.Cause(err) == ErrMaxAttempts {
			return Attempt{}, EligibilityError{Reason: fmt.Sprintf("maximum attempts (%d) exceeded", q.MaxAttempts)}
		}
		return Attempt{}, err
	}
	return att, nil
}

// SubmitResult is returned on a successful submission.
type SubmitResult struct {
	Attempt  Attempt `json:"attempt"`
	Grade    string  `json:"grade"`
	IsPassed bool    `json:"is_passed"`
	XPEarned int     `json:"xp_earned"`
}

// Submit grades the supplied answers, finalizes the attempt and fires the
// reward path for passing attempts. Re-submitting the same answers is
// idempotent; submitting a completed attempt is a conflict.
func (svc *Service) Submit(ctx context.Context, userID, attemptID string, answers map[string]string) (SubmitResult, error) {
	att, err := svc.getOwnAttempt(ctx, userID, attemptID)
	if err != nil {
		return SubmitResult{}, err
	}
	if att.IsCompleted() {
		return SubmitResult{}, ErrAttemptCompleted
	}

	q, err := svc.repo.GetQuizByID(ctx, att.QuizID)
	if err != nil {
		return SubmitResult{}, err
	}
	questions, err := svc.repo.QueryQuizQuestions(ctx, att.QuizID)
	if err != nil {
		return SubmitResult{}, err
	}
	questionsByID := make(map[string]Question, len(questions))
	questionPoints := make(map[string]int, len(questions))
	for _, qn := range questions {
		questionsByID[qn.ID] = qn
		questionPoints[qn.ID] = qn.Points
	}

	existing, err := svc.repo.QueryAnswerRecords(ctx, att.ID)
	if err != nil {
		return SubmitResult{}, err
	}
	answered := make(map[string]bool, len(existing))
	for _, rec := range existing {
		answered[rec.QuestionID] = true
	}

	// grade deterministically, skipping unknown/foreign questions and
	// already answered pairs
	questionIDs := make([]string, 0, len(answers))
	for qid := range answers {
		questionIDs = append(questionIDs, qid)
	}
	sort.Strings(questionIDs)

	now := NowFunc().UTC()
	newRecords := make([]AnswerRecord, 0, len(questionIDs))
	for _, qid := range questionIDs {
		qn, ok := questionsByID[qid]
		if !ok || answered[qid] {
			continue
		}
		raw := answers[qid]
		correct, points := qn.Grade(raw)
		newRecords = append(newRecords, AnswerRecord{
			AttemptID:    att.ID,
			QuestionID:   qid,
			UserAnswer:   raw,
			IsCorrect:    correct,
			PointsEarned: points,
			CreatedAt:    now,
		})
	}

	finalized, err := svc.repo.FinalizeAttempt(ctx, att, newRecords, func(records []AnswerRecord) Attempt {
		sum := AggregateScore(records, questionPoints)
		done := att
		done.Status = AttemptCompleted
		done.TimeCompleted = NowFunc().UTC()
		done.TimeTaken = int(done.TimeCompleted.Sub(done.TimeStarted).Seconds())
		done.TotalPoints = sum.TotalPoints
		done.MaxPoints = sum.MaxPoints
		done.CorrectAnswers = sum.CorrectAnswers
		done.TotalQuestions = sum.TotalQuestions
		done.Score = sum.Score
		return done
	})
	if err != nil {
		return SubmitResult{}, errors.Wrap(err, "finalizing attempt")
	}

	res := SubmitResult{
		Attempt:  finalized,
		Grade:    finalized.Grade(),
		IsPassed: finalized.IsPassed(q),
	}
	if res.IsPassed {
		res.XPEarned = svc.rewardPassingAttempt(ctx, q, finalized)
	}
	return res, nil
}

func (svc *Service) getOwnAttempt(ctx context.Context, userID, attemptID string) (Attempt, error) {
	att, err := svc.repo.GetAttemptByID(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	// owner mismatch reads the same as absence
	if att.UserID != userID {
		return Attempt{}, ErrAttemptNotFound
	}
	return att, nil
}

// AnswerDetail is the per-question breakdown of a completed attempt.
type AnswerDetail struct {
	QuestionID    string   `json:"question_id"`
	Text          string   `json:"question_text"`
	Kind          string   `json:"question_type"`
	Options       []string `json:"options,omitempty"`
	UserAnswer    string   `json:"user_answer"`
	CorrectAnswer string   `json:"correct_answer"`
	IsCorrect     bool     `json:"is_correct"`
	PointsEarned  int      `json:"points_earned"`
	Points        int      `json:"points"`
	Explanation   string   `json:"explanation,omitempty"`
}

// AttemptResult is the detailed result of a completed attempt.
type AttemptResult struct {
	Attempt  Attempt        `json:"attempt"`
	Grade    string         `json:"grade"`
	IsPassed bool           `json:"is_passed"`
	Answers  []AnswerDetail `json:"answers"`
}

// Result returns the per-question breakdown of the caller's completed attempt.
func (svc *Service) Result(ctx context.Context, userID, attemptID string) (AttemptResult, error) {
	att, err := svc.getOwnAttempt(ctx, userID, attemptID)
	if err != nil {
		return AttemptResult{}, err
	}
	if !att.IsCompleted() {
		return AttemptResult{}, ErrAttemptNotFound
	}

	q, err := svc.repo.GetQuizByID(ctx, att.QuizID)
	if err != nil {
		return AttemptResult{}, err
	}
	questions, err := svc.repo.QueryQuizQuestions(ctx, att.QuizID)
	if err != nil {
		return AttemptResult{}, err
	}
	questionsByID := make(map[string]Question, len(questions))
	for _, qn := range questions {
		questionsByID[qn.ID] = qn
	}

	records, err := svc.repo.QueryAnswerRecords(ctx, att.ID)
	if err != nil {
		return AttemptResult{}, err
	}

	details := make([]AnswerDetail, 0, len(records))
	for _, rec := range records {
		qn, ok := questionsByID[rec.QuestionID]
		if !ok {
			continue
		}
		details = append(details, AnswerDetail{
			QuestionID:    qn.ID,
			Text:          qn.Text,
			Kind:          qn.Kind,
			Options:       qn.Options,
			UserAnswer:    rec.UserAnswer,
			CorrectAnswer: correctAnswerDisplay(qn),
			IsCorrect:     rec.IsCorrect,
			PointsEarned:  rec.PointsEarned,
			Points:        qn.Points,
			Explanation:   qn.Explanation,
		})
	}

	return AttemptResult{
		Attempt:  att,
		Grade:    att.Grade(),
		IsPassed: att.IsPassed(q),
		Answers:  details,
	}, nil
}

func correctAnswerDisplay(q Question) string {
	switch q.Kind {
	case KindShortAnswer:
		return q.CorrectText
	case KindMultipleChoice:
		if q.CorrectIndex >= 0 && q.CorrectIndex < len(q.Options) {
			return q.Options[q.CorrectIndex]
		}
	case KindTrueFalse:
		if q.CorrectIndex == 0 {
			return "true"
		}
		return "false"
	}
	return ""
}

func (svc *Service) QueryUserAttempts(ctx context.Context, userID string, quizID ...string) ([]Attempt, error) {
	return svc.repo.QueryUserAttempts(ctx, userID, quizID...)
}
