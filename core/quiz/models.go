package quiz

import (
	"time"

	"github.com/eduhive/backend/core"
)

// Derived quiz statuses
const (
	StatusNotStarted = "Not Started"
	StatusActive     = "Active"
	StatusExpired    = "Expired"
)

// Question kinds
const (
	KindMultipleChoice = "multiple_choice"
	KindTrueFalse      = "true_false"
	KindShortAnswer    = "short_answer"
)

// Question difficulties
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Attempt statuses
const (
	AttemptInProgress = "in_progress"
	AttemptCompleted  = "completed"
)

// Defaults applied at quiz creation
const (
	DefaultPassingScore = 70
	DefaultMaxAttempts  = 3
)

var NowFunc = time.Now // mockable

type Quiz struct {
	ID             string    `json:"id" db:"id"`
	Unit           string    `json:"unit" db:"unit"`
	Subject        string    `json:"subject" db:"subject"`
	Description    string    `json:"description" db:"description"`
	IssueDate      time.Time `json:"issue_date" db:"issue_date"` // UTC
	Deadline       time.Time `json:"deadline" db:"deadline"`     // UTC
	TotalQuestions int       `json:"total_questions" db:"total_questions"`
	PassingScore   int       `json:"passing_score" db:"passing_score"` // percentage
	TimeLimit      int       `json:"time_limit,omitempty" db:"time_limit"`
	MaxAttempts    int       `json:"max_attempts" db:"max_attempts"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	CreatedBy      string    `json:"created_by" db:"created_by"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Status derives the quiz's availability from the clock; it is never stored.
func (q Quiz) Status() string {
	now := NowFunc().UTC()
	if now.After(q.Deadline) {
		return StatusExpired
	}
	if now.Before(q.IssueDate) {
		return StatusNotStarted
	}
	return StatusActive
}

type Question struct {
	ID           string    `json:"id" db:"id"`
	QuizID       string    `json:"quiz_id" db:"quiz_id"`
	Text         string    `json:"question_text" db:"question_text"`
	Kind         string    `json:"question_type" db:"question_type"`
	Options      []string  `json:"options,omitempty" db:"-"`
	CorrectIndex int       `json:"-" db:"correct_index"`
	CorrectText  string    `json:"-" db:"correct_text"`
	Explanation  string    `json:"explanation,omitempty" db:"explanation"`
	Points       int       `json:"points" db:"points"`
	Difficulty   string    `json:"difficulty" db:"difficulty"`
	OrderIndex   int       `json:"order_index" db:"order_index"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Grade checks a raw answer against this question and returns
// correctness and the points earned. Points are all-or-nothing.
func (q Question) Grade(rawAnswer string) (bool, int) {
	return q.grader().grade(rawAnswer)
}

type Attempt struct {
	ID             string    `json:"id" db:"id"`
	UserID         string    `json:"user_id" db:"user_id"`
	QuizID         string    `json:"quiz_id" db:"quiz_id"`
	AttemptNumber  int       `json:"attempt_number" db:"attempt_number"`
	Status         string    `json:"status" db:"status"`
	Score          float64   `json:"score" db:"score"` // percentage
	TotalPoints    int       `json:"total_points" db:"total_points"`
	MaxPoints      int       `json:"max_points" db:"max_points"`
	CorrectAnswers int       `json:"correct_answers" db:"correct_answers"`
	TotalQuestions int       `json:"total_questions" db:"total_questions"`
	TimeStarted    time.Time `json:"time_started" db:"time_started"` // UTC
	TimeCompleted  time.Time `json:"time_completed,omitempty" db:"time_completed"`
	TimeTaken      int       `json:"time_taken" db:"time_taken"` // seconds
	IPAddress      string    `json:"-" db:"ip_address"`
	UserAgent      string    `json:"-" db:"user_agent"`
}

func (a Attempt) IsCompleted() bool { return a.Status == AttemptCompleted }

// Grade maps the attempt's score to a display letter grade.
func (a Attempt) Grade() string { return GradeFor(a.Score) }

// IsPassed reports whether a completed attempt meets the quiz's passing score.
func (a Attempt) IsPassed(q Quiz) bool {
	return a.IsCompleted() && a.Score >= float64(q.PassingScore)
}

type AnswerRecord struct {
	ID           string    `json:"id" db:"id"`
	AttemptID    string    `json:"attempt_id" db:"attempt_id"`
	QuestionID   string    `json:"question_id" db:"question_id"`
	UserAnswer   string    `json:"user_answer" db:"user_answer"`
	IsCorrect    bool      `json:"is_correct" db:"is_correct"`
	PointsEarned int       `json:"points_earned" db:"points_earned"`
	TimeSpent    int       `json:"time_spent,omitempty" db:"time_spent"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// NewQuiz contains information needed to create a new Quiz.
type NewQuiz struct {
	ID           string    `json:"id" validate:"required,quizid"`
	Unit         string    `json:"unit" validate:"required,unitcode"`
	Subject      string    `json:"subject" validate:"required,max=200"`
	Description  string    `json:"description" validate:"omitempty,max=1000"`
	IssueDate    time.Time `json:"issue_date"`
	Deadline     time.Time `json:"deadline" validate:"required"`
	PassingScore *int      `json:"passing_score" validate:"omitempty,min=0,max=100"`
	TimeLimit    int       `json:"time_limit" validate:"omitempty,gt=0"`
	MaxAttempts  *int      `json:"max_attempts" validate:"omitempty,min=1,max=10"`
	IsActive     *bool     `json:"is_active"`
}

func (nq *NewQuiz) Validate(svc *Service) error {
	nq.ID = core.CleanString(nq.ID)
	nq.Unit = core.CleanString(nq.Unit)
	nq.Subject = core.CleanString(nq.Subject)
	nq.Description = core.CleanString(nq.Description)

	if err := core.Validate.Struct(nq); err != nil {
		return err
	}
	return svc.CheckQuizIDUniqueness(nq.ID)
}

// UpdateQuiz defines what information may be provided to modify an existing Quiz.
// Deadline, PassingScore and MaxAttempts are frozen once attempts exist.
type UpdateQuiz struct {
	Unit         string     `json:"unit" validate:"omitempty,unitcode"`
	Subject      string     `json:"subject" validate:"omitempty,max=200"`
	Description  string     `json:"description" validate:"omitempty,max=1000"`
	IssueDate    *time.Time `json:"issue_date"`
	Deadline     *time.Time `json:"deadline"`
	PassingScore *int       `json:"passing_score" validate:"omitempty,min=0,max=100"`
	TimeLimit    *int       `json:"time_limit" validate:"omitempty,gt=0"`
	MaxAttempts  *int       `json:"max_attempts" validate:"omitempty,min=1,max=10"`
	IsActive     *bool      `json:"is_active"`
}

func (uq *UpdateQuiz) Validate() error {
	uq.Unit = core.CleanString(uq.Unit)
	uq.Subject = core.CleanString(uq.Subject)
	uq.Description = core.CleanString(uq.Description)
	return core.Validate.Struct(uq)
}

// NewQuestion contains information needed to add a Question to a Quiz.
type NewQuestion struct {
	Text         string   `json:"question_text" validate:"required,max=1000"`
	Kind         string   `json:"question_type" validate:"required,questionkind"`
	Options      []string `json:"options"`
	CorrectIndex *int     `json:"correct_answer"`
	CorrectText  string   `json:"correct_answer_text" validate:"omitempty,max=500"`
	Explanation  string   `json:"explanation" validate:"omitempty,max=1000"`
	Points       *int     `json:"points" validate:"omitempty,min=1,max=10"`
	Difficulty   string   `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	OrderIndex   int      `json:"order_index"`
}

func (nq *NewQuestion) Validate() error {
	nq.Text = core.CleanString(nq.Text)
	nq.Kind = core.CleanString(nq.Kind, true /* lower */)
	nq.CorrectText = core.CleanString(nq.CorrectText)
	return core.Validate.Struct(nq)
}

func (nq NewQuestion) question() Question {
	q := Question{
		Text:        nq.Text,
		Kind:        nq.Kind,
		Options:     nq.Options,
		CorrectText: nq.CorrectText,
		Explanation: nq.Explanation,
		Points:      1,
		Difficulty:  DifficultyMedium,
		OrderIndex:  nq.OrderIndex,
	}
	if nq.CorrectIndex != nil {
		q.CorrectIndex = *nq.CorrectIndex
	}
	if nq.Points != nil {
		q.Points = *nq.Points
	}
	if nq.Difficulty != "" {
		q.Difficulty = nq.Difficulty
	}
	return q
}

// UpdateQuestion defines what information may be provided to modify a Question.
// Questions are frozen once the quiz has recorded attempts.
type UpdateQuestion struct {
	Text         string   `json:"question_text" validate:"omitempty,max=1000"`
	Options      []string `json:"options"`
	CorrectIndex *int     `json:"correct_answer"`
	CorrectText  string   `json:"correct_answer_text" validate:"omitempty,max=500"`
	Explanation  string   `json:"explanation" validate:"omitempty,max=1000"`
	Points       *int     `json:"points" validate:"omitempty,min=1,max=10"`
	Difficulty   string   `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	OrderIndex   *int     `json:"order_index"`
}

func (uq *UpdateQuestion) Validate() error {
	uq.Text = core.CleanString(uq.Text)
	uq.CorrectText = core.CleanString(uq.CorrectText)
	return core.Validate.Struct(uq)
}

// SubmitAnswers is the payload for submitting an attempt.
// Answers maps question id to the raw user answer.
type SubmitAnswers struct {
	Answers map[string]string `json:"answers" validate:"required"`
}

func (sa SubmitAnswers) Validate() error { return core.Validate.Struct(sa) }

type QueryFilter struct {
	Unit      string `query:"unit"`
	Subject   string `query:"subject"` // case-insensitive partial match
	IsActive  *bool  `query:"is_active"`
	CreatedBy string `query:"created_by"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Unit == "" && qf.Subject == "" && qf.IsActive == nil && qf.CreatedBy == ""
}

func (qf *QueryFilter) Clean() {
	qf.Unit = core.CleanString(qf.Unit)
	qf.Subject = core.CleanString(qf.Subject)
}
