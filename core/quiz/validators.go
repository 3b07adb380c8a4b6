package quiz

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/eduhive/backend/core"
)

var (
	quizIDTag   = "quizid"
	quizIDText  = "only alphanumeric characters, hyphens and underscores are allowed (max 50)"
	quizIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{1,50}$`)

	unitCodeTag   = "unitcode"
	unitCodeText  = "invalid unit code"
	unitCodeRegex = regexp.MustCompile(`^\d{2}(-\d+)?$`)

	questionKindTag  = "questionkind"
	questionKindText = fmt.Sprintf("question type must be one of %s, %s or %s", KindMultipleChoice, KindTrueFalse, KindShortAnswer)

	deadlineTag  = "deadline"
	deadlineText = "deadline must be in the future and after the issue date"

	optionCountTag  = "optioncount"
	optionCountText = "2 to 6 non-empty options are required"

	correctIndexTag  = "correctindex"
	correctIndexText = "correct answer index is out of range"

	correctBoolTag  = "correctbool"
	correctBoolText = "correct answer must be 0 (true) or 1 (false)"

	correctTextTag  = "correcttext"
	correctTextText = "correct answer text is required"
)

func init() {
	// register validators
	_ = core.Validate.RegisterValidation(quizIDTag, quizIDValidation)
	core.RegisterCustomTranslation(quizIDTag, quizIDText)

	_ = core.Validate.RegisterValidation(unitCodeTag, unitCodeValidation)
	core.RegisterCustomTranslation(unitCodeTag, unitCodeText)

	_ = core.Validate.RegisterValidation(questionKindTag, questionKindValidation)
	core.RegisterCustomTranslation(questionKindTag, questionKindText)

	core.Validate.RegisterStructValidation(newQuizStructValidation, NewQuiz{})
	core.RegisterCustomTranslation(deadlineTag, deadlineText)

	core.Validate.RegisterStructValidation(newQuestionStructValidation, NewQuestion{})
	core.RegisterCustomTranslation(optionCountTag, optionCountText)
	core.RegisterCustomTranslation(correctIndexTag, correctIndexText)
	core.RegisterCustomTranslation(correctBoolTag, correctBoolText)
	core.RegisterCustomTranslation(correctTextTag, correctTextText)
}

// Custom Validators

func quizIDValidation(fl validator.FieldLevel) bool {
	return quizIDRegex.MatchString(fl.Field().String())
}

func unitCodeValidation(fl validator.FieldLevel) bool {
	return unitCodeRegex.MatchString(fl.Field().String())
}

func questionKindValidation(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case KindMultipleChoice, KindTrueFalse, KindShortAnswer:
		return true
	}
	return false
}

// newQuizStructValidation enforces the deadline invariant:
// the deadline is strictly in the future and strictly after the issue date.
func newQuizStructValidation(sl validator.StructLevel) {
	nq, ok := sl.Current().Interface().(NewQuiz)
	if !ok || nq.Deadline.IsZero() {
		return
	}

	issue := nq.IssueDate
	if issue.IsZero() {
		issue = NowFunc().UTC()
	}
	if !nq.Deadline.After(NowFunc().UTC()) || !nq.Deadline.After(issue) {
		sl.ReportError(nq.Deadline, "deadline", "Deadline", deadlineTag, "")
	}
}

// newQuestionStructValidation checks the kind-dependent answer fields.
func newQuestionStructValidation(sl validator.StructLevel) {
	nq, ok := sl.Current().Interface().(NewQuestion)
	if !ok {
		return
	}

	switch nq.Kind {
	case KindMultipleChoice:
		if !validOptions(nq.Options) {
			sl.ReportError(nq.Options, "options", "Options", optionCountTag, "")
			return
		}
		if nq.CorrectIndex == nil || *nq.CorrectIndex < 0 || *nq.CorrectIndex >= len(nq.Options) {
			sl.ReportError(nq.CorrectIndex, "correct_answer", "CorrectIndex", correctIndexTag, "")
		}
	case KindTrueFalse:
		if nq.CorrectIndex == nil || (*nq.CorrectIndex != 0 && *nq.CorrectIndex != 1) {
			sl.ReportError(nq.CorrectIndex, "correct_answer", "CorrectIndex", correctBoolTag, "")
		}
	case KindShortAnswer:
		if nq.CorrectText == "" {
			sl.ReportError(nq.CorrectText, "correct_answer_text", "CorrectText", correctTextTag, "")
		}
	}
}

func validOptions(options []string) bool {
	if len(options) < 2 || len(options) > 6 {
		return false
	}
	for _, opt := range options {
		if core.CleanString(opt) == "" {
			return false
		}
	}
	return true
}
