package quiz

import (
	"math"
	"strconv"
	"strings"
)

// grader is the per-kind correctness predicate. Each question kind
// resolves to a variant carrying only the fields its predicate needs.
type grader interface {
	grade(rawAnswer string) (correct bool, points int)
}

type (
	multipleChoiceGrader struct {
		correctIndex int
		optionCount  int
		points       int
	}

	trueFalseGrader struct {
		correctIndex int
		points       int
	}

	shortAnswerGrader struct {
		correctText string
		points      int
	}
)

func (q Question) grader() grader {
	switch q.Kind {
	case KindTrueFalse:
		return trueFalseGrader{correctIndex: q.CorrectIndex, points: q.Points}
	case KindShortAnswer:
		return shortAnswerGrader{correctText: q.CorrectText, points: q.Points}
	default:
		return multipleChoiceGrader{correctIndex: q.CorrectIndex, optionCount: len(q.Options), points: q.Points}
	}
}

// a non-integer answer to a choice question is incorrect, not an error
func (g multipleChoiceGrader) grade(rawAnswer string) (bool, int) {
	idx, err := strconv.Atoi(strings.TrimSpace(rawAnswer))
	if err != nil {
		return false, 0
	}
	if idx == g.correctIndex {
		return true, g.points
	}
	return false, 0
}

func (g trueFalseGrader) grade(rawAnswer string) (bool, int) {
	idx, err := strconv.Atoi(strings.TrimSpace(rawAnswer))
	if err != nil {
		return false, 0
	}
	if idx == g.correctIndex {
		return true, g.points
	}
	return false, 0
}

// case-insensitive, whitespace-trimmed exact match
func (g shortAnswerGrader) grade(rawAnswer string) (bool, int) {
	if strings.EqualFold(strings.TrimSpace(rawAnswer), strings.TrimSpace(g.correctText)) {
		return true, g.points
	}
	return false, 0
}

type ScoreSummary struct {
	TotalPoints    int
	MaxPoints      int
	CorrectAnswers int
	TotalQuestions int
	Score          float64
}

// AggregateScore computes the attempt aggregate from its answer records.
// The denominator is the points of the questions that were answered, so a
// partial submission is scored against what was answered.
func AggregateScore(records []AnswerRecord, questionPoints map[string]int) ScoreSummary {
	var sum ScoreSummary
	for _, rec := range records {
		sum.TotalPoints += rec.PointsEarned
		sum.MaxPoints += questionPoints[rec.QuestionID]
		if rec.IsCorrect {
			sum.CorrectAnswers++
		}
	}
	sum.TotalQuestions = len(records)
	if sum.MaxPoints > 0 {
		sum.Score = 100 * float64(sum.TotalPoints) / float64(sum.MaxPoints)
	}
	return sum
}

// GradeFor maps a percentage score to a display letter grade.
func GradeFor(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

// Round2 rounds to 2 decimals for display.
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}
