package quiz

import (
	"context"
	"sort"
)

type Statistics struct {
	TotalAttempts     int            `json:"total_attempts"`
	UniqueUsers       int            `json:"unique_users"`
	AverageScore      float64        `json:"average_score"`
	MedianScore       float64        `json:"median_score"`
	HighestScore      float64        `json:"highest_score"`
	LowestScore       float64        `json:"lowest_score"`
	PassRate          float64        `json:"pass_rate"`
	GradeDistribution map[string]int `json:"grade_distribution"`
	AverageTime       float64        `json:"average_time"` // seconds
}

type QuestionAccuracy struct {
	QuestionID   string  `json:"question_id"`
	Text         string  `json:"question_text"`
	Attempts     int     `json:"attempts"`
	Correct      int     `json:"correct"`
	AccuracyRate float64 `json:"accuracy_rate"`
}

type UserStats struct {
	QuizzesTaken   int       `json:"quizzes_taken"`
	TotalAttempts  int       `json:"total_attempts"`
	Passed         int       `json:"passed"`
	AverageScore   float64   `json:"average_score"`
	SuccessRate    float64   `json:"success_rate"`
	RecentAttempts []Attempt `json:"recent_attempts"`
}

// QuizStatistics computes cross-attempt statistics over completed attempts
// only. Nothing is cached; every call recomputes from the ledger.
func (svc *Service) QuizStatistics(ctx context.Context, quizID string) (Statistics, error) {
	q, err := svc.repo.GetQuizByID(ctx, quizID)
	if err != nil {
		return Statistics{}, err
	}
	attempts, err := svc.repo.QueryCompletedAttempts(ctx, quizID)
	if err != nil {
		return Statistics{}, err
	}

	stats := Statistics{GradeDistribution: map[string]int{"A": 0, "B": 0, "C": 0, "D": 0, "F": 0}}
	if len(attempts) == 0 {
		return stats, nil
	}

	users := make(map[string]bool, len(attempts))
	scores := make([]float64, 0, len(attempts))
	var scoreSum, timeSum float64
	var passed int
	for _, att := range attempts {
		users[att.UserID] = true
		scores = append(scores, att.Score)
		scoreSum += att.Score
		timeSum += float64(att.TimeTaken)
		if att.IsPassed(q) {
			passed++
		}
		stats.GradeDistribution[att.Grade()]++
	}
	sort.Float64s(scores)

	stats.TotalAttempts = len(attempts)
	stats.UniqueUsers = len(users)
	stats.AverageScore = Round2(scoreSum / float64(len(attempts)))
	stats.MedianScore = Round2(median(scores))
	stats.HighestScore = Round2(scores[len(scores)-1])
	stats.LowestScore = Round2(scores[0])
	stats.PassRate = Round2(100 * float64(passed) / float64(len(attempts)))
	stats.AverageTime = Round2(timeSum / float64(len(attempts)))
	return stats, nil
}

// QuestionAccuracyReport computes the per-question accuracy over the quiz's
// completed attempts, in question display order.
func (svc *Service) QuestionAccuracyReport(ctx context.Context, quizID string) ([]QuestionAccuracy, error) {
	questions, err := svc.repo.QueryQuizQuestions(ctx, quizID)
	if err != nil {
		return nil, err
	}
	records, err := svc.repo.QueryQuizAnswerRecords(ctx, quizID)
	if err != nil {
		return nil, err
	}

	attempts := make(map[string]int, len(questions))
	correct := make(map[string]int, len(questions))
	for _, rec := range records {
		attempts[rec.QuestionID]++
		if rec.IsCorrect {
			correct[rec.QuestionID]++
		}
	}

	report := make([]QuestionAccuracy, 0, len(questions))
	for _, qn := range questions {
		qa := QuestionAccuracy{
			QuestionID: qn.ID,
			Text:       qn.Text,
			Attempts:   attempts[qn.ID],
			Correct:    correct[qn.ID],
		}
		if qa.Attempts > 0 {
			qa.AccuracyRate = Round2(100 * float64(qa.Correct) / float64(qa.Attempts))
		}
		report = append(report, qa)
	}
	return report, nil
}

// UserQuizStats summarizes the caller's performance across all quizzes.
func (svc *Service) UserQuizStats(ctx context.Context, userID string) (UserStats, error) {
	attempts, err := svc.repo.QueryUserAttempts(ctx, userID)
	if err != nil {
		return UserStats{}, err
	}

	var stats UserStats
	quizzes := make(map[string]bool)
	passScores := make(map[string]int)
	var scoreSum float64
	var completed int
	for _, att := range attempts {
		if !att.IsCompleted() {
			continue
		}
		completed++
		quizzes[att.QuizID] = true
		scoreSum += att.Score

		passingScore, ok := passScores[att.QuizID]
		if !ok {
			q, err := svc.repo.GetQuizByID(ctx, att.QuizID)
			if err != nil {
				return UserStats{}, err
			}
			passingScore = q.PassingScore
			passScores[att.QuizID] = passingScore
		}
		if att.Score >= float64(passingScore) {
			stats.Passed++
		}
	}

	stats.QuizzesTaken = len(quizzes)
	stats.TotalAttempts = completed
	if completed > 0 {
		stats.AverageScore = Round2(scoreSum / float64(completed))
		stats.SuccessRate = Round2(100 * float64(stats.Passed) / float64(completed))
	}

	// most recent attempts first
	sort.Slice(attempts, func(i, j int) bool { return attempts[i].TimeStarted.After(attempts[j].TimeStarted) })
	if len(attempts) > 5 {
		attempts = attempts[:5]
	}
	stats.RecentAttempts = attempts
	return stats, nil
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
