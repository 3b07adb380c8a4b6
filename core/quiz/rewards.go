package quiz

import (
	"context"

	"github.com/eduhive/backend/core/leaderboard"
)

// XPPerQuestion is the flat reward policy: a passing attempt earns
// 10 XP per question on the quiz, regardless of difficulty.
const XPPerQuestion = 10

func xpEarned(att Attempt) int {
	return att.TotalQuestions * XPPerQuestion
}

// rewardPassingAttempt grants XP, mirrors it onto the leaderboard and emits
// a broadcast event. The attempt's persisted state is the source of truth;
// delivery failures are logged and never propagated to the caller.
func (svc *Service) rewardPassingAttempt(ctx context.Context, q Quiz, att Attempt) int {
	xp := xpEarned(att)

	usr, err := svc.users.AddXP(ctx, att.UserID, xp)
	if err != nil {
		svc.logger.Error("granting XP", err)
		return xp
	}
	if err := svc.board.AddQuizPoints(ctx, att.UserID, xp); err != nil {
		svc.logger.Error("updating leaderboard", err)
	}

	svc.broadcaster.Publish(leaderboard.Topic, map[string]interface{}{
		"user_id":  att.UserID,
		"total_xp": usr.TotalXP,
		"quiz_id":  q.ID,
		"score":    Round2(att.Score),
	})
	return xp
}
