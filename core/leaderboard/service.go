package leaderboard

import (
	"context"

	"github.com/pkg/errors"

	"github.com/eduhive/backend/core"
)

var ErrNotFound = errors.New("leaderboard entry not found")

// Topic is the broadcast topic for standings updates.
const Topic = "leaderboard"

type (
	Repository interface {
		// AddPoints upserts the user's entry for the activity and increments
		// its points atomically.
		AddPoints(ctx context.Context, userID string, points int, activity string) (Entry, error)
		GetEntryByUserID(ctx context.Context, userID, activity string) (Entry, error)
		// QueryEntries returns all entries ordered by points descending.
		QueryEntries(ctx context.Context, limit int) ([]Entry, error)
	}

	Service struct {
		repo        Repository
		broadcaster core.Broadcaster
	}
)

func NewService(repo Repository, broadcaster core.Broadcaster) *Service {
	return &Service{repo: repo, broadcaster: broadcaster}
}

// AddQuizPoints mirrors quiz XP onto the standings.
func (svc *Service) AddQuizPoints(ctx context.Context, userID string, points int) error {
	_, err := svc.repo.AddPoints(ctx, userID, points, ActivityQuizzes)
	return err
}

func (svc *Service) Query(ctx context.Context, limit int) ([]Entry, error) {
	return svc.repo.QueryEntries(ctx, limit)
}

func (svc *Service) GetByUserID(ctx context.Context, userID string) (Entry, error) {
	return svc.repo.GetEntryByUserID(ctx, userID, ActivityQuizzes)
}

// PublishStandings re-emits the current standings on the broadcast topic.
func (svc *Service) PublishStandings(ctx context.Context, limit int) ([]Entry, error) {
	entries, err := svc.repo.QueryEntries(ctx, limit)
	if err != nil {
		return nil, err
	}
	svc.broadcaster.Publish(Topic, entries)
	return entries, nil
}
