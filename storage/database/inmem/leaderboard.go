package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/eduhive/backend/core/leaderboard"
	"github.com/eduhive/backend/core/user"
)

// NameResolver resolves the denormalized display name of an entry's user.
type NameResolver interface {
	GetUserByID(ctx context.Context, id string) (user.User, error)
}

type leaderboardRepository struct {
	db    *leaderboardTable
	users NameResolver
}

var _ leaderboard.Repository = (*leaderboardRepository)(nil)

func NewLeaderboardRepository(db *DB, users NameResolver) leaderboard.Repository {
	return &leaderboardRepository{db: db.leaderboard, users: users}
}

func entryKey(userID, activity string) string { return userID + ":" + activity }

func (repo *leaderboardRepository) AddPoints(ctx context.Context, userID string, points int, activity string) (leaderboard.Entry, error) {
	name := ""
	if repo.users != nil {
		if usr, err := repo.users.GetUserByID(ctx, userID); err == nil {
			name = usr.Name
		}
	}

	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := entryKey(userID, activity)
	entry, ok := repo.db.table[key]
	if !ok {
		entry = &leaderboard.Entry{
			ID:           uuid.New().String(),
			UserID:       userID,
			Name:         name,
			ActivityType: activity,
			JoinedDate:   time.Now().UTC(),
		}
		repo.db.table[key] = entry
	}
	entry.Points += points
	return *entry, nil
}

func (repo *leaderboardRepository) GetEntryByUserID(ctx context.Context, userID, activity string) (leaderboard.Entry, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if entry, ok := repo.db.table[entryKey(userID, activity)]; ok {
		return *entry, nil
	}
	return leaderboard.Entry{}, leaderboard.ErrNotFound
}

func (repo *leaderboardRepository) QueryEntries(ctx context.Context, limit int) ([]leaderboard.Entry, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	entries := make([]leaderboard.Entry, 0, len(repo.db.table))
	for _, entry := range repo.db.table {
		entries = append(entries, *entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Points > entries[j].Points })
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
