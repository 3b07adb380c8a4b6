package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/eduhive/backend/core/leaderboard"
)

const entryColumns = `e.id, e.user_id, u.name, e.points, e.activity_type, e.avatar_url,
	e.gold, e.silver, e.bronze, e.joined_date`

type dbEntry struct {
	ID           string    `db:"id"`
	UserID       string    `db:"user_id"`
	Name         string    `db:"name"`
	Points       int       `db:"points"`
	ActivityType string    `db:"activity_type"`
	AvatarURL    string    `db:"avatar_url"`
	Gold         int       `db:"gold"`
	Silver       int       `db:"silver"`
	Bronze       int       `db:"bronze"`
	JoinedDate   time.Time `db:"joined_date"`
}

func (e dbEntry) unpack() leaderboard.Entry {
	return leaderboard.Entry{
		ID:           e.ID,
		UserID:       e.UserID,
		Name:         e.Name,
		Points:       e.Points,
		ActivityType: e.ActivityType,
		AvatarURL:    e.AvatarURL,
		Medals:       leaderboard.Medals{Gold: e.Gold, Silver: e.Silver, Bronze: e.Bronze},
		JoinedDate:   e.JoinedDate.UTC(),
	}
}

type leaderboardRepository struct {
	db *sqlx.DB
}

var _ leaderboard.Repository = (*leaderboardRepository)(nil)

func NewLeaderboardRepository(db *sqlx.DB) *leaderboardRepository {
	return &leaderboardRepository{db: db}
}

// AddPoints upserts the user's entry for the activity and increments its
// points atomically.
func (repo leaderboardRepository) AddPoints(ctx context.Context, userID string, points int, activity string) (leaderboard.Entry, error) {
	query := `
		INSERT INTO leaderboard_entry (id, user_id, points, activity_type, joined_date)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, activity_type)
		DO UPDATE SET points = leaderboard_entry.points + EXCLUDED.points`
	if _, err := repo.db.ExecContext(ctx, query,
		uuid.New().String(), userID, points, activity, time.Now().UTC(),
	); err != nil {
		return leaderboard.Entry{}, errors.Wrap(err, "upserting leaderboard entry")
	}
	return repo.GetEntryByUserID(ctx, userID, activity)
}

func (repo leaderboardRepository) GetEntryByUserID(ctx context.Context, userID, activity string) (leaderboard.Entry, error) {
	var row dbEntry
	query := `
		SELECT ` + entryColumns + `
		FROM leaderboard_entry e
		JOIN "user" u ON u.id = e.user_id
		WHERE e.user_id = $1 AND e.activity_type = $2`
	if err := repo.db.GetContext(ctx, &row, query, userID, activity); err != nil {
		if err == sql.ErrNoRows {
			return leaderboard.Entry{}, leaderboard.ErrNotFound
		}
		return leaderboard.Entry{}, errors.Wrap(err, "finding leaderboard entry")
	}
	return row.unpack(), nil
}

func (repo leaderboardRepository) QueryEntries(ctx context.Context, limit int) ([]leaderboard.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM leaderboard_entry e
		JOIN "user" u ON u.id = e.user_id
		ORDER BY e.points DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	var rows []dbEntry
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying leaderboard entries")
	}
	entries := make([]leaderboard.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.unpack())
	}
	return entries, nil
}
