package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/eduhive/backend/core/badge"
)

const badgeColumns = `id, title, image_url, awarded, winners, created_at`

type dbBadge struct {
	badge.Badge
	Winners pq.StringArray `db:"winners"`
}

func (b dbBadge) unpack() badge.Badge {
	out := b.Badge
	out.Winners = b.Winners
	return out
}

type badgeRepository struct {
	db *sqlx.DB
}

var _ badge.Repository = (*badgeRepository)(nil)

func NewBadgeRepository(db *sqlx.DB) *badgeRepository {
	return &badgeRepository{db: db}
}

func (repo badgeRepository) CreateBadge(ctx context.Context, b badge.Badge) (badge.Badge, error) {
	b.ID = uuid.New().String()
	query := `
		INSERT INTO badge (` + badgeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := repo.db.ExecContext(ctx, query,
		b.ID, b.Title, b.ImageURL, b.Awarded, pq.StringArray(b.Winners), b.CreatedAt,
	); err != nil {
		return badge.Badge{}, errors.Wrap(err, "inserting badge")
	}
	return b, nil
}

func (repo badgeRepository) GetBadgeByID(ctx context.Context, id string) (badge.Badge, error) {
	if _, err := uuid.Parse(id); err != nil {
		return badge.Badge{}, badge.ErrNotFound
	}
	var b dbBadge
	query := `SELECT ` + badgeColumns + ` FROM badge WHERE id = $1`
	if err := repo.db.GetContext(ctx, &b, query, id); err != nil {
		if err == sql.ErrNoRows {
			return badge.Badge{}, badge.ErrNotFound
		}
		return badge.Badge{}, errors.Wrap(err, "finding badge")
	}
	return b.unpack(), nil
}

func (repo badgeRepository) QueryBadges(ctx context.Context) ([]badge.Badge, error) {
	query := `SELECT ` + badgeColumns + ` FROM badge ORDER BY created_at DESC`
	var rows []dbBadge
	if err := repo.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, errors.Wrap(err, "querying badges")
	}
	bs := make([]badge.Badge, 0, len(rows))
	for _, row := range rows {
		bs = append(bs, row.unpack())
	}
	return bs, nil
}

func (repo badgeRepository) UpdateBadge(ctx context.Context, b badge.Badge) (badge.Badge, error) {
	query := `
		UPDATE badge
		SET title = $2, image_url = $3, awarded = $4, winners = $5
		WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query,
		b.ID, b.Title, b.ImageURL, b.Awarded, pq.StringArray(b.Winners),
	)
	if err != nil {
		return badge.Badge{}, errors.Wrap(err, "updating badge")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return badge.Badge{}, badge.ErrNotFound
	}
	return b, nil
}

func (repo badgeRepository) DeleteBadgesByID(ctx context.Context, ids ...string) error {
	query, args, err := sqlx.In(`DELETE FROM badge WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "deleting badges")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting badges")
	}
	return nil
}
