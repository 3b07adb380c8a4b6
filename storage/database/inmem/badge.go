package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/eduhive/backend/core/badge"
)

type badgeRepository struct {
	db *badgeTable
}

var _ badge.Repository = (*badgeRepository)(nil)

func NewBadgeRepository(db *DB) badge.Repository {
	return &badgeRepository{db: db.badge}
}

func (repo *badgeRepository) CreateBadge(ctx context.Context, b badge.Badge) (badge.Badge, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	b.ID = uuid.New().String()
	repo.db.table[b.ID] = &b
	return b, nil
}

func (repo *badgeRepository) GetBadgeByID(ctx context.Context, id string) (badge.Badge, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if b, ok := repo.db.table[id]; ok {
		return *b, nil
	}
	return badge.Badge{}, badge.ErrNotFound
}

func (repo *badgeRepository) QueryBadges(ctx context.Context) ([]badge.Badge, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var bs []badge.Badge
	for _, b := range repo.db.table {
		bs = append(bs, *b)
	}
	sort.Slice(bs, func(i, j int) bool { return bs[i].CreatedAt.After(bs[j].CreatedAt) })
	return bs, nil
}

func (repo *badgeRepository) UpdateBadge(ctx context.Context, b badge.Badge) (badge.Badge, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[b.ID]; !ok {
		return badge.Badge{}, badge.ErrNotFound
	}
	repo.db.table[b.ID] = &b
	return b, nil
}

func (repo *badgeRepository) DeleteBadgesByID(ctx context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
