package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/eduhive/backend/core/newsletter"
)

type newsletterRepository struct {
	db *newsletterTable
}

var _ newsletter.Repository = (*newsletterRepository)(nil)

func NewNewsletterRepository(db *DB) newsletter.Repository {
	return &newsletterRepository{db: db.newsletter}
}

func (repo *newsletterRepository) CreateSubscriber(ctx context.Context, sub newsletter.Subscriber) (newsletter.Subscriber, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[sub.Email]; ok {
		return newsletter.Subscriber{}, newsletter.ErrAlreadyExists
	}
	sub.ID = uuid.New().String()
	repo.db.table[sub.Email] = &sub
	return sub, nil
}

func (repo *newsletterRepository) GetSubscriberByEmail(ctx context.Context, email string) (newsletter.Subscriber, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sub, ok := repo.db.table[email]; ok {
		return *sub, nil
	}
	return newsletter.Subscriber{}, newsletter.ErrNotFound
}

func (repo *newsletterRepository) QueryAllSubscribers(ctx context.Context) ([]newsletter.Subscriber, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subs := make([]newsletter.Subscriber, 0, len(repo.db.table))
	for _, sub := range repo.db.table {
		subs = append(subs, *sub)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].SubscribedAt.After(subs[j].SubscribedAt) })
	return subs, nil
}

func (repo *newsletterRepository) DeleteSubscriberByEmail(ctx context.Context, email string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[email]; !ok {
		return newsletter.ErrNotFound
	}
	delete(repo.db.table, email)
	return nil
}
