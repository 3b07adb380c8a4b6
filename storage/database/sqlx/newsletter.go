package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/eduhive/backend/core/newsletter"
)

type newsletterRepository struct {
	db *sqlx.DB
}

var _ newsletter.Repository = (*newsletterRepository)(nil)

func NewNewsletterRepository(db *sqlx.DB) *newsletterRepository {
	return &newsletterRepository{db: db}
}

func (repo newsletterRepository) CreateSubscriber(ctx context.Context, sub newsletter.Subscriber) (newsletter.Subscriber, error) {
	sub.ID = uuid.New().String()
	query := `
		INSERT INTO newsletter_subscriber (id, name, phone, email, subscribed_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := repo.db.ExecContext(ctx, query, sub.ID, sub.Name, sub.Phone, sub.Email, sub.SubscribedAt); err != nil {
		if isUniqueViolation(err) {
			return newsletter.Subscriber{}, newsletter.ErrAlreadyExists
		}
		return newsletter.Subscriber{}, errors.Wrap(err, "inserting subscriber")
	}
	return sub, nil
}

func (repo newsletterRepository) GetSubscriberByEmail(ctx context.Context, email string) (newsletter.Subscriber, error) {
	var sub newsletter.Subscriber
	query := `SELECT id, name, phone, email, subscribed_at FROM newsletter_subscriber WHERE email = $1`
	if err := repo.db.GetContext(ctx, &sub, query, email); err != nil {
		if err == sql.ErrNoRows {
			return newsletter.Subscriber{}, newsletter.ErrNotFound
		}
		return newsletter.Subscriber{}, errors.Wrap(err, "finding subscriber")
	}
	return sub, nil
}

func (repo newsletterRepository) QueryAllSubscribers(ctx context.Context) ([]newsletter.Subscriber, error) {
	var subs []newsletter.Subscriber
	query := `SELECT id, name, phone, email, subscribed_at FROM newsletter_subscriber ORDER BY subscribed_at DESC`
	if err := repo.db.SelectContext(ctx, &subs, query); err != nil {
		return nil, errors.Wrap(err, "querying subscribers")
	}
	return subs, nil
}

func (repo newsletterRepository) DeleteSubscriberByEmail(ctx context.Context, email string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM newsletter_subscriber WHERE email = $1`, email)
	if err != nil {
		return errors.Wrap(err, "deleting subscriber")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return newsletter.ErrNotFound
	}
	return nil
}
