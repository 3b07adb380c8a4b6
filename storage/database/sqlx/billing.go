package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/eduhive/backend/core/billing"
)

const (
	paymentColumns = `id, user_id, checkout_request_id, merchant_request_id, phone_number, amount,
		account_reference, transaction_desc, mpesa_receipt_number, transaction_date, status,
		result_code, result_desc, created_at, updated_at`
	subscriptionColumns = `id, user_id, plan, billing_cycle, start_date, end_date, active`
)

type dbPayment struct {
	billing.Payment
	TransactionDate sql.NullTime `db:"transaction_date"`
}

func (p dbPayment) unpack() billing.Payment {
	out := p.Payment
	if p.TransactionDate.Valid {
		out.TransactionDate = p.TransactionDate.Time.UTC()
	}
	return out
}

type dbSubscription struct {
	billing.Subscription
	EndDate sql.NullTime `db:"end_date"`
}

func (s dbSubscription) unpack() billing.Subscription {
	out := s.Subscription
	if s.EndDate.Valid {
		out.EndDate = s.EndDate.Time.UTC()
	}
	return out
}

type billingRepository struct {
	db *sqlx.DB
}

var _ billing.Repository = (*billingRepository)(nil)

func NewBillingRepository(db *sqlx.DB) *billingRepository {
	return &billingRepository{db: db}
}

func (repo billingRepository) CreatePayment(ctx context.Context, p billing.Payment) (billing.Payment, error) {
	p.ID = uuid.New().String()
	query := `
		INSERT INTO payment (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULL, $10, $11, $12, $13, $14)`
	if _, err := repo.db.ExecContext(ctx, query,
		p.ID, p.UserID, p.CheckoutRequestID, p.MerchantRequestID, p.PhoneNumber, p.Amount,
		p.AccountReference, p.TransactionDesc, p.ReceiptNumber, p.Status,
		p.ResultCode, p.ResultDesc, p.CreatedAt, p.UpdatedAt,
	); err != nil {
		return billing.Payment{}, errors.Wrap(err, "inserting payment")
	}
	return p, nil
}

func (repo billingRepository) GetPaymentByCheckoutID(ctx context.Context, checkoutRequestID string) (billing.Payment, error) {
	var row dbPayment
	query := `SELECT ` + paymentColumns + ` FROM payment WHERE checkout_request_id = $1`
	if err := repo.db.GetContext(ctx, &row, query, checkoutRequestID); err != nil {
		if err == sql.ErrNoRows {
			return billing.Payment{}, billing.ErrPaymentNotFound
		}
		return billing.Payment{}, errors.Wrap(err, "finding payment")
	}
	return row.unpack(), nil
}

func (repo billingRepository) QueryUserPayments(ctx context.Context, userID string) ([]billing.Payment, error) {
	var rows []dbPayment
	query := `SELECT ` + paymentColumns + ` FROM payment WHERE user_id = $1 ORDER BY created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, errors.Wrap(err, "querying user payments")
	}
	payments := make([]billing.Payment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, row.unpack())
	}
	return payments, nil
}

func (repo billingRepository) UpdatePayment(ctx context.Context, p billing.Payment) (billing.Payment, error) {
	query := `
		UPDATE payment
		SET mpesa_receipt_number = $2, transaction_date = NULLIF($3, '0001-01-01 00:00:00Z'::timestamptz),
			status = $4, result_code = $5, result_desc = $6, updated_at = $7
		WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query,
		p.ID, p.ReceiptNumber, p.TransactionDate, p.Status, p.ResultCode, p.ResultDesc, p.UpdatedAt,
	)
	if err != nil {
		return billing.Payment{}, errors.Wrap(err, "updating payment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return billing.Payment{}, billing.ErrPaymentNotFound
	}
	return p, nil
}

func (repo billingRepository) GetSubscriptionByUserID(ctx context.Context, userID string) (billing.Subscription, error) {
	var row dbSubscription
	query := `SELECT ` + subscriptionColumns + ` FROM subscription WHERE user_id = $1`
	if err := repo.db.GetContext(ctx, &row, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return billing.Subscription{}, billing.ErrSubscriptionNotFound
		}
		return billing.Subscription{}, errors.Wrap(err, "finding subscription")
	}
	return row.unpack(), nil
}

// UpsertSubscription creates or replaces the user's subscription.
func (repo billingRepository) UpsertSubscription(ctx context.Context, sub billing.Subscription) (billing.Subscription, error) {
	sub.ID = uuid.New().String()
	query := `
		INSERT INTO subscription (` + subscriptionColumns + `)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, '0001-01-01 00:00:00Z'::timestamptz), $7)
		ON CONFLICT (user_id)
		DO UPDATE SET plan = EXCLUDED.plan, billing_cycle = EXCLUDED.billing_cycle,
			start_date = EXCLUDED.start_date, end_date = EXCLUDED.end_date, active = EXCLUDED.active
		RETURNING id`
	if err := repo.db.GetContext(ctx, &sub.ID, query,
		sub.ID, sub.UserID, sub.Plan, sub.Cycle, sub.StartDate, sub.EndDate, sub.Active,
	); err != nil {
		return billing.Subscription{}, errors.Wrap(err, "upserting subscription")
	}
	return sub, nil
}
