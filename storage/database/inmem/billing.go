package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/eduhive/backend/core/billing"
)

type billingRepository struct {
	db *billingTable
}

var _ billing.Repository = (*billingRepository)(nil)

func NewBillingRepository(db *DB) billing.Repository {
	return &billingRepository{db: db.billing}
}

func (repo *billingRepository) CreatePayment(ctx context.Context, p billing.Payment) (billing.Payment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	p.ID = uuid.New().String()
	repo.db.payments[p.ID] = &p
	return p, nil
}

func (repo *billingRepository) GetPaymentByCheckoutID(ctx context.Context, checkoutRequestID string) (billing.Payment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, p := range repo.db.payments {
		if p.CheckoutRequestID == checkoutRequestID {
			return *p, nil
		}
	}
	return billing.Payment{}, billing.ErrPaymentNotFound
}

func (repo *billingRepository) QueryUserPayments(ctx context.Context, userID string) ([]billing.Payment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var payments []billing.Payment
	for _, p := range repo.db.payments {
		if p.UserID == userID {
			payments = append(payments, *p)
		}
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].CreatedAt.After(payments[j].CreatedAt) })
	return payments, nil
}

func (repo *billingRepository) UpdatePayment(ctx context.Context, p billing.Payment) (billing.Payment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.payments[p.ID]; !ok {
		return billing.Payment{}, billing.ErrPaymentNotFound
	}
	repo.db.payments[p.ID] = &p
	return p, nil
}

func (repo *billingRepository) GetSubscriptionByUserID(ctx context.Context, userID string) (billing.Subscription, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sub, ok := repo.db.subscriptions[userID]; ok {
		return *sub, nil
	}
	return billing.Subscription{}, billing.ErrSubscriptionNotFound
}

func (repo *billingRepository) UpsertSubscription(ctx context.Context, sub billing.Subscription) (billing.Subscription, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if existing, ok := repo.db.subscriptions[sub.UserID]; ok {
		sub.ID = existing.ID
	} else {
		sub.ID = uuid.New().String()
	}
	repo.db.subscriptions[sub.UserID] = &sub
	return sub, nil
}
