package billing

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/eduhive/backend/core"
)

var (
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// SubscriptionsTopic is the broadcast topic for subscription upgrades.
const SubscriptionsTopic = "subscriptions"

type (
	// STKPushResponse is the gateway's acknowledgement of a push request.
	STKPushResponse struct {
		CheckoutRequestID string `json:"checkout_request_id"`
		MerchantRequestID string `json:"merchant_request_id"`
		ResponseCode      string `json:"response_code"`
		CustomerMessage   string `json:"customer_message"`
	}

	// Gateway initiates mobile-money payments.
	Gateway interface {
		InitiateSTKPush(ctx context.Context, phone string, amount float64, accountRef, desc string) (STKPushResponse, error)
	}

	Repository interface {
		CreatePayment(ctx context.Context, p Payment) (Payment, error)
		GetPaymentByCheckoutID(ctx context.Context, checkoutRequestID string) (Payment, error)
		QueryUserPayments(ctx context.Context, userID string) ([]Payment, error)
		UpdatePayment(ctx context.Context, p Payment) (Payment, error)

		GetSubscriptionByUserID(ctx context.Context, userID string) (Subscription, error)
		// UpsertSubscription creates or replaces the user's subscription.
		UpsertSubscription(ctx context.Context, sub Subscription) (Subscription, error)
	}

	Service struct {
		repo        Repository
		gateway     Gateway
		broadcaster core.Broadcaster
		logger      core.Logger
	}
)

func NewService(repo Repository, gateway Gateway, broadcaster core.Broadcaster, logger core.Logger) *Service {
	return &Service{
		repo:        repo,
		gateway:     gateway,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// InitiatePayment pushes a payment prompt to the user's phone and records
// the pending payment keyed by the gateway's checkout request id.
func (svc *Service) InitiatePayment(ctx context.Context, userID string, np NewPayment) (Payment, error) {
	desc := np.Plan + " plan subscription"
	res, err := svc.gateway.InitiateSTKPush(ctx, np.PhoneNumber, np.Amount, np.Plan, desc)
	if err != nil {
		return Payment{}, errors.Wrap(err, "initiating STK push")
	}

	now := time.Now().UTC()
	p := Payment{
		UserID:            userID,
		CheckoutRequestID: res.CheckoutRequestID,
		MerchantRequestID: res.MerchantRequestID,
		PhoneNumber:       np.PhoneNumber,
		Amount:            np.Amount,
		AccountReference:  np.Plan,
		TransactionDesc:   desc,
		Status:            PaymentSentToPhone,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	return svc.repo.CreatePayment(ctx, p)
}

// HandleCallback settles a payment from the gateway's callback. It is
// idempotent by checkout request id: a payment already settled is a no-op.
func (svc *Service) HandleCallback(ctx context.Context, cb CallbackResult) error {
	p, err := svc.repo.GetPaymentByCheckoutID(ctx, cb.CheckoutRequestID)
	if err != nil {
		return err
	}
	if p.Status == PaymentCompleted || p.Status == PaymentFailed {
		return nil
	}

	p.ResultCode = cb.ResultCode
	p.ResultDesc = cb.ResultDesc
	p.UpdatedAt = time.Now().UTC()
	if cb.Succeeded() {
		p.Status = PaymentCompleted
		p.ReceiptNumber = cb.ReceiptNumber
		p.TransactionDate = cb.TransactionDate
	} else {
		p.Status = PaymentFailed
	}
	if p, err = svc.repo.UpdatePayment(ctx, p); err != nil {
		return err
	}
	if !cb.Succeeded() {
		return nil
	}

	sub, err := svc.upgradeSubscription(ctx, p)
	if err != nil {
		return errors.Wrap(err, "upgrading subscription")
	}

	svc.broadcaster.Publish(SubscriptionsTopic, map[string]interface{}{
		"user_id": p.UserID,
		"plan":    sub.Plan,
		"expires": sub.EndDate,
	})
	return nil
}

func (svc *Service) upgradeSubscription(ctx context.Context, p Payment) (Subscription, error) {
	cycle := CycleMonthly
	duration := 30 * 24 * time.Hour
	if p.AccountReference == PlanPremium && p.Amount >= 10*premiumMonthlyAmount {
		cycle = CycleYearly
		duration = 365 * 24 * time.Hour
	}

	now := time.Now().UTC()
	sub := Subscription{
		UserID:    p.UserID,
		Plan:      PlanPremium,
		Cycle:     cycle,
		StartDate: now,
		EndDate:   now.Add(duration),
		Active:    true,
	}
	return svc.repo.UpsertSubscription(ctx, sub)
}

// premiumMonthlyAmount is the KES price of a month of premium; payments of
// ten months' worth or more buy a year.
const premiumMonthlyAmount = 500

func (svc *Service) GetSubscription(ctx context.Context, userID string) (Subscription, error) {
	sub, err := svc.repo.GetSubscriptionByUserID(ctx, userID)
	if errors.Cause(err) == ErrSubscriptionNotFound {
		return Subscription{UserID: userID, Plan: PlanFree, Active: true}, nil
	}
	return sub, err
}

func (svc *Service) QueryUserPayments(ctx context.Context, userID string) ([]Payment, error) {
	return svc.repo.QueryUserPayments(ctx, userID)
}
