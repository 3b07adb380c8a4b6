package billing

import (
	"time"

	"github.com/eduhive/backend/core"
)

// Subscription plans
const (
	PlanFree    = "free"
	PlanPremium = "premium"
)

// Billing cycles
const (
	CycleMonthly = "monthly"
	CycleYearly  = "yearly"
)

// Payment statuses
const (
	PaymentPending     = "pending"
	PaymentSentToPhone = "sent_to_phone"
	PaymentCompleted   = "completed"
	PaymentFailed      = "failed"
)

type Subscription struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Plan      string    `json:"plan" db:"plan"`
	Cycle     string    `json:"billing_cycle" db:"billing_cycle"`
	StartDate time.Time `json:"start_date" db:"start_date"`
	EndDate   time.Time `json:"end_date,omitempty" db:"end_date"`
	Active    bool      `json:"active" db:"active"`
}

func (s Subscription) IsExpired() bool {
	return !s.EndDate.IsZero() && time.Now().UTC().After(s.EndDate)
}

type Payment struct {
	ID                string    `json:"id" db:"id"`
	UserID            string    `json:"user_id" db:"user_id"`
	CheckoutRequestID string    `json:"checkout_request_id" db:"checkout_request_id"`
	MerchantRequestID string    `json:"merchant_request_id,omitempty" db:"merchant_request_id"`
	PhoneNumber       string    `json:"phone_number" db:"phone_number"`
	Amount            float64   `json:"amount" db:"amount"`
	AccountReference  string    `json:"account_reference,omitempty" db:"account_reference"`
	TransactionDesc   string    `json:"transaction_desc,omitempty" db:"transaction_desc"`
	ReceiptNumber     string    `json:"mpesa_receipt_number,omitempty" db:"mpesa_receipt_number"`
	TransactionDate   time.Time `json:"transaction_date,omitempty" db:"transaction_date"`
	Status            string    `json:"status" db:"status"`
	ResultCode        int       `json:"result_code,omitempty" db:"result_code"`
	ResultDesc        string    `json:"result_desc,omitempty" db:"result_desc"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// NewPayment contains information needed to initiate an STK push payment.
type NewPayment struct {
	PhoneNumber string  `json:"phone_number" validate:"required"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Plan        string  `json:"plan" validate:"required,oneof=free premium"`
	Cycle       string  `json:"billing_cycle" validate:"omitempty,oneof=monthly yearly"`
}

func (np *NewPayment) Validate() error {
	np.PhoneNumber = core.CleanString(np.PhoneNumber)
	np.Plan = core.CleanString(np.Plan, true /* lower */)
	np.Cycle = core.CleanString(np.Cycle, true /* lower */)
	return core.Validate.Struct(np)
}

// CallbackResult is the gateway callback reduced to what billing needs.
type CallbackResult struct {
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
	Amount            float64
	ReceiptNumber     string
	TransactionDate   time.Time
	PhoneNumber       string
}

func (cb CallbackResult) Succeeded() bool { return cb.ResultCode == 0 }
