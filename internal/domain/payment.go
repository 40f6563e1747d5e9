package domain

import "time"

// Payment status values. A payment is created pending and settles to
// exactly one of success or failed.
const (
	PaymentPending = "pending"
	PaymentSuccess = "success"
	PaymentFailed  = "failed"
)

// Payment records one checkout attempt against the gateway. TxRef is
// the merchant-generated transaction reference; RefID is the gateway's
// own reference, filled in once the payment settles.
type Payment struct {
	ID        int64
	UserID    int64
	CourseID  int64
	Amount    float64
	TxRef     string
	RefID     string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PaymentEvent is the parsed body of a gateway callback or webhook.
// It must never be trusted before the webhook signature over the raw
// request bytes has been verified.
type PaymentEvent struct {
	TxRef     string `json:"trx_ref"`
	Status    string `json:"status"`
	Reference string `json:"reference"`
}
