package models

import "time"

// Payment is one row in the payment ledger. Every capture and refund attempt
// is recorded, including the ones issued fire-and-forget after a cancellation,
// so their outcome stays observable after the caller has already returned.
type Payment struct {
	ID             string        `json:"id" db:"id"`
	BookingID      string        `json:"booking_id" db:"booking_id"`
	UserID         string        `json:"user_id" db:"user_id"`
	Amount         float64       `json:"amount" db:"amount"`
	Currency       string        `json:"currency" db:"currency"`
	Description    string        `json:"description" db:"description"`
	Gateway        *string       `json:"gateway,omitempty" db:"gateway"`
	Reference      *string       `json:"reference,omitempty" db:"reference"`
	OriginalRef    *string       `json:"original_ref,omitempty" db:"original_ref"`
	Status         PaymentStatus `json:"status" db:"status"`
	FailureReason  *string       `json:"failure_reason,omitempty" db:"failure_reason"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
}
