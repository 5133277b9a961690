package models

import "time"

// NotificationType classifies outbound notifications
type NotificationType string

const (
	NotificationBookingConfirmation NotificationType = "booking_confirmation"
	NotificationBookingCancellation NotificationType = "booking_cancellation"
	NotificationPaymentFailure      NotificationType = "payment_failure"
)

// Notification is a best-effort outbound message. Delivery failures are
// logged, never propagated to the booking caller.
type Notification struct {
	ID        string           `json:"id" db:"id"`
	UserID    string           `json:"user_id" db:"user_id"`
	Subject   string           `json:"subject" db:"subject"`
	Message   string           `json:"message" db:"message"`
	Type      NotificationType `json:"type" db:"type"`
	Delivered bool             `json:"delivered" db:"delivered"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}
