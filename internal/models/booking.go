package models

import (
	"time"
)

// BookingStatus represents the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusCheckedIn  BookingStatus = "checked_in"
	BookingStatusCheckedOut BookingStatus = "checked_out"
	BookingStatusCancelled  BookingStatus = "cancelled"
	BookingStatusNoShow     BookingStatus = "no_show"
)

// IsCancellable reports whether a booking in this state may still be cancelled
func (s BookingStatus) IsCancellable() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

// IsActive reports whether the booking still occupies (or will occupy) its room
func (s BookingStatus) IsActive() bool {
	return s != BookingStatusCancelled && s != BookingStatusNoShow && s != BookingStatusCheckedOut
}

// PaymentStatus represents the payment state attached to a booking
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
	PaymentStatusCancelled  PaymentStatus = "cancelled"
)

// IsRefundable reports whether money was actually captured in this state
func (s PaymentStatus) IsRefundable() bool {
	return s == PaymentStatusCompleted
}

// Booking represents a room reservation.
//
// Bookings are created in pending/pending state by the orchestrator and
// advanced only by it: availability-affecting transitions (create, cancel,
// check-out) happen under the room lock, check-in is guarded by a state
// precondition alone.
type Booking struct {
	ID               string        `json:"id" db:"id"`
	UserID           string        `json:"user_id" db:"user_id"`
	RoomNumber       int           `json:"room_number" db:"room_number"`
	CheckInDate      time.Time     `json:"check_in_date" db:"check_in_date"`
	CheckOutDate     time.Time     `json:"check_out_date" db:"check_out_date"`
	TotalPrice       float64       `json:"total_price" db:"total_price"`
	BookingStatus    BookingStatus `json:"booking_status" db:"booking_status"`
	PaymentStatus    PaymentStatus `json:"payment_status" db:"payment_status"`
	PaymentReference *string       `json:"payment_reference,omitempty" db:"payment_reference"`
	SpecialRequests  *string       `json:"special_requests,omitempty" db:"special_requests"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at" db:"updated_at"`
}

// Nights returns the length of the stay in nights
func (b *Booking) Nights() int {
	return int(b.CheckOutDate.Sub(b.CheckInDate).Hours() / 24)
}

// Overlaps reports whether the booking's date range intersects [checkIn, checkOut)
func (b *Booking) Overlaps(checkIn, checkOut time.Time) bool {
	return b.CheckInDate.Before(checkOut) && checkIn.Before(b.CheckOutDate)
}
