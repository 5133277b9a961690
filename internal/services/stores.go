package services

import (
	"time"

	"github.com/grandstay/hotel-booking-backend/internal/models"
)

// The orchestrator consumes its collaborators through the narrow interfaces
// below. Lookups return (nil, nil) when the record does not exist; an error
// always means the store itself failed.

// RoomStore is the room persistence capability the orchestrator needs
type RoomStore interface {
	FindByRoomNumber(roomNumber int) (*models.Room, error)
	Save(room *models.Room) error
}

// BookingStore is the booking persistence capability the orchestrator needs
type BookingStore interface {
	Save(booking *models.Booking) error
	FindByID(id string) (*models.Booking, error)
	// FindConflicting returns bookings on the room that are still active
	// (pending, confirmed or checked-in) and overlap [checkIn, checkOut)
	FindConflicting(roomNumber int, checkIn, checkOut time.Time) ([]*models.Booking, error)
	// FindOverdueConfirmed returns confirmed bookings whose check-in date
	// passed before the cutoff without a check-in happening
	FindOverdueConfirmed(before time.Time) ([]*models.Booking, error)
}

// PaymentStore records the payment ledger
type PaymentStore interface {
	Save(payment *models.Payment) error
	FindByReference(reference string) (*models.Payment, error)
}

// NotificationStore records outbound notifications
type NotificationStore interface {
	Save(notification *models.Notification) error
}
