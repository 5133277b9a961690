package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/grandstay/hotel-booking-backend/internal/models"
)

// BookingRepository handles booking database operations
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `
	id, user_id, room_number, check_in_date, check_out_date,
	total_price, booking_status, payment_status, payment_reference,
	special_requests, created_at, updated_at`

// Save upserts a booking
func (r *BookingRepository) Save(booking *models.Booking) error {
	query := `
		INSERT INTO bookings (
			id, user_id, room_number, check_in_date, check_out_date,
			total_price, booking_status, payment_status, payment_reference,
			special_requests, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			booking_status = EXCLUDED.booking_status,
			payment_status = EXCLUDED.payment_status,
			payment_reference = EXCLUDED.payment_reference,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.Exec(query,
		booking.ID, booking.UserID, booking.RoomNumber,
		booking.CheckInDate, booking.CheckOutDate,
		booking.TotalPrice, booking.BookingStatus, booking.PaymentStatus,
		booking.PaymentReference, booking.SpecialRequests,
		booking.CreatedAt, booking.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save booking %s: %w", booking.ID, err)
	}
	return nil
}

// FindByID retrieves a booking by ID. Returns (nil, nil) when not found.
func (r *BookingRepository) FindByID(id string) (*models.Booking, error) {
	booking := &models.Booking{}
	query := `SELECT` + bookingColumns + ` FROM bookings WHERE id = $1`

	err := r.db.Get(booking, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking %s: %w", id, err)
	}
	return booking, nil
}

// FindConflicting returns active bookings on the room overlapping the stay.
// Active means pending, confirmed or checked in; cancelled, no-show and
// checked-out bookings never block new reservations.
func (r *BookingRepository) FindConflicting(roomNumber int, checkIn, checkOut time.Time) ([]*models.Booking, error) {
	query := `SELECT` + bookingColumns + `
		FROM bookings
		WHERE room_number = $1
		  AND booking_status IN ('pending', 'confirmed', 'checked_in')
		  AND check_in_date < $3
		  AND check_out_date > $2
		ORDER BY created_at`

	var bookings []*models.Booking
	if err := r.db.Select(&bookings, query, roomNumber, checkIn, checkOut); err != nil {
		return nil, fmt.Errorf("failed to find conflicting bookings for room %d: %w", roomNumber, err)
	}
	return bookings, nil
}

// FindOverdueConfirmed returns confirmed bookings whose check-in date passed
// before the cutoff
func (r *BookingRepository) FindOverdueConfirmed(before time.Time) ([]*models.Booking, error) {
	query := `SELECT` + bookingColumns + `
		FROM bookings
		WHERE booking_status = 'confirmed'
		  AND check_in_date < $1
		ORDER BY check_in_date`

	var bookings []*models.Booking
	if err := r.db.Select(&bookings, query, before); err != nil {
		return nil, fmt.Errorf("failed to find overdue bookings: %w", err)
	}
	return bookings, nil
}

// FindByUserID retrieves a user's bookings, newest first
func (r *BookingRepository) FindByUserID(userID string, limit, offset int) ([]*models.Booking, error) {
	query := `SELECT` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	var bookings []*models.Booking
	if err := r.db.Select(&bookings, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list bookings for user %s: %w", userID, err)
	}
	return bookings, nil
}
