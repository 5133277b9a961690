package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/grandstay/hotel-booking-backend/internal/models"
)

// PaymentRepository records the payment ledger
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Save upserts a ledger row
func (r *PaymentRepository) Save(payment *models.Payment) error {
	query := `
		INSERT INTO payments (
			id, booking_id, user_id, amount, currency, description,
			gateway, reference, original_ref, status, failure_reason,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			gateway = EXCLUDED.gateway,
			reference = EXCLUDED.reference,
			status = EXCLUDED.status,
			failure_reason = EXCLUDED.failure_reason,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.Exec(query,
		payment.ID, payment.BookingID, payment.UserID,
		payment.Amount, payment.Currency, payment.Description,
		payment.Gateway, payment.Reference, payment.OriginalRef,
		payment.Status, payment.FailureReason,
		payment.CreatedAt, payment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save payment %s: %w", payment.ID, err)
	}
	return nil
}

// FindByReference retrieves a ledger row by gateway reference. Returns
// (nil, nil) when not found.
func (r *PaymentRepository) FindByReference(reference string) (*models.Payment, error) {
	payment := &models.Payment{}
	query := `
		SELECT id, booking_id, user_id, amount, currency, description,
		       gateway, reference, original_ref, status, failure_reason,
		       created_at, updated_at
		FROM payments WHERE reference = $1`

	err := r.db.Get(payment, query, reference)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment by reference: %w", err)
	}
	return payment, nil
}

// FindByBookingID retrieves all ledger rows for a booking, oldest first
func (r *PaymentRepository) FindByBookingID(bookingID string) ([]*models.Payment, error) {
	query := `
		SELECT id, booking_id, user_id, amount, currency, description,
		       gateway, reference, original_ref, status, failure_reason,
		       created_at, updated_at
		FROM payments
		WHERE booking_id = $1
		ORDER BY created_at`

	var payments []*models.Payment
	if err := r.db.Select(&payments, query, bookingID); err != nil {
		return nil, fmt.Errorf("failed to list payments for booking %s: %w", bookingID, err)
	}
	return payments, nil
}
