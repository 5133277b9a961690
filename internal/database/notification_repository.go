package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/grandstay/hotel-booking-backend/internal/models"
)

// NotificationRepository records outbound notifications
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Save inserts a notification record
func (r *NotificationRepository) Save(notification *models.Notification) error {
	query := `
		INSERT INTO notifications (
			id, user_id, subject, message, type, delivered, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(query,
		notification.ID, notification.UserID, notification.Subject,
		notification.Message, notification.Type, notification.Delivered,
		notification.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save notification %s: %w", notification.ID, err)
	}
	return nil
}

// FindByUserID retrieves a user's notifications, newest first
func (r *NotificationRepository) FindByUserID(userID string, limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, user_id, subject, message, type, delivered, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	var notifications []*models.Notification
	if err := r.db.Select(&notifications, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to list notifications for user %s: %w", userID, err)
	}
	return notifications, nil
}
