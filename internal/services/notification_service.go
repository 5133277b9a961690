package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/grandstay/hotel-booking-backend/internal/models"
	"github.com/grandstay/hotel-booking-backend/internal/workers"
	"github.com/grandstay/hotel-booking-backend/pkg/notify"
)

// NotificationService delivers booking notifications fire-and-forget. Every
// call dispatches onto the side-effect pool and returns immediately; delivery
// failures are logged and recorded, never propagated to the booking workflow.
type NotificationService struct {
	store   NotificationStore
	sender  notify.Sender
	effects *workers.Pool
	timeout time.Duration
	logger  *logrus.Logger
}

// NewNotificationService creates a notification service
func NewNotificationService(store NotificationStore, sender notify.Sender, effects *workers.Pool, logger *logrus.Logger) *NotificationService {
	return &NotificationService{
		store:   store,
		sender:  sender,
		effects: effects,
		timeout: 10 * time.Second,
		logger:  logger,
	}
}

// NotifyConfirmed sends a booking confirmation to the booking's owner
func (s *NotificationService) NotifyConfirmed(booking *models.Booking) {
	s.enqueue(booking.UserID, models.NotificationBookingConfirmation,
		"Booking confirmed",
		fmt.Sprintf("Your booking for room %d from %s to %s is confirmed. Total: %.2f",
			booking.RoomNumber,
			booking.CheckInDate.Format("2006-01-02"),
			booking.CheckOutDate.Format("2006-01-02"),
			booking.TotalPrice))
}

// NotifyCancelled sends a cancellation notice to the booking's owner
func (s *NotificationService) NotifyCancelled(booking *models.Booking) {
	s.enqueue(booking.UserID, models.NotificationBookingCancellation,
		"Booking cancelled",
		fmt.Sprintf("Your booking for room %d has been cancelled.", booking.RoomNumber))
}

// NotifyPaymentFailure tells a user their payment did not go through
func (s *NotificationService) NotifyPaymentFailure(userID, reason string) {
	s.enqueue(userID, models.NotificationPaymentFailure,
		"Payment failed",
		fmt.Sprintf("Your payment could not be processed: %s", reason))
}

func (s *NotificationService) enqueue(userID string, kind models.NotificationType, subject, message string) {
	s.effects.TrySubmit(func() {
		record := &models.Notification{
			ID:        uuid.NewString(),
			UserID:    userID,
			Subject:   subject,
			Message:   message,
			Type:      kind,
			CreatedAt: time.Now(),
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := s.sender.Send(ctx, &notify.Message{UserID: userID, Subject: subject, Body: message}); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"user_id": userID,
				"type":    kind,
			}).Error("Notification delivery failed")
		} else {
			record.Delivered = true
		}

		if err := s.store.Save(record); err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Warn("Failed to record notification")
		}
	})
}
