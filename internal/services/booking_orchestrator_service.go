package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/grandstay/hotel-booking-backend/internal/locking"
	"github.com/grandstay/hotel-booking-backend/internal/models"
	"github.com/grandstay/hotel-booking-backend/internal/payment"
	"github.com/grandstay/hotel-booking-backend/internal/workers"
)

// FailureKind classifies a failed orchestrator call so callers can decide
// whether a retry makes sense.
type FailureKind string

const (
	FailureNone           FailureKind = ""
	FailureInvalid        FailureKind = "invalid_request"
	FailureContention     FailureKind = "room_busy"
	FailureNotFound       FailureKind = "not_found"
	FailureForbidden      FailureKind = "forbidden"
	FailureConflict       FailureKind = "conflict"
	FailurePayment        FailureKind = "payment_failed"
	FailurePaymentTimeout FailureKind = "payment_timeout"
	FailureInternal       FailureKind = "internal"
)

// BookingResult is the outcome of one orchestrator call. Business failures
// are values, never errors or panics.
type BookingResult struct {
	Success bool            `json:"success"`
	Booking *models.Booking `json:"booking,omitempty"`
	Kind    FailureKind     `json:"failure_kind,omitempty"`
	Message string          `json:"message"`
}

// Retryable reports whether the caller may reasonably retry the same call
func (r *BookingResult) Retryable() bool {
	return r.Kind == FailureContention || r.Kind == FailurePaymentTimeout
}

func resultSuccess(b *models.Booking, message string) *BookingResult {
	return &BookingResult{Success: true, Booking: b, Message: message}
}

func resultFailure(kind FailureKind, message string) *BookingResult {
	return &BookingResult{Success: false, Kind: kind, Message: message}
}

// Notifier delivers best-effort booking notifications. Implementations must
// never block the calling workflow or propagate delivery errors.
type Notifier interface {
	NotifyConfirmed(booking *models.Booking)
	NotifyCancelled(booking *models.Booking)
	NotifyPaymentFailure(userID, reason string)
}

// paymentError carries the reason a capture step failed through the saga
type paymentError struct {
	timeout bool
	message string
}

func (e *paymentError) Error() string { return e.message }

// OrchestratorConfig holds workflow tuning for the booking orchestrator
type OrchestratorConfig struct {
	LockTimeout    time.Duration // bounded wait for the room lock
	PaymentTimeout time.Duration // deadline for awaiting a payment outcome
	Currency       string
}

// DefaultOrchestratorConfig returns the default workflow configuration
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		LockTimeout:    30 * time.Second,
		PaymentTimeout: 30 * time.Second,
		Currency:       "USD",
	}
}

// CreateBookingRequest is the input for the create-booking workflow
type CreateBookingRequest struct {
	UserID          string         `json:"user_id"`
	RoomNumber      int            `json:"room_number"`
	CheckIn         time.Time      `json:"check_in"`
	CheckOut        time.Time      `json:"check_out"`
	Method          payment.Method `json:"payment_method"`
	SpecialRequests *string        `json:"special_requests,omitempty"`
}

// BookingOrchestratorService drives the reserve → price → pay → commit
// workflow. Availability-affecting transitions run under the room lock; the
// post-lock re-check is the linearization point that prevents double-booking.
// All collaborators are injected; the service holds no global state.
type BookingOrchestratorService struct {
	rooms    RoomStore
	bookings BookingStore
	payments PaymentStore
	router   *payment.Router
	locks    *locking.LockManager
	notifier Notifier
	pricing  Quote
	ops      *workers.Pool // top-level booking operations
	effects  *workers.Pool // payment awaits and fire-and-forget side effects
	cfg      OrchestratorConfig
	logger   *logrus.Logger
}

// NewBookingOrchestratorService creates a booking orchestrator
func NewBookingOrchestratorService(
	rooms RoomStore,
	bookings BookingStore,
	payments PaymentStore,
	router *payment.Router,
	locks *locking.LockManager,
	notifier Notifier,
	pricing Quote,
	ops *workers.Pool,
	effects *workers.Pool,
	cfg OrchestratorConfig,
	logger *logrus.Logger,
) *BookingOrchestratorService {
	if pricing == nil {
		pricing = StandardQuote
	}
	return &BookingOrchestratorService{
		rooms:    rooms,
		bookings: bookings,
		payments: payments,
		router:   router,
		locks:    locks,
		notifier: notifier,
		pricing:  pricing,
		ops:      ops,
		effects:  effects,
		cfg:      cfg,
		logger:   logger,
	}
}

// ============================================================================
// CREATE BOOKING
// ============================================================================

// CreateBooking runs the full create workflow synchronously. Contention,
// conflicts and payment failures come back as typed results; only store
// faults surface as FailureInternal.
func (s *BookingOrchestratorService) CreateBooking(req *CreateBookingRequest) *BookingResult {
	if !req.CheckOut.After(req.CheckIn) {
		return resultFailure(FailureInvalid, "check-out date must be after check-in date")
	}

	if !s.locks.Acquire(req.RoomNumber, "create", s.cfg.LockTimeout) {
		return resultFailure(FailureContention, "room is currently being booked by another request, please try again")
	}
	defer s.locks.Release(req.RoomNumber)

	// Linearization point: availability must be re-queried under the lock,
	// a pre-lock snapshot could already be stale.
	conflicts, err := s.bookings.FindConflicting(req.RoomNumber, req.CheckIn, req.CheckOut)
	if err != nil {
		return resultFailure(FailureInternal, "failed to check availability")
	}
	if len(conflicts) > 0 {
		return resultFailure(FailureConflict, "room is no longer available for the selected dates")
	}

	room, err := s.rooms.FindByRoomNumber(req.RoomNumber)
	if err != nil {
		return resultFailure(FailureInternal, "failed to load room")
	}
	if room == nil {
		return resultFailure(FailureNotFound, "room not found")
	}

	now := time.Now()
	booking := &models.Booking{
		ID:              uuid.NewString(),
		UserID:          req.UserID,
		RoomNumber:      req.RoomNumber,
		CheckInDate:     req.CheckIn,
		CheckOutDate:    req.CheckOut,
		TotalPrice:      s.pricing(room, req.CheckIn, req.CheckOut),
		BookingStatus:   models.BookingStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
		SpecialRequests: req.SpecialRequests,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var outcome *payment.Outcome
	sg := newSaga(s.logger)

	if err := sg.run(sagaStep{
		name:   "persist_pending_booking",
		action: func() error { return s.bookings.Save(booking) },
		compensate: func() error {
			booking.BookingStatus = models.BookingStatusCancelled
			booking.PaymentStatus = models.PaymentStatusFailed
			booking.UpdatedAt = time.Now()
			return s.bookings.Save(booking)
		},
	}); err != nil {
		return resultFailure(FailureInternal, "failed to persist booking")
	}

	err = sg.run(sagaStep{
		name: "capture_payment",
		action: func() error {
			var payErr *paymentError
			outcome, payErr = s.capturePayment(booking, room, req.Method)
			if payErr != nil {
				return payErr
			}
			return nil
		},
		compensate: func() error {
			// Only reached when a later step fails after money moved
			if outcome != nil && outcome.Success {
				s.dispatchRefund(booking, outcome.ReferenceID, "booking commit failed")
			}
			return nil
		},
	})
	if err != nil {
		s.notifier.NotifyPaymentFailure(req.UserID, err.Error())
		var payErr *paymentError
		if errors.As(err, &payErr) && payErr.timeout {
			return resultFailure(FailurePaymentTimeout, "payment processing failed, retry")
		}
		return resultFailure(FailurePayment, fmt.Sprintf("payment failed: %s", err.Error()))
	}

	if err := sg.run(sagaStep{
		name: "confirm_booking",
		action: func() error {
			booking.PaymentStatus = models.PaymentStatusCompleted
			booking.PaymentReference = &outcome.ReferenceID
			booking.BookingStatus = models.BookingStatusConfirmed
			booking.UpdatedAt = time.Now()
			return s.bookings.Save(booking)
		},
	}); err != nil {
		return resultFailure(FailureInternal, "failed to confirm booking")
	}

	if err := sg.run(sagaStep{
		name: "mark_room_unavailable",
		action: func() error {
			room.IsAvailable = false
			room.UpdatedAt = time.Now()
			return s.rooms.Save(room)
		},
	}); err != nil {
		return resultFailure(FailureInternal, "failed to update room availability")
	}

	s.notifier.NotifyConfirmed(booking)

	s.logger.WithFields(logrus.Fields{
		"booking_id":  booking.ID,
		"room_number": booking.RoomNumber,
		"user_id":     booking.UserID,
		"total_price": booking.TotalPrice,
	}).Info("Booking confirmed")

	return resultSuccess(booking, "booking confirmed successfully")
}

// capturePayment records a ledger row, submits the capture to the side-effect
// pool and awaits the outcome up to the payment deadline. The in-flight call
// is not assumed cancellable at the backend: on timeout the worker finishes
// against the expired context and its late outcome still lands on the ledger
// row, but the booking is already treated as failed.
func (s *BookingOrchestratorService) capturePayment(booking *models.Booking, room *models.Room, method payment.Method) (*payment.Outcome, *paymentError) {
	ledger := &models.Payment{
		ID:          uuid.NewString(),
		BookingID:   booking.ID,
		UserID:      booking.UserID,
		Amount:      booking.TotalPrice,
		Currency:    s.cfg.Currency,
		Description: fmt.Sprintf("Booking for room %d", room.RoomNumber),
		Status:      models.PaymentStatusProcessing,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := s.payments.Save(ledger); err != nil {
		s.logger.WithError(err).Warn("Failed to record payment ledger row")
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PaymentTimeout)
	defer cancel()

	req := &payment.Request{
		BookingID:   booking.ID,
		UserID:      booking.UserID,
		Amount:      booking.TotalPrice,
		Currency:    s.cfg.Currency,
		Description: ledger.Description,
		Method:      method,
	}

	outcomeCh := make(chan *payment.Outcome, 1)
	submitted := s.effects.Submit(func() {
		out := s.router.ProcessPayment(ctx, req)
		s.recordCaptureOutcome(ledger, out)
		outcomeCh <- out
	})
	if !submitted {
		return nil, &paymentError{message: "payment workers unavailable"}
	}

	select {
	case out := <-outcomeCh:
		if !out.Success {
			return out, &paymentError{message: out.Message}
		}
		return out, nil
	case <-ctx.Done():
		return nil, &paymentError{timeout: true, message: "payment processing timed out"}
	}
}

func (s *BookingOrchestratorService) recordCaptureOutcome(ledger *models.Payment, out *payment.Outcome) {
	if out.Success {
		ledger.Status = models.PaymentStatusCompleted
		ledger.Reference = &out.ReferenceID
		if gateway := payment.DefaultRefInference(out.ReferenceID); gateway != "" {
			ledger.Gateway = &gateway
		}
	} else {
		ledger.Status = models.PaymentStatusFailed
		reason := out.Message
		ledger.FailureReason = &reason
	}
	ledger.UpdatedAt = time.Now()
	if err := s.payments.Save(ledger); err != nil {
		s.logger.WithError(err).WithField("payment_id", ledger.ID).Warn("Failed to update payment ledger row")
	}
}

// ============================================================================
// CANCEL BOOKING
// ============================================================================

// CancelBooking cancels a booking owned by userID, frees the room and, when
// money was captured, dispatches a best-effort refund whose outcome is
// observable on the payment ledger.
func (s *BookingOrchestratorService) CancelBooking(bookingID, userID string) *BookingResult {
	booking, err := s.bookings.FindByID(bookingID)
	if err != nil {
		return resultFailure(FailureInternal, "failed to load booking")
	}
	if booking == nil {
		return resultFailure(FailureNotFound, "booking not found")
	}
	if booking.UserID != userID {
		return resultFailure(FailureForbidden, "booking belongs to another user")
	}
	if !booking.BookingStatus.IsCancellable() {
		return resultFailure(FailureConflict, fmt.Sprintf("booking cannot be cancelled in state %s", booking.BookingStatus))
	}

	if !s.locks.Acquire(booking.RoomNumber, "cancel", s.cfg.LockTimeout) {
		return resultFailure(FailureContention, "room is busy, please try again")
	}
	defer s.locks.Release(booking.RoomNumber)

	wasPaid := booking.PaymentStatus.IsRefundable()
	paymentRef := booking.PaymentReference

	booking.BookingStatus = models.BookingStatusCancelled
	booking.UpdatedAt = time.Now()
	if err := s.bookings.Save(booking); err != nil {
		return resultFailure(FailureInternal, "failed to cancel booking")
	}

	if err := s.freeRoom(booking.RoomNumber); err != nil {
		return resultFailure(FailureInternal, "failed to update room availability")
	}

	if wasPaid && paymentRef != nil {
		s.dispatchRefund(booking, *paymentRef, "booking cancelled")
	}
	s.notifier.NotifyCancelled(booking)

	s.logger.WithFields(logrus.Fields{
		"booking_id":  booking.ID,
		"room_number": booking.RoomNumber,
		"refunding":   wasPaid,
	}).Info("Booking cancelled")

	return resultSuccess(booking, "booking cancelled successfully")
}

// dispatchRefund issues a refund fire-and-forget. The caller's workflow does
// not depend on the result; success flips the booking's payment state to
// refunded and every attempt is recorded on the ledger.
func (s *BookingOrchestratorService) dispatchRefund(booking *models.Booking, originalRef, reason string) {
	bookingID := booking.ID
	userID := booking.UserID
	amount := booking.TotalPrice

	s.effects.TrySubmit(func() {
		ledger := &models.Payment{
			ID:          uuid.NewString(),
			BookingID:   bookingID,
			UserID:      userID,
			Amount:      -amount,
			Currency:    s.cfg.Currency,
			Description: fmt.Sprintf("Refund: %s", reason),
			OriginalRef: &originalRef,
			Status:      models.PaymentStatusProcessing,
			CreatedAt:   time.Now(),
			UpdatedAt:   time.Now(),
		}
		if err := s.payments.Save(ledger); err != nil {
			s.logger.WithError(err).Warn("Failed to record refund ledger row")
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PaymentTimeout)
		defer cancel()

		out := s.router.ProcessRefund(ctx, &payment.RefundRequest{
			OriginalReference: originalRef,
			Amount:            amount,
			Reason:            reason,
		})

		if out.Success {
			ledger.Status = models.PaymentStatusRefunded
			ledger.Reference = &out.ReferenceID
		} else {
			ledger.Status = models.PaymentStatusFailed
			msg := out.Message
			ledger.FailureReason = &msg
			s.logger.WithFields(logrus.Fields{
				"booking_id":   bookingID,
				"original_ref": originalRef,
				"message":      out.Message,
			}).Error("Refund failed")
		}
		ledger.UpdatedAt = time.Now()
		if err := s.payments.Save(ledger); err != nil {
			s.logger.WithError(err).WithField("payment_id", ledger.ID).Warn("Failed to update refund ledger row")
		}

		if out.Success {
			if current, err := s.bookings.FindByID(bookingID); err == nil && current != nil {
				current.PaymentStatus = models.PaymentStatusRefunded
				current.UpdatedAt = time.Now()
				if err := s.bookings.Save(current); err != nil {
					s.logger.WithError(err).WithField("booking_id", bookingID).Warn("Failed to mark booking refunded")
				}
			}
		}
	})
}

// ============================================================================
// CHECK-IN / CHECK-OUT
// ============================================================================

// CheckIn transitions a confirmed booking to checked-in. No room lock is
// needed: the transition does not touch availability, only the state
// precondition guards it.
func (s *BookingOrchestratorService) CheckIn(bookingID string) *BookingResult {
	booking, err := s.bookings.FindByID(bookingID)
	if err != nil {
		return resultFailure(FailureInternal, "failed to load booking")
	}
	if booking == nil {
		return resultFailure(FailureNotFound, "booking not found")
	}
	if booking.BookingStatus != models.BookingStatusConfirmed {
		return resultFailure(FailureConflict, fmt.Sprintf("cannot check in from state %s", booking.BookingStatus))
	}

	booking.BookingStatus = models.BookingStatusCheckedIn
	booking.UpdatedAt = time.Now()
	if err := s.bookings.Save(booking); err != nil {
		return resultFailure(FailureInternal, "failed to update booking")
	}
	return resultSuccess(booking, "checked in")
}

// CheckOut transitions a checked-in booking to checked-out and frees the
// room. Flipping availability requires the room lock.
func (s *BookingOrchestratorService) CheckOut(bookingID string) *BookingResult {
	booking, err := s.bookings.FindByID(bookingID)
	if err != nil {
		return resultFailure(FailureInternal, "failed to load booking")
	}
	if booking == nil {
		return resultFailure(FailureNotFound, "booking not found")
	}
	if booking.BookingStatus != models.BookingStatusCheckedIn {
		return resultFailure(FailureConflict, fmt.Sprintf("cannot check out from state %s", booking.BookingStatus))
	}

	if !s.locks.Acquire(booking.RoomNumber, "check_out", s.cfg.LockTimeout) {
		return resultFailure(FailureContention, "room is busy, please try again")
	}
	defer s.locks.Release(booking.RoomNumber)

	booking.BookingStatus = models.BookingStatusCheckedOut
	booking.UpdatedAt = time.Now()
	if err := s.bookings.Save(booking); err != nil {
		return resultFailure(FailureInternal, "failed to update booking")
	}
	if err := s.freeRoom(booking.RoomNumber); err != nil {
		return resultFailure(FailureInternal, "failed to update room availability")
	}
	return resultSuccess(booking, "checked out")
}

// ============================================================================
// ASYNC VARIANTS
// ============================================================================

// CreateBookingAsync dispatches the create workflow onto the booking pool
// and returns a channel that receives the single result.
func (s *BookingOrchestratorService) CreateBookingAsync(req *CreateBookingRequest) <-chan *BookingResult {
	return s.dispatch(func() *BookingResult { return s.CreateBooking(req) })
}

// CancelBookingAsync dispatches the cancel workflow onto the booking pool
func (s *BookingOrchestratorService) CancelBookingAsync(bookingID, userID string) <-chan *BookingResult {
	return s.dispatch(func() *BookingResult { return s.CancelBooking(bookingID, userID) })
}

// CheckInAsync dispatches a check-in onto the booking pool
func (s *BookingOrchestratorService) CheckInAsync(bookingID string) <-chan *BookingResult {
	return s.dispatch(func() *BookingResult { return s.CheckIn(bookingID) })
}

// CheckOutAsync dispatches a check-out onto the booking pool
func (s *BookingOrchestratorService) CheckOutAsync(bookingID string) <-chan *BookingResult {
	return s.dispatch(func() *BookingResult { return s.CheckOut(bookingID) })
}

func (s *BookingOrchestratorService) dispatch(op func() *BookingResult) <-chan *BookingResult {
	ch := make(chan *BookingResult, 1)
	if !s.ops.Submit(func() { ch <- op() }) {
		ch <- resultFailure(FailureInternal, "booking workers are shut down")
	}
	return ch
}

// ============================================================================
// MAINTENANCE
// ============================================================================

// MarkNoShows flags confirmed bookings whose check-in date passed before the
// cutoff and frees their rooms. Called from the maintenance scheduler.
func (s *BookingOrchestratorService) MarkNoShows(before time.Time) int {
	overdue, err := s.bookings.FindOverdueConfirmed(before)
	if err != nil {
		s.logger.WithError(err).Error("Failed to query overdue bookings")
		return 0
	}

	marked := 0
	for _, booking := range overdue {
		if !s.locks.Acquire(booking.RoomNumber, "no_show", s.cfg.LockTimeout) {
			continue
		}
		booking.BookingStatus = models.BookingStatusNoShow
		booking.UpdatedAt = time.Now()
		if err := s.bookings.Save(booking); err != nil {
			s.logger.WithError(err).WithField("booking_id", booking.ID).Error("Failed to mark no-show")
			s.locks.Release(booking.RoomNumber)
			continue
		}
		if err := s.freeRoom(booking.RoomNumber); err != nil {
			s.logger.WithError(err).WithField("room_number", booking.RoomNumber).Error("Failed to free no-show room")
		}
		s.locks.Release(booking.RoomNumber)
		marked++
	}

	if marked > 0 {
		s.logger.WithField("marked", marked).Info("Marked overdue bookings as no-show")
	}
	return marked
}

// freeRoom marks a room available again. Callers hold the room lock.
func (s *BookingOrchestratorService) freeRoom(roomNumber int) error {
	room, err := s.rooms.FindByRoomNumber(roomNumber)
	if err != nil || room == nil {
		return err
	}
	room.IsAvailable = true
	room.UpdatedAt = time.Now()
	return s.rooms.Save(room)
}
