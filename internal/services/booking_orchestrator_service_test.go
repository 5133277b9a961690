package services

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grandstay/hotel-booking-backend/internal/database/memory"
	"github.com/grandstay/hotel-booking-backend/internal/locking"
	"github.com/grandstay/hotel-booking-backend/internal/models"
	"github.com/grandstay/hotel-booking-backend/internal/payment"
	"github.com/grandstay/hotel-booking-backend/internal/workers"
	"github.com/grandstay/hotel-booking-backend/pkg/notify"
)

// stubBackend is a scriptable payment backend for workflow tests
type stubBackend struct {
	name    string
	capture func(req *payment.Request) (*payment.Outcome, error)
	refund  func(req *payment.RefundRequest) (*payment.Outcome, error)
}

func (b *stubBackend) Name() string { return b.name }

func (b *stubBackend) Capture(ctx context.Context, req *payment.Request) (*payment.Outcome, error) {
	if b.capture != nil {
		return b.capture(req)
	}
	return payment.Succeeded("pi_test_capture", "captured"), nil
}

func (b *stubBackend) Refund(ctx context.Context, req *payment.RefundRequest) (*payment.Outcome, error) {
	if b.refund != nil {
		return b.refund(req)
	}
	return payment.Succeeded("re_test_refund", "refunded"), nil
}

func (b *stubBackend) ProbeHealth(ctx context.Context) bool { return true }

type fixture struct {
	orchestrator  *BookingOrchestratorService
	rooms         *memory.RoomStore
	bookings      *memory.BookingStore
	payments      *memory.PaymentStore
	notifications *memory.NotificationStore
	locks         *locking.LockManager
	ops           *workers.Pool
	effects       *workers.Pool
}

func newFixture(t *testing.T, backend payment.Backend) *fixture {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	rooms := memory.NewRoomStore()
	bookings := memory.NewBookingStore()
	payments := memory.NewPaymentStore()
	notifications := memory.NewNotificationStore()

	router := payment.NewRouter(payment.RouterConfig{MaxFailures: 3, ProbeInterval: time.Minute}, payment.DefaultRefInference, logger)
	router.Register(backend, payment.Capabilities{
		Methods:   []payment.Method{payment.MethodCreditCard, payment.MethodPayPal},
		HighValue: true,
	})

	locks := locking.NewLockManager(5*time.Second, logger)
	ops := workers.NewPool("booking", 10, 100, logger)
	effects := workers.NewPool("effects", 10, 100, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		ops.Shutdown(ctx)
		effects.Shutdown(ctx)
	})

	sender := notify.NewWebhookSender(notify.DefaultWebhookConfig(), logger)
	notifier := NewNotificationService(notifications, sender, effects, logger)

	orchestrator := NewBookingOrchestratorService(
		rooms, bookings, payments, router, locks, notifier, StandardQuote,
		ops, effects,
		OrchestratorConfig{
			LockTimeout:    5 * time.Second,
			PaymentTimeout: 2 * time.Second,
			Currency:       "USD",
		},
		logger,
	)

	return &fixture{
		orchestrator:  orchestrator,
		rooms:         rooms,
		bookings:      bookings,
		payments:      payments,
		notifications: notifications,
		locks:         locks,
		ops:           ops,
		effects:       effects,
	}
}

func (f *fixture) addRoom(t *testing.T, roomNumber int, rate float64) {
	t.Helper()
	require.NoError(t, f.rooms.Save(&models.Room{
		RoomNumber:   roomNumber,
		RoomType:     "standard",
		NightlyRate:  rate,
		IsAvailable:  true,
		MaxOccupancy: 2,
	}))
}

func stayDates(nights int) (time.Time, time.Time) {
	checkIn := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	return checkIn, checkIn.AddDate(0, 0, nights)
}

func createRequest(roomNumber, nights int) *CreateBookingRequest {
	checkIn, checkOut := stayDates(nights)
	return &CreateBookingRequest{
		UserID:     "user-1",
		RoomNumber: roomNumber,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Method:     payment.MethodCreditCard,
	}
}

func TestCreateBookingConfirmsAndPrices(t *testing.T) {
	f := newFixture(t, &stubBackend{name: "stripe"})
	f.addRoom(t, 101, 100)
	f.addRoom(t, 102, 100)

	t.Run("two nights at full rate", func(t *testing.T) {
		result := f.orchestrator.CreateBooking(createRequest(101, 2))
		require.True(t, result.Success, result.Message)
		assert.Equal(t, 200.0, result.Booking.TotalPrice)
		assert.Equal(t, models.BookingStatusConfirmed, result.Booking.BookingStatus)
		assert.Equal(t, models.PaymentStatusCompleted, result.Booking.PaymentStatus)
		require.NotNil(t, result.Booking.PaymentReference)
		assert.Equal(t, "pi_test_capture", *result.Booking.PaymentReference)
	})

	t.Run("seven nights with extended stay discount", func(t *testing.T) {
		result := f.orchestrator.CreateBooking(createRequest(102, 7))
		require.True(t, result.Success, result.Message)
		assert.Equal(t, 630.0, result.Booking.TotalPrice)
	})

	t.Run("room is unavailable after confirmation", func(t *testing.T) {
		room, err := f.rooms.FindByRoomNumber(101)
		require.NoError(t, err)
		require.NotNil(t, room)
		assert.False(t, room.IsAvailable)
	})

	t.Run("lock is released", func(t *testing.T) {
		assert.False(t, f.locks.IsLocked(101))
		assert.False(t, f.locks.IsLocked(102))
	})
}

func TestCreateBookingRejectsInvalidDates(t *testing.T) {
	f := newFixture(t, &stubBackend{name: "stripe"})
	f.addRoom(t, 101, 100)

	checkIn, _ := stayDates(2)
	result := f.orchestrator.CreateBooking(&CreateBookingRequest{
		UserID:     "user-1",
		RoomNumber: 101,
		CheckIn:    checkIn,
		CheckOut:   checkIn,
		Method:     payment.MethodCreditCard,
	})
	assert.False(t, result.Success)
	assert.Equal(t, FailureInvalid, result.Kind)
}

func TestCreateBookingUnknownRoom(t *testing.T) {
	f := newFixture(t, &stubBackend{name: "stripe"})

	result := f.orchestrator.CreateBooking(createRequest(999, 2))
	assert.False(t, result.Success)
	assert.Equal(t, FailureNotFound, result.Kind)
	assert.False(t, f.locks.IsLocked(999))
}

func TestConcurrentCreatesConfirmExactlyOne(t *testing.T) {
	f := newFixture(t, &stubBackend{name: "stripe"})
	f.addRoom(t, 101, 100)

	const attempts = 20
	results := make([]*BookingResult, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := createRequest(101, 2)
			req.UserID = fmt.Sprintf("user-%d", i)
			results[i] = f.orchestrator.CreateBooking(req)
		}(i)
	}
	wg.Wait()

	confirmed := 0
	for _, result := range results {
		if result.Success {
			confirmed++
		} else {
			assert.Equal(t, FailureConflict, result.Kind, result.Message)
		}
	}
	assert.Equal(t, 1, confirmed, "exactly one concurrent create must win")
	assert.False(t, f.locks.IsLocked(101))
}

func TestPaymentFailureRollsBackBooking(t *testing.T) {
	declining := &stubBackend{name: "stripe", capture: func(req *payment.Request) (*payment.Outcome, error) {
		return payment.Declined("card declined"), nil
	}}
	f := newFixture(t, declining)
	f.addRoom(t, 101, 100)

	result := f.orchestrator.CreateBooking(createRequest(101, 2))
	require.False(t, result.Success)
	assert.Equal(t, FailurePayment, result.Kind)
	assert.Contains(t, result.Message, "card declined")

	// The pending booking was rolled back to cancelled/failed
	checkIn, checkOut := stayDates(2)
	conflicts, err := f.bookings.FindConflicting(101, checkIn, checkOut)
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	// Room stays bookable and the lock is free
	room, err := f.rooms.FindByRoomNumber(101)
	require.NoError(t, err)
	assert.True(t, room.IsAvailable)
	assert.False(t, f.locks.IsLocked(101))

	// A later attempt with a working card succeeds
	declining.capture = nil
	retry := f.orchestrator.CreateBooking(createRequest(101, 2))
	require.True(t, retry.Success, retry.Message)
}

func TestPaymentTimeoutCancelsBooking(t *testing.T) {
	slow := &stubBackend{name: "stripe", capture: func(req *payment.Request) (*payment.Outcome, error) {
		time.Sleep(500 * time.Millisecond)
		return payment.Succeeded("pi_too_late", "captured"), nil
	}}
	f := newFixture(t, slow)
	f.orchestrator.cfg.PaymentTimeout = 50 * time.Millisecond
	f.addRoom(t, 101, 100)

	result := f.orchestrator.CreateBooking(createRequest(101, 2))
	require.False(t, result.Success)
	assert.Equal(t, FailurePaymentTimeout, result.Kind)
	assert.True(t, result.Retryable())

	checkIn, checkOut := stayDates(2)
	conflicts, err := f.bookings.FindConflicting(101, checkIn, checkOut)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
	assert.False(t, f.locks.IsLocked(101))
}

func TestCancelBookingFreesRoomAndRefunds(t *testing.T) {
	f := newFixture(t, &stubBackend{name: "stripe"})
	f.addRoom(t, 101, 100)

	created := f.orchestrator.CreateBooking(createRequest(101, 2))
	require.True(t, created.Success)

	result := f.orchestrator.CancelBooking(created.Booking.ID, "user-1")
	require.True(t, result.Success, result.Message)
	assert.Equal(t, models.BookingStatusCancelled, result.Booking.BookingStatus)

	room, err := f.rooms.FindByRoomNumber(101)
	require.NoError(t, err)
	assert.True(t, room.IsAvailable)
	assert.False(t, f.locks.IsLocked(101))

	// The refund is asynchronous but lands on the ledger and the booking
	assert.Eventually(t, func() bool {
		booking, err := f.bookings.FindByID(created.Booking.ID)
		if err != nil || booking == nil {
			return false
		}
		return booking.PaymentStatus == models.PaymentStatusRefunded
	}, 2*time.Second, 10*time.Millisecond, "refund never recorded")
}

func TestCancelThenRecreateSameDates(t *testing.T) {
	f := newFixture(t, &stubBackend{name: "stripe"})
	f.addRoom(t, 101, 100)

	first := f.orchestrator.CreateBooking(createRequest(101, 2))
	require.True(t, first.Success)

	cancelled := f.orchestrator.CancelBooking(first.Booking.ID, "user-1")
	require.True(t, cancelled.Success)

	second := f.orchestrator.CreateBooking(createRequest(101, 2))
	require.True(t, second.Success, second.Message)
	assert.NotEqual(t, first.Booking.ID, second.Booking.ID)
}

func TestCancelBookingValidation(t *testing.T) {
	f := newFixture(t, &stubBackend{name: "stripe"})
	f.addRoom(t, 101, 100)

	created := f.orchestrator.CreateBooking(createRequest(101, 2))
	require.True(t, created.Success)

	t.Run("unknown booking", func(t *testing.T) {
		result := f.orchestrator.CancelBooking("missing", "user-1")
		assert.Equal(t, FailureNotFound, result.Kind)
	})

	t.Run("wrong owner", func(t *testing.T) {
		result := f.orchestrator.CancelBooking(created.Booking.ID, "someone-else")
		assert.Equal(t, FailureForbidden, result.Kind)
	})

	t.Run("not cancellable after check-in", func(t *testing.T) {
		require.True(t, f.orchestrator.CheckIn(created.Booking.ID).Success)
		result := f.orchestrator.CancelBooking(created.Booking.ID, "user-1")
		assert.Equal(t, FailureConflict, result.Kind)
	})
}

func TestCheckInCheckOutLifecycle(t *testing.T) {
	f := newFixture(t, &stubBackend{name: "stripe"})
	f.addRoom(t, 101, 100)

	created := f.orchestrator.CreateBooking(createRequest(101, 2))
	require.True(t, created.Success)

	// Check-out requires a checked-in booking
	assert.Equal(t, FailureConflict, f.orchestrator.CheckOut(created.Booking.ID).Kind)

	checkedIn := f.orchestrator.CheckIn(created.Booking.ID)
	require.True(t, checkedIn.Success)
	assert.Equal(t, models.BookingStatusCheckedIn, checkedIn.Booking.BookingStatus)

	// Double check-in is rejected
	assert.Equal(t, FailureConflict, f.orchestrator.CheckIn(created.Booking.ID).Kind)

	checkedOut := f.orchestrator.CheckOut(created.Booking.ID)
	require.True(t, checkedOut.Success)
	assert.Equal(t, models.BookingStatusCheckedOut, checkedOut.Booking.BookingStatus)

	room, err := f.rooms.FindByRoomNumber(101)
	require.NoError(t, err)
	assert.True(t, room.IsAvailable)
	assert.False(t, f.locks.IsLocked(101))
}

func TestAsyncVariantsDeliverResults(t *testing.T) {
	f := newFixture(t, &stubBackend{name: "stripe"})
	f.addRoom(t, 101, 100)

	select {
	case result := <-f.orchestrator.CreateBookingAsync(createRequest(101, 2)):
		require.True(t, result.Success, result.Message)
	case <-time.After(5 * time.Second):
		t.Fatal("async create never delivered a result")
	}
}

func TestMarkNoShowsFreesRooms(t *testing.T) {
	f := newFixture(t, &stubBackend{name: "stripe"})
	f.addRoom(t, 101, 100)

	created := f.orchestrator.CreateBooking(createRequest(101, 2))
	require.True(t, created.Success)

	// Before the check-in date nothing is overdue
	assert.Equal(t, 0, f.orchestrator.MarkNoShows(created.Booking.CheckInDate.Add(-time.Hour)))

	marked := f.orchestrator.MarkNoShows(created.Booking.CheckInDate.Add(24 * time.Hour))
	assert.Equal(t, 1, marked)

	booking, err := f.bookings.FindByID(created.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusNoShow, booking.BookingStatus)

	room, err := f.rooms.FindByRoomNumber(101)
	require.NoError(t, err)
	assert.True(t, room.IsAvailable)
	assert.False(t, f.locks.IsLocked(101))
}

func TestNotificationsAreRecorded(t *testing.T) {
	f := newFixture(t, &stubBackend{name: "stripe"})
	f.addRoom(t, 101, 100)

	created := f.orchestrator.CreateBooking(createRequest(101, 2))
	require.True(t, created.Success)

	assert.Eventually(t, func() bool {
		records, err := f.notifications.FindByUserID("user-1", 10)
		return err == nil && len(records) > 0 && records[0].Type == models.NotificationBookingConfirmation
	}, 2*time.Second, 10*time.Millisecond, "confirmation notification never recorded")
}

func TestStandardQuote(t *testing.T) {
	room := &models.Room{NightlyRate: 100}

	checkIn, checkOut := stayDates(2)
	assert.Equal(t, 200.0, StandardQuote(room, checkIn, checkOut))

	checkIn, checkOut = stayDates(5)
	assert.Equal(t, 500.0, StandardQuote(room, checkIn, checkOut))

	checkIn, checkOut = stayDates(6)
	assert.InDelta(t, 540.0, StandardQuote(room, checkIn, checkOut), 1e-9)

	checkIn, checkOut = stayDates(7)
	assert.InDelta(t, 630.0, StandardQuote(room, checkIn, checkOut), 1e-9)
}
