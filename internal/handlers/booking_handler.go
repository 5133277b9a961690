package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/grandstay/hotel-booking-backend/internal/models"
	"github.com/grandstay/hotel-booking-backend/internal/payment"
	"github.com/grandstay/hotel-booking-backend/internal/services"
)

const dateLayout = "2006-01-02"

// RoomLister lists rooms for the read endpoints
type RoomLister interface {
	ListAvailable() ([]*models.Room, error)
}

// BookingHistory lists a user's bookings for the read endpoints
type BookingHistory interface {
	FindByUserID(userID string, limit, offset int) ([]*models.Booking, error)
}

// PaymentHistory lists a booking's ledger rows for the read endpoints
type PaymentHistory interface {
	FindByBookingID(bookingID string) ([]*models.Payment, error)
}

// BookingHandler handles booking API operations
type BookingHandler struct {
	orchestrator *services.BookingOrchestratorService
	rooms        RoomLister
	history      BookingHistory
	payments     PaymentHistory
	logger       *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(
	orchestrator *services.BookingOrchestratorService,
	rooms RoomLister,
	history BookingHistory,
	payments PaymentHistory,
	logger *logrus.Logger,
) *BookingHandler {
	return &BookingHandler{
		orchestrator: orchestrator,
		rooms:        rooms,
		history:      history,
		payments:     payments,
		logger:       logger,
	}
}

type createBookingRequest struct {
	RoomNumber      int     `json:"room_number" binding:"required"`
	CheckIn         string  `json:"check_in" binding:"required"`
	CheckOut        string  `json:"check_out" binding:"required"`
	PaymentMethod   string  `json:"payment_method"`
	SpecialRequests *string `json:"special_requests"`
}

// CreateBooking creates a new booking through the full workflow
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	userID := c.GetHeader("X-User-ID")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "X-User-ID header is required"})
		return
	}

	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	checkIn, err := time.Parse(dateLayout, req.CheckIn)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "check_in must be formatted as YYYY-MM-DD"})
		return
	}
	checkOut, err := time.Parse(dateLayout, req.CheckOut)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "check_out must be formatted as YYYY-MM-DD"})
		return
	}

	method := payment.Method(req.PaymentMethod)
	if method == "" {
		method = payment.MethodCreditCard
	}

	result := <-h.orchestrator.CreateBookingAsync(&services.CreateBookingRequest{
		UserID:          userID,
		RoomNumber:      req.RoomNumber,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Method:          method,
		SpecialRequests: req.SpecialRequests,
	})
	h.respond(c, result, http.StatusCreated)
}

// CancelBooking cancels a booking owned by the caller
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	userID := c.GetHeader("X-User-ID")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "X-User-ID header is required"})
		return
	}

	result := <-h.orchestrator.CancelBookingAsync(c.Param("id"), userID)
	h.respond(c, result, http.StatusOK)
}

// CheckIn transitions a confirmed booking to checked in
func (h *BookingHandler) CheckIn(c *gin.Context) {
	result := <-h.orchestrator.CheckInAsync(c.Param("id"))
	h.respond(c, result, http.StatusOK)
}

// CheckOut transitions a checked-in booking to checked out
func (h *BookingHandler) CheckOut(c *gin.Context) {
	result := <-h.orchestrator.CheckOutAsync(c.Param("id"))
	h.respond(c, result, http.StatusOK)
}

// ListAvailableRooms lists rooms currently available for booking
func (h *BookingHandler) ListAvailableRooms(c *gin.Context) {
	rooms, err := h.rooms.ListAvailable()
	if err != nil {
		h.logger.WithError(err).Error("Failed to list available rooms")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list rooms"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms, "count": len(rooms)})
}

// ListBookings lists the caller's bookings
func (h *BookingHandler) ListBookings(c *gin.Context) {
	userID := c.GetHeader("X-User-ID")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "X-User-ID header is required"})
		return
	}

	bookings, err := h.history.FindByUserID(userID, 50, 0)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list bookings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list bookings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "count": len(bookings)})
}

// ListBookingPayments lists the payment ledger rows for a booking
func (h *BookingHandler) ListBookingPayments(c *gin.Context) {
	payments, err := h.payments.FindByBookingID(c.Param("id"))
	if err != nil {
		h.logger.WithError(err).Error("Failed to list booking payments")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list payments"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments, "count": len(payments)})
}

// respond maps an orchestrator result to an HTTP response
func (h *BookingHandler) respond(c *gin.Context, result *services.BookingResult, successStatus int) {
	if result.Success {
		c.JSON(successStatus, result)
		return
	}
	c.JSON(failureStatus(result.Kind), result)
}

func failureStatus(kind services.FailureKind) int {
	switch kind {
	case services.FailureInvalid:
		return http.StatusBadRequest
	case services.FailureNotFound:
		return http.StatusNotFound
	case services.FailureForbidden:
		return http.StatusForbidden
	case services.FailureConflict:
		return http.StatusConflict
	case services.FailureContention:
		return http.StatusConflict
	case services.FailurePayment:
		return http.StatusPaymentRequired
	case services.FailurePaymentTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
