// Package memory provides in-process store implementations used for local
// development, demos and concurrency tests. Stores copy records on the way
// in and out so callers can never share mutable state through the store.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/grandstay/hotel-booking-backend/internal/models"
)

// RoomStore is an in-memory room store
type RoomStore struct {
	mu    sync.RWMutex
	rooms map[int]models.Room
}

// NewRoomStore creates an empty in-memory room store
func NewRoomStore() *RoomStore {
	return &RoomStore{rooms: make(map[int]models.Room)}
}

// FindByRoomNumber returns a copy of the room, or (nil, nil) when absent
func (s *RoomStore) FindByRoomNumber(roomNumber int) (*models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[roomNumber]
	if !ok {
		return nil, nil
	}
	return &room, nil
}

// Save stores a copy of the room keyed by room number
func (s *RoomStore) Save(room *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rooms[room.RoomNumber] = *room
	return nil
}

// ListAvailable returns rooms currently marked available, ordered by number
func (s *RoomStore) ListAvailable() ([]*models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Room
	for _, room := range s.rooms {
		if room.IsAvailable {
			r := room
			out = append(out, &r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomNumber < out[j].RoomNumber })
	return out, nil
}

// BookingStore is an in-memory booking store
type BookingStore struct {
	mu       sync.RWMutex
	bookings map[string]models.Booking
}

// NewBookingStore creates an empty in-memory booking store
func NewBookingStore() *BookingStore {
	return &BookingStore{bookings: make(map[string]models.Booking)}
}

// Save stores a copy of the booking keyed by ID
func (s *BookingStore) Save(booking *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bookings[booking.ID] = *booking
	return nil
}

// FindByID returns a copy of the booking, or (nil, nil) when absent
func (s *BookingStore) FindByID(id string) (*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	booking, ok := s.bookings[id]
	if !ok {
		return nil, nil
	}
	return &booking, nil
}

// FindConflicting returns active bookings on the room overlapping the stay
func (s *BookingStore) FindConflicting(roomNumber int, checkIn, checkOut time.Time) ([]*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Booking
	for _, booking := range s.bookings {
		if booking.RoomNumber != roomNumber || !booking.BookingStatus.IsActive() {
			continue
		}
		if booking.Overlaps(checkIn, checkOut) {
			b := booking
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// FindOverdueConfirmed returns confirmed bookings with a check-in date
// before the cutoff
func (s *BookingStore) FindOverdueConfirmed(before time.Time) ([]*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Booking
	for _, booking := range s.bookings {
		if booking.BookingStatus == models.BookingStatusConfirmed && booking.CheckInDate.Before(before) {
			b := booking
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckInDate.Before(out[j].CheckInDate) })
	return out, nil
}

// FindByUserID returns a user's bookings, newest first
func (s *BookingStore) FindByUserID(userID string, limit, offset int) ([]*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []*models.Booking
	for _, booking := range s.bookings {
		if booking.UserID == userID {
			b := booking
			all = append(all, &b)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// PaymentStore is an in-memory payment ledger
type PaymentStore struct {
	mu       sync.RWMutex
	payments map[string]models.Payment
}

// NewPaymentStore creates an empty in-memory payment ledger
func NewPaymentStore() *PaymentStore {
	return &PaymentStore{payments: make(map[string]models.Payment)}
}

// Save stores a copy of the ledger row keyed by ID
func (s *PaymentStore) Save(payment *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.payments[payment.ID] = *payment
	return nil
}

// FindByReference returns the ledger row carrying the gateway reference, or
// (nil, nil) when absent
func (s *PaymentStore) FindByReference(reference string) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, payment := range s.payments {
		if payment.Reference != nil && *payment.Reference == reference {
			p := payment
			return &p, nil
		}
	}
	return nil, nil
}

// FindByBookingID returns all ledger rows for a booking, oldest first
func (s *PaymentStore) FindByBookingID(bookingID string) ([]*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Payment
	for _, payment := range s.payments {
		if payment.BookingID == bookingID {
			p := payment
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// NotificationStore is an in-memory notification record store
type NotificationStore struct {
	mu      sync.RWMutex
	records []models.Notification
}

// NewNotificationStore creates an empty in-memory notification store
func NewNotificationStore() *NotificationStore {
	return &NotificationStore{}
}

// Save appends a copy of the notification record
func (s *NotificationStore) Save(notification *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, *notification)
	return nil
}

// FindByUserID returns a user's notifications, newest first
func (s *NotificationStore) FindByUserID(userID string, limit int) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Notification
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].UserID == userID {
			n := s.records[i]
			out = append(out, &n)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}
