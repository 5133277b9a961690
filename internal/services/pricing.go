package services

import (
	"time"

	"github.com/grandstay/hotel-booking-backend/internal/models"
)

// Quote computes the total price of a stay. It must be a pure function: the
// orchestrator calls it while holding the room lock, so it may not touch the
// lock manager or mutate shared state.
type Quote func(room *models.Room, checkIn, checkOut time.Time) float64

// extendedStayNights is the stay length above which the discount applies
const extendedStayNights = 5

// extendedStayDiscount is the multiplier applied to extended stays
const extendedStayDiscount = 0.9

// StandardQuote prices a stay at nightly rate times nights, with a 10%
// discount for stays longer than five nights. The formula is load-bearing
// for existing bookings and must not be changed without a migration plan.
func StandardQuote(room *models.Room, checkIn, checkOut time.Time) float64 {
	nights := int(checkOut.Sub(checkIn).Hours() / 24)
	total := room.NightlyRate * float64(nights)
	if nights > extendedStayNights {
		total *= extendedStayDiscount
	}
	return total
}
