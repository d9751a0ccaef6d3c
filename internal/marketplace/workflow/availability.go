package workflow

import (
	"fmt"
	"time"

	e "github.com/autolot/marketplace/internal/marketplace/errors"
	"github.com/autolot/marketplace/internal/marketplace/models"
)

// BlocksAvailability reports whether a booking in the given status
// occupies its date range. Only APPROVED and ACTIVE bookings block;
// PENDING requests and terminal bookings never do.
func BlocksAvailability(status models.BookingStatus) bool {
	return status == models.BookingApproved || status == models.BookingActive
}

// Day truncates t to midnight UTC. Booking dates have day precision.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ValidateRange checks the end-after-start invariant on a candidate
// booking range.
func ValidateRange(start, end time.Time) error {
	if !Day(end).After(Day(start)) {
		return fmt.Errorf("%w: end date must be after start date", e.ErrInvalidDates)
	}
	return nil
}

// Overlaps reports whether the end-exclusive ranges [s1,e1) and
// [s2,e2) intersect. A range ending exactly on the other's start date
// does not overlap, so back-to-back bookings are allowed.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return Day(s1).Before(Day(e2)) && Day(s2).Before(Day(e1))
}

// Nights is the number of nights in [start,end). ValidateRange
// guarantees it is at least 1.
func Nights(start, end time.Time) int {
	return int(Day(end).Sub(Day(start)).Hours() / 24)
}

// TotalPrice derives the booking price: nights times the car's daily
// rental rate. The price is never settable by the caller.
func TotalPrice(start, end time.Time, pricePerDay float64) float64 {
	return float64(Nights(start, end)) * pricePerDay
}
