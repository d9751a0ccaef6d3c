package models

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus represents the lifecycle state of a rental booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingApproved  BookingStatus = "APPROVED"
	BookingActive    BookingStatus = "ACTIVE"
	BookingCompleted BookingStatus = "COMPLETED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// RentalBooking reserves a car for a date range. Dates have day
// precision and the range is end-exclusive: the end date is checkout
// day and does not block a booking starting the same day. For a given
// car, APPROVED and ACTIVE bookings must be pairwise non-overlapping.
type RentalBooking struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	CarID  uuid.UUID `gorm:"type:uuid;index"`
	UserID uuid.UUID `gorm:"type:uuid;index"`

	StartDate time.Time
	EndDate   time.Time
	// TotalPrice is derived at creation: nights x rental price per day.
	TotalPrice float64

	Status BookingStatus `gorm:"size:20;default:'PENDING'"`

	CreatedAt time.Time
}

// PaymentStatus represents the payment state of a purchase.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentFailed  PaymentStatus = "FAILED"
)

// Purchase records a buyer's purchase of a car. A car can be
// purchased at most once (one-to-one). PriceAtPurchase is a snapshot
// of the car's price at creation time and never changes afterward.
type Purchase struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	CarID   uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	BuyerID uuid.UUID `gorm:"type:uuid;index"`

	PriceAtPurchase float64
	PaymentStatus   PaymentStatus `gorm:"size:20;default:'PENDING'"`

	PurchaseDate time.Time
}
