package models

import (
	"time"

	"github.com/google/uuid"
)

// CarStatus represents the lifecycle state of a car listing.
type CarStatus string

const (
	CarPending  CarStatus = "PENDING"
	CarApproved CarStatus = "APPROVED"
	CarRejected CarStatus = "REJECTED"
	CarSold     CarStatus = "SOLD"
	CarRented   CarStatus = "RENTED"
)

// Car is a vehicle listed with a dealership. A car submitted by a
// regular user has a Seller and starts PENDING; a company-owned car is
// added by a dealership admin and enters the catalog already APPROVED.
// IsForSale/IsForRent gate marketplace visibility independently of
// Status.
type Car struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	DealershipID uuid.UUID  `gorm:"type:uuid;index"`
	SellerID     *uuid.UUID `gorm:"type:uuid"`

	IsCompanyOwned bool

	Title             string    `gorm:"size:255"`
	Description       string    `gorm:"size:3000"`
	Brand             string    `gorm:"size:100"`
	Model             string    `gorm:"size:100"`
	Year              int       `gorm:"check:year >= 0"`
	Mileage           int       `gorm:"check:mileage >= 0"`
	Price             float64   `gorm:"check:price >= 0"`
	Status            CarStatus `gorm:"size:20;default:'PENDING'"`
	EngineCapacity    float64
	FuelType          string `gorm:"size:50"`
	Transmission      string `gorm:"size:50"`
	Color             string `gorm:"size:50"`
	RentalPricePerDay float64

	IsForSale bool `gorm:"default:true"`
	IsForRent bool `gorm:"default:false"`

	ApprovedByID *uuid.UUID
	ApprovedAt   *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	// Children removed together with the car.
	Images     []CarImage      `gorm:"foreignKey:CarID;constraint:OnDelete:CASCADE"`
	Inspection *CarInspection  `gorm:"foreignKey:CarID;constraint:OnDelete:CASCADE"`
	Rentals    []RentalBooking `gorm:"foreignKey:CarID;constraint:OnDelete:CASCADE"`
	Purchase   *Purchase       `gorm:"foreignKey:CarID;constraint:OnDelete:CASCADE"`
}

// CarUpdate represents the spec fields a dealership admin can change
// on a listing. Pointer types allow partial updates.
type CarUpdate struct {
	ID                uuid.UUID
	Title             *string
	Description       *string
	Brand             *string
	Model             *string
	Year              *int
	Mileage           *int
	Price             *float64
	EngineCapacity    *float64
	FuelType          *string
	Transmission      *string
	Color             *string
	RentalPricePerDay *float64
	IsForSale         *bool
	IsForRent         *bool
}

// CarImage is a photo attached to a car listing. At most one image per
// car is primary.
type CarImage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CarID     uuid.UUID `gorm:"type:uuid;index"`
	Path      string    `gorm:"size:512"`
	IsPrimary bool
	CreatedAt time.Time
}

// CarInspection records a dealership's condition check for a car.
// One inspection per car.
type CarInspection struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	CarID         uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	InspectedByID *uuid.UUID

	MechanicalStatus string `gorm:"size:3000"`
	InteriorStatus   string `gorm:"size:3000"`
	ExteriorStatus   string `gorm:"size:3000"`
	ConditionNotes   string `gorm:"size:3000"`

	Approved       bool
	InspectionDate time.Time
}
