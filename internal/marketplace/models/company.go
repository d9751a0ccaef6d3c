package models

import (
	"time"

	"github.com/google/uuid"
)

// RegistrationStatus represents the review state of a company
// registration request.
type RegistrationStatus string

const (
	RegistrationPending  RegistrationStatus = "PENDING"
	RegistrationApproved RegistrationStatus = "APPROVED"
	RegistrationRejected RegistrationStatus = "REJECTED"
)

// CompanyRegistrationRequest is an application to open a dealership.
// It is reviewed by a super admin; approval creates exactly one
// DealershipCompany. APPROVED and REJECTED are terminal.
type CompanyRegistrationRequest struct {
	ID                     uuid.UUID          `gorm:"type:uuid;primaryKey"`
	CompanyName            string             `gorm:"size:255"`
	CompanyEmail           string             `gorm:"size:254"`
	CompanyPhone           string             `gorm:"size:20"`
	CompanyCity            string             `gorm:"size:100"`
	CompanyLicenseNumber   string             `gorm:"size:100"`
	CompanyLicenseDocument string             `gorm:"size:512"`
	Status                 RegistrationStatus `gorm:"size:20;default:'PENDING'"`
	SubmittedAt            time.Time
	ReviewedByID           *uuid.UUID
	ReviewedAt             *time.Time
	CreatedAt              time.Time
}

// DealershipCompany is an approved dealership. It owns car listings
// and has one or more admin users.
type DealershipCompany struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name            string    `gorm:"size:255"`
	Email           string    `gorm:"size:254"`
	Phone           string    `gorm:"size:20"`
	City            string    `gorm:"size:100"`
	LicenseNumber   string    `gorm:"size:100"`
	LicenseDocument string    `gorm:"size:512"`
	IsActive        bool      `gorm:"default:true"`
	ApprovedByID    *uuid.UUID
	ApprovedAt      time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Cars   []Car  `gorm:"foreignKey:DealershipID"`
	Admins []User `gorm:"foreignKey:DealershipID"`
}
