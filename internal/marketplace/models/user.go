// Package models contains the domain models for the marketplace,
// configured to work using GORM as the ORM.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents the role assigned to a user account.
// A user holds exactly one role.
type Role string

const (
	// RoleUser is a regular marketplace user.
	RoleUser Role = "USER"
	// RoleDealershipAdmin manages a single dealership's inventory.
	RoleDealershipAdmin Role = "DEALERSHIP_ADMIN"
	// RoleSuperAdmin reviews company registrations and manages dealerships.
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// User represents an account in the marketplace.
// DealershipID is set only for DEALERSHIP_ADMIN accounts and scopes
// the admin's authority to that dealership's entities.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username     string    `gorm:"size:150;uniqueIndex"`
	Email        string    `gorm:"size:254"`
	PhoneNumber  string    `gorm:"size:20"`
	Role         Role      `gorm:"size:20;default:'USER'"`
	DealershipID *uuid.UUID
	IsVerified   bool
	CreatedAt    time.Time
}

// IsAdminOf reports whether the user is a dealership admin for the
// given dealership.
func (u *User) IsAdminOf(dealershipID uuid.UUID) bool {
	return u.Role == RoleDealershipAdmin &&
		u.DealershipID != nil && *u.DealershipID == dealershipID
}
