// Package controller implements the core business logic (service
// layer) of the marketplace. Each service composes the authorization
// guard, the workflow state machines, and the entity store; every
// mutating operation runs its read-validate-write sequence inside a
// single store transaction so concurrent requests cannot both win.
package controller

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/autolot/marketplace/internal/marketplace/db"
	"github.com/autolot/marketplace/internal/marketplace/events"
	"github.com/autolot/marketplace/internal/marketplace/models"
)

// EventProducer publishes lifecycle events after a successful
// transition.
type EventProducer interface {
	Produce(eventType events.EventType, entityID uuid.UUID, payload interface{})
}

// Repository defines the storage interface shared by the services.
// WithTransaction hands the callback a transactional repository; the
// callback's reads and writes commit or roll back together.
type Repository interface {
	CreateRegistrationRequest(ctx context.Context, req *models.CompanyRegistrationRequest) error
	GetRegistrationRequest(ctx context.Context, id uuid.UUID) (*models.CompanyRegistrationRequest, error)

	GetDealership(ctx context.Context, id uuid.UUID) (*models.DealershipCompany, error)

	GetCar(ctx context.Context, id uuid.UUID) (*models.Car, error)

	GetBooking(ctx context.Context, id uuid.UUID) (*models.RentalBooking, error)
	HasBookingConflict(ctx context.Context, carID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error)

	GetPurchase(ctx context.Context, id uuid.UUID) (*models.Purchase, error)

	WithTransaction(ctx context.Context, fn func(repo *db.Repository) error) error
	Close() error
}
