package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/autolot/marketplace/internal/marketplace/authz"
	"github.com/autolot/marketplace/internal/marketplace/db"
	e "github.com/autolot/marketplace/internal/marketplace/errors"
	"github.com/autolot/marketplace/internal/marketplace/events"
	"github.com/autolot/marketplace/internal/marketplace/models"
	"github.com/autolot/marketplace/internal/marketplace/workflow"
)

// BookingService manages the rental booking lifecycle: requests,
// approval, start/complete, cancellation, and the availability check
// that prevents double-booking a car.
type BookingService struct {
	repo     Repository
	producer EventProducer
	logger   *zap.Logger
}

// NewBookingService constructs a BookingService with a repository, an
// event producer, and a logger.
func NewBookingService(repo Repository, producer EventProducer, logger *zap.Logger) *BookingService {
	return &BookingService{
		repo:     repo,
		producer: producer,
		logger:   logger.Named("booking_service"),
	}
}

// CheckAvailability reports whether the car is free for the
// end-exclusive range [start,end). excludeID, when set, leaves that
// booking out of the check.
func (s *BookingService) CheckAvailability(ctx context.Context, carID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	if _, err := s.repo.GetCar(ctx, carID); err != nil {
		return false, err
	}
	if err := workflow.ValidateRange(start, end); err != nil {
		return false, err
	}
	conflict, err := s.repo.HasBookingConflict(ctx, carID, workflow.Day(start), workflow.Day(end), excludeID)
	if err != nil {
		return false, err
	}
	return !conflict, nil
}

// CreateBooking requests a rental of the car for [start,end). The car
// must be APPROVED and listed for rent, the range valid, and free of
// conflicts with APPROVED/ACTIVE bookings. The total price is derived
// from the range and the car's daily rate; the booking starts
// PENDING. The conflict check and the insert share one transaction.
func (s *BookingService) CreateBooking(ctx context.Context, actor *models.User, carID uuid.UUID, start, end time.Time) (*models.RentalBooking, error) {
	if err := workflow.ValidateRange(start, end); err != nil {
		return nil, err
	}
	if !authz.CanAct(actor, authz.OpCreateBooking, authz.Target{}) {
		return nil, fmt.Errorf("%w: you are not authorized to create bookings", e.ErrUnauthorized)
	}

	booking := &models.RentalBooking{
		ID:        uuid.New(),
		CarID:     carID,
		UserID:    actor.ID,
		StartDate: workflow.Day(start),
		EndDate:   workflow.Day(end),
		Status:    models.BookingPending,
	}
	err := s.repo.WithTransaction(ctx, func(repo *db.Repository) error {
		car, err := repo.GetCar(ctx, carID)
		if err != nil {
			return err
		}
		if !car.IsForRent || car.Status != models.CarApproved {
			return fmt.Errorf("%w: this car is not available for rent", e.ErrCarUnavailable)
		}

		conflict, err := repo.HasBookingConflict(ctx, carID, booking.StartDate, booking.EndDate, nil)
		if err != nil {
			return err
		}
		if conflict {
			return fmt.Errorf("%w: car is not available for the selected dates", e.ErrDateConflict)
		}

		booking.TotalPrice = workflow.TotalPrice(booking.StartDate, booking.EndDate, car.RentalPricePerDay)
		return repo.CreateBooking(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	s.producer.Produce(events.BookingCreated, booking.ID, booking)
	return booking, nil
}

// GetBooking retrieves a booking by ID.
func (s *BookingService) GetBooking(ctx context.Context, id uuid.UUID) (*models.RentalBooking, error) {
	return s.repo.GetBooking(ctx, id)
}

// Transition applies a lifecycle action to a booking on behalf of the
// actor. Approval re-validates availability against the booking's
// peers, so two overlapping PENDING bookings can never both be
// approved.
func (s *BookingService) Transition(ctx context.Context, bookingID uuid.UUID, actor *models.User, action workflow.Action, reason string) (*models.RentalBooking, error) {
	var booking *models.RentalBooking
	err := s.repo.WithTransaction(ctx, func(repo *db.Repository) error {
		var err error
		booking, err = repo.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		car, err := repo.GetCar(ctx, booking.CarID)
		if err != nil {
			return err
		}

		op, ok := bookingOperation(action)
		if !ok {
			return fmt.Errorf("%w: unknown booking action %q", e.ErrInvalidInput, action)
		}
		if !authz.CanAct(actor, op, authz.Owner(car.DealershipID, booking.UserID)) {
			return fmt.Errorf("%w: you are not authorized to %s this booking", e.ErrUnauthorized, action)
		}

		next, err := workflow.NextBookingStatus(booking.Status, action)
		if err != nil {
			return err
		}

		if action == workflow.ActionApprove {
			conflict, err := repo.HasBookingConflict(ctx, booking.CarID, booking.StartDate, booking.EndDate, &booking.ID)
			if err != nil {
				return err
			}
			if conflict {
				return fmt.Errorf("%w: an overlapping booking was approved first", e.ErrDateConflict)
			}
		}

		booking.Status = next
		return repo.SaveBooking(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	s.producer.Produce(bookingEvent(action), booking.ID, map[string]interface{}{
		"status": booking.Status,
		"reason": reason,
	})
	return booking, nil
}

func bookingOperation(action workflow.Action) (authz.Operation, bool) {
	switch action {
	case workflow.ActionApprove:
		return authz.OpApproveBooking, true
	case workflow.ActionReject:
		return authz.OpRejectBooking, true
	case workflow.ActionStart:
		return authz.OpStartRental, true
	case workflow.ActionComplete:
		return authz.OpCompleteRental, true
	case workflow.ActionCancel:
		return authz.OpCancelBooking, true
	}
	return "", false
}

func bookingEvent(action workflow.Action) events.EventType {
	switch action {
	case workflow.ActionApprove:
		return events.BookingApproved
	case workflow.ActionStart:
		return events.RentalStarted
	case workflow.ActionComplete:
		return events.RentalCompleted
	default:
		return events.BookingCancelled
	}
}
