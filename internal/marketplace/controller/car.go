package controller

import (
	"context"
	"errors"
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

// CarService manages car listings: submission, the approval workflow,
// spec updates, inspections and images.
type CarService struct {
	repo     Repository
	producer EventProducer
	logger   *zap.Logger
	now      func() time.Time
}

// NewCarService constructs a CarService with a repository, an event
// producer, and a logger.
func NewCarService(repo Repository, producer EventProducer, logger *zap.Logger) *CarService {
	return &CarService{
		repo:     repo,
		producer: producer,
		logger:   logger.Named("car_service"),
		now:      time.Now,
	}
}

// SubmitCar lists a car with a dealership. A regular user's
// submission enters the workflow PENDING with the submitter as
// seller; a company-owned car may only be added by an admin of that
// dealership and enters the catalog already APPROVED.
func (s *CarService) SubmitCar(ctx context.Context, actor *models.User, car *models.Car) (*models.Car, error) {
	if car.DealershipID == uuid.Nil {
		return nil, fmt.Errorf("%w: dealership is required", e.ErrInvalidInput)
	}
	if car.Title == "" {
		return nil, fmt.Errorf("%w: title is required", e.ErrInvalidInput)
	}

	op := authz.OpSubmitCar
	if car.IsCompanyOwned {
		op = authz.OpAddCompanyCar
	}
	if !authz.CanAct(actor, op, authz.Dealership(car.DealershipID)) {
		return nil, fmt.Errorf("%w: only the dealership admin can add company-owned cars", e.ErrUnauthorized)
	}

	car.ID = uuid.New()
	if car.IsCompanyOwned {
		car.SellerID = nil
		car.Status = models.CarApproved
	} else {
		sellerID := actor.ID
		car.SellerID = &sellerID
		car.Status = models.CarPending
	}

	err := s.repo.WithTransaction(ctx, func(repo *db.Repository) error {
		if _, err := repo.GetDealership(ctx, car.DealershipID); err != nil {
			return err
		}
		return repo.CreateCar(ctx, car)
	})
	if err != nil {
		return nil, err
	}

	s.producer.Produce(events.CarSubmitted, car.ID, car)
	return car, nil
}

// GetCar retrieves a car by ID, returning ErrNotFound if missing.
func (s *CarService) GetCar(ctx context.Context, id uuid.UUID) (*models.Car, error) {
	return s.repo.GetCar(ctx, id)
}

// Transition applies a lifecycle action (approve, reject, mark_sold)
// to a car on behalf of the actor. Approve and reject stamp the
// reviewing admin and timestamp; marking sold clears the marketplace
// flags.
func (s *CarService) Transition(ctx context.Context, carID uuid.UUID, actor *models.User, action workflow.Action, reason string) (*models.Car, error) {
	var car *models.Car
	err := s.repo.WithTransaction(ctx, func(repo *db.Repository) error {
		var err error
		car, err = repo.GetCar(ctx, carID)
		if err != nil {
			return err
		}

		op, ok := carOperation(action)
		if !ok {
			return fmt.Errorf("%w: unknown car action %q", e.ErrInvalidInput, action)
		}
		if !authz.CanAct(actor, op, authz.Dealership(car.DealershipID)) {
			return fmt.Errorf("%w: you are not authorized to %s this car", e.ErrUnauthorized, action)
		}

		next, err := workflow.NextCarStatus(car.Status, action)
		if err != nil {
			return err
		}
		car.Status = next

		switch action {
		case workflow.ActionApprove, workflow.ActionReject:
			reviewerID := actor.ID
			reviewedAt := s.now()
			car.ApprovedByID = &reviewerID
			car.ApprovedAt = &reviewedAt
		case workflow.ActionMarkSold:
			car.IsForSale = false
			car.IsForRent = false
		}

		return repo.SaveCar(ctx, car)
	})
	if err != nil {
		return nil, err
	}

	s.producer.Produce(carEvent(action), car.ID, map[string]interface{}{
		"status": car.Status,
		"reason": reason,
	})
	return car, nil
}

// UpdateSpecs applies a partial specification update; only an admin
// of the owning dealership may edit a listing.
func (s *CarService) UpdateSpecs(ctx context.Context, actor *models.User, update *models.CarUpdate) (*models.Car, error) {
	if update.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: invalid car ID", e.ErrInvalidInput)
	}

	var car *models.Car
	err := s.repo.WithTransaction(ctx, func(repo *db.Repository) error {
		var err error
		car, err = repo.GetCar(ctx, update.ID)
		if err != nil {
			return err
		}
		if !authz.CanAct(actor, authz.OpUpdateCar, authz.Dealership(car.DealershipID)) {
			return fmt.Errorf("%w: only the dealership admin can update this car", e.ErrUnauthorized)
		}
		if err := repo.UpdateCarSpecs(ctx, update); err != nil {
			return err
		}
		car, err = repo.GetCar(ctx, update.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return car, nil
}

// Delete removes a listing and everything attached to it: images,
// inspection, bookings and purchase. Only an admin of the owning
// dealership may remove a listing.
func (s *CarService) Delete(ctx context.Context, actor *models.User, carID uuid.UUID) error {
	err := s.repo.WithTransaction(ctx, func(repo *db.Repository) error {
		car, err := repo.GetCar(ctx, carID)
		if err != nil {
			return err
		}
		if !authz.CanAct(actor, authz.OpDeleteCar, authz.Dealership(car.DealershipID)) {
			return fmt.Errorf("%w: only the dealership admin can remove this car", e.ErrUnauthorized)
		}
		return repo.DeleteCar(ctx, carID)
	})
	if err != nil {
		return err
	}

	s.producer.Produce(events.CarDeleted, carID, nil)
	return nil
}

// InspectionInput carries the condition fields of a car inspection.
type InspectionInput struct {
	MechanicalStatus string
	InteriorStatus   string
	ExteriorStatus   string
	ConditionNotes   string
}

// UpsertInspection creates or updates the car's inspection record.
// One inspection per car; a repeat call overwrites the condition
// fields and re-stamps the inspector.
func (s *CarService) UpsertInspection(ctx context.Context, actor *models.User, carID uuid.UUID, input InspectionInput) (*models.CarInspection, error) {
	var inspection *models.CarInspection
	err := s.repo.WithTransaction(ctx, func(repo *db.Repository) error {
		car, err := repo.GetCar(ctx, carID)
		if err != nil {
			return err
		}
		if !authz.CanAct(actor, authz.OpUpsertInspection, authz.Dealership(car.DealershipID)) {
			return fmt.Errorf("%w: only the dealership admin can create inspections", e.ErrUnauthorized)
		}

		inspectorID := actor.ID
		inspection, err = repo.GetInspectionByCar(ctx, carID)
		if err != nil {
			if !errors.Is(err, e.ErrNotFound) {
				return err
			}
			inspection = &models.CarInspection{
				ID:             uuid.New(),
				CarID:          carID,
				InspectionDate: s.now(),
			}
		}
		inspection.InspectedByID = &inspectorID
		inspection.MechanicalStatus = input.MechanicalStatus
		inspection.InteriorStatus = input.InteriorStatus
		inspection.ExteriorStatus = input.ExteriorStatus
		inspection.ConditionNotes = input.ConditionNotes
		return repo.SaveInspection(ctx, inspection)
	})
	if err != nil {
		return nil, err
	}
	return inspection, nil
}

// ApproveInspection marks the inspection approved.
func (s *CarService) ApproveInspection(ctx context.Context, actor *models.User, inspectionID uuid.UUID) (*models.CarInspection, error) {
	var inspection *models.CarInspection
	err := s.repo.WithTransaction(ctx, func(repo *db.Repository) error {
		var err error
		inspection, err = repo.GetInspection(ctx, inspectionID)
		if err != nil {
			return err
		}
		car, err := repo.GetCar(ctx, inspection.CarID)
		if err != nil {
			return err
		}
		if !authz.CanAct(actor, authz.OpApproveInspection, authz.Dealership(car.DealershipID)) {
			return fmt.Errorf("%w: you are not authorized to approve this inspection", e.ErrUnauthorized)
		}
		inspection.Approved = true
		return repo.SaveInspection(ctx, inspection)
	})
	if err != nil {
		return nil, err
	}
	return inspection, nil
}

// AddImage attaches a photo to a car; the seller or the owning
// dealership admin may add images. A primary image displaces the
// previous primary.
func (s *CarService) AddImage(ctx context.Context, actor *models.User, carID uuid.UUID, path string, isPrimary bool) (*models.CarImage, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: image path is required", e.ErrInvalidInput)
	}

	image := &models.CarImage{
		ID:        uuid.New(),
		CarID:     carID,
		Path:      path,
		IsPrimary: isPrimary,
	}
	err := s.repo.WithTransaction(ctx, func(repo *db.Repository) error {
		car, err := repo.GetCar(ctx, carID)
		if err != nil {
			return err
		}
		if !authz.CanAct(actor, authz.OpAddImage, authz.Target{DealershipID: car.DealershipID, OwnerID: car.SellerID}) {
			return fmt.Errorf("%w: you are not authorized to add images to this car", e.ErrUnauthorized)
		}
		if isPrimary {
			if err := repo.ClearPrimaryImage(ctx, carID); err != nil {
				return err
			}
		}
		return repo.CreateImage(ctx, image)
	})
	if err != nil {
		return nil, err
	}
	return image, nil
}

// SetPrimaryImage makes the image the car's primary photo, unsetting
// any previous primary.
func (s *CarService) SetPrimaryImage(ctx context.Context, actor *models.User, imageID uuid.UUID) (*models.CarImage, error) {
	var image *models.CarImage
	err := s.repo.WithTransaction(ctx, func(repo *db.Repository) error {
		var err error
		image, err = repo.GetImage(ctx, imageID)
		if err != nil {
			return err
		}
		car, err := repo.GetCar(ctx, image.CarID)
		if err != nil {
			return err
		}
		if !authz.CanAct(actor, authz.OpSetPrimaryImage, authz.Target{DealershipID: car.DealershipID, OwnerID: car.SellerID}) {
			return fmt.Errorf("%w: you are not authorized to modify this car", e.ErrUnauthorized)
		}
		if err := repo.ClearPrimaryImage(ctx, image.CarID); err != nil {
			return err
		}
		image.IsPrimary = true
		return repo.SaveImage(ctx, image)
	})
	if err != nil {
		return nil, err
	}
	return image, nil
}

func carOperation(action workflow.Action) (authz.Operation, bool) {
	switch action {
	case workflow.ActionApprove:
		return authz.OpApproveCar, true
	case workflow.ActionReject:
		return authz.OpRejectCar, true
	case workflow.ActionMarkSold:
		return authz.OpMarkCarSold, true
	}
	return "", false
}

func carEvent(action workflow.Action) events.EventType {
	switch action {
	case workflow.ActionApprove:
		return events.CarApproved
	case workflow.ActionReject:
		return events.CarRejected
	default:
		return events.CarSold
	}
}
