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

// PurchaseService manages car purchases and their payment lifecycle.
// A car can be purchased at most once; creating the purchase takes
// the car off the market, and a failed payment puts it back.
type PurchaseService struct {
	repo     Repository
	producer EventProducer
	logger   *zap.Logger
	now      func() time.Time
}

// NewPurchaseService constructs a PurchaseService with a repository,
// an event producer, and a logger.
func NewPurchaseService(repo Repository, producer EventProducer, logger *zap.Logger) *PurchaseService {
	return &PurchaseService{
		repo:     repo,
		producer: producer,
		logger:   logger.Named("purchase_service"),
		now:      time.Now,
	}
}

// CreatePurchase records the actor buying the car. The car must be
// APPROVED, listed for sale, and never purchased before. The price is
// snapshotted from the car at this moment and never changes; the car
// moves to SOLD and its marketplace flags are cleared.
func (s *PurchaseService) CreatePurchase(ctx context.Context, actor *models.User, carID uuid.UUID) (*models.Purchase, error) {
	if !authz.CanAct(actor, authz.OpCreatePurchase, authz.Target{}) {
		return nil, fmt.Errorf("%w: you are not authorized to create purchases", e.ErrUnauthorized)
	}

	purchase := &models.Purchase{
		ID:            uuid.New(),
		CarID:         carID,
		BuyerID:       actor.ID,
		PaymentStatus: models.PaymentPending,
		PurchaseDate:  s.now(),
	}
	err := s.repo.WithTransaction(ctx, func(repo *db.Repository) error {
		car, err := repo.GetCar(ctx, carID)
		if err != nil {
			return err
		}
		if car.Status == models.CarSold {
			return fmt.Errorf("%w: this car is already sold", e.ErrCarSold)
		}
		if !car.IsForSale || car.Status != models.CarApproved {
			return fmt.Errorf("%w: this car is not available for purchase", e.ErrCarUnavailable)
		}
		exists, err := repo.PurchaseExistsForCar(ctx, carID)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: this car is already purchased", e.ErrAlreadyPurchased)
		}

		purchase.PriceAtPurchase = car.Price
		if err := repo.CreatePurchase(ctx, purchase); err != nil {
			return err
		}

		next, err := workflow.NextCarStatus(car.Status, workflow.ActionSell)
		if err != nil {
			return err
		}
		car.Status = next
		car.IsForSale = false
		car.IsForRent = false
		return repo.SaveCar(ctx, car)
	})
	if err != nil {
		return nil, err
	}

	s.producer.Produce(events.PurchaseCreated, purchase.ID, purchase)
	return purchase, nil
}

// GetPurchase retrieves a purchase by ID.
func (s *PurchaseService) GetPurchase(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	return s.repo.GetPurchase(ctx, id)
}

// Transition applies a payment action (mark_paid, mark_failed) on
// behalf of the buyer or the owning dealership admin. Marking an
// already-PAID purchase paid again fails; a failed payment reverts
// the car to APPROVED and relists it for sale.
func (s *PurchaseService) Transition(ctx context.Context, purchaseID uuid.UUID, actor *models.User, action workflow.Action) (*models.Purchase, error) {
	var purchase *models.Purchase
	err := s.repo.WithTransaction(ctx, func(repo *db.Repository) error {
		var err error
		purchase, err = repo.GetPurchase(ctx, purchaseID)
		if err != nil {
			return err
		}
		car, err := repo.GetCar(ctx, purchase.CarID)
		if err != nil {
			return err
		}

		op, ok := purchaseOperation(action)
		if !ok {
			return fmt.Errorf("%w: unknown purchase action %q", e.ErrInvalidInput, action)
		}
		if !authz.CanAct(actor, op, authz.Owner(car.DealershipID, purchase.BuyerID)) {
			return fmt.Errorf("%w: you are not authorized to update this purchase", e.ErrUnauthorized)
		}

		next, err := workflow.NextPaymentStatus(purchase.PaymentStatus, action)
		if err != nil {
			return err
		}
		purchase.PaymentStatus = next
		if err := repo.SavePurchase(ctx, purchase); err != nil {
			return err
		}

		if action == workflow.ActionMarkFailed {
			carNext, err := workflow.NextCarStatus(car.Status, workflow.ActionRevertSale)
			if err != nil {
				return err
			}
			car.Status = carNext
			car.IsForSale = true
			if err := repo.SaveCar(ctx, car); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.producer.Produce(purchaseEvent(action), purchase.ID, purchase)
	return purchase, nil
}

func purchaseOperation(action workflow.Action) (authz.Operation, bool) {
	switch action {
	case workflow.ActionMarkPaid:
		return authz.OpMarkPaid, true
	case workflow.ActionMarkFailed:
		return authz.OpMarkFailed, true
	}
	return "", false
}

func purchaseEvent(action workflow.Action) events.EventType {
	if action == workflow.ActionMarkPaid {
		return events.PurchasePaid
	}
	return events.PurchaseFailed
}
