package controller

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	e "github.com/autolot/marketplace/internal/marketplace/errors"
	"github.com/autolot/marketplace/internal/marketplace/events"
	"github.com/autolot/marketplace/internal/marketplace/models"
	"github.com/autolot/marketplace/internal/marketplace/workflow"
)

func TestCreatePurchase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	car := f.seedApprovedCar(t, 15000, 50)

	purchase, err := f.purchases.CreatePurchase(ctx, f.buyer, car.ID)
	require.NoError(t, err)

	assert.Equal(t, models.PaymentPending, purchase.PaymentStatus)
	assert.Equal(t, f.buyer.ID, purchase.BuyerID)
	assert.Equal(t, 15000.0, purchase.PriceAtPurchase)

	// The car leaves the marketplace.
	got, err := f.cars.GetCar(ctx, car.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CarSold, got.Status)
	assert.False(t, got.IsForSale)
	assert.False(t, got.IsForRent)

	assert.Contains(t, f.producer.produced, events.PurchaseCreated)
}

func TestPriceSnapshotSurvivesPriceEdits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	car := f.seedApprovedCar(t, 15000, 50)

	purchase, err := f.purchases.CreatePurchase(ctx, f.buyer, car.ID)
	require.NoError(t, err)

	car.Price = 99999
	require.NoError(t, f.repo.SaveCar(ctx, car))

	got, err := f.purchases.GetPurchase(ctx, purchase.ID)
	require.NoError(t, err)
	assert.Equal(t, 15000.0, got.PriceAtPurchase)
}

func TestCreatePurchaseGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.purchases.CreatePurchase(ctx, f.buyer, uuid.New())
	assert.ErrorIs(t, err, e.ErrNotFound)

	sold := f.seedApprovedCar(t, 15000, 50)
	sold.Status = models.CarSold
	require.NoError(t, f.repo.SaveCar(ctx, sold))
	_, err = f.purchases.CreatePurchase(ctx, f.buyer, sold.ID)
	assert.ErrorIs(t, err, e.ErrCarSold)

	notForSale := f.seedApprovedCar(t, 15000, 50)
	notForSale.IsForSale = false
	require.NoError(t, f.repo.SaveCar(ctx, notForSale))
	_, err = f.purchases.CreatePurchase(ctx, f.buyer, notForSale.ID)
	assert.ErrorIs(t, err, e.ErrCarUnavailable)

	pending := f.seedApprovedCar(t, 15000, 50)
	pending.Status = models.CarPending
	require.NoError(t, f.repo.SaveCar(ctx, pending))
	_, err = f.purchases.CreatePurchase(ctx, f.buyer, pending.ID)
	assert.ErrorIs(t, err, e.ErrCarUnavailable)
}

func TestSecondPurchaseImpossible(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	car := f.seedApprovedCar(t, 15000, 50)

	_, err := f.purchases.CreatePurchase(ctx, f.buyer, car.ID)
	require.NoError(t, err)

	// The car is SOLD now, so a second buyer is turned away before
	// the one-to-one check even matters.
	rival := seedUser(t, f.repo, "rival_buyer", models.RoleUser, nil)
	_, err = f.purchases.CreatePurchase(ctx, rival, car.ID)
	assert.ErrorIs(t, err, e.ErrCarSold)

	// Even with the car forced back to APPROVED, the existing
	// purchase blocks a duplicate.
	car.Status = models.CarApproved
	car.IsForSale = true
	require.NoError(t, f.repo.SaveCar(ctx, car))
	_, err = f.purchases.CreatePurchase(ctx, rival, car.ID)
	assert.ErrorIs(t, err, e.ErrAlreadyPurchased)
}

func TestMarkPaidTwiceFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	car := f.seedApprovedCar(t, 15000, 50)

	purchase, err := f.purchases.CreatePurchase(ctx, f.buyer, car.ID)
	require.NoError(t, err)

	purchase, err = f.purchases.Transition(ctx, purchase.ID, f.buyer, workflow.ActionMarkPaid)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, purchase.PaymentStatus)

	_, err = f.purchases.Transition(ctx, purchase.ID, f.buyer, workflow.ActionMarkPaid)
	assert.ErrorIs(t, err, e.ErrAlreadyPaid)
}

func TestPaymentFailureRevertsCar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	car := f.seedApprovedCar(t, 15000, 50)

	purchase, err := f.purchases.CreatePurchase(ctx, f.buyer, car.ID)
	require.NoError(t, err)

	purchase, err = f.purchases.Transition(ctx, purchase.ID, f.buyer, workflow.ActionMarkFailed)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, purchase.PaymentStatus)

	got, err := f.cars.GetCar(ctx, car.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CarApproved, got.Status)
	assert.True(t, got.IsForSale, "a failed payment relists the car")

	assert.Contains(t, f.producer.produced, events.PurchaseFailed)
}

func TestPurchaseAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	car := f.seedApprovedCar(t, 15000, 50)

	purchase, err := f.purchases.CreatePurchase(ctx, f.buyer, car.ID)
	require.NoError(t, err)

	// A stranger can't touch someone else's purchase.
	stranger := seedUser(t, f.repo, "stranger", models.RoleUser, nil)
	_, err = f.purchases.Transition(ctx, purchase.ID, stranger, workflow.ActionMarkPaid)
	assert.ErrorIs(t, err, e.ErrUnauthorized)

	// Neither can an admin of a different dealership.
	_, err = f.purchases.Transition(ctx, purchase.ID, f.otherAdmin, workflow.ActionMarkPaid)
	assert.ErrorIs(t, err, e.ErrUnauthorized)

	// The owning dealership's admin can.
	_, err = f.purchases.Transition(ctx, purchase.ID, f.admin, workflow.ActionMarkPaid)
	assert.NoError(t, err)
}
