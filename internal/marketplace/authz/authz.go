// Package authz is the single authorization decision surface for the
// marketplace. CanAct is a pure predicate over (actor, operation,
// target): no lookups, no side effects, same inputs always yield the
// same decision. Relationship data the decision needs (owning
// dealership, entity owner) is carried on the Target by the caller.
package authz

import (
	"github.com/autolot/marketplace/internal/marketplace/models"
	"github.com/google/uuid"
)

// Operation tags an action an actor may request on an entity.
type Operation string

const (
	// Car listings.
	OpSubmitCar     Operation = "car.submit"
	OpAddCompanyCar Operation = "car.add_company_owned"
	OpApproveCar    Operation = "car.approve"
	OpRejectCar     Operation = "car.reject"
	OpMarkCarSold   Operation = "car.mark_sold"
	OpUpdateCar     Operation = "car.update_specs"
	OpDeleteCar     Operation = "car.delete"

	// Car inspections and images.
	OpUpsertInspection  Operation = "inspection.upsert"
	OpApproveInspection Operation = "inspection.approve"
	OpAddImage          Operation = "image.add"
	OpSetPrimaryImage   Operation = "image.set_primary"

	// Rental bookings.
	OpCreateBooking  Operation = "booking.create"
	OpApproveBooking Operation = "booking.approve"
	OpRejectBooking  Operation = "booking.reject"
	OpStartRental    Operation = "booking.start"
	OpCompleteRental Operation = "booking.complete"
	OpCancelBooking  Operation = "booking.cancel"

	// Purchases.
	OpCreatePurchase Operation = "purchase.create"
	OpMarkPaid       Operation = "purchase.mark_paid"
	OpMarkFailed     Operation = "purchase.mark_failed"

	// Company administration.
	OpApproveRegistration  Operation = "company.approve_registration"
	OpRejectRegistration   Operation = "company.reject_registration"
	OpDeactivateDealership Operation = "company.deactivate"
	OpPromoteAdmin         Operation = "company.promote_admin"

	// Read access; list filtering stays in the query layer.
	OpRead Operation = "read"
)

// Target carries the relationship facts CanAct needs about the entity
// being acted on. DealershipID is the owning dealership (zero when the
// entity has none, e.g. a registration request). OwnerID is the
// entity's owning user, when it has one: a car's seller, a booking's
// renter, a purchase's buyer.
type Target struct {
	DealershipID uuid.UUID
	OwnerID      *uuid.UUID
}

// Owner builds a Target for an entity owned by both a dealership and
// a user.
func Owner(dealershipID uuid.UUID, ownerID uuid.UUID) Target {
	return Target{DealershipID: dealershipID, OwnerID: &ownerID}
}

// Dealership builds a Target scoped to a dealership only.
func Dealership(dealershipID uuid.UUID) Target {
	return Target{DealershipID: dealershipID}
}

// CanAct reports whether the actor may perform op on the target
// entity. Unknown operations and nil actors fail closed.
func CanAct(actor *models.User, op Operation, target Target) bool {
	if actor == nil {
		return false
	}

	switch op {
	// Super admin review duties.
	case OpApproveRegistration, OpRejectRegistration, OpDeactivateDealership, OpPromoteAdmin:
		return actor.Role == models.RoleSuperAdmin

	// Any authenticated user may submit a car to any dealership, or
	// request a booking/purchase on an approved car. Status and flag
	// checks belong to the transition engine, not here.
	case OpSubmitCar, OpCreateBooking, OpCreatePurchase:
		return true

	// Owning-dealership admin only.
	case OpAddCompanyCar, OpApproveCar, OpRejectCar, OpMarkCarSold, OpUpdateCar, OpDeleteCar,
		OpUpsertInspection, OpApproveInspection,
		OpApproveBooking, OpRejectBooking, OpStartRental, OpCompleteRental:
		return actor.IsAdminOf(target.DealershipID)

	// Entity owner or owning-dealership admin.
	case OpCancelBooking, OpMarkPaid, OpMarkFailed, OpAddImage, OpSetPrimaryImage:
		return isOwner(actor, target) || actor.IsAdminOf(target.DealershipID)

	case OpRead:
		if actor.Role == models.RoleSuperAdmin {
			return true
		}
		return isOwner(actor, target) || actor.IsAdminOf(target.DealershipID)
	}

	return false
}

func isOwner(actor *models.User, target Target) bool {
	return target.OwnerID != nil && *target.OwnerID == actor.ID
}
