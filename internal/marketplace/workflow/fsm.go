// Package workflow implements the marketplace state machines and the
// rental availability rules. Each entity's legal transitions live in
// an explicit table keyed by (current state, action); everything not
// in the table is an invalid transition. The functions here are pure:
// persistence and authorization are the caller's job.
package workflow

import (
	"fmt"

	e "github.com/autolot/marketplace/internal/marketplace/errors"
	"github.com/autolot/marketplace/internal/marketplace/models"
)

// Action is a requested state change on an entity.
type Action string

const (
	ActionApprove    Action = "approve"
	ActionReject     Action = "reject"
	ActionCancel     Action = "cancel"
	ActionStart      Action = "start_rental"
	ActionComplete   Action = "complete_rental"
	ActionMarkSold   Action = "mark_sold"
	ActionSell       Action = "sell"
	ActionRevertSale Action = "revert_sale"
	ActionMarkPaid   Action = "mark_paid"
	ActionMarkFailed Action = "mark_failed"
)

type bookingKey struct {
	from   models.BookingStatus
	action Action
}

var bookingTransitions = map[bookingKey]models.BookingStatus{
	{models.BookingPending, ActionApprove}: models.BookingApproved,
	{models.BookingPending, ActionReject}:  models.BookingCancelled,
	{models.BookingPending, ActionCancel}:  models.BookingCancelled,
	{models.BookingApproved, ActionCancel}: models.BookingCancelled,
	{models.BookingApproved, ActionStart}:  models.BookingActive,
	{models.BookingActive, ActionComplete}: models.BookingCompleted,
}

// NextBookingStatus resolves a booking transition, or reports
// ErrInvalidTransition naming the offending current state.
func NextBookingStatus(current models.BookingStatus, action Action) (models.BookingStatus, error) {
	next, ok := bookingTransitions[bookingKey{current, action}]
	if !ok {
		return "", fmt.Errorf("%w: cannot %s a booking with status %s", e.ErrInvalidTransition, action, current)
	}
	return next, nil
}

type carKey struct {
	from   models.CarStatus
	action Action
}

var carTransitions = map[carKey]models.CarStatus{
	{models.CarPending, ActionApprove}: models.CarApproved,
	{models.CarPending, ActionReject}:  models.CarRejected,
	// Explicit mark-sold and purchase-triggered sale land in the same
	// state; both clear the marketplace flags.
	{models.CarApproved, ActionMarkSold}: models.CarSold,
	{models.CarApproved, ActionSell}:     models.CarSold,
	// Payment failure puts the car back on the market.
	{models.CarSold, ActionRevertSale}: models.CarApproved,
}

// NextCarStatus resolves a car transition, or reports
// ErrInvalidTransition naming the offending current state.
func NextCarStatus(current models.CarStatus, action Action) (models.CarStatus, error) {
	next, ok := carTransitions[carKey{current, action}]
	if !ok {
		return "", fmt.Errorf("%w: cannot %s a car with status %s", e.ErrInvalidTransition, action, current)
	}
	return next, nil
}

type registrationKey struct {
	from   models.RegistrationStatus
	action Action
}

var registrationTransitions = map[registrationKey]models.RegistrationStatus{
	{models.RegistrationPending, ActionApprove}: models.RegistrationApproved,
	{models.RegistrationPending, ActionReject}:  models.RegistrationRejected,
}

// NextRegistrationStatus resolves a registration-request transition.
// APPROVED and REJECTED are terminal: no re-review.
func NextRegistrationStatus(current models.RegistrationStatus, action Action) (models.RegistrationStatus, error) {
	next, ok := registrationTransitions[registrationKey{current, action}]
	if !ok {
		return "", fmt.Errorf("%w: cannot %s a %s registration request", e.ErrInvalidTransition, action, current)
	}
	return next, nil
}

// NextPaymentStatus resolves a purchase payment transition. Marking
// an already-PAID purchase paid again is an error, not a no-op.
func NextPaymentStatus(current models.PaymentStatus, action Action) (models.PaymentStatus, error) {
	switch action {
	case ActionMarkPaid:
		if current == models.PaymentPaid {
			return "", fmt.Errorf("%w", e.ErrAlreadyPaid)
		}
		if current == models.PaymentPending {
			return models.PaymentPaid, nil
		}
	case ActionMarkFailed:
		if current == models.PaymentPending {
			return models.PaymentFailed, nil
		}
	}
	return "", fmt.Errorf("%w: cannot %s a purchase with payment status %s", e.ErrInvalidTransition, action, current)
}
