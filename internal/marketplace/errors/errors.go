// Package errors defines the error kinds returned by the marketplace
// core. Callers match them with errors.Is; details are attached by
// wrapping with fmt.Errorf("%w: ...").
package errors

import (
	"fmt"
)

var (
	// ErrNotFound means the referenced entity id does not exist.
	ErrNotFound = fmt.Errorf("not found")
	// ErrUnauthorized means the actor lacks the required role or
	// relationship for the operation.
	ErrUnauthorized = fmt.Errorf("unauthorized")
	// ErrInvalidTransition means the requested action is not legal
	// from the entity's current state.
	ErrInvalidTransition = fmt.Errorf("invalid transition")
	// ErrInvalidDates means end <= start or an unparseable date.
	ErrInvalidDates = fmt.Errorf("invalid dates")
	// ErrDateConflict means an overlapping booking already exists.
	ErrDateConflict = fmt.Errorf("date conflict")
	// ErrCarUnavailable means the car's flags or status don't permit
	// the requested operation.
	ErrCarUnavailable = fmt.Errorf("car unavailable")
	// ErrCarSold means the car has already been sold.
	ErrCarSold = fmt.Errorf("car already sold")
	// ErrAlreadyPaid guards against marking a PAID purchase paid again.
	ErrAlreadyPaid = fmt.Errorf("purchase already paid")
	// ErrAlreadyPurchased guards the one-purchase-per-car invariant.
	ErrAlreadyPurchased = fmt.Errorf("car already purchased")
	// ErrInvalidInput means a malformed or missing request field.
	ErrInvalidInput = fmt.Errorf("invalid input")
)
