package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	e "github.com/autolot/marketplace/internal/marketplace/errors"
	"github.com/autolot/marketplace/internal/marketplace/models"
)

func TestBookingTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    models.BookingStatus
		action  Action
		want    models.BookingStatus
		wantErr bool
	}{
		{"approve pending", models.BookingPending, ActionApprove, models.BookingApproved, false},
		{"reject pending", models.BookingPending, ActionReject, models.BookingCancelled, false},
		{"cancel pending", models.BookingPending, ActionCancel, models.BookingCancelled, false},
		{"cancel approved", models.BookingApproved, ActionCancel, models.BookingCancelled, false},
		{"start approved", models.BookingApproved, ActionStart, models.BookingActive, false},
		{"complete active", models.BookingActive, ActionComplete, models.BookingCompleted, false},

		{"approve approved", models.BookingApproved, ActionApprove, "", true},
		{"start pending", models.BookingPending, ActionStart, "", true},
		{"complete pending", models.BookingPending, ActionComplete, "", true},
		{"complete approved", models.BookingApproved, ActionComplete, "", true},
		{"cancel active", models.BookingActive, ActionCancel, "", true},
		{"cancel completed", models.BookingCompleted, ActionCancel, "", true},
		{"approve cancelled", models.BookingCancelled, ActionApprove, "", true},
		{"start completed", models.BookingCompleted, ActionStart, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextBookingStatus(tt.from, tt.action)
			if tt.wantErr {
				assert.ErrorIs(t, err, e.ErrInvalidTransition)
				// The message must name the offending current state.
				assert.Contains(t, err.Error(), string(tt.from))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCarTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    models.CarStatus
		action  Action
		want    models.CarStatus
		wantErr bool
	}{
		{"approve pending", models.CarPending, ActionApprove, models.CarApproved, false},
		{"reject pending", models.CarPending, ActionReject, models.CarRejected, false},
		{"mark approved sold", models.CarApproved, ActionMarkSold, models.CarSold, false},
		{"purchase sells approved", models.CarApproved, ActionSell, models.CarSold, false},
		{"payment failure reverts sold", models.CarSold, ActionRevertSale, models.CarApproved, false},

		{"approve approved", models.CarApproved, ActionApprove, "", true},
		{"approve rejected", models.CarRejected, ActionApprove, "", true},
		{"sell pending", models.CarPending, ActionSell, "", true},
		{"sell sold", models.CarSold, ActionSell, "", true},
		{"mark rejected sold", models.CarRejected, ActionMarkSold, "", true},
		{"revert approved", models.CarApproved, ActionRevertSale, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextCarStatus(tt.from, tt.action)
			if tt.wantErr {
				assert.ErrorIs(t, err, e.ErrInvalidTransition)
				assert.Contains(t, err.Error(), string(tt.from))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegistrationTransitionsAreTerminal(t *testing.T) {
	next, err := NextRegistrationStatus(models.RegistrationPending, ActionApprove)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationApproved, next)

	next, err = NextRegistrationStatus(models.RegistrationPending, ActionReject)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationRejected, next)

	for _, terminal := range []models.RegistrationStatus{models.RegistrationApproved, models.RegistrationRejected} {
		for _, action := range []Action{ActionApprove, ActionReject} {
			_, err := NextRegistrationStatus(terminal, action)
			assert.ErrorIs(t, err, e.ErrInvalidTransition, "%s %s", action, terminal)
		}
	}
}

func TestPaymentTransitions(t *testing.T) {
	next, err := NextPaymentStatus(models.PaymentPending, ActionMarkPaid)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, next)

	next, err = NextPaymentStatus(models.PaymentPending, ActionMarkFailed)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, next)

	// Double payment is an error, not a no-op.
	_, err = NextPaymentStatus(models.PaymentPaid, ActionMarkPaid)
	assert.ErrorIs(t, err, e.ErrAlreadyPaid)

	_, err = NextPaymentStatus(models.PaymentPaid, ActionMarkFailed)
	assert.ErrorIs(t, err, e.ErrInvalidTransition)

	_, err = NextPaymentStatus(models.PaymentFailed, ActionMarkPaid)
	assert.ErrorIs(t, err, e.ErrInvalidTransition)
}
