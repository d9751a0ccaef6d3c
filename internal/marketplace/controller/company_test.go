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
)

func submitRequest(t *testing.T, f *fixture) *models.CompanyRegistrationRequest {
	t.Helper()
	req, err := f.companies.SubmitRegistration(context.Background(), &models.CompanyRegistrationRequest{
		CompanyName:            "Riverside Cars",
		CompanyEmail:           "office@riverside.example",
		CompanyPhone:           "+351210000000",
		CompanyCity:            "Coimbra",
		CompanyLicenseNumber:   "PT-4471",
		CompanyLicenseDocument: "license.pdf",
	})
	require.NoError(t, err)
	return req
}

func TestSubmitRegistration(t *testing.T) {
	f := newFixture(t)

	req := submitRequest(t, f)
	assert.Equal(t, models.RegistrationPending, req.Status)
	assert.False(t, req.SubmittedAt.IsZero())
	assert.Nil(t, req.ReviewedByID)

	_, err := f.companies.SubmitRegistration(context.Background(), &models.CompanyRegistrationRequest{
		CompanyName: "No Email Motors",
	})
	assert.ErrorIs(t, err, e.ErrInvalidInput)
}

// Approving a request creates exactly one dealership carrying the
// request's fields, with the reviewer and timestamp stamped on both.
func TestApproveRegistrationCreatesDealership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := submitRequest(t, f)

	dealership, err := f.companies.ApproveRegistration(ctx, req.ID, f.superAdmin)
	require.NoError(t, err)

	assert.Equal(t, req.CompanyName, dealership.Name)
	assert.Equal(t, req.CompanyEmail, dealership.Email)
	assert.Equal(t, req.CompanyPhone, dealership.Phone)
	assert.Equal(t, req.CompanyCity, dealership.City)
	assert.Equal(t, req.CompanyLicenseNumber, dealership.LicenseNumber)
	assert.Equal(t, req.CompanyLicenseDocument, dealership.LicenseDocument)
	assert.True(t, dealership.IsActive)
	require.NotNil(t, dealership.ApprovedByID)
	assert.Equal(t, f.superAdmin.ID, *dealership.ApprovedByID)
	assert.False(t, dealership.ApprovedAt.IsZero())

	reviewed, err := f.companies.GetRegistrationRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationApproved, reviewed.Status)
	require.NotNil(t, reviewed.ReviewedByID)
	assert.Equal(t, f.superAdmin.ID, *reviewed.ReviewedByID)
	assert.NotNil(t, reviewed.ReviewedAt)

	assert.Contains(t, f.producer.produced, events.CompanyApproved)
}

func TestApprovedRequestIsImmutable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := submitRequest(t, f)

	_, err := f.companies.ApproveRegistration(ctx, req.ID, f.superAdmin)
	require.NoError(t, err)

	// A second review in either direction must fail, and no second
	// dealership may appear.
	_, err = f.companies.ApproveRegistration(ctx, req.ID, f.superAdmin)
	assert.ErrorIs(t, err, e.ErrInvalidTransition)
	assert.Contains(t, err.Error(), string(models.RegistrationApproved))

	_, err = f.companies.RejectRegistration(ctx, req.ID, f.superAdmin, "too late")
	assert.ErrorIs(t, err, e.ErrInvalidTransition)
}

func TestRejectRegistration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := submitRequest(t, f)

	rejected, err := f.companies.RejectRegistration(ctx, req.ID, f.superAdmin, "invalid license")
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationRejected, rejected.Status)
	require.NotNil(t, rejected.ReviewedByID)
	assert.Equal(t, f.superAdmin.ID, *rejected.ReviewedByID)

	// REJECTED is terminal.
	_, err = f.companies.ApproveRegistration(ctx, req.ID, f.superAdmin)
	assert.ErrorIs(t, err, e.ErrInvalidTransition)

	assert.Contains(t, f.producer.produced, events.CompanyRejected)
}

func TestOnlySuperAdminReviewsRegistrations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := submitRequest(t, f)

	for _, actor := range []*models.User{f.admin, f.renter} {
		_, err := f.companies.ApproveRegistration(ctx, req.ID, actor)
		assert.ErrorIs(t, err, e.ErrUnauthorized, "actor %s", actor.Username)
		_, err = f.companies.RejectRegistration(ctx, req.ID, actor, "")
		assert.ErrorIs(t, err, e.ErrUnauthorized, "actor %s", actor.Username)
	}

	// The denied attempts left the request untouched.
	got, err := f.companies.GetRegistrationRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationPending, got.Status)
}

func TestDeactivateDealership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.companies.Deactivate(ctx, f.dealership.ID, f.admin)
	assert.ErrorIs(t, err, e.ErrUnauthorized)

	dealership, err := f.companies.Deactivate(ctx, f.dealership.ID, f.superAdmin)
	require.NoError(t, err)
	assert.False(t, dealership.IsActive)
	assert.Contains(t, f.producer.produced, events.CompanyDisabled)

	_, err = f.companies.Deactivate(ctx, uuid.New(), f.superAdmin)
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestPromoteToAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	promoted, err := f.companies.PromoteToAdmin(ctx, f.renter.ID, f.dealership.ID, f.superAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleDealershipAdmin, promoted.Role)
	require.NotNil(t, promoted.DealershipID)
	assert.Equal(t, f.dealership.ID, *promoted.DealershipID)

	// Only a super admin may promote.
	_, err = f.companies.PromoteToAdmin(ctx, f.buyer.ID, f.dealership.ID, f.admin)
	assert.ErrorIs(t, err, e.ErrUnauthorized)

	// The target dealership must exist...
	_, err = f.companies.PromoteToAdmin(ctx, f.buyer.ID, uuid.New(), f.superAdmin)
	assert.ErrorIs(t, err, e.ErrNotFound)

	// ...and be active.
	_, err = f.companies.Deactivate(ctx, f.otherDealership.ID, f.superAdmin)
	require.NoError(t, err)
	_, err = f.companies.PromoteToAdmin(ctx, f.buyer.ID, f.otherDealership.ID, f.superAdmin)
	assert.ErrorIs(t, err, e.ErrInvalidInput)
}
