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

// CompanyService manages dealership registration review and
// dealership administration. Only a super admin reviews requests;
// approving one atomically creates the dealership.
type CompanyService struct {
	repo     Repository
	producer EventProducer
	logger   *zap.Logger
	now      func() time.Time
}

// NewCompanyService constructs a CompanyService with a repository, an
// event producer, and a logger.
func NewCompanyService(repo Repository, producer EventProducer, logger *zap.Logger) *CompanyService {
	return &CompanyService{
		repo:     repo,
		producer: producer,
		logger:   logger.Named("company_service"),
		now:      time.Now,
	}
}

// SubmitRegistration files a request to open a dealership. Anyone may
// submit; review is a super admin's job.
func (s *CompanyService) SubmitRegistration(ctx context.Context, req *models.CompanyRegistrationRequest) (*models.CompanyRegistrationRequest, error) {
	if req.CompanyName == "" || req.CompanyEmail == "" {
		return nil, fmt.Errorf("%w: company name and email are required", e.ErrInvalidInput)
	}

	req.ID = uuid.New()
	req.Status = models.RegistrationPending
	req.SubmittedAt = s.now()
	if err := s.repo.CreateRegistrationRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to create registration request: %w", err)
	}
	return req, nil
}

// GetRegistrationRequest retrieves a registration request by ID.
func (s *CompanyService) GetRegistrationRequest(ctx context.Context, id uuid.UUID) (*models.CompanyRegistrationRequest, error) {
	return s.repo.GetRegistrationRequest(ctx, id)
}

// ApproveRegistration approves a PENDING request and, in the same
// transaction, creates the dealership company from the request's
// fields with the approver and timestamp stamped. The request becomes
// APPROVED and immutable to further review.
func (s *CompanyService) ApproveRegistration(ctx context.Context, requestID uuid.UUID, actor *models.User) (*models.DealershipCompany, error) {
	if !authz.CanAct(actor, authz.OpApproveRegistration, authz.Target{}) {
		return nil, fmt.Errorf("%w: only a super admin can approve company registrations", e.ErrUnauthorized)
	}

	var dealership *models.DealershipCompany
	err := s.repo.WithTransaction(ctx, func(repo *db.Repository) error {
		req, err := repo.GetRegistrationRequest(ctx, requestID)
		if err != nil {
			return err
		}

		next, err := workflow.NextRegistrationStatus(req.Status, workflow.ActionApprove)
		if err != nil {
			return err
		}

		reviewerID := actor.ID
		reviewedAt := s.now()
		dealership = &models.DealershipCompany{
			ID:              uuid.New(),
			Name:            req.CompanyName,
			Email:           req.CompanyEmail,
			Phone:           req.CompanyPhone,
			City:            req.CompanyCity,
			LicenseNumber:   req.CompanyLicenseNumber,
			LicenseDocument: req.CompanyLicenseDocument,
			IsActive:        true,
			ApprovedByID:    &reviewerID,
			ApprovedAt:      reviewedAt,
		}
		if err := repo.CreateDealership(ctx, dealership); err != nil {
			return err
		}

		req.Status = next
		req.ReviewedByID = &reviewerID
		req.ReviewedAt = &reviewedAt
		return repo.SaveRegistrationRequest(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	s.producer.Produce(events.CompanyApproved, dealership.ID, dealership)
	return dealership, nil
}

// RejectRegistration rejects a PENDING request with an optional
// reason. REJECTED is terminal.
func (s *CompanyService) RejectRegistration(ctx context.Context, requestID uuid.UUID, actor *models.User, reason string) (*models.CompanyRegistrationRequest, error) {
	if !authz.CanAct(actor, authz.OpRejectRegistration, authz.Target{}) {
		return nil, fmt.Errorf("%w: only a super admin can reject company registrations", e.ErrUnauthorized)
	}

	var req *models.CompanyRegistrationRequest
	err := s.repo.WithTransaction(ctx, func(repo *db.Repository) error {
		var err error
		req, err = repo.GetRegistrationRequest(ctx, requestID)
		if err != nil {
			return err
		}

		next, err := workflow.NextRegistrationStatus(req.Status, workflow.ActionReject)
		if err != nil {
			return err
		}

		reviewerID := actor.ID
		reviewedAt := s.now()
		req.Status = next
		req.ReviewedByID = &reviewerID
		req.ReviewedAt = &reviewedAt
		return repo.SaveRegistrationRequest(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	s.producer.Produce(events.CompanyRejected, req.ID, map[string]interface{}{
		"reason": reason,
	})
	return req, nil
}

// GetDealership retrieves a dealership by ID.
func (s *CompanyService) GetDealership(ctx context.Context, id uuid.UUID) (*models.DealershipCompany, error) {
	return s.repo.GetDealership(ctx, id)
}

// Deactivate takes the dealership off the marketplace.
func (s *CompanyService) Deactivate(ctx context.Context, dealershipID uuid.UUID, actor *models.User) (*models.DealershipCompany, error) {
	if !authz.CanAct(actor, authz.OpDeactivateDealership, authz.Target{}) {
		return nil, fmt.Errorf("%w: only a super admin can deactivate dealerships", e.ErrUnauthorized)
	}

	var dealership *models.DealershipCompany
	err := s.repo.WithTransaction(ctx, func(repo *db.Repository) error {
		var err error
		dealership, err = repo.GetDealership(ctx, dealershipID)
		if err != nil {
			return err
		}
		dealership.IsActive = false
		return repo.SaveDealership(ctx, dealership)
	})
	if err != nil {
		return nil, err
	}

	s.producer.Produce(events.CompanyDisabled, dealership.ID, dealership)
	return dealership, nil
}

// PromoteToAdmin makes the user a dealership admin of the given
// dealership, which must exist and be active.
func (s *CompanyService) PromoteToAdmin(ctx context.Context, userID, dealershipID uuid.UUID, actor *models.User) (*models.User, error) {
	if !authz.CanAct(actor, authz.OpPromoteAdmin, authz.Target{}) {
		return nil, fmt.Errorf("%w: only a super admin can promote dealership admins", e.ErrUnauthorized)
	}

	var user *models.User
	err := s.repo.WithTransaction(ctx, func(repo *db.Repository) error {
		dealership, err := repo.GetDealership(ctx, dealershipID)
		if err != nil {
			return err
		}
		if !dealership.IsActive {
			return fmt.Errorf("%w: dealership is not active", e.ErrInvalidInput)
		}

		user, err = repo.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		user.Role = models.RoleDealershipAdmin
		user.DealershipID = &dealership.ID
		return repo.SaveUser(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}
