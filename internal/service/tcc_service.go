package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/revenuehq/tax-portal-api/internal/dto"
	"github.com/revenuehq/tax-portal-api/internal/models"
	appErrors "github.com/revenuehq/tax-portal-api/pkg/errors"
)

type tccRepository interface {
	Upsert(ctx context.Context, taxpayerID string) (*models.TccRequest, error)
	GetByTaxpayer(ctx context.Context, taxpayerID string) (*models.TccRequest, error)
	ListAll(ctx context.Context) ([]models.TccRequestWithProfile, error)
	UpdateStatus(ctx context.Context, id string, status models.TccStatus) (*models.TccRequest, error)
}

type tccNotifier interface {
	Notify(ctx context.Context, userID, title, message string)
	NotifyRole(ctx context.Context, title, message string, roles ...models.UserRole)
}

type tccAuditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// TccService manages tax clearance certificate requests. Each taxpayer has
// at most one live request: requesting again after a rejection resets the
// same row to Pending.
type TccService struct {
	repo      tccRepository
	notifier  tccNotifier
	audit     tccAuditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTccService constructs a TccService.
func NewTccService(repo tccRepository, notifier tccNotifier, audit tccAuditLogger, validate *validator.Validate, logger *zap.Logger) *TccService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TccService{repo: repo, notifier: notifier, audit: audit, validator: validate, logger: logger}
}

// Request files (or re-files) the taxpayer's clearance request and tells
// the review staff about it.
func (s *TccService) Request(ctx context.Context, taxpayerID string) (*dto.TccRequestResponse, error) {
	req, err := s.repo.Upsert(ctx, taxpayerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to file clearance request")
	}

	s.notifier.NotifyRole(ctx, "New TCC Request",
		"A taxpayer has requested a tax clearance certificate.",
		models.RoleOfficer, models.RoleAdmin)

	return tccResponse(req), nil
}

// Status returns the taxpayer's clearance standing. A taxpayer who has
// never filed reports Not Requested rather than an error.
func (s *TccService) Status(ctx context.Context, taxpayerID string) (*dto.TccRequestResponse, error) {
	req, err := s.repo.GetByTaxpayer(ctx, taxpayerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &dto.TccRequestResponse{
				TaxpayerID: taxpayerID,
				Status:     models.TccStatusNotRequested,
			}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load clearance request")
	}
	return tccResponse(req), nil
}

// Review sets a clearance request's outcome and tells the owner.
func (s *TccService) Review(ctx context.Context, reviewerID, requestID string, req dto.ReviewTccRequest) (*dto.TccRequestResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}

	updated, err := s.repo.UpdateStatus(ctx, requestID, req.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "clearance request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update clearance request")
	}

	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &reviewerID,
		Action:     models.AuditActionTccReview,
		Resource:   "tcc_request",
		ResourceID: &updated.ID,
		NewValues:  []byte(fmt.Sprintf(`{"status":%q}`, updated.Status)),
	}); err != nil {
		s.logger.Warn("failed to record clearance review audit log", zap.Error(err))
	}

	s.notifier.Notify(ctx, updated.TaxpayerID, fmt.Sprintf("TCC Request %s", updated.Status),
		fmt.Sprintf("Your tax clearance certificate request is now %s.", updated.Status))

	return tccResponse(updated), nil
}

// ListAll returns every clearance request with owner identities for staff
// review queues.
func (s *TccService) ListAll(ctx context.Context) ([]dto.TccRequestResponse, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list clearance requests")
	}
	out := make([]dto.TccRequestResponse, 0, len(rows))
	for i := range rows {
		profile := rows[i].ProfileStub
		resp := tccResponse(&rows[i].TccRequest)
		resp.Profile = &profile
		out = append(out, *resp)
	}
	return out, nil
}

func tccResponse(req *models.TccRequest) *dto.TccRequestResponse {
	date := req.RequestDate
	return &dto.TccRequestResponse{
		ID:          req.ID,
		TaxpayerID:  req.TaxpayerID,
		RequestDate: &date,
		Status:      req.Status,
	}
}
