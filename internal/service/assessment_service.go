package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/revenuehq/tax-portal-api/internal/dto"
	"github.com/revenuehq/tax-portal-api/internal/models"
	appErrors "github.com/revenuehq/tax-portal-api/pkg/errors"
)

// assessmentDueDays is how many calendar days a taxpayer has to pay a
// new liability. The due date is a UTC date, so the liability flips to
// overdue at a day boundary rather than mid-day.
const assessmentDueDays = 30

type assessmentRepository interface {
	Create(ctx context.Context, a *models.Assessment) error
	GetByID(ctx context.Context, id string) (*models.Assessment, error)
	ListByTaxpayer(ctx context.Context, taxpayerID string) ([]models.Assessment, error)
	ListAll(ctx context.Context) ([]models.AssessmentWithProfile, error)
}

type assessmentRateReader interface {
	Rate(ctx context.Context, taxType models.TaxType) (decimal.Decimal, error)
}

type assessmentNotifier interface {
	Notify(ctx context.Context, userID, title, message string)
}

// AssessmentService computes and records tax liabilities. The amount due
// is income times the configured rate over one hundred, calculated in
// exact decimal arithmetic, and the applied rate is frozen on the row so
// later rate changes never alter an existing liability.
type AssessmentService struct {
	repo      assessmentRepository
	rates     assessmentRateReader
	notifier  assessmentNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssessmentService constructs an AssessmentService.
func NewAssessmentService(repo assessmentRepository, rates assessmentRateReader, notifier assessmentNotifier, validate *validator.Validate, logger *zap.Logger) *AssessmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssessmentService{repo: repo, rates: rates, notifier: notifier, validator: validate, logger: logger}
}

// Create files a new assessment for the taxpayer. The caller has already
// resolved which taxpayer the filing belongs to.
func (s *AssessmentService) Create(ctx context.Context, taxpayerID string, req dto.CreateAssessmentRequest) (*dto.AssessmentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assessment payload")
	}
	if req.TaxableIncome.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "taxable income cannot be negative")
	}

	rate, err := s.rates.Rate(ctx, req.TaxType)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	due := now.AddDate(0, 0, assessmentDueDays)
	assessment := &models.Assessment{
		TaxpayerID:     taxpayerID,
		TaxType:        req.TaxType,
		Period:         req.Period,
		TaxableIncome:  req.TaxableIncome,
		TaxRateApplied: rate,
		AmountDue:      req.TaxableIncome.Mul(rate).Div(decimal.NewFromInt(100)),
		DueDate:        time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC),
		Status:         models.AssessmentStatusAssessed,
		CreatedAt:      now,
	}
	if err := s.repo.Create(ctx, assessment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assessment")
	}

	s.notifier.Notify(ctx, taxpayerID, "New Tax Assessment",
		fmt.Sprintf("A %s assessment for %s has been generated. Amount due: %s.",
			assessment.TaxType, assessment.Period, assessment.AmountDue.StringFixed(2)))

	return assessmentResponse(assessment, now), nil
}

// Get returns one assessment. Taxpayers can only read their own rows;
// staff callers pass an empty taxpayerID to skip the ownership check.
func (s *AssessmentService) Get(ctx context.Context, id, taxpayerID string) (*dto.AssessmentResponse, error) {
	assessment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessment")
	}
	if taxpayerID != "" && assessment.TaxpayerID != taxpayerID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
	}
	return assessmentResponse(assessment, time.Now().UTC()), nil
}

// ListForTaxpayer returns the taxpayer's own assessments with derived
// statuses.
func (s *AssessmentService) ListForTaxpayer(ctx context.Context, taxpayerID string) ([]dto.AssessmentResponse, error) {
	rows, err := s.repo.ListByTaxpayer(ctx, taxpayerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assessments")
	}
	now := time.Now().UTC()
	out := make([]dto.AssessmentResponse, 0, len(rows))
	for i := range rows {
		out = append(out, *assessmentResponse(&rows[i], now))
	}
	return out, nil
}

// ListAll returns every assessment with the owning taxpayer's identity for
// staff views.
func (s *AssessmentService) ListAll(ctx context.Context) ([]dto.AssessmentResponse, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assessments")
	}
	now := time.Now().UTC()
	out := make([]dto.AssessmentResponse, 0, len(rows))
	for i := range rows {
		resp := assessmentResponse(&rows[i].Assessment, now)
		profile := rows[i].ProfileStub
		resp.Profile = &profile
		out = append(out, *resp)
	}
	return out, nil
}

func assessmentResponse(a *models.Assessment, now time.Time) *dto.AssessmentResponse {
	return &dto.AssessmentResponse{
		ID:             a.ID,
		TaxpayerID:     a.TaxpayerID,
		TaxType:        a.TaxType,
		Period:         a.Period,
		TaxableIncome:  a.TaxableIncome,
		TaxRateApplied: a.TaxRateApplied,
		AmountDue:      a.AmountDue,
		DueDate:        a.DueDate,
		Status:         a.EffectiveStatus(now),
		CreatedAt:      a.CreatedAt,
		Profile:        a.Profile,
	}
}
