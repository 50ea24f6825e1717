package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revenuehq/tax-portal-api/internal/dto"
	"github.com/revenuehq/tax-portal-api/internal/models"
	appErrors "github.com/revenuehq/tax-portal-api/pkg/errors"
)

// fanoutRecorder satisfies the notifier interfaces of every workflow
// service and records what was sent.
type fanoutRecorder struct {
	mu     sync.Mutex
	direct []models.Notification
	fanout []string
}

func (r *fanoutRecorder) Notify(ctx context.Context, userID, title, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.direct = append(r.direct, models.Notification{UserID: userID, Title: title, Message: message})
}

func (r *fanoutRecorder) NotifyRole(ctx context.Context, title, message string, roles ...models.UserRole) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fanout = append(r.fanout, title)
}

type assessmentRepoStub struct {
	created []*models.Assessment
	rows    []models.Assessment
	all     []models.AssessmentWithProfile
	err     error
}

func (s *assessmentRepoStub) Create(ctx context.Context, a *models.Assessment) error {
	if s.err != nil {
		return s.err
	}
	a.ID = "assess-1"
	s.created = append(s.created, a)
	return nil
}

func (s *assessmentRepoStub) GetByID(ctx context.Context, id string) (*models.Assessment, error) {
	for i := range s.rows {
		if s.rows[i].ID == id {
			return &s.rows[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *assessmentRepoStub) ListByTaxpayer(ctx context.Context, taxpayerID string) ([]models.Assessment, error) {
	return s.rows, s.err
}

func (s *assessmentRepoStub) ListAll(ctx context.Context) ([]models.AssessmentWithProfile, error) {
	return s.all, s.err
}

type rateReaderStub struct {
	rates map[models.TaxType]decimal.Decimal
}

func (s *rateReaderStub) Rate(ctx context.Context, taxType models.TaxType) (decimal.Decimal, error) {
	rate, ok := s.rates[taxType]
	if !ok {
		return decimal.Zero, appErrors.ErrConfigurationMissing
	}
	return rate, nil
}

func TestAssessmentCreateComputesExactLiability(t *testing.T) {
	repo := &assessmentRepoStub{}
	rates := &rateReaderStub{rates: map[models.TaxType]decimal.Decimal{
		models.TaxTypePersonalIncome: decimal.RequireFromString("7.5"),
	}}
	notifier := &fanoutRecorder{}
	svc := NewAssessmentService(repo, rates, notifier, nil, nil)

	resp, err := svc.Create(context.Background(), "tp-1", dto.CreateAssessmentRequest{
		TaxType:       models.TaxTypePersonalIncome,
		Period:        "2026-Q1",
		TaxableIncome: decimal.NewFromInt(200_000),
	})
	require.NoError(t, err)

	assert.True(t, resp.AmountDue.Equal(decimal.NewFromInt(15_000)), "got %s", resp.AmountDue)
	assert.True(t, resp.TaxRateApplied.Equal(decimal.RequireFromString("7.5")))
	assert.Equal(t, models.AssessmentStatusAssessed, resp.Status)

	// Due date is 30 calendar days out, truncated to the UTC date.
	want := resp.CreatedAt.AddDate(0, 0, assessmentDueDays)
	wantDue := time.Date(want.Year(), want.Month(), want.Day(), 0, 0, 0, 0, time.UTC)
	assert.True(t, resp.DueDate.Equal(wantDue), "got %s", resp.DueDate)
	assert.Equal(t, 0, resp.DueDate.Hour())

	require.Len(t, notifier.direct, 1)
	assert.Equal(t, "tp-1", notifier.direct[0].UserID)
	assert.Equal(t, "New Tax Assessment", notifier.direct[0].Title)
}

func TestAssessmentCreateFractionalRateStaysExact(t *testing.T) {
	repo := &assessmentRepoStub{}
	rates := &rateReaderStub{rates: map[models.TaxType]decimal.Decimal{
		models.TaxTypeBusiness: decimal.RequireFromString("12.5"),
	}}
	svc := NewAssessmentService(repo, rates, &fanoutRecorder{}, nil, nil)

	resp, err := svc.Create(context.Background(), "tp-1", dto.CreateAssessmentRequest{
		TaxType:       models.TaxTypeBusiness,
		Period:        "2026",
		TaxableIncome: decimal.RequireFromString("1000.01"),
	})
	require.NoError(t, err)
	assert.True(t, resp.AmountDue.Equal(decimal.RequireFromString("125.00125")), "got %s", resp.AmountDue)
}

func TestAssessmentCreateWithoutConfiguredRate(t *testing.T) {
	svc := NewAssessmentService(&assessmentRepoStub{}, &rateReaderStub{}, &fanoutRecorder{}, nil, nil)

	_, err := svc.Create(context.Background(), "tp-1", dto.CreateAssessmentRequest{
		TaxType:       models.TaxTypeWithholding,
		Period:        "2026-Q1",
		TaxableIncome: decimal.NewFromInt(1000),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConfigurationMissing.Code, appErrors.FromError(err).Code)
}

func TestAssessmentCreateRejectsNegativeIncome(t *testing.T) {
	svc := NewAssessmentService(&assessmentRepoStub{}, &rateReaderStub{}, &fanoutRecorder{}, nil, nil)

	_, err := svc.Create(context.Background(), "tp-1", dto.CreateAssessmentRequest{
		TaxType:       models.TaxTypePersonalIncome,
		Period:        "2026-Q1",
		TaxableIncome: decimal.NewFromInt(-1),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAssessmentListDerivesOverdueAtReadTime(t *testing.T) {
	now := time.Now().UTC()
	repo := &assessmentRepoStub{rows: []models.Assessment{
		{ID: "a-1", Status: models.AssessmentStatusPending, DueDate: now.Add(-24 * time.Hour)},
		{ID: "a-2", Status: models.AssessmentStatusPaid, DueDate: now.Add(-24 * time.Hour)},
		{ID: "a-3", Status: models.AssessmentStatusPending, DueDate: now.Add(24 * time.Hour)},
	}}
	svc := NewAssessmentService(repo, &rateReaderStub{}, &fanoutRecorder{}, nil, nil)

	rows, err := svc.ListForTaxpayer(context.Background(), "tp-1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, models.AssessmentStatusOverdue, rows[0].Status)
	assert.Equal(t, models.AssessmentStatusPaid, rows[1].Status)
	assert.Equal(t, models.AssessmentStatusPending, rows[2].Status)
}

func TestAssessmentGetEnforcesOwnership(t *testing.T) {
	repo := &assessmentRepoStub{rows: []models.Assessment{
		{ID: "a-1", TaxpayerID: "tp-1", DueDate: time.Now().Add(time.Hour)},
	}}
	svc := NewAssessmentService(repo, &rateReaderStub{}, &fanoutRecorder{}, nil, nil)

	_, err := svc.Get(context.Background(), "a-1", "tp-2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	resp, err := svc.Get(context.Background(), "a-1", "")
	require.NoError(t, err)
	assert.Equal(t, "a-1", resp.ID)
}
