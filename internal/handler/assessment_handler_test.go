package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/revenuehq/tax-portal-api/internal/dto"
	"github.com/revenuehq/tax-portal-api/internal/middleware"
	"github.com/revenuehq/tax-portal-api/internal/models"
	"github.com/revenuehq/tax-portal-api/internal/service"
)

type assessmentRepoFake struct {
	created []*models.Assessment
	byID    map[string]*models.Assessment
}

func (f *assessmentRepoFake) Create(_ context.Context, a *models.Assessment) error {
	a.ID = "as-1"
	f.created = append(f.created, a)
	return nil
}

func (f *assessmentRepoFake) GetByID(_ context.Context, id string) (*models.Assessment, error) {
	if a, ok := f.byID[id]; ok {
		return a, nil
	}
	return nil, sql.ErrNoRows
}

func (f *assessmentRepoFake) ListByTaxpayer(_ context.Context, taxpayerID string) ([]models.Assessment, error) {
	var out []models.Assessment
	for _, a := range f.byID {
		if a.TaxpayerID == taxpayerID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *assessmentRepoFake) ListAll(context.Context) ([]models.AssessmentWithProfile, error) {
	return nil, nil
}

type rateReaderFake struct {
	rate decimal.Decimal
}

func (f *rateReaderFake) Rate(context.Context, models.TaxType) (decimal.Decimal, error) {
	return f.rate, nil
}

type notifierFake struct {
	notified []string
}

func (f *notifierFake) Notify(_ context.Context, userID, _, _ string) {
	f.notified = append(f.notified, userID)
}

func newAssessmentHandlerFixture(repo *assessmentRepoFake) *AssessmentHandler {
	svc := service.NewAssessmentService(repo, &rateReaderFake{rate: decimal.NewFromFloat(7.5)}, &notifierFake{}, nil, nil)
	return NewAssessmentHandler(svc)
}

func TestAssessmentHandlerCreateFilesForCaller(t *testing.T) {
	gin.SetMode(gin.TestMode)

	repo := &assessmentRepoFake{byID: map[string]*models.Assessment{}}
	h := newAssessmentHandlerFixture(repo)

	body, _ := json.Marshal(dto.CreateAssessmentRequest{
		TaxType:       models.TaxTypePersonalIncome,
		Period:        "2026",
		TaxableIncome: decimal.NewFromInt(100000),
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodPost, "/assessments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "tp-1", Role: models.RoleTaxpayer})

	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, repo.created, 1)
	require.Equal(t, "tp-1", repo.created[0].TaxpayerID)
	require.True(t, repo.created[0].AmountDue.Equal(decimal.NewFromInt(7500)))
}

func TestAssessmentHandlerCreateTaxpayerCannotFileForOthers(t *testing.T) {
	gin.SetMode(gin.TestMode)

	repo := &assessmentRepoFake{byID: map[string]*models.Assessment{}}
	h := newAssessmentHandlerFixture(repo)

	body, _ := json.Marshal(dto.CreateAssessmentRequest{
		TaxpayerID:    "tp-other",
		TaxType:       models.TaxTypeBusiness,
		Period:        "2026",
		TaxableIncome: decimal.NewFromInt(1000),
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodPost, "/assessments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "tp-1", Role: models.RoleTaxpayer})

	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, "tp-1", repo.created[0].TaxpayerID)
}

func TestAssessmentHandlerCreateStaffNeedsTaxpayerID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	repo := &assessmentRepoFake{byID: map[string]*models.Assessment{}}
	h := newAssessmentHandlerFixture(repo)

	body, _ := json.Marshal(dto.CreateAssessmentRequest{
		TaxType:       models.TaxTypeBusiness,
		Period:        "2026",
		TaxableIncome: decimal.NewFromInt(1000),
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodPost, "/assessments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "off-1", Role: models.RoleOfficer})

	h.Create(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Empty(t, repo.created)
}

func TestAssessmentHandlerCreateStaffFilesOnBehalf(t *testing.T) {
	gin.SetMode(gin.TestMode)

	repo := &assessmentRepoFake{byID: map[string]*models.Assessment{}}
	h := newAssessmentHandlerFixture(repo)

	body, _ := json.Marshal(dto.CreateAssessmentRequest{
		TaxpayerID:    "tp-9",
		TaxType:       models.TaxTypeWithholding,
		Period:        "2026-Q1",
		TaxableIncome: decimal.NewFromInt(1000),
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodPost, "/assessments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "off-1", Role: models.RoleOfficer})

	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, "tp-9", repo.created[0].TaxpayerID)
}

func TestAssessmentHandlerCreateRejectsMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := newAssessmentHandlerFixture(&assessmentRepoFake{byID: map[string]*models.Assessment{}})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodPost, "/assessments", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "tp-1", Role: models.RoleTaxpayer})

	h.Create(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAssessmentHandlerCreateRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := newAssessmentHandlerFixture(&assessmentRepoFake{byID: map[string]*models.Assessment{}})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/assessments", nil)

	h.Create(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAssessmentHandlerGetEnforcesOwnership(t *testing.T) {
	gin.SetMode(gin.TestMode)

	repo := &assessmentRepoFake{byID: map[string]*models.Assessment{
		"as-1": {ID: "as-1", TaxpayerID: "tp-1", Status: models.AssessmentStatusPending},
	}}
	h := newAssessmentHandlerFixture(repo)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/assessments/as-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "as-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "tp-2", Role: models.RoleTaxpayer})

	h.Get(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAssessmentHandlerGetStaffSkipsOwnership(t *testing.T) {
	gin.SetMode(gin.TestMode)

	repo := &assessmentRepoFake{byID: map[string]*models.Assessment{
		"as-1": {ID: "as-1", TaxpayerID: "tp-1", Status: models.AssessmentStatusPending},
	}}
	h := newAssessmentHandlerFixture(repo)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/assessments/as-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "as-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "off-1", Role: models.RoleOfficer})

	h.Get(c)

	require.Equal(t, http.StatusOK, w.Code)
}
