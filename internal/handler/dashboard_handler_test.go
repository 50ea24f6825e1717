package handler

import (
	"context"
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
	appErrors "github.com/revenuehq/tax-portal-api/pkg/errors"
)

type fakeDashboardSrv struct {
	taxpayer *dto.TaxpayerDashboardResponse
	staff    *dto.StaffDashboardResponse
	err      error

	taxpayerID string
}

func (f *fakeDashboardSrv) Taxpayer(_ context.Context, taxpayerID string) (*dto.TaxpayerDashboardResponse, error) {
	f.taxpayerID = taxpayerID
	if f.err != nil {
		return nil, f.err
	}
	return f.taxpayer, nil
}

func (f *fakeDashboardSrv) Staff(context.Context) (*dto.StaffDashboardResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.staff, nil
}

func TestDashboardHandlerTaxpayerScopesToCaller(t *testing.T) {
	gin.SetMode(gin.TestMode)

	srv := &fakeDashboardSrv{taxpayer: &dto.TaxpayerDashboardResponse{
		TaxpayerID:       "tp-1",
		TotalAssessments: 3,
		AmountPaid:       decimal.NewFromInt(5000),
		TccStatus:        models.TccStatusApproved,
	}}
	h := NewDashboardHandler(srv)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "tp-1", Role: models.RoleTaxpayer})

	h.Taxpayer(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "tp-1", srv.taxpayerID)

	var envelope struct {
		Data dto.TaxpayerDashboardResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, 3, envelope.Data.TotalAssessments)
	require.Equal(t, models.TccStatusApproved, envelope.Data.TccStatus)
}

func TestDashboardHandlerTaxpayerRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewDashboardHandler(&fakeDashboardSrv{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard", nil)

	h.Taxpayer(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDashboardHandlerStaffReturnsPortalTotals(t *testing.T) {
	gin.SetMode(gin.TestMode)

	srv := &fakeDashboardSrv{staff: &dto.StaffDashboardResponse{
		Taxpayers:        42,
		RevenueCollected: decimal.NewFromInt(120000),
		PendingTccs:      4,
	}}
	h := NewDashboardHandler(srv)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "off-1", Role: models.RoleOfficer})

	h.Staff(c)

	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data dto.StaffDashboardResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, 42, envelope.Data.Taxpayers)
	require.Equal(t, 4, envelope.Data.PendingTccs)
}

func TestDashboardHandlerStaffPropagatesServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewDashboardHandler(&fakeDashboardSrv{err: appErrors.ErrInternal})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "adm-1", Role: models.RoleAdmin})

	h.Staff(c)

	require.Equal(t, http.StatusInternalServerError, w.Code)
}
