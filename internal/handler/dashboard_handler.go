package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/revenuehq/tax-portal-api/internal/dto"
	appErrors "github.com/revenuehq/tax-portal-api/pkg/errors"
	"github.com/revenuehq/tax-portal-api/pkg/response"
)

type dashboardService interface {
	Taxpayer(ctx context.Context, taxpayerID string) (*dto.TaxpayerDashboardResponse, error)
	Staff(ctx context.Context) (*dto.StaffDashboardResponse, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Taxpayer godoc
// @Summary Taxpayer dashboard summary
// @Description Assessment totals, pending documents, clearance status and
// @Description unread notifications for the calling taxpayer
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Taxpayer(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	summary, err := h.service.Taxpayer(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, summary, nil)
}

// Staff godoc
// @Summary Portal-wide dashboard summary
// @Description Registered taxpayers, revenue collected and review backlogs
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/dashboard [get]
func (h *DashboardHandler) Staff(c *gin.Context) {
	summary, err := h.service.Staff(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, summary, nil)
}
