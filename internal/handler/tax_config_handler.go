package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/revenuehq/tax-portal-api/internal/dto"
	"github.com/revenuehq/tax-portal-api/internal/service"
	appErrors "github.com/revenuehq/tax-portal-api/pkg/errors"
	"github.com/revenuehq/tax-portal-api/pkg/response"
)

// TaxConfigHandler exposes the tax-rate configuration endpoints.
type TaxConfigHandler struct {
	service *service.TaxConfigService
}

// NewTaxConfigHandler creates a new handler.
func NewTaxConfigHandler(svc *service.TaxConfigService) *TaxConfigHandler {
	return &TaxConfigHandler{service: svc}
}

// List godoc
// @Summary List tax rates
// @Description Current rate for every configured tax type
// @Tags Configuration
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /tax-config [get]
func (h *TaxConfigHandler) List(c *gin.Context) {
	configs, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, configs, nil)
}

// Update godoc
// @Summary Update tax rates
// @Description Replace rates for the submitted tax types in one transaction
// @Tags Configuration
// @Accept json
// @Produce json
// @Param payload body dto.UpdateTaxConfigurationsRequest true "Rates payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/tax-config [put]
func (h *TaxConfigHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.UpdateTaxConfigurationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid configuration payload"))
		return
	}

	configs, err := h.service.Update(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, configs, nil)
}
