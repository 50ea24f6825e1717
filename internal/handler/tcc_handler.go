package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/revenuehq/tax-portal-api/internal/dto"
	"github.com/revenuehq/tax-portal-api/internal/service"
	appErrors "github.com/revenuehq/tax-portal-api/pkg/errors"
	"github.com/revenuehq/tax-portal-api/pkg/response"
)

// TccHandler exposes tax clearance certificate endpoints.
type TccHandler struct {
	service *service.TccService
}

// NewTccHandler creates a new handler.
func NewTccHandler(svc *service.TccService) *TccHandler {
	return &TccHandler{service: svc}
}

// Request godoc
// @Summary Request a tax clearance certificate
// @Description Files or re-files the caller's clearance request
// @Tags Clearance
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /tcc [post]
func (h *TccHandler) Request(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	res, err := h.service.Request(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, res)
}

// Status godoc
// @Summary Get own clearance status
// @Description Returns Not Requested when the caller never filed
// @Tags Clearance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /tcc [get]
func (h *TccHandler) Status(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	res, err := h.service.Status(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// ListAll godoc
// @Summary List every clearance request
// @Description Staff review queue with taxpayer profiles
// @Tags Clearance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/tcc [get]
func (h *TccHandler) ListAll(c *gin.Context) {
	res, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// Review godoc
// @Summary Review a clearance request
// @Description Approve or reject a pending request
// @Tags Clearance
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.ReviewTccRequest true "Review payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/tcc/{id} [put]
func (h *TccHandler) Review(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ReviewTccRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}

	res, err := h.service.Review(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}
