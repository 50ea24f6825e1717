package handler

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/revenuehq/tax-portal-api/internal/dto"
	"github.com/revenuehq/tax-portal-api/internal/models"
	"github.com/revenuehq/tax-portal-api/internal/service"
	appErrors "github.com/revenuehq/tax-portal-api/pkg/errors"
	"github.com/revenuehq/tax-portal-api/pkg/response"
)

// PaymentHandler exposes payment settlement endpoints.
type PaymentHandler struct {
	service *service.PaymentService
}

// NewPaymentHandler creates a new handler.
func NewPaymentHandler(svc *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: svc}
}

// Settle godoc
// @Summary Settle an assessment
// @Description Record a payment against one of the caller's assessments.
// @Description When amount is omitted the full assessed amount is paid.
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body dto.SettlePaymentRequest true "Settlement payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /payments [post]
func (h *PaymentHandler) Settle(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.SettlePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment payload"))
		return
	}

	res, err := h.service.Settle(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, res)
}

// ListMine godoc
// @Summary List own payments
// @Tags Payments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /payments [get]
func (h *PaymentHandler) ListMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	res, err := h.service.ListForTaxpayer(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// ListAll godoc
// @Summary List every payment
// @Description Staff view of all recorded payments
// @Tags Payments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/payments [get]
func (h *PaymentHandler) ListAll(c *gin.Context) {
	res, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// Get godoc
// @Summary Get one payment
// @Description Taxpayers can only fetch their own payments
// @Tags Payments
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /payments/{id} [get]
func (h *PaymentHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	ownerID := claims.UserID
	if claims.Role != models.RoleTaxpayer {
		ownerID = ""
	}

	res, err := h.service.Get(c.Request.Context(), c.Param("id"), ownerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// DownloadReceipt godoc
// @Summary Download a payment receipt
// @Description Streams the receipt PDF referenced by a signed token
// @Tags Payments
// @Produce application/pdf
// @Param token query string true "Signed receipt token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Router /payments/receipt [get]
func (h *PaymentHandler) DownloadReceipt(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "receipt token required"))
		return
	}

	path, err := h.service.ResolveReceipt(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.FileAttachment(path, filepath.Base(path))
}
