package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/revenuehq/tax-portal-api/internal/dto"
	"github.com/revenuehq/tax-portal-api/internal/models"
	"github.com/revenuehq/tax-portal-api/internal/service"
	appErrors "github.com/revenuehq/tax-portal-api/pkg/errors"
	"github.com/revenuehq/tax-portal-api/pkg/response"
)

// AssessmentHandler exposes self-assessment filing endpoints.
type AssessmentHandler struct {
	service *service.AssessmentService
}

// NewAssessmentHandler creates a new handler.
func NewAssessmentHandler(svc *service.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{service: svc}
}

// Create godoc
// @Summary File a self-assessment
// @Description Compute and record a tax assessment. Taxpayers always file
// @Description against their own profile; staff may file on a taxpayer's behalf.
// @Tags Assessments
// @Accept json
// @Produce json
// @Param payload body dto.CreateAssessmentRequest true "Assessment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /assessments [post]
func (h *AssessmentHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assessment payload"))
		return
	}

	taxpayerID := claims.UserID
	if claims.Role != models.RoleTaxpayer {
		if req.TaxpayerID == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "taxpayer_id is required when filing on a taxpayer's behalf"))
			return
		}
		taxpayerID = req.TaxpayerID
	}

	res, err := h.service.Create(c.Request.Context(), taxpayerID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, res)
}

// ListMine godoc
// @Summary List own assessments
// @Tags Assessments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /assessments [get]
func (h *AssessmentHandler) ListMine(c *gin.Context) {
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
// @Summary List every assessment
// @Description Staff view of all assessments with taxpayer profiles
// @Tags Assessments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/assessments [get]
func (h *AssessmentHandler) ListAll(c *gin.Context) {
	res, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// Get godoc
// @Summary Get one assessment
// @Description Taxpayers can only fetch their own assessments
// @Tags Assessments
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assessments/{id} [get]
func (h *AssessmentHandler) Get(c *gin.Context) {
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
