package handler

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/revenuehq/tax-portal-api/internal/dto"
	"github.com/revenuehq/tax-portal-api/internal/service"
	appErrors "github.com/revenuehq/tax-portal-api/pkg/errors"
	"github.com/revenuehq/tax-portal-api/pkg/response"
)

// DocumentHandler exposes supporting-document endpoints.
type DocumentHandler struct {
	service *service.DocumentService
}

// NewDocumentHandler creates a new handler.
func NewDocumentHandler(svc *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{service: svc}
}

// Upload godoc
// @Summary Upload a supporting document
// @Description Multipart upload, recorded as Pending Review
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Document file"
// @Param document_type formData string true "Document type"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /documents [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "document file required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to read uploaded file"))
		return
	}
	defer file.Close()

	res, err := h.service.Upload(c.Request.Context(), claims.UserID, service.DocumentUpload{
		FileName:     fileHeader.Filename,
		DocumentType: c.PostForm("document_type"),
		ContentType:  fileHeader.Header.Get("Content-Type"),
		Size:         fileHeader.Size,
		Content:      file,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, res)
}

// ListMine godoc
// @Summary List own documents
// @Tags Documents
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /documents [get]
func (h *DocumentHandler) ListMine(c *gin.Context) {
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
// @Summary List every document
// @Description Staff review queue with taxpayer profiles
// @Tags Documents
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/documents [get]
func (h *DocumentHandler) ListAll(c *gin.Context) {
	res, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// Review godoc
// @Summary Review a document
// @Description Set a document's review outcome and notify the owner
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body dto.ReviewDocumentRequest true "Review payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/documents/{id} [put]
func (h *DocumentHandler) Review(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ReviewDocumentRequest
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

// Download godoc
// @Summary Download a document
// @Description Resolves a signed token to the stored file
// @Tags Documents
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /documents/download [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "download token required"))
		return
	}

	path, err := h.service.ResolveDownload(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.FileAttachment(path, filepath.Base(path))
}
