package dto

import (
	"time"

	"github.com/revenuehq/tax-portal-api/internal/models"
)

// ReviewDocumentRequest sets a document's review outcome.
type ReviewDocumentRequest struct {
	Status models.DocumentStatus `json:"status" validate:"required,oneof='Pending Review' Approved Rejected"`
}

// DocumentResponse is the API shape of an uploaded document.
type DocumentResponse struct {
	ID           string                `json:"id"`
	TaxpayerID   string                `json:"taxpayer_id"`
	DocumentName string                `json:"document_name"`
	DocumentType string                `json:"document_type"`
	Status       models.DocumentStatus `json:"status"`
	UploadDate   time.Time             `json:"upload_date"`
	FileURL      *string               `json:"file_url,omitempty"`
	Profile      *models.ProfileStub   `json:"profile,omitempty"`
}
