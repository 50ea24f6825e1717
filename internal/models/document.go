package models

import "time"

// DocumentStatus captures the review lifecycle of an uploaded document.
type DocumentStatus string

const (
	DocumentStatusPendingReview DocumentStatus = "Pending Review"
	DocumentStatusApproved      DocumentStatus = "Approved"
	DocumentStatusRejected      DocumentStatus = "Rejected"
)

// Document represents an uploaded evidence file awaiting officer review.
// Only the status mutates after creation.
type Document struct {
	ID           string         `db:"id" json:"id"`
	TaxpayerID   string         `db:"taxpayer_id" json:"taxpayer_id"`
	DocumentName string         `db:"document_name" json:"document_name"`
	DocumentType string         `db:"document_type" json:"document_type"`
	StoragePath  string         `db:"storage_path" json:"storage_path"`
	Status       DocumentStatus `db:"status" json:"status"`
	UploadDate   time.Time      `db:"upload_date" json:"upload_date"`

	Profile *ProfileStub `db:"-" json:"profile,omitempty"`
}

// DocumentWithProfile is the scan target for staff listings.
type DocumentWithProfile struct {
	Document
	ProfileStub
}
