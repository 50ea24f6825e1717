package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/revenuehq/tax-portal-api/internal/models"
)

// CreateAssessmentRequest captures a self-filing or a manual assessment.
// TaxpayerID is only honoured for officer/admin callers; taxpayers always
// file against their own profile.
type CreateAssessmentRequest struct {
	TaxpayerID    string          `json:"taxpayer_id"`
	TaxType       models.TaxType  `json:"tax_type" validate:"required"`
	Period        string          `json:"period" validate:"required"`
	TaxableIncome decimal.Decimal `json:"taxable_income"`
}

// AssessmentResponse is the API shape of an assessment. Status carries the
// derived value (Overdue when unpaid past due date).
type AssessmentResponse struct {
	ID             string                  `json:"id"`
	TaxpayerID     string                  `json:"taxpayer_id"`
	TaxType        models.TaxType          `json:"tax_type"`
	Period         string                  `json:"period"`
	TaxableIncome  decimal.Decimal         `json:"taxable_income"`
	TaxRateApplied decimal.Decimal         `json:"tax_rate_applied"`
	AmountDue      decimal.Decimal         `json:"amount_due"`
	DueDate        time.Time               `json:"due_date"`
	Status         models.AssessmentStatus `json:"status"`
	CreatedAt      time.Time               `json:"created_at"`
	Profile        *models.ProfileStub     `json:"profile,omitempty"`
}
