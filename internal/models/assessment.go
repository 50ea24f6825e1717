package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxType identifies a tax category with a configured rate.
type TaxType string

const (
	TaxTypePersonalIncome TaxType = "Personal Income Tax"
	TaxTypeBusiness       TaxType = "Business Tax"
	TaxTypeWithholding    TaxType = "Withholding Tax"
)

// AssessmentStatus captures the assessment lifecycle.
type AssessmentStatus string

const (
	AssessmentStatusPending  AssessmentStatus = "Pending"
	AssessmentStatusAssessed AssessmentStatus = "Assessed"
	AssessmentStatusPaid     AssessmentStatus = "Paid"
	AssessmentStatusOverdue  AssessmentStatus = "Overdue"
)

// Assessment represents a computed tax liability for one taxpayer, period
// and tax type. The applied rate is frozen at creation time.
type Assessment struct {
	ID             string           `db:"id" json:"id"`
	TaxpayerID     string           `db:"taxpayer_id" json:"taxpayer_id"`
	TaxType        TaxType          `db:"tax_type" json:"tax_type"`
	Period         string           `db:"period" json:"period"`
	TaxableIncome  decimal.Decimal  `db:"taxable_income" json:"taxable_income"`
	TaxRateApplied decimal.Decimal  `db:"tax_rate_applied" json:"tax_rate_applied"`
	AmountDue      decimal.Decimal  `db:"amount_due" json:"amount_due"`
	DueDate        time.Time        `db:"due_date" json:"due_date"`
	Status         AssessmentStatus `db:"status" json:"status"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`

	Profile *ProfileStub `db:"-" json:"profile,omitempty"`
}

// EffectiveStatus derives the display status at read time. Overdue is never
// stored: an unpaid assessment past its due date reports Overdue.
func (a *Assessment) EffectiveStatus(now time.Time) AssessmentStatus {
	if a.Status == AssessmentStatusPaid {
		return a.Status
	}
	if now.After(a.DueDate) {
		return AssessmentStatusOverdue
	}
	return a.Status
}

// AssessmentWithProfile is the scan target for staff listings joined with
// the owning taxpayer's profile.
type AssessmentWithProfile struct {
	Assessment
	ProfileStub
}
