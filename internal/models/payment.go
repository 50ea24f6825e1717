package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// HighValueThreshold is the fixed amount above which admins are alerted
// about a settlement.
var HighValueThreshold = decimal.NewFromInt(50_000)

// Payment records a settlement against an assessment. Rows are created
// only inside the settlement transaction and never mutated.
type Payment struct {
	ID           string          `db:"id" json:"id"`
	AssessmentID string          `db:"assessment_id" json:"assessment_id"`
	TaxpayerID   string          `db:"taxpayer_id" json:"taxpayer_id"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	PaymentDate  time.Time       `db:"payment_date" json:"payment_date"`
	ReceiptPath  *string         `db:"receipt_path" json:"receipt_path,omitempty"`
}
