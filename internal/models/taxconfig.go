package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxConfiguration maps a tax type to its percentage rate. One row per
// type; the rate is read when an assessment is created and never
// re-applied to existing assessments.
type TaxConfiguration struct {
	TaxType   TaxType         `db:"tax_type" json:"tax_type"`
	Rate      decimal.Decimal `db:"rate" json:"rate"`
	UpdatedBy string          `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}
