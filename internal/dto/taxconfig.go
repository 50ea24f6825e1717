package dto

import (
	"github.com/shopspring/decimal"

	"github.com/revenuehq/tax-portal-api/internal/models"
)

// TaxConfigurationItem is one tax-type/rate pairing.
type TaxConfigurationItem struct {
	TaxType models.TaxType  `json:"tax_type" validate:"required"`
	Rate    decimal.Decimal `json:"rate"`
}

// UpdateTaxConfigurationsRequest replaces rates for the listed tax types.
type UpdateTaxConfigurationsRequest struct {
	Items []TaxConfigurationItem `json:"items" validate:"required,min=1,dive"`
}
