package dto

import (
	"time"

	"github.com/revenuehq/tax-portal-api/internal/models"
)

// ReviewTccRequest sets a clearance request's outcome.
type ReviewTccRequest struct {
	Status models.TccStatus `json:"status" validate:"required,oneof=Pending Approved Rejected"`
}

// TccRequestResponse is the API shape of a clearance request. For a
// taxpayer with no live row, Status reports Not Requested and the other
// fields are zero.
type TccRequestResponse struct {
	ID          string              `json:"id,omitempty"`
	TaxpayerID  string              `json:"taxpayer_id"`
	RequestDate *time.Time          `json:"request_date,omitempty"`
	Status      models.TccStatus    `json:"status"`
	Profile     *models.ProfileStub `json:"profile,omitempty"`
}
