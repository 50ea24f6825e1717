package models

import "time"

// TccStatus captures the tax-clearance certificate request lifecycle.
// NotRequested is implicit: a taxpayer with no row has never requested.
type TccStatus string

const (
	TccStatusNotRequested TccStatus = "Not Requested"
	TccStatusPending      TccStatus = "Pending"
	TccStatusApproved     TccStatus = "Approved"
	TccStatusRejected     TccStatus = "Rejected"
)

// TccRequest is the single live clearance request for a taxpayer. The row
// is keyed by taxpayer_id: re-requesting after rejection overwrites it.
type TccRequest struct {
	ID          string    `db:"id" json:"id"`
	TaxpayerID  string    `db:"taxpayer_id" json:"taxpayer_id"`
	RequestDate time.Time `db:"request_date" json:"request_date"`
	Status      TccStatus `db:"status" json:"status"`

	Profile *ProfileStub `db:"-" json:"profile,omitempty"`
}

// TccRequestWithProfile is the scan target for staff listings.
type TccRequestWithProfile struct {
	TccRequest
	ProfileStub
}
