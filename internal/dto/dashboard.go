package dto

import (
	"github.com/shopspring/decimal"

	"github.com/revenuehq/tax-portal-api/internal/models"
)

// TaxpayerDashboardResponse captures the personalised taxpayer dashboard.
type TaxpayerDashboardResponse struct {
	TaxpayerID       string           `json:"taxpayer_id"`
	TotalAssessments int              `json:"total_assessments"`
	AmountOutstanding decimal.Decimal `json:"amount_outstanding"`
	AmountPaid       decimal.Decimal  `json:"amount_paid"`
	OverdueCount     int              `json:"overdue_count"`
	PendingDocuments int              `json:"pending_documents"`
	TccStatus        models.TccStatus `json:"tcc_status"`
	UnreadNotices    int              `json:"unread_notifications"`
}

// StaffDashboardResponse captures portal-wide indicators for officers and
// administrators.
type StaffDashboardResponse struct {
	Taxpayers        int             `json:"taxpayers"`
	TotalAssessments int             `json:"total_assessments"`
	RevenueCollected decimal.Decimal `json:"revenue_collected"`
	AmountOutstanding decimal.Decimal `json:"amount_outstanding"`
	PendingDocuments int             `json:"pending_documents"`
	PendingTccs      int             `json:"pending_tcc_requests"`
}
