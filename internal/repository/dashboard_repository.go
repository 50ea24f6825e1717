package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/revenuehq/tax-portal-api/internal/models"
)

// DashboardRepository aggregates portal figures for dashboard views.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository constructs the repository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// TaxpayerTotals aggregates one taxpayer's liability position.
type TaxpayerTotals struct {
	TotalAssessments int             `db:"total_assessments"`
	AmountOutstanding decimal.Decimal `db:"amount_outstanding"`
	AmountPaid       decimal.Decimal  `db:"amount_paid"`
	OverdueCount     int              `db:"overdue_count"`
}

// TaxpayerTotals computes assessment counts and amounts for one taxpayer.
// Overdue is derived in the query from the due date, consistent with the
// read-time Overdue semantics.
func (r *DashboardRepository) TaxpayerTotals(ctx context.Context, taxpayerID string) (*TaxpayerTotals, error) {
	const query = `SELECT
    COUNT(*) AS total_assessments,
    COALESCE(SUM(amount_due) FILTER (WHERE status <> 'Paid'), 0) AS amount_outstanding,
    COALESCE(SUM(amount_due) FILTER (WHERE status = 'Paid'), 0) AS amount_paid,
    COUNT(*) FILTER (WHERE status <> 'Paid' AND due_date < NOW()) AS overdue_count
FROM assessments WHERE taxpayer_id = $1`
	var totals TaxpayerTotals
	if err := r.db.GetContext(ctx, &totals, query, taxpayerID); err != nil {
		return nil, fmt.Errorf("taxpayer dashboard totals: %w", err)
	}
	return &totals, nil
}

// StaffTotals aggregates portal-wide figures.
type StaffTotals struct {
	Taxpayers        int             `db:"taxpayers"`
	TotalAssessments int             `db:"total_assessments"`
	RevenueCollected decimal.Decimal `db:"revenue_collected"`
	AmountOutstanding decimal.Decimal `db:"amount_outstanding"`
}

// StaffTotals computes registered taxpayer, assessment and revenue counts.
func (r *DashboardRepository) StaffTotals(ctx context.Context) (*StaffTotals, error) {
	query := fmt.Sprintf(`SELECT
    (SELECT COUNT(*) FROM profiles WHERE role = '%s' AND active = TRUE) AS taxpayers,
    (SELECT COUNT(*) FROM assessments) AS total_assessments,
    (SELECT COALESCE(SUM(amount), 0) FROM payments) AS revenue_collected,
    (SELECT COALESCE(SUM(amount_due), 0) FROM assessments WHERE status <> 'Paid') AS amount_outstanding`,
		models.RoleTaxpayer)
	var totals StaffTotals
	if err := r.db.GetContext(ctx, &totals, query); err != nil {
		return nil, fmt.Errorf("staff dashboard totals: %w", err)
	}
	return &totals, nil
}
