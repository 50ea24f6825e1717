package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/revenuehq/tax-portal-api/internal/models"
	appErrors "github.com/revenuehq/tax-portal-api/pkg/errors"
)

// PaymentRepository provides database access for payment settlement.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Settle atomically verifies ownership, transitions the assessment to Paid
// and records the payment. The status check-and-set and the payment insert
// run inside one transaction so no caller ever observes a partial state
// and a concurrent settle of the same assessment cannot record twice.
func (r *PaymentRepository) Settle(ctx context.Context, assessmentID, taxpayerID string, amount decimal.Decimal) (*models.Payment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin settlement tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const update = `UPDATE assessments SET status = $3 WHERE id = $1 AND taxpayer_id = $2 AND status <> $3`
	res, err := tx.ExecContext(ctx, update, assessmentID, taxpayerID, models.AssessmentStatusPaid)
	if err != nil {
		return nil, fmt.Errorf("mark assessment paid: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("settlement rows affected: %w", err)
	}
	if affected == 0 {
		var status models.AssessmentStatus
		err := tx.GetContext(ctx, &status, `SELECT status FROM assessments WHERE id = $1 AND taxpayer_id = $2`, assessmentID, taxpayerID)
		if err == sql.ErrNoRows {
			return nil, appErrors.ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("inspect assessment for settlement: %w", err)
		}
		return nil, appErrors.ErrAlreadySettled
	}

	payment := &models.Payment{
		ID:           uuid.NewString(),
		AssessmentID: assessmentID,
		TaxpayerID:   taxpayerID,
		Amount:       amount,
		PaymentDate:  time.Now().UTC(),
	}
	const insert = `INSERT INTO payments (id, assessment_id, taxpayer_id, amount, payment_date) VALUES (:id, :assessment_id, :taxpayer_id, :amount, :payment_date)`
	if _, err := tx.NamedExecContext(ctx, insert, payment); err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit settlement tx: %w", err)
	}
	return payment, nil
}

// GetByID returns a single payment.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	const query = `SELECT id, assessment_id, taxpayer_id, amount, payment_date, receipt_path FROM payments WHERE id = $1 LIMIT 1`
	var p models.Payment
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find payment by id: %w", err)
	}
	return &p, nil
}

// ListByTaxpayer returns a taxpayer's payment history, most recent first.
func (r *PaymentRepository) ListByTaxpayer(ctx context.Context, taxpayerID string) ([]models.Payment, error) {
	const query = `SELECT id, assessment_id, taxpayer_id, amount, payment_date, receipt_path FROM payments WHERE taxpayer_id = $1 ORDER BY payment_date DESC`
	var rows []models.Payment
	if err := r.db.SelectContext(ctx, &rows, query, taxpayerID); err != nil {
		return nil, fmt.Errorf("list payments for taxpayer: %w", err)
	}
	return rows, nil
}

// ListAll returns every payment, most recent first.
func (r *PaymentRepository) ListAll(ctx context.Context) ([]models.Payment, error) {
	const query = `SELECT id, assessment_id, taxpayer_id, amount, payment_date, receipt_path FROM payments ORDER BY payment_date DESC`
	var rows []models.Payment
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return rows, nil
}

// UpdateReceiptPath stores the rendered receipt location for a payment.
func (r *PaymentRepository) UpdateReceiptPath(ctx context.Context, id, path string) error {
	const query = `UPDATE payments SET receipt_path = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, path); err != nil {
		return fmt.Errorf("update receipt path: %w", err)
	}
	return nil
}
