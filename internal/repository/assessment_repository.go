package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/revenuehq/tax-portal-api/internal/models"
)

// AssessmentRepository provides database access for tax assessments.
type AssessmentRepository struct {
	db *sqlx.DB
}

// NewAssessmentRepository constructs the repository.
func NewAssessmentRepository(db *sqlx.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

const assessmentColumns = `id, taxpayer_id, tax_type, period, taxable_income, tax_rate_applied, amount_due, due_date, status, created_at`

const assessmentProfileJoin = `a.id, a.taxpayer_id, a.tax_type, a.period, a.taxable_income, a.tax_rate_applied, a.amount_due, a.due_date, a.status, a.created_at,
       p.full_name AS profile_full_name, p.tin AS profile_tin, p.email AS profile_email, p.taxpayer_type AS profile_taxpayer_type`

// Create inserts a new assessment row.
func (r *AssessmentRepository) Create(ctx context.Context, a *models.Assessment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO assessments (id, taxpayer_id, tax_type, period, taxable_income, tax_rate_applied, amount_due, due_date, status, created_at) VALUES (:id, :taxpayer_id, :tax_type, :period, :taxable_income, :tax_rate_applied, :amount_due, :due_date, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return fmt.Errorf("create assessment: %w", err)
	}
	return nil
}

// GetByID returns a single assessment.
func (r *AssessmentRepository) GetByID(ctx context.Context, id string) (*models.Assessment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assessments WHERE id = $1 LIMIT 1`, assessmentColumns)
	var a models.Assessment
	if err := r.db.GetContext(ctx, &a, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find assessment by id: %w", err)
	}
	return &a, nil
}

// ListByTaxpayer returns a taxpayer's assessments ordered by due date
// descending.
func (r *AssessmentRepository) ListByTaxpayer(ctx context.Context, taxpayerID string) ([]models.Assessment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assessments WHERE taxpayer_id = $1 ORDER BY due_date DESC`, assessmentColumns)
	var rows []models.Assessment
	if err := r.db.SelectContext(ctx, &rows, query, taxpayerID); err != nil {
		return nil, fmt.Errorf("list assessments for taxpayer: %w", err)
	}
	return rows, nil
}

// ListAll returns every assessment joined with the owning taxpayer's
// profile identity for staff views.
func (r *AssessmentRepository) ListAll(ctx context.Context) ([]models.AssessmentWithProfile, error) {
	query := fmt.Sprintf(`SELECT %s FROM assessments a JOIN profiles p ON p.id = a.taxpayer_id ORDER BY a.created_at DESC`, assessmentProfileJoin)
	var rows []models.AssessmentWithProfile
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list all assessments: %w", err)
	}
	return rows, nil
}
