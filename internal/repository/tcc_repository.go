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

// TccRepository provides database access for clearance requests.
type TccRepository struct {
	db *sqlx.DB
}

// NewTccRepository constructs the repository.
func NewTccRepository(db *sqlx.DB) *TccRepository {
	return &TccRepository{db: db}
}

const tccColumns = `id, taxpayer_id, request_date, status`

const tccProfileJoin = `t.id, t.taxpayer_id, t.request_date, t.status,
       p.full_name AS profile_full_name, p.tin AS profile_tin, p.email AS profile_email, p.taxpayer_type AS profile_taxpayer_type`

// Upsert creates or overwrites the single live request for a taxpayer,
// keyed on taxpayer_id, resetting it to Pending with a fresh timestamp.
func (r *TccRepository) Upsert(ctx context.Context, taxpayerID string) (*models.TccRequest, error) {
	req := &models.TccRequest{
		ID:          uuid.NewString(),
		TaxpayerID:  taxpayerID,
		RequestDate: time.Now().UTC(),
		Status:      models.TccStatusPending,
	}
	query := fmt.Sprintf(`INSERT INTO tcc_requests (id, taxpayer_id, request_date, status)
VALUES ($1, $2, $3, $4)
ON CONFLICT (taxpayer_id)
DO UPDATE SET request_date = EXCLUDED.request_date, status = EXCLUDED.status
RETURNING %s`, tccColumns)
	var stored models.TccRequest
	if err := r.db.GetContext(ctx, &stored, query, req.ID, req.TaxpayerID, req.RequestDate, req.Status); err != nil {
		return nil, fmt.Errorf("upsert tcc request: %w", err)
	}
	return &stored, nil
}

// GetByTaxpayer returns the live request for a taxpayer, or sql.ErrNoRows
// when none has ever been filed.
func (r *TccRepository) GetByTaxpayer(ctx context.Context, taxpayerID string) (*models.TccRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM tcc_requests WHERE taxpayer_id = $1 LIMIT 1`, tccColumns)
	var req models.TccRequest
	if err := r.db.GetContext(ctx, &req, query, taxpayerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find tcc request for taxpayer: %w", err)
	}
	return &req, nil
}

// GetByID returns a single request.
func (r *TccRepository) GetByID(ctx context.Context, id string) (*models.TccRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM tcc_requests WHERE id = $1 LIMIT 1`, tccColumns)
	var req models.TccRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find tcc request by id: %w", err)
	}
	return &req, nil
}

// ListAll returns every live request joined with the owning taxpayer's
// profile, newest first.
func (r *TccRepository) ListAll(ctx context.Context) ([]models.TccRequestWithProfile, error) {
	query := fmt.Sprintf(`SELECT %s FROM tcc_requests t JOIN profiles p ON p.id = t.taxpayer_id ORDER BY t.request_date DESC`, tccProfileJoin)
	var rows []models.TccRequestWithProfile
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list tcc requests: %w", err)
	}
	return rows, nil
}

// UpdateStatus overwrites the request status and returns the updated row.
func (r *TccRepository) UpdateStatus(ctx context.Context, id string, status models.TccStatus) (*models.TccRequest, error) {
	query := fmt.Sprintf(`UPDATE tcc_requests SET status = $2 WHERE id = $1 RETURNING %s`, tccColumns)
	var req models.TccRequest
	if err := r.db.GetContext(ctx, &req, query, id, status); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("update tcc status: %w", err)
	}
	return &req, nil
}

// CountByStatus returns how many requests currently hold the status.
func (r *TccRepository) CountByStatus(ctx context.Context, status models.TccStatus) (int, error) {
	const query = `SELECT COUNT(*) FROM tcc_requests WHERE status = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, status); err != nil {
		return 0, fmt.Errorf("count tcc requests by status: %w", err)
	}
	return count, nil
}
