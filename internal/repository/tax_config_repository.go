package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/revenuehq/tax-portal-api/internal/models"
)

// TaxConfigRepository persists the tax-type rate table.
type TaxConfigRepository struct {
	db *sqlx.DB
}

// NewTaxConfigRepository constructs the repository.
func NewTaxConfigRepository(db *sqlx.DB) *TaxConfigRepository {
	return &TaxConfigRepository{db: db}
}

// List returns every configured tax type and rate.
func (r *TaxConfigRepository) List(ctx context.Context) ([]models.TaxConfiguration, error) {
	const query = `SELECT tax_type, rate, updated_by, updated_at FROM tax_configurations ORDER BY tax_type ASC`
	var configs []models.TaxConfiguration
	if err := r.db.SelectContext(ctx, &configs, query); err != nil {
		return nil, fmt.Errorf("list tax configurations: %w", err)
	}
	return configs, nil
}

// Get fetches the configuration for a single tax type.
func (r *TaxConfigRepository) Get(ctx context.Context, taxType models.TaxType) (*models.TaxConfiguration, error) {
	const query = `SELECT tax_type, rate, updated_by, updated_at FROM tax_configurations WHERE tax_type = $1`
	var cfg models.TaxConfiguration
	if err := r.db.GetContext(ctx, &cfg, query, taxType); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// BulkUpsert replaces rates for the provided tax types within a
// transaction, keyed on tax_type.
func (r *TaxConfigRepository) BulkUpsert(ctx context.Context, cfgs []models.TaxConfiguration) error {
	if len(cfgs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tax configuration tx: %w", err)
	}
	const query = `INSERT INTO tax_configurations (tax_type, rate, updated_by, updated_at)
VALUES (:tax_type, :rate, :updated_by, :updated_at)
ON CONFLICT (tax_type)
DO UPDATE SET rate = EXCLUDED.rate, updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`
	for i := range cfgs {
		cfgs[i].UpdatedAt = time.Now().UTC()
		if _, err := tx.NamedExecContext(ctx, query, cfgs[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert tax configuration: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tax configuration tx: %w", err)
	}
	return nil
}
