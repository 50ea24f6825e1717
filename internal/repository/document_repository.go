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

// DocumentRepository provides database access for uploaded documents.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `id, taxpayer_id, document_name, document_type, storage_path, status, upload_date`

const documentProfileJoin = `d.id, d.taxpayer_id, d.document_name, d.document_type, d.storage_path, d.status, d.upload_date,
       p.full_name AS profile_full_name, p.tin AS profile_tin, p.email AS profile_email, p.taxpayer_type AS profile_taxpayer_type`

// Create inserts a new document row with status Pending Review.
func (r *DocumentRepository) Create(ctx context.Context, d *models.Document) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.UploadDate.IsZero() {
		d.UploadDate = time.Now().UTC()
	}
	const query = `INSERT INTO documents (id, taxpayer_id, document_name, document_type, storage_path, status, upload_date) VALUES (:id, :taxpayer_id, :document_name, :document_type, :storage_path, :status, :upload_date)`
	if _, err := r.db.NamedExecContext(ctx, query, d); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// GetByID returns a single document.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE id = $1 LIMIT 1`, documentColumns)
	var d models.Document
	if err := r.db.GetContext(ctx, &d, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find document by id: %w", err)
	}
	return &d, nil
}

// ListByTaxpayer returns a taxpayer's documents, most recent first.
func (r *DocumentRepository) ListByTaxpayer(ctx context.Context, taxpayerID string) ([]models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE taxpayer_id = $1 ORDER BY upload_date DESC`, documentColumns)
	var rows []models.Document
	if err := r.db.SelectContext(ctx, &rows, query, taxpayerID); err != nil {
		return nil, fmt.Errorf("list documents for taxpayer: %w", err)
	}
	return rows, nil
}

// ListAll returns every document joined with the owning taxpayer's
// profile identity for staff review queues.
func (r *DocumentRepository) ListAll(ctx context.Context) ([]models.DocumentWithProfile, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents d JOIN profiles p ON p.id = d.taxpayer_id ORDER BY d.upload_date DESC`, documentProfileJoin)
	var rows []models.DocumentWithProfile
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list all documents: %w", err)
	}
	return rows, nil
}

// UpdateStatus overwrites the review status and returns the updated row.
// No transition guard is applied: officers may set any status from any
// status.
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status models.DocumentStatus) (*models.Document, error) {
	query := fmt.Sprintf(`UPDATE documents SET status = $2 WHERE id = $1 RETURNING %s`, documentColumns)
	var d models.Document
	if err := r.db.GetContext(ctx, &d, query, id, status); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("update document status: %w", err)
	}
	return &d, nil
}

// CountByStatus returns how many documents currently hold the status.
func (r *DocumentRepository) CountByStatus(ctx context.Context, status models.DocumentStatus) (int, error) {
	const query = `SELECT COUNT(*) FROM documents WHERE status = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, status); err != nil {
		return 0, fmt.Errorf("count documents by status: %w", err)
	}
	return count, nil
}
