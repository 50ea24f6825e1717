package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revenuehq/tax-portal-api/internal/models"
)

func TestDocumentCreateFillsDefaults(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	mock.ExpectExec(`INSERT INTO documents`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	d := &models.Document{
		TaxpayerID:   "tp-1",
		DocumentName: "bank-statement.pdf",
		DocumentType: "Bank Statement",
		StoragePath:  "tp-1/Bank Statement_doc-1.pdf",
		Status:       models.DocumentStatusPendingReview,
	}
	require.NoError(t, repo.Create(context.Background(), d))
	assert.NotEmpty(t, d.ID)
	assert.False(t, d.UploadDate.IsZero())
}

func TestDocumentUpdateStatusReturnsRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	now := time.Now()
	mock.ExpectQuery(`UPDATE documents SET status = \$2 WHERE id = \$1 RETURNING`).
		WithArgs("doc-1", string(models.DocumentStatusApproved)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "taxpayer_id", "document_name", "document_type", "storage_path", "status", "upload_date",
		}).AddRow("doc-1", "tp-1", "bank-statement.pdf", "Bank Statement",
			"tp-1/Bank Statement_doc-1.pdf", string(models.DocumentStatusApproved), now))

	d, err := repo.UpdateStatus(context.Background(), "doc-1", models.DocumentStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusApproved, d.Status)
}

func TestDocumentUpdateStatusUnknownID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	mock.ExpectQuery(`UPDATE documents SET status = \$2 WHERE id = \$1 RETURNING`).
		WithArgs("missing", string(models.DocumentStatusRejected)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.UpdateStatus(context.Background(), "missing", models.DocumentStatusRejected)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestDocumentCountByStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM documents WHERE status = \$1`).
		WithArgs(string(models.DocumentStatusPendingReview)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.CountByStatus(context.Background(), models.DocumentStatusPendingReview)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}
