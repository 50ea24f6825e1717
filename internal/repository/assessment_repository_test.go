package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revenuehq/tax-portal-api/internal/models"
)

func TestAssessmentCreateFillsDefaults(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssessmentRepository(db)

	mock.ExpectExec(`INSERT INTO assessments`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	a := &models.Assessment{
		TaxpayerID:     "tp-1",
		TaxType:        models.TaxTypePersonalIncome,
		Period:         "2026-Q1",
		TaxableIncome:  decimal.NewFromInt(200_000),
		TaxRateApplied: decimal.RequireFromString("7.5"),
		AmountDue:      decimal.NewFromInt(15_000),
		DueDate:        time.Now().AddDate(0, 0, 30),
		Status:         models.AssessmentStatusPending,
	}
	require.NoError(t, repo.Create(context.Background(), a))
	assert.NotEmpty(t, a.ID)
	assert.False(t, a.CreatedAt.IsZero())
}

func TestAssessmentGetByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssessmentRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM assessments WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestAssessmentListByTaxpayer(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssessmentRepository(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT (.+) FROM assessments WHERE taxpayer_id = \$1 ORDER BY due_date DESC`).
		WithArgs("tp-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "taxpayer_id", "tax_type", "period", "taxable_income",
			"tax_rate_applied", "amount_due", "due_date", "status", "created_at",
		}).AddRow("assess-1", "tp-1", string(models.TaxTypeBusiness), "2026-Q1",
			"200000", "12", "24000", now, string(models.AssessmentStatusPending), now))

	rows, err := repo.ListByTaxpayer(context.Background(), "tp-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].AmountDue.Equal(decimal.NewFromInt(24_000)))
}

func TestAssessmentListAllJoinsProfile(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssessmentRepository(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT (.+) FROM assessments a JOIN profiles p`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "taxpayer_id", "tax_type", "period", "taxable_income",
			"tax_rate_applied", "amount_due", "due_date", "status", "created_at",
			"profile_full_name", "profile_tin", "profile_email", "profile_taxpayer_type",
		}).AddRow("assess-1", "tp-1", string(models.TaxTypeBusiness), "2026-Q1",
			"200000", "12", "24000", now, string(models.AssessmentStatusPending), now,
			"Ada Obi", "TIN-001", "ada@example.com", "Individual"))

	rows, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ada Obi", rows[0].ProfileStub.FullName)
}
