package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revenuehq/tax-portal-api/internal/models"
	appErrors "github.com/revenuehq/tax-portal-api/pkg/errors"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func profileRows(t *testing.T) *sqlmock.Rows {
	t.Helper()
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "email", "password_hash", "full_name", "tin", "role",
		"taxpayer_type", "avatar_url", "active", "last_login", "created_at", "updated_at",
	}).AddRow("user-1", "ada@example.com", "hash", "Ada Obi", "TIN-001",
		string(models.RoleTaxpayer), "Individual", nil, true, now, now, now)
}

func TestFindByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM profiles WHERE email = \$1`).
		WithArgs("ada@example.com").
		WillReturnRows(profileRows(t))

	user, err := repo.FindByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, "TIN-001", user.TIN)
	assert.Equal(t, models.RoleTaxpayer, user.Role)
}

func TestFindByEmailNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM profiles WHERE email = \$1`).
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestFindByTIN(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM profiles WHERE tin = \$1`).
		WithArgs("TIN-001").
		WillReturnRows(profileRows(t))

	user, err := repo.FindByTIN(context.Background(), "TIN-001")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
}

func TestCreateDuplicateTIN(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(`INSERT INTO profiles`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "profiles_tin_key"})

	err := repo.Create(context.Background(), &models.User{
		Email:        "dup@example.com",
		PasswordHash: "hash",
		FullName:     "Dup",
		TIN:          "TIN-001",
		Role:         models.RoleTaxpayer,
		TaxpayerType: models.TaxpayerTypeIndividual,
		Active:       true,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateTIN.Code, appErrors.FromError(err).Code)
}

func TestListIDsByRole(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT id FROM profiles WHERE role = ANY`).
		WithArgs(pq.Array([]string{string(models.RoleAdmin), string(models.RoleOfficer)})).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("admin-1").AddRow("officer-1"))

	ids, err := repo.ListIDsByRole(context.Background(), models.RoleAdmin, models.RoleOfficer)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin-1", "officer-1"}, ids)
}

func TestCountByRole(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM profiles`).
		WithArgs(string(models.RoleAdmin)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	count, err := repo.CountByRole(context.Background(), models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
