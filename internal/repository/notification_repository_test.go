package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revenuehq/tax-portal-api/internal/models"
)

func TestNotificationCreateFillsDefaults(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(`INSERT INTO notifications`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n := &models.Notification{
		UserID:  "user-1",
		Title:   "New Tax Assessment",
		Message: "A Personal Income Tax assessment for 2026-Q1 has been generated.",
	}
	require.NoError(t, repo.Create(context.Background(), n))
	assert.NotEmpty(t, n.ID)
	assert.False(t, n.CreatedAt.IsZero())
	assert.False(t, n.Read)
}

func TestNotificationListByUserNewestFirst(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT (.+) FROM notifications WHERE user_id = \$1 ORDER BY created_at DESC`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title", "message", "read", "created_at"}).
			AddRow("n-2", "user-1", "Payment Successful", "Your payment was recorded.", false, now).
			AddRow("n-1", "user-1", "New Tax Assessment", "An assessment has been generated.", true, now.Add(-time.Hour)))

	rows, err := repo.ListByUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Payment Successful", rows[0].Title)
}

func TestNotificationMarkReadScopedToRecipient(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(`UPDATE notifications SET read = TRUE WHERE id = \$1 AND user_id = \$2`).
		WithArgs("n-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkRead(context.Background(), "n-1", "user-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationCountUnread(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM notifications WHERE user_id = \$1 AND read = FALSE`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountUnread(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
