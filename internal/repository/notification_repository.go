package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/revenuehq/tax-portal-api/internal/models"
)

// NotificationRepository provides database access for inbox entries.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts one unread notification row.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notifications (id, user_id, title, message, read, created_at) VALUES (:id, :user_id, :title, :message, :read, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ListByUser returns a user's inbox ordered by creation time descending.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string) ([]models.Notification, error) {
	const query = `SELECT id, user_id, title, message, read, created_at FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`
	var rows []models.Notification
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("list notifications for user: %w", err)
	}
	return rows, nil
}

// MarkRead flips the read flag for one of the recipient's notifications.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	const query = `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`
	if _, err := r.db.ExecContext(ctx, query, id, userID); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

// CountUnread returns the recipient's unread notification count.
func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}
