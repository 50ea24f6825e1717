package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/revenuehq/tax-portal-api/internal/models"
)

type notificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
	CountUnread(ctx context.Context, userID string) (int, error)
}

type notificationRoleReader interface {
	ListIDsByRole(ctx context.Context, roles ...models.UserRole) ([]string, error)
}

// NotificationService delivers in-app notifications. Delivery is strictly
// best effort: workflow writes must never fail or roll back because an
// inbox insert failed, so every error here is logged and swallowed.
type NotificationService struct {
	repo   notificationRepository
	users  notificationRoleReader
	logger *zap.Logger
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(repo notificationRepository, users notificationRoleReader, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, users: users, logger: logger}
}

// Notify writes one notification for a single recipient.
func (s *NotificationService) Notify(ctx context.Context, userID, title, message string) {
	n := &models.Notification{UserID: userID, Title: title, Message: message}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Warn("notification delivery failed",
			zap.String("user_id", userID),
			zap.String("title", title),
			zap.Error(err))
	}
}

// NotifyRole fans one notification out to every active user holding any of
// the given roles. Recipients are resolved once, then inserted
// concurrently; a failed insert for one recipient does not stop the rest.
func (s *NotificationService) NotifyRole(ctx context.Context, title, message string, roles ...models.UserRole) {
	ids, err := s.users.ListIDsByRole(ctx, roles...)
	if err != nil {
		s.logger.Warn("notification fan-out recipient lookup failed",
			zap.String("title", title),
			zap.Error(err))
		return
	}
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			s.Notify(ctx, userID, title, message)
		}(id)
	}
	wg.Wait()
}

// Inbox returns the recipient's notifications, newest first.
func (s *NotificationService) Inbox(ctx context.Context, userID string) ([]models.Notification, error) {
	return s.repo.ListByUser(ctx, userID)
}

// MarkRead flips the read flag on one of the recipient's notifications.
// Marking another user's notification is a silent no-op.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	return s.repo.MarkRead(ctx, id, userID)
}

// UnreadCount returns the recipient's unread total for badge rendering.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}
