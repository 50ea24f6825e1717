package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revenuehq/tax-portal-api/internal/models"
)

type notificationRepoStub struct {
	mu      sync.Mutex
	created []models.Notification
	err     error
}

func (s *notificationRepoStub) Create(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.created = append(s.created, *n)
	return nil
}

func (s *notificationRepoStub) ListByUser(ctx context.Context, userID string) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, n := range s.created {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *notificationRepoStub) MarkRead(ctx context.Context, id, userID string) error {
	return s.err
}

func (s *notificationRepoStub) CountUnread(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.created {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

type roleReaderStub struct {
	ids map[models.UserRole][]string
	err error
}

func (s *roleReaderStub) ListIDsByRole(ctx context.Context, roles ...models.UserRole) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []string
	for _, role := range roles {
		out = append(out, s.ids[role]...)
	}
	return out, nil
}

func TestNotifyRoleFansOutToEveryRecipient(t *testing.T) {
	repo := &notificationRepoStub{}
	users := &roleReaderStub{ids: map[models.UserRole][]string{
		models.RoleAdmin:   {"admin-1", "admin-2"},
		models.RoleOfficer: {"officer-1"},
	}}
	svc := NewNotificationService(repo, users, nil)

	svc.NotifyRole(context.Background(), "New Document for Review", "A new document is awaiting review.",
		models.RoleOfficer, models.RoleAdmin)

	require.Len(t, repo.created, 3)
	recipients := make([]string, 0, len(repo.created))
	for _, n := range repo.created {
		recipients = append(recipients, n.UserID)
		assert.Equal(t, "New Document for Review", n.Title)
	}
	sort.Strings(recipients)
	assert.Equal(t, []string{"admin-1", "admin-2", "officer-1"}, recipients)
}

func TestNotifySwallowsDeliveryFailure(t *testing.T) {
	repo := &notificationRepoStub{err: errors.New("insert failed")}
	svc := NewNotificationService(repo, &roleReaderStub{}, nil)

	// must not panic or propagate
	svc.Notify(context.Background(), "user-1", "Payment Successful", "Your payment was recorded.")
	assert.Empty(t, repo.created)
}

func TestNotifyRoleLookupFailureDeliversNothing(t *testing.T) {
	repo := &notificationRepoStub{}
	users := &roleReaderStub{err: errors.New("db down")}
	svc := NewNotificationService(repo, users, nil)

	svc.NotifyRole(context.Background(), "New TCC Request", "A taxpayer has requested a certificate.", models.RoleAdmin)
	assert.Empty(t, repo.created)
}

func TestUnreadCount(t *testing.T) {
	repo := &notificationRepoStub{}
	svc := NewNotificationService(repo, &roleReaderStub{}, nil)

	svc.Notify(context.Background(), "user-1", "New Tax Assessment", "generated")
	svc.Notify(context.Background(), "user-1", "Payment Successful", "recorded")
	svc.Notify(context.Background(), "user-2", "New Tax Assessment", "generated")

	count, err := svc.UnreadCount(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
