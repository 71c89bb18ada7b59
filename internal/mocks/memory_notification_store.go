package mocks

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/teamtasks-api/internal/domain"
	"github.com/phrazzld/teamtasks-api/internal/store"
)

// MemoryNotificationStore implements store.NotificationStore on a MemoryDB.
type MemoryNotificationStore struct {
	db *MemoryDB
}

var _ store.NotificationStore = (*MemoryNotificationStore)(nil)

// WithTx implements store.NotificationStore.
func (s *MemoryNotificationStore) WithTx(*sqlx.Tx) store.NotificationStore { return s }

func sortNotifications(items []domain.Notification, newestFirst bool) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if newestFirst {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}

// Create implements store.NotificationStore.
func (s *MemoryNotificationStore) Create(ctx context.Context, n *domain.Notification) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("Notifications.Create"); err != nil {
		return err
	}
	if err := n.Validate(); err != nil {
		return err
	}
	s.db.notifications[n.ID] = *n
	return nil
}

// GetByID implements store.NotificationStore.
func (s *MemoryNotificationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("Notifications.GetByID"); err != nil {
		return nil, err
	}
	n, ok := s.db.notifications[id]
	if !ok {
		return nil, store.ErrNotificationNotFound
	}
	return &n, nil
}

// ListUnread implements store.NotificationStore.
func (s *MemoryNotificationStore) ListUnread(
	ctx context.Context,
	recipient uuid.UUID,
	page domain.Page,
) ([]domain.Notification, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("Notifications.ListUnread"); err != nil {
		return nil, 0, err
	}

	var unread []domain.Notification
	for _, n := range s.db.notifications {
		if n.Recipient == recipient && !n.Read {
			unread = append(unread, n)
		}
	}
	sortNotifications(unread, true)
	total := len(unread)

	start := page.Offset()
	if start > total {
		start = total
	}
	end := start + page.Size
	if end > total {
		end = total
	}
	items := append([]domain.Notification{}, unread[start:end]...)
	return items, total, nil
}

// MarkRead implements store.NotificationStore.
func (s *MemoryNotificationStore) MarkRead(ctx context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("Notifications.MarkRead"); err != nil {
		return err
	}
	n, ok := s.db.notifications[id]
	if !ok {
		return store.ErrNotificationNotFound
	}
	n.Read = true
	s.db.notifications[id] = n
	return nil
}

// MarkAllRead implements store.NotificationStore.
func (s *MemoryNotificationStore) MarkAllRead(ctx context.Context, recipient uuid.UUID) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("Notifications.MarkAllRead"); err != nil {
		return 0, err
	}
	var count int64
	for id, n := range s.db.notifications {
		if n.Recipient == recipient && !n.Read {
			n.Read = true
			s.db.notifications[id] = n
			count++
		}
	}
	return count, nil
}

// Delete implements store.NotificationStore.
func (s *MemoryNotificationStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("Notifications.Delete"); err != nil {
		return err
	}
	if _, ok := s.db.notifications[id]; !ok {
		return store.ErrNotificationNotFound
	}
	delete(s.db.notifications, id)
	return nil
}

// MarkEmailSent implements store.NotificationStore.
func (s *MemoryNotificationStore) MarkEmailSent(ctx context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("Notifications.MarkEmailSent"); err != nil {
		return err
	}
	if n, ok := s.db.notifications[id]; ok {
		n.EmailSent = true
		s.db.notifications[id] = n
	}
	return nil
}
