package memory

import (
	"context"
	"errors"
	"sync"

	domainnotifications "staybook/internal/domain/notifications"
)

// NotificationStore keeps notifications in memory.
type NotificationStore struct {
	mu    sync.RWMutex
	items []domainnotifications.Notification
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{}
}

func (s *NotificationStore) Add(ctx context.Context, n domainnotifications.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, n)
	return nil
}

func (s *NotificationStore) ByRecipient(ctx context.Context, recipient string) ([]domainnotifications.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domainnotifications.Notification
	for _, n := range s.items {
		if n.Recipient == recipient {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *NotificationStore) MarkRead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Read = true
			return nil
		}
	}
	return errors.New("memory: notification not found")
}

var _ domainnotifications.Store = (*NotificationStore)(nil)
