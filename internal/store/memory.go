package store

import (
	"context"
	"sync"
)

// MemoryStore keeps notifications in process memory. Zero value is not
// usable; call NewMemoryStore.
type MemoryStore struct {
	mu    sync.Mutex
	lists map[string][]Notification
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{lists: make(map[string][]Notification)}
}

// Append adds a notification to a user's list.
func (s *MemoryStore) Append(_ context.Context, userID string, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[userID] = append(s.lists[userID], n)
	return nil
}

// Dismiss marks one notification dismissed.
func (s *MemoryStore) Dismiss(_ context.Context, userID, notificationID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.lists[userID]
	for i := range list {
		if list[i].ID == notificationID {
			list[i].Dismissed = true
			return true, nil
		}
	}
	return false, nil
}

// List returns a copy of a user's notifications.
func (s *MemoryStore) List(_ context.Context, userID string, includeDismissed bool) ([]Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Notification
	for _, n := range s.lists[userID] {
		if !includeDismissed && n.Dismissed {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// MarkRead flags all of a user's notifications as read.
func (s *MemoryStore) MarkRead(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := 0
	list := s.lists[userID]
	for i := range list {
		if !list[i].Read {
			list[i].Read = true
			changed++
		}
	}
	return changed, nil
}

// Count returns the number of stored notifications for a user, dismissed
// included.
func (s *MemoryStore) Count(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lists[userID])
}
