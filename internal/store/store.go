// Package store provides the notification agent's private storage.
//
// The runtime never inspects this state; it belongs exclusively to the agent
// behind its hooks. The default implementation is in-memory; a Redis-backed
// implementation is available so notifications survive an agent restart when
// a Redis instance is configured.
package store

import (
	"context"
	"time"
)

// Notification is one user-facing notification entry.
type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Read      bool      `json:"read"`
	Dismissed bool      `json:"dismissed"`
}

// Store is the per-user notification storage contract.
type Store interface {
	// Append adds a notification to a user's list.
	Append(ctx context.Context, userID string, n Notification) error

	// Dismiss marks one notification dismissed. Returns false when the
	// notification does not exist.
	Dismiss(ctx context.Context, userID, notificationID string) (bool, error)

	// List returns a user's notifications, oldest first, excluding
	// dismissed entries unless includeDismissed is set.
	List(ctx context.Context, userID string, includeDismissed bool) ([]Notification, error)

	// MarkRead flags all of a user's notifications as read and returns how
	// many changed.
	MarkRead(ctx context.Context, userID string) (int, error)
}
