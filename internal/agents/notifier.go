package agents

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dayuer/agentbus-go/internal/agent"
	"github.com/dayuer/agentbus-go/internal/diag"
	"github.com/dayuer/agentbus-go/internal/message"
	"github.com/dayuer/agentbus-go/internal/store"
	"github.com/dayuer/agentbus-go/internal/utils"
)

// TypeNotifier is the notification manager's agent type tag.
const TypeNotifier = "notification_manager"

// Notifier manages per-user notification lists. Purely message-driven: it
// declares no interval and its Process hook is a no-op.
type Notifier struct {
	agent.Base
	logger diag.Logger
	store  store.Store

	mu      sync.Mutex
	active  map[string]bool // user session activity
	created int             // IDs fall back to a counter, original behavior
}

// NewNotifier creates a notification manager bound to a session. A nil store
// gets an in-memory one.
func NewNotifier(sessionID string, st store.Store, logger diag.Logger) *Notifier {
	if st == nil {
		st = store.NewMemoryStore()
	}
	n := &Notifier{
		Base:   agent.NewBase(sessionID, TypeNotifier, 0),
		logger: diag.OrNop(logger),
		store:  st,
		active: make(map[string]bool),
	}
	n.Subscribe("notification.create")
	n.Subscribe("notification.dismiss")
	n.Subscribe("notification.list")
	n.Subscribe("user.session.*")
	return n
}

// Process is never scheduled (no interval); present to satisfy the contract.
func (n *Notifier) Process(context.Context) error { return nil }

// ProcessMessage routes the subscribed message types.
func (n *Notifier) ProcessMessage(ctx context.Context, msg *message.Message) error {
	switch msg.Type {
	case "notification.create":
		return n.create(ctx, msg)
	case "notification.dismiss":
		return n.dismiss(ctx, msg)
	case "notification.list":
		return n.list(ctx, msg)
	case "user.session.start":
		return n.sessionStart(ctx, msg)
	case "user.session.end":
		n.sessionEnd(msg)
	}
	return nil
}

func dataString(msg *message.Message, key string) string {
	if msg.Data == nil {
		return ""
	}
	v, _ := msg.Data[key].(string)
	return v
}

func (n *Notifier) create(ctx context.Context, msg *message.Message) error {
	userID := dataString(msg, "user_id")
	if userID == "" {
		n.logger.Warn("notification.create missing user_id")
		return nil
	}

	id := dataString(msg, "id")
	if id == "" {
		n.mu.Lock()
		id = fmt.Sprintf("notif_%d", n.created)
		n.created++
		n.mu.Unlock()
	}
	title := dataString(msg, "title")
	if title == "" {
		title = "Notification"
	}
	kind := dataString(msg, "type")
	if kind == "" {
		kind = "info"
	}

	entry := store.Notification{
		ID:        id,
		Title:     title,
		Message:   dataString(msg, "message"),
		Type:      kind,
		CreatedAt: time.Now(),
	}
	if err := n.store.Append(ctx, userID, entry); err != nil {
		return fmt.Errorf("append notification: %w", err)
	}

	n.logger.Info("notification created",
		"user", userID, "id", id, "title", utils.TruncateString(title, 60, "..."))
	if n.isActive(userID) {
		// An active user would get a real-time push through the front-end.
		n.logger.Debug("user active, real-time delivery possible", "user", userID)
	}
	return nil
}

func (n *Notifier) dismiss(ctx context.Context, msg *message.Message) error {
	userID := dataString(msg, "user_id")
	notifID := dataString(msg, "notification_id")
	if userID == "" || notifID == "" {
		n.logger.Warn("notification.dismiss missing user_id or notification_id")
		return nil
	}

	ok, err := n.store.Dismiss(ctx, userID, notifID)
	if err != nil {
		return fmt.Errorf("dismiss notification: %w", err)
	}
	if ok {
		n.logger.Info("notification dismissed", "user", userID, "id", notifID)
	}
	return nil
}

func (n *Notifier) list(ctx context.Context, msg *message.Message) error {
	userID := dataString(msg, "user_id")
	if userID == "" {
		n.logger.Warn("notification.list missing user_id")
		return nil
	}
	includeDismissed := false
	if msg.Data != nil {
		includeDismissed, _ = msg.Data["include_dismissed"].(bool)
	}

	list, err := n.store.List(ctx, userID, includeDismissed)
	if err != nil {
		return fmt.Errorf("list notifications: %w", err)
	}
	if _, err := n.store.MarkRead(ctx, userID); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}

	n.logger.Info("notifications listed", "user", userID, "count", len(list))
	return nil
}

func (n *Notifier) sessionStart(ctx context.Context, msg *message.Message) error {
	userID := dataString(msg, "user_id")
	if userID == "" {
		return nil
	}

	n.mu.Lock()
	n.active[userID] = true
	n.mu.Unlock()

	list, err := n.store.List(ctx, userID, false)
	if err != nil {
		return fmt.Errorf("pending notifications: %w", err)
	}
	pending := 0
	for _, entry := range list {
		if !entry.Read {
			pending++
		}
	}
	n.logger.Info("user session started", "user", userID, "pendingNotifications", pending)
	return nil
}

func (n *Notifier) sessionEnd(msg *message.Message) {
	userID := dataString(msg, "user_id")
	if userID == "" {
		return
	}
	n.mu.Lock()
	n.active[userID] = false
	n.mu.Unlock()
	n.logger.Info("user session ended", "user", userID)
}

func (n *Notifier) isActive(userID string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.active[userID]
}
