package agent

import (
	"sort"
	"sync"
	"time"
)

// Base carries the identity, interval, and subscription set for a concrete
// agent. Embed it and implement the two hooks.
type Base struct {
	sessionID string
	agentType string
	interval  time.Duration

	mu   sync.Mutex
	subs map[string]struct{}
}

// NewBase creates the bookkeeping for an agent. interval <= 0 disables
// periodic invocation.
func NewBase(sessionID, agentType string, interval time.Duration) Base {
	if interval < 0 {
		interval = 0
	}
	return Base{
		sessionID: sessionID,
		agentType: agentType,
		interval:  interval,
		subs:      make(map[string]struct{}),
	}
}

// SessionID returns the session the agent is bound to.
func (b *Base) SessionID() string { return b.sessionID }

// AgentType returns the agent's kind identifier.
func (b *Base) AgentType() string { return b.agentType }

// Interval returns the periodic tick cadence, zero when disabled.
func (b *Base) Interval() time.Duration { return b.interval }

// Subscribe declares interest in a topic pattern. Duplicates collapse;
// insertion order is irrelevant.
func (b *Base) Subscribe(pattern string) {
	if pattern == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[pattern] = struct{}{}
}

// Subscriptions returns the declared patterns, sorted for stable output.
func (b *Base) Subscriptions() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.subs))
	for p := range b.subs {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
