// Package registry tracks live agents, their subscriptions, and their
// execution lanes.
//
// Registration and unregistration mutate the live set and the subscription
// index under a write lock; FindMatching takes a consistent snapshot under a
// read lock. An agent registered or unregistered while a publish is in
// flight may or may not see that one message; the registry only guarantees
// that lookups never crash and never produce partial results for other
// agents.
package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dayuer/agentbus-go/internal/agent"
	"github.com/dayuer/agentbus-go/internal/diag"
	"github.com/dayuer/agentbus-go/internal/lane"
	"github.com/dayuer/agentbus-go/internal/topic"
)

// Key renders the registry key for a (sessionID, agentType) pair.
func Key(sessionID, agentType string) string {
	return sessionID + ":" + agentType
}

// DuplicateAgentError is returned when a (sessionID, agentType) pair is
// already registered. Callers must unregister before re-registering.
type DuplicateAgentError struct {
	SessionID string
	AgentType string
}

func (e *DuplicateAgentError) Error() string {
	return fmt.Sprintf("agent already registered: %s", Key(e.SessionID, e.AgentType))
}

// Registration is one live agent together with its execution lane.
type Registration struct {
	Agent agent.Agent
	Lane  *lane.Lane
	Key   string

	subscriptions []string // snapshot taken at registration time
	registeredAt  time.Time
}

// Subscriptions returns the patterns indexed for this registration.
func (r *Registration) Subscriptions() []string {
	return r.subscriptions
}

// Registry is the bookkeeping of live agents.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*Registration
	index  *topic.Index
	logger diag.Logger
}

// New creates an empty Registry.
func New(logger diag.Logger) *Registry {
	return &Registry{
		agents: make(map[string]*Registration),
		index:  topic.NewIndex(),
		logger: diag.OrNop(logger),
	}
}

// Register adds an agent and its lane to the live set and indexes the
// agent's subscriptions. The subscription set is snapshotted here: patterns
// declared after registration are not routed.
func (r *Registry) Register(a agent.Agent, ln *lane.Lane) (*Registration, error) {
	key := Key(a.SessionID(), a.AgentType())

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[key]; exists {
		return nil, &DuplicateAgentError{SessionID: a.SessionID(), AgentType: a.AgentType()}
	}

	reg := &Registration{
		Agent:         a,
		Lane:          ln,
		Key:           key,
		subscriptions: a.Subscriptions(),
		registeredAt:  time.Now(),
	}
	for _, pattern := range reg.subscriptions {
		r.index.Add(pattern, key)
	}
	r.agents[key] = reg

	r.logger.Info("agent registered", "agent", key,
		"interval", a.Interval().String(), "subscriptions", len(reg.subscriptions))
	return reg, nil
}

// Unregister removes an agent from the live set and drops its index entries.
// Idempotent: removing an unknown agent returns (nil, false) and is not an
// error, since teardown races with shutdown are expected.
func (r *Registry) Unregister(sessionID, agentType string) (*Registration, bool) {
	key := Key(sessionID, agentType)

	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.agents[key]
	if !ok {
		return nil, false
	}
	for _, pattern := range reg.subscriptions {
		r.index.Remove(pattern, key)
	}
	delete(r.agents, key)

	r.logger.Info("agent unregistered", "agent", key)
	return reg, true
}

// Get returns the registration for a (sessionID, agentType) pair.
func (r *Registry) Get(sessionID, agentType string) (*Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.agents[Key(sessionID, agentType)]
	return reg, ok
}

// FindMatching returns every live agent with at least one pattern matching
// messageType. Each agent appears once regardless of how many of its
// patterns matched. The returned slice is a snapshot; it stays valid after
// concurrent registry mutation.
func (r *Registry) FindMatching(messageType string) []*Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := r.index.Lookup(messageType)
	if len(keys) == 0 {
		return nil
	}
	out := make([]*Registration, 0, len(keys))
	for _, key := range keys {
		if reg, ok := r.agents[key]; ok {
			out = append(out, reg)
		}
	}
	return out
}

// Snapshot returns all live registrations.
func (r *Registry) Snapshot() []*Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Registration, 0, len(r.agents))
	for _, reg := range r.agents {
		out = append(out, reg)
	}
	return out
}

// Len returns the number of live agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// Keys returns the sorted registry keys.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.agents))
	for key := range r.agents {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// ListAgents returns summary info for all live agents, for diagnostics and
// the gateway's agents endpoint.
func (r *Registry) ListAgents() []map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]map[string]any, 0, len(r.agents))
	for key, reg := range r.agents {
		out = append(out, map[string]any{
			"key":           key,
			"sessionId":     reg.Agent.SessionID(),
			"agentType":     reg.Agent.AgentType(),
			"interval":      reg.Agent.Interval().Seconds(),
			"subscriptions": reg.subscriptions,
			"state":         reg.Lane.State().String(),
			"registeredAt":  reg.registeredAt.Format(time.RFC3339),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i]["key"].(string) < out[j]["key"].(string)
	})
	return out
}

// Stats returns registry statistics.
func (r *Registry) Stats() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return map[string]any{
		"agentCount":   len(r.agents),
		"patternCount": r.index.Len(),
	}
}
