package agents

import (
	"time"

	"github.com/dayuer/agentbus-go/internal/agent"
	"github.com/dayuer/agentbus-go/internal/diag"
	"github.com/dayuer/agentbus-go/internal/store"
)

// Deps carries the shared dependencies bundled agents are built with.
type Deps struct {
	Logger diag.Logger
	Store  store.Store // notification storage; nil means in-memory
}

// UnknownAgentTypeError is returned when a manifest or API request names an
// agent type this build does not ship.
type UnknownAgentTypeError struct {
	AgentType string
}

func (e *UnknownAgentTypeError) Error() string {
	return "unknown agent type: " + e.AgentType
}

// Build constructs a bundled agent by type tag. interval only applies to
// interval-bearing agent types; zero keeps the type's default.
func Build(agentType, sessionID string, interval time.Duration, deps Deps) (agent.Agent, error) {
	switch agentType {
	case TypeSystemMonitor:
		return NewSystemMonitor(sessionID, interval, deps.Logger), nil
	case TypeNotifier:
		return NewNotifier(sessionID, deps.Store, deps.Logger), nil
	default:
		return nil, &UnknownAgentTypeError{AgentType: agentType}
	}
}

// Types lists the bundled agent type tags.
func Types() []string {
	return []string{TypeSystemMonitor, TypeNotifier}
}
