// Package agent defines the contract every background agent implements.
//
// An agent is a unit of autonomous behavior bound to a session. It can ask
// for periodic invocation at a fixed interval, subscribe to topic patterns,
// or both. Concrete agents embed Base for the identity and subscription
// bookkeeping and implement the two hooks.
package agent

import (
	"context"
	"time"

	"github.com/dayuer/agentbus-go/internal/message"
)

// Agent is the capability set the runtime drives.
type Agent interface {
	// SessionID is the opaque session the agent is bound to.
	SessionID() string

	// AgentType is a stable identifier for the agent's kind. The pair
	// (SessionID, AgentType) is the registry key.
	AgentType() string

	// Interval is the periodic tick cadence. Zero disables periodic
	// invocation entirely.
	Interval() time.Duration

	// Subscriptions returns the agent's topic patterns, deduplicated.
	Subscriptions() []string

	// Process is the periodic hook, called once per interval. Errors and
	// panics are contained at the scheduler boundary.
	Process(ctx context.Context) error

	// ProcessMessage is the message hook, called once per matching publish.
	// Errors and panics are contained at the dispatch boundary.
	ProcessMessage(ctx context.Context, msg *message.Message) error
}
