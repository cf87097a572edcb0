// Package runtime composes the registry, scheduler, and dispatcher into the
// background agent runtime façade.
//
// The runtime owns agent lifecycle end to end: registration creates the
// agent's execution lane and starts its tick loop, unregistration cancels
// ticks, removes routing entries, and drains the lane. Callers construct
// agents; the runtime does everything else.
package runtime

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/dayuer/agentbus-go/internal/agent"
	"github.com/dayuer/agentbus-go/internal/diag"
	"github.com/dayuer/agentbus-go/internal/dispatch"
	"github.com/dayuer/agentbus-go/internal/lane"
	"github.com/dayuer/agentbus-go/internal/message"
	"github.com/dayuer/agentbus-go/internal/registry"
	"github.com/dayuer/agentbus-go/internal/scheduler"
)

// ErrClosed is returned when the runtime has been shut down.
var ErrClosed = errors.New("runtime is closed")

// Config configures a Runtime.
type Config struct {
	Logger    diag.Logger
	QueueSize int // per-agent lane capacity (default lane.DefaultQueueSize)
}

// Runtime is the façade the hosting application drives.
type Runtime struct {
	logger    diag.Logger
	queueSize int

	registry   *registry.Registry
	scheduler  *scheduler.Scheduler
	dispatcher *dispatch.Dispatcher

	closed    atomic.Bool
	startTime time.Time
}

// New creates a Runtime ready to accept agents.
func New(cfg Config) *Runtime {
	logger := diag.OrNop(cfg.Logger)
	reg := registry.New(logger)
	return &Runtime{
		logger:     logger,
		queueSize:  cfg.QueueSize,
		registry:   reg,
		scheduler:  scheduler.New(logger),
		dispatcher: dispatch.New(reg, logger),
		startTime:  time.Now(),
	}
}

// RegisterAgent adds an already-constructed agent to the runtime: its
// subscriptions are indexed, its lane starts, and if it declares an
// interval the scheduler begins ticking it. Registering the same
// (sessionID, agentType) pair twice returns *registry.DuplicateAgentError.
func (rt *Runtime) RegisterAgent(a agent.Agent) error {
	if rt.closed.Load() {
		return ErrClosed
	}

	ln := lane.New(lane.Config{
		Key:       registry.Key(a.SessionID(), a.AgentType()),
		QueueSize: rt.queueSize,
		Logger:    rt.logger,
	})
	reg, err := rt.registry.Register(a, ln)
	if err != nil {
		return err
	}

	ln.Start()
	rt.scheduler.Start(reg)
	return nil
}

// UnregisterAgent removes an agent: no further ticks or deliveries start,
// an in-flight invocation finishes on its own lane. Idempotent: unknown
// agents are a no-op.
func (rt *Runtime) UnregisterAgent(sessionID, agentType string) {
	reg, ok := rt.registry.Unregister(sessionID, agentType)
	if !ok {
		return
	}
	rt.scheduler.Cancel(reg.Key)
	reg.Lane.Stop()
}

// Publish delivers msg to every matching agent exactly once. Fire and
// forget: the call returns after fan-out is queued, never after agent
// execution.
func (rt *Runtime) Publish(msg *message.Message) error {
	if rt.closed.Load() {
		return ErrClosed
	}
	return rt.dispatcher.Publish(msg)
}

// Observe registers a tap invoked for every accepted publish.
func (rt *Runtime) Observe(fn dispatch.Observer) {
	rt.dispatcher.AddObserver(fn)
}

// Registry exposes the live-agent bookkeeping for diagnostics surfaces.
func (rt *Runtime) Registry() *registry.Registry {
	return rt.registry
}

// Stats aggregates runtime statistics.
func (rt *Runtime) Stats() map[string]any {
	return map[string]any{
		"uptime":    int(time.Since(rt.startTime).Seconds()),
		"registry":  rt.registry.Stats(),
		"scheduler": rt.scheduler.Stats(),
		"dispatch":  rt.dispatcher.Stats(),
	}
}

// Shutdown stops the scheduler, unregisters every agent, and waits for
// in-flight invocations to drain or ctx to expire. The runtime accepts no
// work afterwards.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	if !rt.closed.CompareAndSwap(false, true) {
		return nil
	}
	rt.logger.Info("runtime shutting down", "agents", rt.registry.Len())

	rt.scheduler.StopAll()

	lanes := make([]*lane.Lane, 0, rt.registry.Len())
	for _, reg := range rt.registry.Snapshot() {
		rt.registry.Unregister(reg.Agent.SessionID(), reg.Agent.AgentType())
		reg.Lane.Stop()
		lanes = append(lanes, reg.Lane)
	}
	for _, ln := range lanes {
		if err := ln.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}
