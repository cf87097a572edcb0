// Package dispatch implements the message bus fan-out.
//
// Publish validates the message, resolves the matching agent set through the
// registry, and hands one delivery job per matching agent to that agent's
// lane. The publishing caller never waits on agent execution, and one
// agent's slow or faulty hook cannot delay delivery to another.
package dispatch

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dayuer/agentbus-go/internal/diag"
	"github.com/dayuer/agentbus-go/internal/lane"
	"github.com/dayuer/agentbus-go/internal/message"
	"github.com/dayuer/agentbus-go/internal/registry"
)

// Observer is a tap invoked synchronously for every accepted publish, before
// fan-out. Observers must be fast; the gateway uses one to mirror traffic to
// WebSocket clients.
type Observer func(*message.Message)

// Dispatcher fans published messages out to matching agents.
type Dispatcher struct {
	registry *registry.Registry
	logger   diag.Logger

	obsMu     sync.RWMutex
	observers []Observer

	publishes  atomic.Int64
	deliveries atomic.Int64
	dropped    atomic.Int64
	unmatched  atomic.Int64
}

// New creates a Dispatcher over a registry.
func New(reg *registry.Registry, logger diag.Logger) *Dispatcher {
	return &Dispatcher{
		registry: reg,
		logger:   diag.OrNop(logger),
	}
}

// AddObserver registers a tap for accepted publishes.
func (d *Dispatcher) AddObserver(fn Observer) {
	d.obsMu.Lock()
	defer d.obsMu.Unlock()
	d.observers = append(d.observers, fn)
}

// Publish validates msg and delivers it to every matching agent exactly once
// per publish call. Zero matching agents is a deliberate no-op. The only
// error a caller can see is validation failure; hook faults are contained at
// the lane boundary and recorded there.
func (d *Dispatcher) Publish(msg *message.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	d.publishes.Add(1)
	d.notify(msg)

	matches := d.registry.FindMatching(msg.Type)
	if len(matches) == 0 {
		d.unmatched.Add(1)
		d.logger.Debug("no subscribers, message dropped", "type", msg.Type)
		return nil
	}

	for _, reg := range matches {
		a := reg.Agent
		job := lane.Job{
			Name: "message:" + msg.Type,
			Run: func(ctx context.Context) error {
				return a.ProcessMessage(ctx, msg)
			},
		}
		if _, ok := reg.Lane.Submit(job); ok {
			d.deliveries.Add(1)
		} else {
			d.dropped.Add(1)
		}
	}
	return nil
}

func (d *Dispatcher) notify(msg *message.Message) {
	d.obsMu.RLock()
	observers := d.observers
	d.obsMu.RUnlock()
	for _, fn := range observers {
		fn(msg)
	}
}

// Stats returns dispatch statistics.
func (d *Dispatcher) Stats() map[string]any {
	return map[string]any{
		"publishes":  d.publishes.Load(),
		"deliveries": d.deliveries.Load(),
		"dropped":    d.dropped.Load(),
		"unmatched":  d.unmatched.Load(),
	}
}
