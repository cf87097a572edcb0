// Package scheduler drives the periodic hook of every interval-bearing
// agent.
//
// Each agent gets its own timer loop, so cadences are independent. A tick is
// submitted to the agent's lane and the next tick is armed only after the
// previous one completes: an overrunning hook pushes subsequent ticks back
// instead of piling up a catch-up burst.
package scheduler

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dayuer/agentbus-go/internal/diag"
	"github.com/dayuer/agentbus-go/internal/lane"
	"github.com/dayuer/agentbus-go/internal/registry"
)

// Scheduler owns the per-agent tick loops.
type Scheduler struct {
	mu    sync.Mutex
	loops map[string]chan struct{}
	wg    sync.WaitGroup

	logger diag.Logger

	ticksIssued atomic.Int64
	tickFaults  atomic.Int64
}

// New creates a Scheduler.
func New(logger diag.Logger) *Scheduler {
	return &Scheduler{
		loops:  make(map[string]chan struct{}),
		logger: diag.OrNop(logger),
	}
}

// Start begins the tick loop for a registration. Agents without an interval
// and already-started keys are no-ops.
func (s *Scheduler) Start(reg *registry.Registration) {
	if reg.Agent.Interval() <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.loops[reg.Key]; exists {
		return
	}
	stop := make(chan struct{})
	s.loops[reg.Key] = stop

	s.wg.Add(1)
	go s.run(reg, stop)
}

// Cancel stops the tick loop for an agent key before its next tick fires.
// An in-flight tick finishes on the agent's lane. Unknown keys are a no-op.
func (s *Scheduler) Cancel(key string) {
	s.mu.Lock()
	stop, ok := s.loops[key]
	if ok {
		delete(s.loops, key)
	}
	s.mu.Unlock()
	if ok {
		close(stop)
	}
}

// StopAll cancels every loop and waits for the loop goroutines to exit.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	for key, stop := range s.loops {
		close(stop)
		delete(s.loops, key)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Len returns the number of running tick loops.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.loops)
}

// Stats returns scheduler statistics.
func (s *Scheduler) Stats() map[string]any {
	return map[string]any{
		"tickLoops":   s.Len(),
		"ticksIssued": s.ticksIssued.Load(),
		"tickFaults":  s.tickFaults.Load(),
	}
}

func (s *Scheduler) run(reg *registry.Registration, stop chan struct{}) {
	defer s.wg.Done()

	interval := reg.Agent.Interval()
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-reg.Lane.Done():
			return
		case <-timer.C:
		}

		done, ok := reg.Lane.Submit(lane.Job{Name: "tick", Run: reg.Agent.Process})
		if !ok {
			// Lane saturated or stopping; if it is stopping we exit via
			// Done above, otherwise try again one interval later.
			s.logger.Debug("tick skipped", "agent", reg.Key)
			timer.Reset(interval)
			continue
		}
		s.ticksIssued.Add(1)

		select {
		case err := <-done:
			if err != nil {
				// The lane already recorded the fault; keep ticking.
				s.tickFaults.Add(1)
			}
		case <-stop:
			// Cancelled while the tick runs. The tick finishes on its own
			// lane; the loop must not wait for it.
			return
		case <-reg.Lane.Done():
			return
		}

		// Measure the next tick from completion, not from the wall-clock
		// slot the previous tick was due.
		timer.Reset(interval)
	}
}
