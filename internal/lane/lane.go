// Package lane provides per-agent serialized execution.
//
// Every registered agent gets its own lane: a worker goroutine draining a
// buffered job queue. At most one job for a given agent runs at a time, jobs
// run in submission order, and lanes are fully independent of each other.
// Agents therefore run concurrently while never overlapping with themselves,
// and a hook that hangs blocks only its own lane.
package lane

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dayuer/agentbus-go/internal/agent"
	"github.com/dayuer/agentbus-go/internal/diag"
)

// DefaultQueueSize is the per-lane job queue capacity when the config leaves
// it zero.
const DefaultQueueSize = 64

// Job is one unit of agent work: a periodic tick or a message delivery.
type Job struct {
	Name string // "tick" or "message:<type>", used in fault records
	Run  func(ctx context.Context) error
}

type item struct {
	job  Job
	done chan error
}

// Config configures a Lane.
type Config struct {
	Key       string // "sessionID:agentType", used in diagnostics
	QueueSize int
	Logger    diag.Logger
}

// Lane serializes all invocations of a single agent.
type Lane struct {
	key    string
	logger diag.Logger

	queue  chan item
	stopCh chan struct{}
	doneCh chan struct{}

	state     atomic.Int32 // agent.State
	stopOnce  sync.Once
	startOnce sync.Once

	completed atomic.Int64
	faults    atomic.Int64
}

// New creates a lane in the Registered state. No work runs until Start.
func New(cfg Config) *Lane {
	size := cfg.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	l := &Lane{
		key:    cfg.Key,
		logger: diag.OrNop(cfg.Logger),
		queue:  make(chan item, size),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	l.state.Store(int32(agent.StateRegistered))
	return l
}

// Start launches the worker and moves the lane to Active.
func (l *Lane) Start() {
	l.startOnce.Do(func() {
		l.state.Store(int32(agent.StateActive))
		go l.work()
	})
}

// Submit hands a job to the lane without blocking. It returns a channel that
// receives the job's outcome exactly once, and false when the lane is not
// Active or its queue is full; the job is dropped in that case. Callers that
// do not care about the outcome may ignore the channel.
func (l *Lane) Submit(job Job) (<-chan error, bool) {
	if l.State() != agent.StateActive {
		return nil, false
	}
	it := item{job: job, done: make(chan error, 1)}
	select {
	case l.queue <- it:
		return it.done, true
	default:
		l.logger.Warn("lane queue full, dropping job", "lane", l.key, "job", job.Name)
		return nil, false
	}
}

// Stop moves the lane to Stopping: no further submissions are accepted, the
// in-flight job (if any) finishes, queued jobs are discarded, and the worker
// exits. Safe to call repeatedly.
func (l *Lane) Stop() {
	l.stopOnce.Do(func() {
		// A lane that never started has no worker to unwind.
		if agent.State(l.state.Swap(int32(agent.StateStopping))) == agent.StateRegistered {
			l.state.Store(int32(agent.StateStopped))
			close(l.doneCh)
			return
		}
		close(l.stopCh)
	})
}

// Done is closed once the lane reaches Stopped.
func (l *Lane) Done() <-chan struct{} { return l.doneCh }

// Wait blocks until the lane is Stopped or ctx expires.
func (l *Lane) Wait(ctx context.Context) error {
	select {
	case <-l.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the lane's lifecycle state.
func (l *Lane) State() agent.State {
	return agent.State(l.state.Load())
}

// Key returns the lane's agent key.
func (l *Lane) Key() string { return l.key }

// Pending returns the number of queued, not yet started jobs.
func (l *Lane) Pending() int { return len(l.queue) }

// Completed returns the number of jobs that have finished.
func (l *Lane) Completed() int64 { return l.completed.Load() }

// Faults returns the number of jobs that ended in an error or panic.
func (l *Lane) Faults() int64 { return l.faults.Load() }

func (l *Lane) work() {
	defer func() {
		l.state.Store(int32(agent.StateStopped))
		close(l.doneCh)
	}()
	for {
		select {
		case <-l.stopCh:
			return
		default:
		}
		select {
		case <-l.stopCh:
			return
		case it := <-l.queue:
			// Both cases can be ready at once; a job picked after stop is
			// still discarded.
			select {
			case <-l.stopCh:
				return
			default:
			}
			err := l.run(it.job)
			l.completed.Add(1)
			if err != nil {
				l.faults.Add(1)
				l.logger.Error("agent hook fault", "lane", l.key, "job", it.job.Name, "error", err)
			}
			it.done <- err
		}
	}
}

// run executes one job, converting a panic into an error so a faulting hook
// never takes down the worker.
func (l *Lane) run(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", job.Name, r)
		}
	}()
	return job.Run(context.Background())
}
