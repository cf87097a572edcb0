package registry

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayuer/agentbus-go/internal/agent"
	"github.com/dayuer/agentbus-go/internal/lane"
	"github.com/dayuer/agentbus-go/internal/message"
)

type fakeAgent struct {
	agent.Base
}

func (f *fakeAgent) Process(context.Context) error { return nil }

func (f *fakeAgent) ProcessMessage(context.Context, *message.Message) error { return nil }

func newFakeAgent(sessionID, agentType string, patterns ...string) *fakeAgent {
	a := &fakeAgent{Base: agent.NewBase(sessionID, agentType, 0)}
	for _, p := range patterns {
		a.Subscribe(p)
	}
	return a
}

func newLane(key string) *lane.Lane {
	l := lane.New(lane.Config{Key: key})
	l.Start()
	return l
}

func TestRegister_AndGet(t *testing.T) {
	r := New(nil)
	a := newFakeAgent("sess-1", "system_monitor", "system.status.request")

	reg, err := r.Register(a, newLane("sess-1:system_monitor"))
	require.NoError(t, err)
	assert.Equal(t, "sess-1:system_monitor", reg.Key)
	assert.Equal(t, 1, r.Len())

	got, ok := r.Get("sess-1", "system_monitor")
	require.True(t, ok)
	assert.Same(t, reg, got)
}

func TestRegister_Duplicate(t *testing.T) {
	r := New(nil)
	a := newFakeAgent("sess-1", "system_monitor")
	_, err := r.Register(a, newLane("sess-1:system_monitor"))
	require.NoError(t, err)

	_, err = r.Register(newFakeAgent("sess-1", "system_monitor"), newLane("sess-1:system_monitor"))
	require.Error(t, err)
	var dup *DuplicateAgentError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "sess-1", dup.SessionID)
	assert.Equal(t, "system_monitor", dup.AgentType)

	// same type under another session is fine
	_, err = r.Register(newFakeAgent("sess-2", "system_monitor"), newLane("sess-2:system_monitor"))
	assert.NoError(t, err)
}

func TestUnregister_Idempotent(t *testing.T) {
	r := New(nil)
	r.Register(newFakeAgent("sess-1", "notifier", "notification.*"), newLane("sess-1:notifier"))

	_, ok := r.Unregister("sess-1", "notifier")
	assert.True(t, ok)
	assert.Equal(t, 0, r.Len())

	_, ok = r.Unregister("sess-1", "notifier")
	assert.False(t, ok, "second unregister must be a no-op")

	_, ok = r.Unregister("never", "registered")
	assert.False(t, ok)
}

func TestFindMatching_FanOut(t *testing.T) {
	r := New(nil)
	a := newFakeAgent("s", "a", "notif.*")
	b := newFakeAgent("s", "b", "notif.create")
	r.Register(a, newLane("s:a"))
	r.Register(b, newLane("s:b"))

	matched := r.FindMatching("notif.create")
	keys := make([]string, 0, len(matched))
	for _, reg := range matched {
		keys = append(keys, reg.Key)
	}
	assert.ElementsMatch(t, []string{"s:a", "s:b"}, keys)

	matched = r.FindMatching("notif.dismiss")
	require.Len(t, matched, 1)
	assert.Equal(t, "s:a", matched[0].Key)

	assert.Empty(t, r.FindMatching("unrelated.topic"))
}

func TestFindMatching_DedupesOverlappingPatterns(t *testing.T) {
	r := New(nil)
	a := newFakeAgent("s", "a", "user.action.*", "user.action.login")
	r.Register(a, newLane("s:a"))

	matched := r.FindMatching("user.action.login")
	assert.Len(t, matched, 1, "agent must appear once per publish")
}

func TestUnregister_RemovesIndexEntries(t *testing.T) {
	r := New(nil)
	r.Register(newFakeAgent("s", "a", "user.action.*"), newLane("s:a"))
	require.Len(t, r.FindMatching("user.action.login"), 1)

	r.Unregister("s", "a")
	assert.Empty(t, r.FindMatching("user.action.login"))
	assert.Equal(t, map[string]any{"agentCount": 0, "patternCount": 0}, r.Stats())
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := New(nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess := fmt.Sprintf("sess-%d", i)
			a := newFakeAgent(sess, "worker", "jobs.*")
			if _, err := r.Register(a, newLane(sess+":worker")); err != nil {
				t.Errorf("Register: %v", err)
				return
			}
			r.FindMatching("jobs.created")
			r.Unregister(sess, "worker")
		}()
	}
	// lookups racing the registrations must never crash
	wg.Add(1)
	go func() {
		defer wg.Done()
		deadline := time.Now().Add(100 * time.Millisecond)
		for time.Now().Before(deadline) {
			r.FindMatching("jobs.created")
			r.ListAgents()
		}
	}()
	wg.Wait()

	assert.Equal(t, 0, r.Len())
}

func TestListAgents(t *testing.T) {
	r := New(nil)
	a := newFakeAgent("sess-1", "system_monitor", "user.action.*")
	r.Register(a, newLane("sess-1:system_monitor"))

	list := r.ListAgents()
	require.Len(t, list, 1)
	assert.Equal(t, "sess-1", list[0]["sessionId"])
	assert.Equal(t, "system_monitor", list[0]["agentType"])
	assert.Equal(t, "active", list[0]["state"])
}
