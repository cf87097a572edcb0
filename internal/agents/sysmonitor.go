// Package agents contains the bundled background agents shipped with the
// runtime: a periodic system monitor and a message-driven notification
// manager. They exercise the runtime; the runtime itself knows nothing about
// them.
package agents

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/dayuer/agentbus-go/internal/agent"
	"github.com/dayuer/agentbus-go/internal/diag"
	"github.com/dayuer/agentbus-go/internal/message"
)

// TypeSystemMonitor is the system monitor's agent type tag.
const TypeSystemMonitor = "system_monitor"

// DefaultMonitorInterval is the tick cadence when none is configured.
const DefaultMonitorInterval = 60 * time.Second

// systemStats is the monitor's private state snapshot.
type systemStats struct {
	CPUUsage    float64 `json:"cpu_usage"`
	MemoryUsage float64 `json:"memory_usage"`
	Uptime      float64 `json:"uptime"` // seconds observed across ticks
	ActiveUsers int     `json:"active_users"`
}

// SystemMonitor samples simulated system metrics on its interval and answers
// status/resource requests. It also watches user.action.* to keep an active
// user count.
type SystemMonitor struct {
	agent.Base
	logger diag.Logger

	mu        sync.Mutex
	stats     systemStats
	lastCheck time.Time
	rng       *rand.Rand
}

// NewSystemMonitor creates a monitor bound to a session. interval <= 0 falls
// back to DefaultMonitorInterval.
func NewSystemMonitor(sessionID string, interval time.Duration, logger diag.Logger) *SystemMonitor {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}
	m := &SystemMonitor{
		Base:      agent.NewBase(sessionID, TypeSystemMonitor, interval),
		logger:    diag.OrNop(logger),
		lastCheck: time.Now(),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	m.Subscribe("system.status.request")
	m.Subscribe("system.resource.request")
	m.Subscribe("user.action.*")
	return m
}

// Process refreshes the simulated metrics. A real deployment would sample
// the host here.
func (m *SystemMonitor) Process(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.stats.Uptime += now.Sub(m.lastCheck).Seconds()
	m.lastCheck = now
	m.stats.CPUUsage = 5.0 + m.rng.Float64()*90.0
	m.stats.MemoryUsage = 20.0 + m.rng.Float64()*60.0

	m.logger.Debug("system metrics sampled",
		"agent", m.AgentType(),
		"cpu", m.stats.CPUUsage,
		"memory", m.stats.MemoryUsage,
		"activeUsers", m.stats.ActiveUsers)
	return nil
}

// ProcessMessage routes the subscribed message types.
func (m *SystemMonitor) ProcessMessage(_ context.Context, msg *message.Message) error {
	switch {
	case msg.Type == "system.status.request":
		m.handleStatusRequest(msg)
	case msg.Type == "system.resource.request":
		m.handleResourceRequest(msg)
	case strings.HasPrefix(msg.Type, "user.action."):
		m.handleUserAction(msg)
	}
	return nil
}

func (m *SystemMonitor) handleStatusRequest(msg *message.Message) {
	m.mu.Lock()
	stats := m.stats
	m.mu.Unlock()

	status := "healthy"
	if stats.CPUUsage >= 80.0 {
		status = "degraded"
	}
	m.logger.Info("status request answered",
		"sender", msg.Sender,
		"status", status,
		"cpu", stats.CPUUsage,
		"memory", stats.MemoryUsage)
}

func (m *SystemMonitor) handleResourceRequest(msg *message.Message) {
	var resource string
	if msg.Data != nil {
		resource, _ = msg.Data["resource_type"].(string)
	}

	m.mu.Lock()
	stats := m.stats
	m.mu.Unlock()

	switch resource {
	case "cpu":
		m.logger.Info("resource request", "resource", resource, "cpuUsage", stats.CPUUsage)
	case "memory":
		m.logger.Info("resource request", "resource", resource, "memoryUsage", stats.MemoryUsage)
	case "uptime":
		m.logger.Info("resource request", "resource", resource, "uptimeHours", stats.Uptime/3600)
	default:
		m.logger.Warn("unknown resource type requested", "resource", resource)
	}
}

func (m *SystemMonitor) handleUserAction(msg *message.Message) {
	action := strings.TrimPrefix(msg.Type, "user.action.")

	m.mu.Lock()
	defer m.mu.Unlock()
	switch action {
	case "login":
		m.stats.ActiveUsers++
	case "logout":
		if m.stats.ActiveUsers > 0 {
			m.stats.ActiveUsers--
		}
	}
	m.logger.Debug("user action observed", "action", action, "activeUsers", m.stats.ActiveUsers)
}

// Snapshot returns a copy of the monitor's current stats.
func (m *SystemMonitor) Snapshot() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]any{
		"cpu_usage":    m.stats.CPUUsage,
		"memory_usage": m.stats.MemoryUsage,
		"uptime":       m.stats.Uptime,
		"active_users": m.stats.ActiveUsers,
	}
}
