// Package gateway provides the HTTP front-end for the agent runtime:
// message publishing, agent registration, status, and a WebSocket
// stream of published messages.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dayuer/agentbus-go/internal/agents"
	"github.com/dayuer/agentbus-go/internal/diag"
	"github.com/dayuer/agentbus-go/internal/message"
	"github.com/dayuer/agentbus-go/internal/registry"
	"github.com/dayuer/agentbus-go/internal/runtime"
	"github.com/dayuer/agentbus-go/internal/utils"
)

// Server is the gateway HTTP server.
type Server struct {
	port    int
	apiKey  string
	rt      *runtime.Runtime
	deps    agents.Deps
	logger  diag.Logger
	started time.Time

	hub *wsHub

	mux *http.ServeMux
	srv *http.Server
}

// ServerConfig configures the gateway Server.
type ServerConfig struct {
	Port      int
	APIKey    string
	Runtime   *runtime.Runtime
	AgentDeps agents.Deps
	Logger    diag.Logger
}

// NewServer creates a new gateway server and wires its routes.
func NewServer(cfg ServerConfig) *Server {
	s := &Server{
		port:    cfg.Port,
		apiKey:  cfg.APIKey,
		rt:      cfg.Runtime,
		deps:    cfg.AgentDeps,
		logger:  diag.OrNop(cfg.Logger),
		started: time.Now(),
		mux:     http.NewServeMux(),
	}

	s.hub = newWSHub(s.logger)

	// Every published message is mirrored to connected WebSocket clients.
	s.rt.Observe(s.hub.Observe)

	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/ws", s.hub.handleWS)
	s.mux.HandleFunc("/api/status", s.withAuth(s.handleStatus))
	s.mux.HandleFunc("/api/agents", s.withAuth(s.handleAgents))
	s.mux.HandleFunc("/api/agents/register", s.withAuth(s.handleRegister))
	s.mux.HandleFunc("/api/agents/unregister", s.withAuth(s.handleUnregister))
	s.mux.HandleFunc("/api/background/message", s.withAuth(s.handleMessage))

	return s
}

// Handler returns the server's HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start starts the HTTP server, the WS heartbeat loop, and the
// message broadcast loop. Blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", s.port),
		Handler: s.mux,
	}

	s.logger.Info("gateway listening",
		"http", fmt.Sprintf("http://0.0.0.0:%d", s.port),
		"ws", fmt.Sprintf("ws://0.0.0.0:%d/ws", s.port))

	go s.hub.run(ctx)

	go func() {
		<-ctx.Done()
		s.hub.closeAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutdownCtx)
	}()

	if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop stops the server gracefully.
func (s *Server) Stop() {
	if s.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(ctx)
	}
	s.hub.closeAll()
}

// --- Auth middleware ---

func (s *Server) withAuth(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" {
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+s.apiKey {
				writeJSONError(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		handler(w, r)
	}
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"status": "ok",
		"time":   utils.Timestamp(),
		"uptime": int(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	status := s.rt.Stats()
	status["wsConnections"] = s.hub.ConnectionCount()
	writeJSON(w, status)
}

func (s *Server) handleAgents(w http.ResponseWriter, _ *http.Request) {
	reg := s.rt.Registry()
	writeJSON(w, map[string]any{
		"agents": reg.ListAgents(),
		"total":  reg.Len(),
		"types":  agents.Types(),
	})
}

// registerRequest is the JSON body for /api/agents/register.
type registerRequest struct {
	Type      string   `json:"type"`
	SessionID string   `json:"session_id"`
	Interval  *float64 `json:"interval"` // seconds; nil means the agent's default
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Type == "" || req.SessionID == "" {
		writeJSONError(w, "type and session_id are required", http.StatusBadRequest)
		return
	}

	var interval time.Duration // zero keeps the agent type's default
	if req.Interval != nil {
		interval = time.Duration(*req.Interval * float64(time.Second))
	}

	a, err := agents.Build(req.Type, req.SessionID, interval, s.deps)
	if err != nil {
		var unknown *agents.UnknownAgentTypeError
		if errors.As(err, &unknown) {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := s.rt.RegisterAgent(a); err != nil {
		var dup *registry.DuplicateAgentError
		if errors.As(err, &dup) {
			writeJSONError(w, err.Error(), http.StatusConflict)
			return
		}
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"status": "registered",
		"key":    registry.Key(req.SessionID, req.Type),
	})
}

// unregisterRequest is the JSON body for /api/agents/unregister. Either the
// key form ("session_id:agent_type") or the split fields may be used.
type unregisterRequest struct {
	Key       string `json:"key"`
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

func (s *Server) handleUnregister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req unregisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Key != "" {
		sessionID, agentType, err := utils.ParseAgentKey(req.Key)
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.SessionID, req.Type = sessionID, agentType
	}
	if req.Type == "" || req.SessionID == "" {
		writeJSONError(w, "key or type and session_id are required", http.StatusBadRequest)
		return
	}

	s.rt.UnregisterAgent(req.SessionID, req.Type)
	writeJSON(w, map[string]any{
		"status": "unregistered",
		"key":    registry.Key(req.SessionID, req.Type),
	})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var msg message.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeJSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	if err := s.rt.Publish(&msg); err != nil {
		var invalid *message.InvalidMessageError
		if errors.As(err, &invalid) {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if errors.Is(err, runtime.ErrClosed) {
			writeJSONError(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"status":       "published",
		"message_type": msg.Type,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
