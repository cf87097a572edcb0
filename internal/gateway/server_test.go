package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dayuer/agentbus-go/internal/agents"
	"github.com/dayuer/agentbus-go/internal/diag"
	"github.com/dayuer/agentbus-go/internal/message"
	"github.com/dayuer/agentbus-go/internal/runtime"
	"github.com/dayuer/agentbus-go/internal/store"
)

func newTestServer(t *testing.T, apiKey string) (*Server, *runtime.Runtime) {
	t.Helper()
	rt := runtime.New(runtime.Config{Logger: diag.Nop()})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		rt.Shutdown(ctx)
	})

	s := NewServer(ServerConfig{
		Port:    0,
		APIKey:  apiKey,
		Runtime: rt,
		AgentDeps: agents.Deps{
			Logger: diag.Nop(),
			Store:  store.NewMemoryStore(),
		},
		Logger: diag.Nop(),
	})
	return s, rt
}

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer(t, "")
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	s.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}

	var body map[string]any
	json.NewDecoder(w.Body).Decode(&body)
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if ts, _ := body["time"].(string); ts == "" {
		t.Errorf("time = %v, want RFC3339 timestamp", body["time"])
	}
}

func TestHandleStatus_NoAuth(t *testing.T) {
	s, _ := newTestServer(t, "secret-key")

	req := httptest.NewRequest("GET", "/api/status", nil)
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestHandleStatus_WithAuth(t *testing.T) {
	s, _ := newTestServer(t, "secret-key")

	req := httptest.NewRequest("GET", "/api/status", nil)
	req.Header.Set("Authorization", "Bearer secret-key")
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestHandleMessage_Publishes(t *testing.T) {
	s, rt := newTestServer(t, "")

	received := make(chan string, 1)
	rt.Observe(func(msg *message.Message) {
		select {
		case received <- msg.Type:
		default:
		}
	})

	body := `{"message_type":"system.status.request","data":{"requester":"test"}}`
	req := httptest.NewRequest("POST", "/api/background/message", strings.NewReader(body))
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	select {
	case got := <-received:
		if got != "system.status.request" {
			t.Errorf("observed type = %q", got)
		}
	case <-time.After(time.Second):
		t.Fatal("message was not published")
	}
}

func TestHandleMessage_EmptyType(t *testing.T) {
	s, _ := newTestServer(t, "")

	body := `{"data":{"x":1}}`
	req := httptest.NewRequest("POST", "/api/background/message", strings.NewReader(body))
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleMessage_GetRejected(t *testing.T) {
	s, _ := newTestServer(t, "")

	req := httptest.NewRequest("GET", "/api/background/message", nil)
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}

func TestHandleRegister(t *testing.T) {
	s, rt := newTestServer(t, "")

	body := `{"type":"system_monitor","session_id":"system","interval":30}`
	req := httptest.NewRequest("POST", "/api/agents/register", strings.NewReader(body))
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if rt.Registry().Len() != 1 {
		t.Errorf("registry len = %d, want 1", rt.Registry().Len())
	}
}

func TestHandleRegister_Duplicate(t *testing.T) {
	s, _ := newTestServer(t, "")

	body := `{"type":"system_monitor","session_id":"system"}`
	req := httptest.NewRequest("POST", "/api/agents/register", strings.NewReader(body))
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("first register status = %d", w.Code)
	}

	req = httptest.NewRequest("POST", "/api/agents/register", strings.NewReader(body))
	w = httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", w.Code)
	}
}

func TestHandleRegister_UnknownType(t *testing.T) {
	s, _ := newTestServer(t, "")

	body := `{"type":"no_such_agent","session_id":"system"}`
	req := httptest.NewRequest("POST", "/api/agents/register", strings.NewReader(body))
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleUnregister_Idempotent(t *testing.T) {
	s, _ := newTestServer(t, "")

	body := `{"type":"system_monitor","session_id":"system"}`
	req := httptest.NewRequest("POST", "/api/agents/unregister", strings.NewReader(body))
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestHandleUnregister_ByKey(t *testing.T) {
	s, rt := newTestServer(t, "")

	body := `{"type":"system_monitor","session_id":"system"}`
	req := httptest.NewRequest("POST", "/api/agents/register", strings.NewReader(body))
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("register status = %d", w.Code)
	}

	body = `{"key":"system:system_monitor"}`
	req = httptest.NewRequest("POST", "/api/agents/unregister", strings.NewReader(body))
	w = httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if rt.Registry().Len() != 0 {
		t.Errorf("registry len = %d, want 0", rt.Registry().Len())
	}
}

func TestHandleUnregister_MalformedKey(t *testing.T) {
	s, _ := newTestServer(t, "")

	body := `{"key":"nocolon"}`
	req := httptest.NewRequest("POST", "/api/agents/unregister", strings.NewReader(body))
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleAgents(t *testing.T) {
	s, _ := newTestServer(t, "")

	body := `{"type":"notification_manager","session_id":"u1"}`
	req := httptest.NewRequest("POST", "/api/agents/register", strings.NewReader(body))
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("register status = %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/api/agents", nil)
	w = httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp map[string]any
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["total"] != float64(1) {
		t.Errorf("total = %v, want 1", resp["total"])
	}
}
