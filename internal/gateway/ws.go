package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dayuer/agentbus-go/internal/diag"
	"github.com/dayuer/agentbus-go/internal/message"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsConn wraps a websocket.Conn with a write mutex for thread safety.
// gorilla/websocket does NOT support concurrent writes.
type wsConn struct {
	*websocket.Conn
	mu sync.Mutex
}

func (c *wsConn) WriteJSONSafe(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteJSON(v)
}

func (c *wsConn) WritePing() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(websocket.PingMessage, nil)
}

func (c *wsConn) WriteCloseSafe(code int, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text))
}

// wsHub manages WebSocket clients and broadcasts published messages
// to all of them.
type wsHub struct {
	logger diag.Logger
	stream chan *message.Message

	conns map[*wsConn]bool
	mu    sync.Mutex
}

func newWSHub(logger diag.Logger) *wsHub {
	return &wsHub{
		logger: diag.OrNop(logger),
		stream: make(chan *message.Message, 256),
		conns:  make(map[*wsConn]bool),
	}
}

// Observe is wired as a dispatch observer. Non-blocking: if the stream
// buffer is full the message is dropped for WS clients only.
func (h *wsHub) Observe(msg *message.Message) {
	select {
	case h.stream <- msg:
	default:
		h.logger.Warn("ws stream full, dropping message", "type", msg.Type)
	}
}

// run drains the stream and sends heartbeats until ctx is cancelled.
func (h *wsHub) run(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-h.stream:
			h.broadcast(map[string]any{
				"type": "message",
				"data": msg,
			})
		case <-ticker.C:
			h.heartbeat()
		}
	}
}

func (h *wsHub) handleWS(w http.ResponseWriter, r *http.Request) {
	raw, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}

	conn := &wsConn{Conn: raw}
	peer := r.RemoteAddr
	h.logger.Info("ws connected", "peer", peer)

	h.mu.Lock()
	h.conns[conn] = true
	h.mu.Unlock()

	defer func() {
		raw.Close()
		h.mu.Lock()
		delete(h.conns, conn)
		h.mu.Unlock()
		h.logger.Info("ws disconnected", "peer", peer)
	}()

	raw.SetReadDeadline(time.Now().Add(60 * time.Second))
	raw.SetPongHandler(func(string) error {
		raw.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// Read loop keeps the connection alive; clients only receive.
	for {
		if _, _, err := raw.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("ws read error", "peer", peer, "error", err)
			}
			return
		}
		raw.SetReadDeadline(time.Now().Add(60 * time.Second))
	}
}

func (h *wsHub) broadcast(payload any) {
	h.mu.Lock()
	if len(h.conns) == 0 {
		h.mu.Unlock()
		return
	}
	conns := make([]*wsConn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	var dead []*wsConn
	for _, c := range conns {
		if err := c.WriteJSONSafe(payload); err != nil {
			dead = append(dead, c)
		}
	}
	h.reap(dead)
}

// heartbeat sends WS ping frames to keep connections alive.
func (h *wsHub) heartbeat() {
	h.mu.Lock()
	conns := make([]*wsConn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	var dead []*wsConn
	for _, c := range conns {
		if err := c.WritePing(); err != nil {
			dead = append(dead, c)
		}
	}
	h.reap(dead)
}

func (h *wsHub) reap(dead []*wsConn) {
	if len(dead) == 0 {
		return
	}
	h.mu.Lock()
	for _, c := range dead {
		delete(h.conns, c)
		c.Close()
	}
	h.mu.Unlock()
}

// closeAll closes all WebSocket connections (called on shutdown).
func (h *wsHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		c.WriteCloseSafe(websocket.CloseGoingAway, "server shutdown")
		c.Close()
		delete(h.conns, c)
	}
}

// ConnectionCount returns the number of active WebSocket connections.
func (h *wsHub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}
