package api

import (
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// upgrader accepts any origin: the server binds to localhost only and the
// desktop surfaces connect from file:// contexts with no Origin header.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsClient is one connected client. gorilla/websocket allows a single
// concurrent writer per connection, and both the live-analysis echo and hub
// broadcasts write to it, so every write goes through the mutex.
type wsClient struct {
	conn *websocket.Conn

	writeMu sync.Mutex
}

func (c *wsClient) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// hub tracks connected WebSocket clients for broadcast notifications
// (reload events from the data watcher).
type hub struct {
	mu    sync.Mutex
	conns map[string]*wsClient
}

func newHub() *hub {
	return &hub{conns: make(map[string]*wsClient)}
}

func (h *hub) add(id string, c *wsClient) {
	h.mu.Lock()
	h.conns[id] = c
	h.mu.Unlock()
}

func (h *hub) remove(id string) {
	h.mu.Lock()
	delete(h.conns, id)
	h.mu.Unlock()
}

// broadcast sends a JSON message to every client. The client map is
// snapshotted first so slow writes don't block add/remove. A client that
// fails the write is closed and dropped; its read loop exits on the closed
// conn.
func (h *hub) broadcast(message any) {
	h.mu.Lock()
	clients := make(map[string]*wsClient, len(h.conns))
	for id, c := range h.conns {
		clients[id] = c
	}
	h.mu.Unlock()

	for id, c := range clients {
		if err := c.writeJSON(message); err != nil {
			fmt.Fprintf(os.Stderr, "ws broadcast to %s failed: %v\n", id, err)
			h.remove(id)
			c.conn.Close()
		}
	}
}

// handleWS upgrades the connection and runs the live-analysis loop: each
// text frame from the client is analyzed and the full result echoed back.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := &wsClient{conn: conn}
	id := uuid.NewString()
	s.hub.add(id, client)
	defer func() {
		s.hub.remove(id)
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		text := string(data)
		if text == "" {
			continue
		}

		s.dbMu.Lock()
		result, err := s.cfg.Analyzer.Analyze(r.Context(), text)
		s.dbMu.Unlock()
		if err != nil {
			if werr := client.writeJSON(map[string]string{"error": err.Error()}); werr != nil {
				return
			}
			continue
		}
		if err := client.writeJSON(result); err != nil {
			return
		}
	}
}
