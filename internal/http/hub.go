package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"meeting-summary-service/internal/observability/logging"
	"meeting-summary-service/internal/service/pipeline"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans controller snapshots out to WebSocket clients.
type Hub struct {
	ctrl       Controller
	clients    map[*websocket.Conn]bool
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub creates a hub for ctrl. Run must be started for clients to receive updates.
func NewHub(ctrl Controller) *Hub {
	return &Hub{
		ctrl:       ctrl,
		clients:    make(map[*websocket.Conn]bool),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
	}
}

// Run forwards snapshots to all clients until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	logger := logging.WithComponent("hub")
	updates, cancel := h.ctrl.Subscribe()
	defer cancel()
	defer close(h.done)
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return

		case snap, ok := <-updates:
			if !ok {
				return
			}
			h.mu.Lock()
			for conn := range h.clients {
				if err := writeSnapshot(conn, snap); err != nil {
					logger.Debug().Err(err).Msg("WebSocket write failed, dropping client")
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.Unlock()

		case conn := <-h.register:
			h.mu.Lock()
			if err := writeSnapshot(conn, h.ctrl.Snapshot()); err != nil {
				conn.Close()
			} else {
				h.clients[conn] = true
			}
			n := len(h.clients)
			h.mu.Unlock()
			logger.Debug().Int("clients", n).Msg("Client connected")

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			logger.Debug().Int("clients", n).Msg("Client disconnected")
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and registers the connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger := logging.WithComponent("hub")
		logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}

	// Clients only listen; reading detects disconnects.
	go func() {
		defer func() {
			select {
			case h.unregister <- conn:
			case <-h.done:
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}

func writeSnapshot(conn *websocket.Conn, snap pipeline.Snapshot) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(snap)
}
