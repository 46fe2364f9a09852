package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Hub fans book updates out to websocket subscribers, one subscription set
// per instrument.
type Hub struct {
	mu       sync.Mutex
	upgrader websocket.Upgrader
	conns    map[string]map[*websocket.Conn]bool
	logger   zerolog.Logger
}

// NewHub creates an empty Hub
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns:  make(map[string]map[*websocket.Conn]bool),
		logger: logger.With().Str("component", "ws-hub").Logger(),
	}
}

// HandleDepth upgrades the request and subscribes the client to depth
// updates for the instrument in the path.
func (h *Hub) HandleDepth(w http.ResponseWriter, r *http.Request) {
	instrument := mux.Vars(r)["instrument"]

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	h.mu.Lock()
	if h.conns[instrument] == nil {
		h.conns[instrument] = make(map[*websocket.Conn]bool)
	}
	h.conns[instrument][conn] = true
	h.mu.Unlock()

	h.logger.Debug().Str("instrument", instrument).Msg("Client subscribed")

	// Drain client frames so closes are noticed; subscribers only listen.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.drop(instrument, conn)
				return
			}
		}
	}()
}

// Broadcast pushes an update to every subscriber of its instrument. Dead
// connections are dropped on write failure.
func (h *Hub) Broadcast(_ context.Context, u Update) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns[u.Instrument] {
		if err := conn.WriteJSON(u); err != nil {
			conn.Close()
			delete(h.conns[u.Instrument], conn)
		}
	}
}

func (h *Hub) drop(instrument string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.conns[instrument]; ok {
		delete(subs, conn)
	}
	conn.Close()
}

// Close closes all subscriber connections
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for instrument, subs := range h.conns {
		for conn := range subs {
			conn.Close()
		}
		delete(h.conns, instrument)
	}
}
