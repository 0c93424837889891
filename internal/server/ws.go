package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/flipsight/flipsight/internal/events"
)

const (
	wsWriteWait = 10 * time.Second

	// Per-client event buffer. A client that falls this far behind is
	// disconnected rather than allowed to stall the bus.
	wsClientBuffer = 16
)

// wsHub fans bus events out to connected websocket clients.
type wsHub struct {
	log zerolog.Logger

	mu      sync.Mutex
	clients map[chan *events.Event]struct{}
	closed  bool
}

func newWSHub(bus *events.Bus, log zerolog.Logger) *wsHub {
	h := &wsHub{
		log:     log.With().Str("component", "ws_hub").Logger(),
		clients: make(map[chan *events.Event]struct{}),
	}

	// Bus handlers must not block, so delivery is a non-blocking send
	// into each client's buffer.
	bus.SubscribeAll(h.broadcast)

	return h
}

func (h *wsHub) broadcast(event *events.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.clients {
		select {
		case ch <- event:
		default:
			// Slow client: drop it. Its writer goroutine observes the
			// closed channel and shuts the connection down.
			delete(h.clients, ch)
			close(ch)
			h.log.Warn().Msg("Dropping slow websocket client")
		}
	}
}

func (h *wsHub) register() (chan *events.Event, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, false
	}

	ch := make(chan *events.Event, wsClientBuffer)
	h.clients[ch] = struct{}{}
	return ch, true
}

func (h *wsHub) unregister(ch chan *events.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
}

// close disconnects all clients. Called on server shutdown.
func (h *wsHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for ch := range h.clients {
		delete(h.clients, ch)
		close(ch)
	}
}

// handleWS handles GET /api/events/ws
func (h *wsHub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// The SPA may be served from a different origin in development.
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "hub closed")

	ch, ok := h.register()
	if !ok {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	defer h.unregister(ch)

	h.log.Debug().Str("remote", r.RemoteAddr).Msg("Websocket client connected")

	// Reader goroutine: the client never sends data, but reading is how
	// close frames and pongs get processed.
	readCtx := conn.CloseRead(r.Context())

	for {
		select {
		case <-readCtx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case event, open := <-ch:
			if !open {
				conn.Close(websocket.StatusPolicyViolation, "too slow")
				return
			}

			writeCtx, cancel := context.WithTimeout(readCtx, wsWriteWait)
			err := wsjson.Write(writeCtx, conn, event)
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Msg("Websocket write failed")
				return
			}
		}
	}
}
