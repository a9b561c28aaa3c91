package renderer

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"ai-teleprompter-service/internal/models"
	"ai-teleprompter-service/internal/observability/logging"
	"ai-teleprompter-service/internal/observability/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	clientBuffer   = 32
	broadcastQueue = 256
)

type client struct {
	conn *websocket.Conn
	send chan models.CursorEvent
}

// Hub pushes cursor events to browser clients over WebSocket. New clients
// first receive the latest event so they can draw the current position.
type Hub struct {
	upgrader   websocket.Upgrader
	register   chan *client
	unregister chan *client
	broadcast  chan models.CursorEvent
	clientsN   chan int
	done       chan struct{}

	clients map[*client]struct{}
	latest  *models.CursorEvent

	logger  zerolog.Logger
	metrics *metrics.Metrics
}

var _ Renderer = (*Hub)(nil)

// NewHub creates a hub. Run must be called for it to deliver events.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan models.CursorEvent, broadcastQueue),
		clientsN:   make(chan int),
		done:       make(chan struct{}),
		clients:    make(map[*client]struct{}),
		logger:     logging.WithComponent("renderer.hub"),
		metrics:    metrics.DefaultMetrics,
	}
}

// Run owns the client set until ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	defer func() {
		close(h.done)
		for c := range h.clients {
			h.remove(c)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case c := <-h.register:
			h.clients[c] = struct{}{}
			if h.latest != nil {
				c.send <- *h.latest
			}
			h.metrics.RecordRendererClients(len(h.clients))
			h.logger.Info().Int("clients", len(h.clients)).Msg("Renderer client connected")

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.remove(c)
				h.logger.Info().Int("clients", len(h.clients)).Msg("Renderer client disconnected")
			}

		case ev := <-h.broadcast:
			h.latest = &ev
			for c := range h.clients {
				select {
				case c.send <- ev:
				default:
					h.metrics.RecordRendererDrop("websocket")
					h.logger.Warn().Msg("Renderer client too slow, disconnecting")
					h.remove(c)
				}
			}

		case h.clientsN <- len(h.clients):
		}
	}
}

func (h *Hub) remove(c *client) {
	delete(h.clients, c)
	close(c.send)
	h.metrics.RecordRendererClients(len(h.clients))
}

// Render implements Renderer.
func (h *Hub) Render(ev models.CursorEvent) {
	select {
	case h.broadcast <- ev:
	default:
		h.metrics.RecordRendererDrop("hub")
	}
}

// Clients returns the number of connected clients, or 0 once the hub has
// stopped.
func (h *Hub) Clients() int {
	select {
	case n := <-h.clientsN:
		return n
	case <-h.done:
		return 0
	}
}

// ServeHTTP upgrades the request to a WebSocket renderer stream.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan models.CursorEvent, clientBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go h.writePump(c)
	go h.readPump(c)
}

// readPump discards client messages and detects disconnects.
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				h.logger.Debug().Err(err).Msg("Renderer write failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
