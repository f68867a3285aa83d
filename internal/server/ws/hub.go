// Package ws bridges the simulation engine to WebSocket clients. The hub owns
// the set of connections, fans every engine snapshot out to all of them, and
// translates inbound named events (set_name, trade) into engine commands.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pitsim/pitsim/internal/domain"
	"github.com/pitsim/pitsim/internal/observability"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum size of an incoming message.
	maxMessageSize = 1024

	// sendBufferSize is the channel buffer for outgoing messages per client.
	sendBufferSize = 64
)

// upgrader configures the WebSocket upgrade parameters.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins. In production, restrict this to known origins.
		return true
	},
}

// client represents a single WebSocket connection. Its id doubles as the
// participant identity token for the lifetime of the connection.
type client struct {
	hub  *Hub
	id   string
	conn *websocket.Conn
	send chan []byte
}

// envelope is the named-event wire format in both directions.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// inboundMsg covers both client-to-server message shapes. Qty is typed as any
// because clients send anything; coercion happens server-side instead of
// rejecting the frame.
type inboundMsg struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Asset string `json:"asset"`
	Side  string `json:"side"`
	Qty   any    `json:"qty"`
}

// Hub manages the set of connected WebSocket clients and broadcasts engine
// snapshots to all of them. It implements domain.Broadcaster.
type Hub struct {
	sim     domain.Simulator
	clients map[*client]bool

	broadcast  chan []byte
	register   chan *client
	unregister chan *client

	mu      sync.RWMutex
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewHub creates a hub bound to the given simulator. metrics may be nil.
func NewHub(sim domain.Simulator, metrics *observability.Metrics, logger *slog.Logger) *Hub {
	return &Hub{
		sim:        sim,
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		metrics:    metrics,
		logger:     logger.With(slog.String("component", "ws")),
	}
}

// Broadcast marshals the snapshot once and queues it for every connected
// client. All clients receive byte-identical frames, which is what makes the
// broadcast the consistency mechanism: there are no deltas to diverge.
func (h *Hub) Broadcast(snap domain.Snapshot) {
	frame, err := marshalEvent("market_update", snap)
	if err != nil {
		h.logger.Error("failed to marshal snapshot", slog.String("error", err.Error()))
		return
	}
	h.broadcast <- frame
}

// Run starts the hub's main event loop. It should be called in a goroutine.
// It handles client registration, unregistration, and snapshot fan-out. The
// loop exits when the provided context is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.setClientGauge()
			h.logger.Info("client connected",
				slog.String("participant", c.id),
				slog.Int("total_clients", h.clientCount()),
			)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.setClientGauge()
			h.logger.Info("client disconnected",
				slog.String("participant", c.id),
				slog.Int("total_clients", h.clientCount()),
			)

		case frame := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- frame:
				default:
					// Client's send buffer is full; drop the frame.
					// The next broadcast is a full snapshot, so the
					// client loses nothing durable.
					if h.metrics != nil {
						h.metrics.MessagesDropped.Inc()
					}
					h.logger.Warn("dropping frame for slow client",
						slog.String("participant", c.id),
					)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// HandleWS upgrades an HTTP request to a WebSocket connection, joins the
// simulation under a fresh identity token, and registers the client. The init
// snapshot is queued before registration so it reaches the client ahead of any
// broadcast.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		hub:  h,
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	snap, err := h.sim.Join(r.Context(), c.id)
	if err != nil {
		h.logger.Warn("join failed", slog.String("error", err.Error()))
		conn.Close()
		return
	}

	frame, err := marshalEvent("init", snap)
	if err != nil {
		h.logger.Error("failed to marshal init snapshot", slog.String("error", err.Error()))
		conn.Close()
		return
	}
	c.send <- frame

	h.register <- c

	// Start read and write pumps in separate goroutines.
	go c.writePump()
	go c.readPump()
}

// clientCount returns the number of currently connected clients.
func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) setClientGauge() {
	if h.metrics != nil {
		h.metrics.ConnectedClients.Set(float64(h.clientCount()))
	}
}

// marshalEvent wraps a snapshot in the outbound envelope.
func marshalEvent(eventType string, snap domain.Snapshot) ([]byte, error) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: eventType, Payload: payload})
}

// readPump reads messages from the WebSocket connection and dispatches the
// named events to the simulator. Malformed frames are ignored; nothing a
// client sends can produce an error response or terminate the simulation.
func (c *client) readPump() {
	defer func() {
		c.hub.sim.Leave(c.id)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("unexpected close error",
					slog.String("participant", c.id),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		var msg inboundMsg
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "set_name":
			c.hub.sim.SetName(c.id, msg.Name)
		case "trade":
			c.hub.sim.Trade(c.id, msg.Asset, msg.Side, coerceQty(msg.Qty))
		default:
			// Unknown event types are ignored.
		}
	}
}

// coerceQty extracts a numeric quantity from whatever the client sent. The
// engine floors the result to 1, so anything unparseable becomes a 1-unit
// order rather than a rejection.
func coerceQty(v any) float64 {
	switch q := v.(type) {
	case float64:
		return q
	case string:
		if f, err := strconv.ParseFloat(q, 64); err == nil {
			return f
		}
	}
	return 0
}

// writePump pumps frames from the hub to the WebSocket connection as JSON text
// messages, with periodic pings for keepalive.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
