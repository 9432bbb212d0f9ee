package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Priya8975/event-console/internal/auth"
	"github.com/gorilla/websocket"
)

// DashboardEvent is a live update pushed to an organizer's open dashboards.
type DashboardEvent struct {
	Type           string    `json:"type"` // "payment_succeeded", "payment_failed", "refund", "account_updated", "check_in"
	OrganizerID    string    `json:"-"`
	EventID        string    `json:"event_id,omitempty"`
	RegistrationID string    `json:"registration_id,omitempty"`
	InstallmentID  string    `json:"installment_id,omitempty"`
	PaymentStatus  string    `json:"payment_status,omitempty"`
	Amount         float64   `json:"amount,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

type message struct {
	organizerID string
	data        []byte
}

// Hub manages WebSocket connections and fans each event out to the clients
// of the organizer it belongs to.
type Hub struct {
	clients    map[*client]struct{}
	mu         sync.RWMutex
	broadcast  chan message
	register   chan *client
	unregister chan *client
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

type client struct {
	hub         *Hub
	conn        *websocket.Conn
	organizerID string
	send        chan []byte
}

// NewHub creates a hub accepting upgrades from allowedOrigins ("*" allows any).
func NewHub(logger *slog.Logger, allowedOrigins []string) *Hub {
	h := &Hub{
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan message, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		logger:     logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// Run starts the hub's event loop. Should be called as a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()
			h.logger.Debug("websocket client connected", "organizer_id", c.organizerID, "total_clients", h.ClientCount())

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Debug("websocket client disconnected", "organizer_id", c.organizerID, "total_clients", h.ClientCount())

		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				if c.organizerID != msg.organizerID {
					continue
				}
				select {
				case c.send <- msg.data:
				default:
					// Client buffer full, drop it
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues event for the organizer's connected dashboards.
func (h *Hub) Broadcast(event DashboardEvent) {
	if event.OrganizerID == "" {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal websocket event", "error", err)
		return
	}

	select {
	case h.broadcast <- message{organizerID: event.OrganizerID, data: data}:
	default:
		h.logger.Warn("websocket broadcast channel full, dropping event", "type", event.Type)
	}
}

// HandleWebSocket upgrades an authenticated organizer's connection.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	organizerID := auth.OrganizerIDFrom(r.Context())
	if organizerID == "" {
		http.Error(w, "organizer required", http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		hub:         h,
		conn:        conn,
		organizerID: organizerID,
		send:        make(chan []byte, 256),
	}

	h.register <- c

	go c.writePump()
	go c.readPump()
}

// readPump only watches for pongs and disconnects; clients never send data.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ClientCount returns the number of connected WebSocket clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
