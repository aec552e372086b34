// Package realtime streams scoring events to WebSocket subscribers.
//
// Fraud desks watch verdicts as they happen instead of polling the audit
// store: every prediction, device alert, and blocked transaction is pushed
// to connected clients, optionally filtered by minimum risk level.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sentrasec/sentra/internal/metrics"
	"github.com/sentrasec/sentra/internal/risk"
)

// EventType for real-time scoring events.
type EventType string

const (
	EventPrediction  EventType = "prediction"
	EventDeviceAlert EventType = "device_alert"
	EventBlocked     EventType = "blocked"
)

// Event is one streamed scoring event.
type Event struct {
	Type      EventType   `json:"type"`
	RiskLevel risk.Level  `json:"riskLevel"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Subscription filters events per client.
type Subscription struct {
	MinRiskLevel risk.Level  `json:"minRiskLevel"`
	EventTypes   []EventType `json:"eventTypes"`
}

// matches reports whether the event passes the subscription filters.
func (s *Subscription) matches(ev *Event) bool {
	if s.MinRiskLevel != "" && ev.RiskLevel.Rank() < s.MinRiskLevel.Rank() {
		return false
	}
	if len(s.EventTypes) == 0 {
		return true
	}
	for _, t := range s.EventTypes {
		if t == ev.Type {
			return true
		}
	}
	return false
}

// MaxClients is the maximum number of concurrent WebSocket connections.
const MaxClients = 1000

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // non-browser clients
		}
		host := r.Host
		return origin == "http://"+host || origin == "https://"+host
	},
}

// Client is one WebSocket subscriber.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	mu   sync.RWMutex
	sub  Subscription
}

// Hub fans scoring events out to subscribers.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Broadcast delivers an event to every client whose subscription matches.
// Slow clients are dropped rather than allowed to block the hub.
func (h *Hub) Broadcast(ev *Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal realtime event", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.mu.RLock()
		ok := c.sub.matches(ev)
		c.mu.RUnlock()
		if !ok {
			continue
		}
		select {
		case c.send <- payload:
		default:
			go h.remove(c)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades an HTTP request to a WebSocket subscription.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	full := len(h.clients) >= MaxClients
	h.mu.RUnlock()
	if full {
		http.Error(w, "too many clients", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	metrics.ActiveWebSocketClients.Set(float64(h.ClientCount()))

	go c.writePump()
	go c.readPump()
}

// Shutdown closes every client connection.
func (h *Hub) Shutdown(ctx context.Context) {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		_ = c.conn.Close()
	}
	metrics.ActiveWebSocketClients.Set(0)
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	_, present := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if present {
		_ = c.conn.Close()
		metrics.ActiveWebSocketClients.Set(float64(h.ClientCount()))
	}
}

// readPump consumes subscription updates until the connection closes.
func (c *Client) readPump() {
	defer c.hub.remove(c)
	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived) {
				c.hub.logger.Debug("websocket read error", "error", err)
			}
			return
		}
		var sub Subscription
		if err := json.Unmarshal(msg, &sub); err != nil {
			continue // ignore malformed subscription updates
		}
		c.mu.Lock()
		c.sub = sub
		c.mu.Unlock()
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.hub.remove(c)
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
