// Package dashboard provides the live ward dashboard feed over WebSockets.
// It implements a hub-and-spoke pattern where station clients subscribe to
// ward topics and receive care request, approval, and alert events as they
// happen.
package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Event types pushed to ward dashboards.
const (
	EventCareRequest      = "care_request"
	EventApprovalCreated  = "approval_created"
	EventSLABreach        = "sla_breach"
	EventAuditWriteFailed = "audit_write_failed"
)

// Event represents a real-time notification sent to dashboard clients.
type Event struct {
	Type      string          `json:"type"`
	Ward      string          `json:"ward"`
	RequestID string          `json:"request_id,omitempty"`
	Priority  string          `json:"priority,omitempty"`
	Message   string          `json:"message,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ClientMessage represents an inbound message from a dashboard client.
type ClientMessage struct {
	Action string   `json:"action"`
	Wards  []string `json:"wards"`
}

// EventPublisher defines the interface for publishing events to subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client represents a single dashboard connection.
type Client struct {
	ID    string
	Wards []string
	Send  chan []byte
	hub   *Hub
	conn  Conn
}

// Hub is the central connection manager that tracks clients and their ward
// subscriptions. All operations are thread-safe via sync.RWMutex.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // ward -> set of clients
	all     map[*Client]struct{}            // all connected clients
	logger  zerolog.Logger
}

// NewHub creates a new Hub ready to manage dashboard clients.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		all:     make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub and subscribes it to its initial wards.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.all[client] = struct{}{}

	for _, ward := range client.Wards {
		if h.clients[ward] == nil {
			h.clients[ward] = make(map[*Client]struct{})
		}
		h.clients[ward][client] = struct{}{}
	}
}

// Unregister removes a client from the hub, all ward subscriptions, and
// closes the client's Send channel.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[client]; !ok {
		return
	}

	for _, ward := range client.Wards {
		if subscribers, ok := h.clients[ward]; ok {
			delete(subscribers, client)
			if len(subscribers) == 0 {
				delete(h.clients, ward)
			}
		}
	}

	delete(h.all, client)
	close(client.Send)
}

// Subscribe dynamically adds wards to an already-registered client.
func (h *Hub) Subscribe(client *Client, wards []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ward := range wards {
		if h.clients[ward] == nil {
			h.clients[ward] = make(map[*Client]struct{})
		}
		h.clients[ward][client] = struct{}{}
	}
	client.Wards = append(client.Wards, wards...)
}

// Unsubscribe dynamically removes wards from an already-registered client.
func (h *Hub) Unsubscribe(client *Client, wards []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	removeSet := make(map[string]struct{}, len(wards))
	for _, w := range wards {
		removeSet[w] = struct{}{}
	}

	for _, ward := range wards {
		if subscribers, ok := h.clients[ward]; ok {
			delete(subscribers, client)
			if len(subscribers) == 0 {
				delete(h.clients, ward)
			}
		}
	}

	remaining := make([]string, 0, len(client.Wards))
	for _, w := range client.Wards {
		if _, rm := removeSet[w]; !rm {
			remaining = append(remaining, w)
		}
	}
	client.Wards = remaining
}

// ProcessMessage handles an inbound ClientMessage, dispatching to Subscribe
// or Unsubscribe as appropriate.
func (h *Hub) ProcessMessage(client *Client, msg ClientMessage) {
	switch msg.Action {
	case "subscribe":
		h.Subscribe(client, msg.Wards)
	case "unsubscribe":
		h.Unsubscribe(client, msg.Wards)
	}
}

// Broadcast sends an event to all clients subscribed to the given ward.
func (h *Hub) Broadcast(ward string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Msg("dashboard: failed to marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	subscribers, ok := h.clients[ward]
	if !ok {
		return
	}

	for client := range subscribers {
		select {
		case client.Send <- data:
		default:
			// Client buffer full; skip to avoid blocking.
		}
	}
}

// BroadcastAll sends an event to every connected client regardless of ward.
func (h *Hub) BroadcastAll(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Msg("dashboard: failed to marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.all {
		select {
		case client.Send <- data:
		default:
			// Client buffer full; skip to avoid blocking.
		}
	}
}

// Publish implements the EventPublisher interface by broadcasting the event
// to subscribers of the event's ward. Events without a ward go to everyone.
func (h *Hub) Publish(_ context.Context, event Event) error {
	if event.Ward == "" {
		h.BroadcastAll(event)
		return nil
	}
	h.Broadcast(event.Ward, event)
	return nil
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

// WardCount returns the number of clients subscribed to a specific ward.
func (h *Hub) WardCount(ward string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[ward])
}

// ---------------------------------------------------------------------------
// Handler upgrades dashboard connections and registers them with the hub.
// ---------------------------------------------------------------------------

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; tighten in production.
	},
}

// Handler handles HTTP-to-WebSocket upgrades and message routing.
type Handler struct {
	hub *Hub
}

// NewHandler creates a new handler bound to the given Hub.
func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// RegisterRoutes registers the dashboard endpoint on the provided Echo group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/dashboard", h.HandleConnect)
}

// HandleConnect upgrades an HTTP connection to WebSocket, registers the
// client with the hub, and starts read/write pumps. An optional ?ward=
// query parameter seeds the initial subscription.
func (h *Handler) HandleConnect(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	var wards []string
	if ward := c.QueryParam("ward"); ward != "" {
		wards = append(wards, ward)
	}

	client := &Client{
		ID:    uuid.New().String(),
		Wards: wards,
		Send:  make(chan []byte, 256),
		hub:   h.hub,
		conn:  &gorillaConnAdapter{ws},
	}

	h.hub.Register(client)

	go h.writePump(client, ws)
	go h.readPump(client, ws)

	return nil
}

// readPump reads messages from the WebSocket connection and processes them.
func (h *Handler) readPump(client *Client, ws *gorillawebsocket.Conn) {
	defer func() {
		h.hub.Unregister(client)
		ws.Close()
	}()

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue // Ignore malformed messages.
		}

		h.hub.ProcessMessage(client, msg)
	}
}

// writePump writes messages from the Send channel to the WebSocket connection.
func (h *Handler) writePump(client *Client, ws *gorillawebsocket.Conn) {
	defer ws.Close()

	for message := range client.Send {
		if err := ws.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
			break
		}
	}
}

// gorillaConnAdapter wraps a gorilla/websocket.Conn to satisfy the Conn interface.
type gorillaConnAdapter struct {
	conn *gorillawebsocket.Conn
}

func (a *gorillaConnAdapter) ReadMessage() (int, []byte, error) {
	return a.conn.ReadMessage()
}

func (a *gorillaConnAdapter) WriteMessage(messageType int, data []byte) error {
	return a.conn.WriteMessage(messageType, data)
}

func (a *gorillaConnAdapter) Close() error {
	return a.conn.Close()
}
