package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
	"github.com/yigit/nodues/internal/app/models"
)

// Hub keeps the connected clients of every student and pushes workflow events to them
type Hub struct {
	// Registered clients organized by student ID
	clients map[string]map[*Client]bool

	broadcast  chan models.WorkflowEvent
	register   chan *Client
	unregister chan *Client
	// done is closed when Run returns
	done chan struct{}

	mu     sync.RWMutex
	logger zerolog.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan models.WorkflowEvent, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.With().Str("component", "ws-hub").Logger(),
	}
}

// Run handles registrations and broadcasts until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.studentID]; !ok {
		h.clients[client.studentID] = make(map[*Client]bool)
	}
	h.clients[client.studentID][client] = true

	h.logger.Info().
		Str("studentID", client.studentID).
		Str("subject", client.subject).
		Msg("Client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

// removeLocked drops a client; the caller holds mu
func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.clients[client.studentID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, client.studentID)
	}
	h.logger.Info().
		Str("studentID", client.studentID).
		Str("subject", client.subject).
		Msg("Client unregistered")
}

// deliver sends an event to every client of its student. Clients whose
// buffer is full are dropped.
func (h *Hub) deliver(event models.WorkflowEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("studentID", event.StudentID).Msg("Failed to marshal event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.clients[event.StudentID]
	for client := range clients {
		select {
		case client.send <- data:
		default:
			h.removeLocked(client)
		}
	}

	h.logger.Debug().
		Str("studentID", event.StudentID).
		Str("type", string(event.Type)).
		Int("clientCount", len(clients)).
		Msg("Event delivered")
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.clients {
		for client := range clients {
			h.removeLocked(client)
		}
	}
}

// attach hands a client to the running hub; false once the hub has stopped
func (h *Hub) attach(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// detach removes a client unless the hub has already stopped
func (h *Hub) detach(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues an event for delivery without blocking the caller. Events
// are dropped when the queue is full; clients re-read state on reconnect.
func (h *Hub) Publish(event models.WorkflowEvent) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn().Str("studentID", event.StudentID).Str("type", string(event.Type)).Msg("Event queue full, dropping event")
	}
}

// ClientCount returns the number of connected clients of a student
func (h *Hub) ClientCount(studentID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[studentID])
}
