package websocket

import (
	"log/slog"
	"sync"

	"github.com/statusplay/statusplay/internal/types"
)

// Hub maintains the set of active clients and fans events out to the
// audience of each author's status feed.
type Hub struct {
	// Registered clients mapped by user ID
	clients map[string]*Client

	// Watchers of each author's feed, mapped authorID -> userID -> client
	watchers map[string]map[string]*Client

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Mutex to protect clients and watchers maps
	mu sync.RWMutex

	// Channel to broadcast events
	broadcast chan *broadcastMessage
}

type broadcastMessage struct {
	authorID string
	exclude  string
	event    *types.Event
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		watchers:   make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMessage, 64),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			// If user already has a connection, close the old one
			if existing, exists := h.clients[client.userID]; exists {
				h.dropWatchesLocked(existing)
				close(existing.send)
				slog.Info("Replaced existing WebSocket connection", slog.String("user_id", client.userID))
			}
			h.clients[client.userID] = client
			h.mu.Unlock()
			slog.Info("WebSocket client connected", slog.String("user_id", client.userID))

		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.userID]; ok && current == client {
				delete(h.clients, client.userID)
				h.dropWatchesLocked(client)
				close(client.send)
				slog.Info("WebSocket client disconnected", slog.String("user_id", client.userID))
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.broadcastToAudience(message.authorID, message.exclude, message.event)
		}
	}
}

// RegisterClient registers a new client
func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

// UnregisterClient unregisters a client
func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

// Watch subscribes the client to an author's status feed. A viewer
// re-sends its watch frame after every reconnect, so this must be
// idempotent.
func (h *Hub) Watch(client *Client, authorID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.watchers[authorID]
	if !ok {
		set = make(map[string]*Client)
		h.watchers[authorID] = set
	}
	set[client.userID] = client
	slog.Info("Client watching author feed",
		slog.String("user_id", client.userID),
		slog.String("author_id", authorID))
}

// dropWatchesLocked removes the client from every watcher set. Caller
// holds h.mu.
func (h *Hub) dropWatchesLocked(client *Client) {
	for authorID, set := range h.watchers {
		if set[client.userID] == client {
			delete(set, client.userID)
			if len(set) == 0 {
				delete(h.watchers, authorID)
			}
		}
	}
}

// BroadcastToAudience sends an event to the author and everyone
// watching the author's feed, except the excluded user (usually the
// one whose action produced the event).
func (h *Hub) BroadcastToAudience(authorID, excludeUserID string, event *types.Event) {
	message := &broadcastMessage{
		authorID: authorID,
		exclude:  excludeUserID,
		event:    event,
	}

	select {
	case h.broadcast <- message:
	default:
		slog.Warn("Broadcast channel is full, dropping message")
	}
}

func (h *Hub) broadcastToAudience(authorID, excludeUserID string, event *types.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.audienceLocked(authorID) {
		if client.userID == excludeUserID {
			continue
		}
		if err := client.SendEvent(event); err != nil {
			slog.Error("Failed to send event to client",
				slog.String("user_id", client.userID),
				slog.String("error", err.Error()))
			// Remove the client if sending fails
			go func(c *Client) {
				h.unregister <- c
			}(client)
		}
	}
}

// audienceLocked returns the author's own connection plus all watcher
// connections. Caller holds h.mu.
func (h *Hub) audienceLocked(authorID string) []*Client {
	var audience []*Client
	if author, ok := h.clients[authorID]; ok {
		audience = append(audience, author)
	}
	for userID, client := range h.watchers[authorID] {
		if userID == authorID {
			continue
		}
		audience = append(audience, client)
	}
	return audience
}

// IsUserConnected checks if a user is currently connected
func (h *Hub) IsUserConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, exists := h.clients[userID]
	return exists
}

// WatcherCount returns the number of users watching an author's feed.
func (h *Hub) WatcherCount(authorID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.watchers[authorID])
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
