package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/statusplay/statusplay/internal/types"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow connections from any origin for development
		// In production, you should check the origin
		return true
	},
}

// Upgrade upgrades an HTTP request to a WebSocket connection.
func Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return upgrader.Upgrade(w, r, nil)
}

// Client represents a WebSocket client connection
type Client struct {
	// The websocket connection
	conn *websocket.Conn

	// Buffered channel of outbound messages
	send chan []byte

	// User ID associated with this connection
	userID string

	// Hub instance
	hub *Hub
}

// NewClient creates a new WebSocket client
func NewClient(conn *websocket.Conn, userID string, hub *Hub) *Client {
	return &Client{
		conn:   conn,
		send:   make(chan []byte, 256),
		userID: userID,
		hub:    hub,
	}
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
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
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", slog.String("error", err.Error()))
			}
			break
		}

		var event types.Event
		if err := json.Unmarshal(message, &event); err != nil {
			slog.Warn("Dropping malformed frame", slog.String("user_id", c.userID))
			continue
		}
		c.handleFrame(&event)
	}
}

// handleFrame routes one inbound frame. Viewers send watch frames to
// subscribe to an author's feed, and advisory notify frames after a
// successful interaction. Notices are relayed to the rest of the
// audience; they never change stored state.
func (c *Client) handleFrame(event *types.Event) {
	switch event.Type {
	case types.EventWatch:
		var watch types.WatchEvent
		if err := event.Decode(&watch); err != nil || watch.AuthorID == "" {
			slog.Warn("Dropping invalid watch frame", slog.String("user_id", c.userID))
			return
		}
		c.hub.Watch(c, watch.AuthorID)

	case types.EventNotifyLike, types.EventNotifyComment, types.EventNotifyView:
		var notify types.NotifyEvent
		if err := event.Decode(&notify); err != nil || notify.PostID == "" {
			slog.Warn("Dropping invalid notify frame", slog.String("user_id", c.userID))
			return
		}
		c.hub.relayNotify(c.userID, event)

	default:
		slog.Warn("Dropping unknown frame",
			slog.String("user_id", c.userID),
			slog.String("type", string(event.Type)))
	}
}

// relayNotify forwards an advisory notice to every audience the sender
// belongs to, minus the sender.
func (h *Hub) relayNotify(senderID string, event *types.Event) {
	h.mu.RLock()
	var targets []string
	for authorID, set := range h.watchers {
		if _, watching := set[senderID]; watching || authorID == senderID {
			targets = append(targets, authorID)
		}
	}
	h.mu.RUnlock()

	for _, authorID := range targets {
		h.BroadcastToAudience(authorID, senderID, event)
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
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
				// The hub closed the channel
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

// SendEvent sends an event to this client
func (c *Client) SendEvent(event *types.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	select {
	case c.send <- data:
		return nil
	default:
		return websocket.ErrCloseSent
	}
}

// Start starts the client's read and write pumps
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// UserID returns the user ID associated with this client
func (c *Client) UserID() string {
	return c.userID
}
