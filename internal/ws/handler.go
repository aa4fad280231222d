package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WorldStateProvider supplies the initial snapshot sent to a newly
// connected viewer, grounded on the teacher's GameStateProvider.
type WorldStateProvider interface {
	GetFullState(worldID uuid.UUID) (interface{}, error)
}

// Handler handles WebSocket connections, grounded on the teacher's
// Handler (internal/ws/handler.go), renamed from game to world.
type Handler struct {
	hub           *Hub
	stateProvider WorldStateProvider
}

func NewHandler(hub *Hub, stateProvider WorldStateProvider) *Handler {
	return &Handler{hub: hub, stateProvider: stateProvider}
}

// ServeWS handles WebSocket requests from viewers of a world.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request, worldID uuid.UUID) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "err", err)
		return
	}

	client := &Client{
		ID:      uuid.New(),
		WorldID: worldID,
		Conn:    conn,
		Send:    make(chan []byte, 256),
		hub:     h.hub,
	}

	h.hub.Register(client)

	if h.stateProvider != nil {
		state, err := h.stateProvider.GetFullState(worldID)
		if err == nil {
			if data, err := json.Marshal(state); err == nil {
				client.Send <- data
			}
		}
	}

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket read error", "err", err)
			}
			break
		}
		c.handleMessage(message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		slog.Warn("failed to parse client message", "err", err)
		return
	}

	switch msg.Type {
	case "ping":
		response, _ := json.Marshal(map[string]string{"type": "pong"})
		c.Send <- response

	case "subscribe":
		if msg.WorldID != uuid.Nil && msg.WorldID != c.WorldID {
			c.hub.Unregister(c)
			c.WorldID = msg.WorldID
			c.hub.Register(c)
		}

	default:
		slog.Warn("unknown client message type", "type", msg.Type)
	}
}

// ClientMessage represents a message from a WebSocket client.
type ClientMessage struct {
	Type    string          `json:"type"`
	WorldID uuid.UUID       `json:"world_id,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}
