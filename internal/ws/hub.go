package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client represents a WebSocket connection watching one world.
type Client struct {
	ID      uuid.UUID
	WorldID uuid.UUID
	Conn    *websocket.Conn
	Send    chan []byte
	hub     *Hub
}

// Hub manages all WebSocket connections, grounded on the teacher's Hub
// (internal/ws/hub.go) renamed from per-game rooms to per-world rooms.
// The teacher's per-player fog-of-war customization (BroadcastToGameWithVisibility,
// VisibilityProvider/InventoryProvider) is dropped: townsim has no
// tile-ownership fog-of-war mechanic, every viewer of a world sees the
// same tick broadcast (the player snapshots api.App.WireHub sends), so the
// per-client fan-out collapses to a single marshal-and-send.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	worldRooms map[uuid.UUID]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan BroadcastMessage
}

// BroadcastMessage contains a message to broadcast to a world room.
type BroadcastMessage struct {
	WorldID uuid.UUID
	Message interface{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		worldRooms: make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan BroadcastMessage, 256),
	}
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case msg := <-h.broadcast:
			h.broadcastToWorld(msg)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true

	if client.WorldID != uuid.Nil {
		if h.worldRooms[client.WorldID] == nil {
			h.worldRooms[client.WorldID] = make(map[*Client]bool)
		}
		h.worldRooms[client.WorldID][client] = true
		slog.Info("client joined world", "client", client.ID, "world", client.WorldID)
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.Send)

		if room, ok := h.worldRooms[client.WorldID]; ok {
			delete(room, client)
			if len(room) == 0 {
				delete(h.worldRooms, client.WorldID)
			}
		}
		slog.Info("client disconnected", "client", client.ID)
	}
}

func (h *Hub) broadcastToWorld(msg BroadcastMessage) {
	h.mu.RLock()
	room, ok := h.worldRooms[msg.WorldID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	clients := make([]*Client, 0, len(room))
	for client := range room {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	data, err := json.Marshal(msg.Message)
	if err != nil {
		slog.Error("failed to marshal broadcast message", "err", err)
		return
	}

	for _, client := range clients {
		select {
		case client.Send <- data:
		default:
			h.unregister <- client
		}
	}
}

// BroadcastToWorld sends a message to all clients watching a world.
func (h *Hub) BroadcastToWorld(worldID uuid.UUID, message interface{}) {
	h.broadcast <- BroadcastMessage{WorldID: worldID, Message: message}
}

// TickUpdateMessage is the per-step payload pushed to viewers, grounded on
// the teacher's TickUpdateMessage but reshaped around step/player/
// conversation state instead of tile-diff/object-diff state.
type TickUpdateMessage struct {
	Type    string             `json:"type"`
	Tick    int64              `json:"tick"`
	WorldID uuid.UUID          `json:"world_id"`
	Changes TickChangesMessage `json:"changes"`
}

type TickChangesMessage struct {
	Players       json.RawMessage `json:"players"`
	Conversations json.RawMessage `json:"conversations"`
	Messages      json.RawMessage `json:"messages,omitempty"`
}

// Register adds a new client to the hub.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// WorldClientCount returns the number of clients watching a specific world.
func (h *Hub) WorldClientCount(worldID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if room, ok := h.worldRooms[worldID]; ok {
		return len(room)
	}
	return 0
}
