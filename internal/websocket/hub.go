package websocket

import (
	"encoding/json"
	"sync"

	"readloom/internal/models"
)

// Room keys: "book:<id>" for chat subscribers, "user:<id>" for points pushes.
func BookRoom(bookID string) string { return "book:" + bookID }
func UserRoom(userID string) string { return "user:" + userID }

type PointsUpdate struct {
	UserID  string `json:"user_id"`
	Balance int64  `json:"balance"`
}

type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(room string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][client] = struct{}{}
}

func (h *Hub) Unregister(room string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		return
	}
	delete(h.rooms[room], client)
	if len(h.rooms[room]) == 0 {
		delete(h.rooms, room)
	}
}

// BroadcastMessage fans a committed chat message out to the book's room.
// Delivery is at-least-once and best-effort; slow clients are skipped and
// consumers de-duplicate by message id.
func (h *Hub) BroadcastMessage(bookID string, message models.ChatMessage) {
	h.broadcast(BookRoom(bookID), message)
}

func (h *Hub) BroadcastPoints(userID string, update PointsUpdate) {
	h.broadcast(UserRoom(userID), update)
}

func (h *Hub) broadcast(room string, payload any) {
	data, _ := json.Marshal(payload)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[room] {
		select {
		case client.send <- data:
		default:
		}
	}
}
