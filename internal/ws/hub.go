package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"memochat/internal/events"
	"memochat/internal/models"
	"memochat/internal/observability"
)

const writeWait = 5 * time.Second

// Hub fans domain events out to UI websocket clients. A client registered
// with a chat filter only receives events of that chat.
type Hub struct {
	clients map[*websocket.Conn]ConnInfo
	mu      sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]ConnInfo)}
}

// AddClient registers a websocket connection.
func (h *Hub) AddClient(conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = info
}

// RemoveClient forgets a websocket connection.
func (h *Hub) RemoveClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
}

// Len reports the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) recipients(event models.ChatEvent) []*websocket.Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	chatID := event.ChatID()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn, info := range h.clients {
		if info.ChatID == 0 || info.ChatID == chatID {
			conns = append(conns, conn)
		}
	}
	return conns
}

// Broadcast writes event to every matching client.
func (h *Hub) Broadcast(event models.ChatEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("websocket marshal error: %v", err)
		return
	}
	for _, conn := range h.recipients(event) {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.Close()
			h.RemoveClient(conn)
			observability.IncWSEvent("ws_error")
		}
	}
}

// Run forwards events from sub until ctx is done or sub is closed.
// It is the only writer to client connections.
func (h *Hub) Run(ctx context.Context, sub *events.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub.C():
			if !ok {
				return
			}
			h.Broadcast(event)
		}
	}
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown"), time.Now().Add(writeWait))
		conn.Close()
		delete(h.clients, conn)
	}
}
