// Package notify stores relationship events as notifications and pushes them to
// connected websocket clients.
package notify

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// WSMessage is the envelope of every frame sent over the socket.
type WSMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// client serialises writes to one connection; gorilla connections allow a single
// concurrent writer.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(msg WSMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

func (c *client) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Hub tracks one active connection per user.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[uuid.UUID]*client)}
}

// Register makes conn the user's active connection. A previous connection is closed.
func (h *Hub) Register(userID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	old := h.clients[userID]
	h.clients[userID] = &client{conn: conn}
	h.mu.Unlock()

	if old != nil && old.conn != conn {
		old.conn.Close()
	}
	log.Printf("User %s connected via WebSocket", userID)
}

// Unregister removes conn if it is still the user's active connection.
func (h *Hub) Unregister(userID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[userID]; ok && c.conn == conn {
		delete(h.clients, userID)
		log.Printf("User %s disconnected from WebSocket", userID)
	}
}

func (h *Hub) clientFor(userID uuid.UUID, conn *websocket.Conn) *client {
	h.mu.RLock()
	c, ok := h.clients[userID]
	h.mu.RUnlock()
	if !ok || c.conn != conn {
		c = &client{conn: conn}
	}
	return c
}

// Reply writes to a registered connection through its write lock.
func (h *Hub) Reply(userID uuid.UUID, conn *websocket.Conn, msgType string, data any) error {
	return h.clientFor(userID, conn).write(WSMessage{Type: msgType, Data: data})
}

// Ping sends a ping control frame through the connection's write lock.
func (h *Hub) Ping(userID uuid.UUID, conn *websocket.Conn) error {
	return h.clientFor(userID, conn).ping()
}

// SendToUser pushes a message to the user's connection, if any, and reports whether
// it was delivered. A connection that fails to write is dropped.
func (h *Hub) SendToUser(userID uuid.UUID, msgType string, data any) bool {
	h.mu.RLock()
	c, ok := h.clients[userID]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	if err := c.write(WSMessage{Type: msgType, Data: data}); err != nil {
		log.Printf("Error broadcasting to user %s: %v", userID, err)
		h.Unregister(userID, c.conn)
		c.conn.Close()
		return false
	}
	return true
}

func (h *Hub) IsOnline(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

func (h *Hub) OnlineCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll closes every connection, used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[uuid.UUID]*client)
	h.mu.Unlock()

	for _, c := range clients {
		c.mu.Lock()
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		c.mu.Unlock()
		c.conn.Close()
	}
}
