package api

import (
	"encoding/json"
	"log"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const defaultPongWait = 60 * time.Second

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (h *Handlers) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(h.AllowedOrigins, origin)
		},
	}
}

func (h *Handlers) pongWait() time.Duration {
	if h.PongWait > 0 {
		return h.PongWait
	}
	return defaultPongWait
}

// keepAlive pings conn until done is closed. Each pong extends the read deadline.
func (h *Handlers) keepAlive(userID uuid.UUID, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(h.pongWait() * 9 / 10)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := h.Hub.Ping(userID, conn); err != nil {
				log.Printf("WebSocket ping error for user %s: %v", userID, err)
				conn.Close()
				return
			}
		}
	}
}

// WebSocketHandler keeps a live connection for notification pushes. Browsers pass
// the token as ?token= since they cannot set headers on the upgrade request.
// The server pings every 9/10 of the pong wait, so idle clients stay connected as
// long as they answer pings.
// GET /ws
func (h *Handlers) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader().Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.Hub.Register(userID, conn)
	defer h.Hub.Unregister(userID, conn)

	if err := h.Hub.Reply(userID, conn, "connected", map[string]string{"status": "connected"}); err != nil {
		log.Printf("WebSocket write error for user %s: %v", userID, err)
		return
	}
	h.Dispatcher.PushUnreadCount(r.Context(), userID)

	pongWait := h.pongWait()
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go h.keepAlive(userID, conn, done)

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket read error for user %s: %v", userID, err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		switch msg.Type {
		case "ping":
			err = h.Hub.Reply(userID, conn, "pong", "pong")
		case "heartbeat":
			err = h.Hub.Reply(userID, conn, "heartbeat_ack", "ok")
		case "request_online_status":
			var req struct {
				UserIDs []uuid.UUID `json:"user_ids"`
			}
			if jsonErr := json.Unmarshal(msg.Data, &req); jsonErr != nil {
				log.Printf("Error unmarshaling online status request from user %s: %v", userID, jsonErr)
				continue
			}
			status := make(map[string]bool, len(req.UserIDs))
			for _, id := range req.UserIDs {
				status[id.String()] = h.Hub.IsOnline(id)
			}
			err = h.Hub.Reply(userID, conn, "online_status", status)
		default:
			log.Printf("Unknown WebSocket message type %q from user %s", msg.Type, userID)
		}
		if err != nil {
			log.Printf("WebSocket write error for user %s: %v", userID, err)
			return
		}
	}
}
