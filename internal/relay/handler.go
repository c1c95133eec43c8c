package relay

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	// The relay serves browsers and desktop shells on classroom LANs;
	// origin checking is left to the deployment's reverse proxy.
	CheckOrigin:      func(r *http.Request) bool { return true },
	HandshakeTimeout: 10 * time.Second,
}

// Handler upgrades HTTP requests to relay connections.
type Handler struct {
	hub *Hub
}

// NewHandler creates a WebSocket handler feeding the given hub.
func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// HandleWebSocket upgrades the request and pumps frames into the hub
// until the client goes away.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Relay] WebSocket upgrade failed: %v", err)
		return
	}

	conn := NewConnection(ws)
	if err := h.hub.Register(conn); err != nil {
		log.Printf("[Relay] Failed to register connection: %v", err)
		_ = conn.Close()
		return
	}

	go h.readPump(conn, ws)
}

func (h *Handler) readPump(conn *Connection, ws *websocket.Conn) {
	defer func() {
		h.hub.Unregister(conn)
		_ = conn.Close()
	}()

	// 60s read deadline refreshed by pongs, pings every 30s.
	if err := ws.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
		return
	}
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := ws.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			case <-conn.ctx.Done():
				return
			}
		}
	}()

	for {
		messageType, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Relay] WebSocket error: %v", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		if err := h.hub.Dispatch(conn, data); err != nil {
			log.Printf("[Relay] Dropped frame from %s: %v", conn.ID(), err)
		}
	}
}
