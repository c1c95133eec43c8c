package bus

import (
	"github.com/gorilla/websocket"
)

// Conn is the minimal surface the connection manager needs from a remote
// transport connection.
type Conn interface {
	WriteJSON(v any) error
	ReadJSON(v any) error
	Close() error
}

// Dialer establishes remote transport connections. Injectable so tests
// can run the manager against a fake transport without a server.
type Dialer interface {
	Dial(url string) (Conn, error)
}

// WebSocketDialer dials the relay over a real WebSocket.
type WebSocketDialer struct{}

func (WebSocketDialer) Dial(url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
