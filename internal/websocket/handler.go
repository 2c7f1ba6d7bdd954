package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// SessionAttacher is notified when a viewer connects to a session, so the
// stream loop for that session can be started lazily.
type SessionAttacher interface {
	AttachSession(sessionID string) error
}

// ServeWs upgrades the connection and wires the client into the hub. The
// attacher is asked to spin up (or resume) the session's stream loop before
// any client frames flow.
func ServeWs(hub *Hub, attacher SessionAttacher) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		sessionID := conn.Params("id")
		if sessionID == "" {
			conn.Close()
			return
		}

		if attacher != nil {
			if err := attacher.AttachSession(sessionID); err != nil {
				conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","data":{"message":"unknown session"}}`))
				conn.Close()
				return
			}
		}

		client := &Client{
			Hub:       hub,
			Conn:      conn,
			Send:      make(chan []byte, 256),
			SessionID: sessionID,
		}
		hub.register <- client

		go client.WritePump()
		client.ReadPump()
	}
}
