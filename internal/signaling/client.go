package signaling

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relaybeam/relaybeam/internal/room"
	"github.com/relaybeam/relaybeam/internal/wire"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Client wraps a single signaling WebSocket connection — one per live peer.
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	Handle room.PeerHandle

	// Send is a buffered channel of outbound envelopes; writePump is the
	// connection's sole writer.
	Send chan *wire.Envelope
}

// ReadPump pumps inbound envelopes from the socket to the hub's broadcast
// channel. Must run in its own goroutine; it is the connection's sole
// reader.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var env wire.Envelope
		if err := c.Conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("signaling read error", "peer", c.Handle, "err", err)
			}
			return
		}
		c.Hub.Broadcast <- inbound{client: c, envelope: env}
	}
}

// WritePump pumps outbound envelopes from Send to the socket, and pings on a
// timer to keep the connection alive. Must run in its own goroutine; it is
// the connection's sole writer.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(env); err != nil {
				slog.Warn("signaling write error", "peer", c.Handle, "err", err)
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

// reply is a convenience for sending a single envelope without blocking
// when the client's send buffer is full; a full buffer drops the envelope
// with a warning.
func (c *Client) reply(env *wire.Envelope) {
	select {
	case c.Send <- env:
	default:
		slog.Warn("signaling send buffer full, dropping envelope", "peer", c.Handle, "type", env.Type)
	}
}

func appError(message string) *wire.Envelope {
	return &wire.Envelope{Type: wire.EventAppError, Message: message}
}
