// Package signalclient is the client side of the signaling WebSocket.
// Client owns the transport (dial, read pump, write pump, automatic
// reconnect); Handler decodes Envelopes into the typed channels the session
// orchestrator selects on, and implements peerconn.Signaler so the peer
// connection controller can emit offers/answers/candidates without knowing
// about the socket.
package signalclient

import (
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relaybeam/relaybeam/internal/wire"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	minBackoff = 250 * time.Millisecond
	maxBackoff = 5 * time.Second
)

// Client manages the WebSocket connection to the signaling server, including
// automatic reconnection with unbounded retries and exponential backoff
// capped at 5s.
type Client struct {
	serverURL string

	mu       sync.Mutex
	conn     *websocket.Conn
	closed   bool
	outgoing chan *wire.Envelope

	// Incoming delivers every decoded Envelope from the server to the
	// Handler, which fans it out by type.
	Incoming chan *wire.Envelope

	// Reconnected fires each time a new connection replaces a dropped one,
	// after the first. The session orchestrator uses this to re-assert
	// room membership (request-join/join-room/create-room).
	Reconnected chan struct{}

	// OnError receives non-fatal transport errors for logging/presentation.
	OnError func(error)
}

// NewClient constructs a Client for serverURL (e.g. ws://host:port/ws).
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL:   serverURL,
		outgoing:    make(chan *wire.Envelope, 32),
		Incoming:    make(chan *wire.Envelope, 32),
		Reconnected: make(chan struct{}, 1),
	}
}

// Connect dials once, starting the read/write pumps. A dropped connection is
// redialed automatically from within the read pump's goroutine.
func (c *Client) Connect() error {
	conn, err := c.dial()
	if err != nil {
		return err
	}
	c.setConn(conn)
	go c.writePump(conn)
	go c.readPump(conn, false)
	return nil
}

func (c *Client) dial() (*websocket.Conn, error) {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial signaling server: %w", err)
	}
	conn.SetReadLimit(maxMessageSize)
	return conn, nil
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

// readPump reads until the connection drops, then (unless closed) redials
// with exponential backoff and restarts both pumps under the new
// connection. wasReconnect distinguishes the first dial from later ones so
// Reconnected only fires after a real drop.
func (c *Client) readPump(conn *websocket.Conn, wasReconnect bool) {
	if wasReconnect {
		select {
		case c.Reconnected <- struct{}{}:
		default:
		}
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var env wire.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			conn.Close()
			break
		}
		c.Incoming <- &env
	}

	if c.isClosed() {
		return
	}
	if c.OnError != nil {
		c.OnError(fmt.Errorf("signaling connection dropped, reconnecting"))
	}
	c.redialWithBackoff()
}

func (c *Client) redialWithBackoff() {
	backoff := minBackoff
	for {
		if c.isClosed() {
			return
		}
		conn, err := c.dial()
		if err == nil {
			c.setConn(conn)
			go c.writePump(conn)
			go c.readPump(conn, true)
			return
		}
		if c.OnError != nil {
			c.OnError(fmt.Errorf("reconnect: %w", err))
		}
		time.Sleep(backoff)
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (c *Client) writePump(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case env, ok := <-c.outgoing:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}

		if c.currentConn() != conn {
			return
		}
	}
}

func (c *Client) currentConn() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Send enqueues env for delivery to the server. Safe to call from any
// goroutine; silently dropped once the client has been closed.
func (c *Client) Send(env *wire.Envelope) {
	if c.isClosed() {
		return
	}
	select {
	case c.outgoing <- env:
	default:
		slog.Warn("signaling outgoing queue full, dropping envelope", "type", env.Type)
	}
}

// Close tears down the connection and stops reconnect attempts.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteMessage(websocket.CloseMessage, []byte{})
		conn.Close()
	}
}
