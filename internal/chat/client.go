package chat

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"room-relay/internal/user"
)

const (
	writeWait      = 10 * time.Second    // Time allowed to write a message to the peer.
	pongWait       = 60 * time.Second    // Time allowed to read the next pong message from the peer.
	pingPeriod     = (pongWait * 9) / 10 // Must be less than pongWait.
	maxMessageSize = 4096                // Maximum frame size allowed from peer.
	sendBufferSize = 256
)

type connState int

const (
	stateUnauthenticated connState = iota
	stateAuthenticated
	stateClosed
)

func (s connState) String() string {
	switch s {
	case stateUnauthenticated:
		return "unauthenticated"
	case stateAuthenticated:
		return "authenticated"
	case stateClosed:
		return "closed"
	}
	return "unknown"
}

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	log  *log.Logger

	// Buffered channel of outbound frames. Only the hub sends on it.
	send chan []byte

	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	// Owned by the read goroutine. user and roomID are handed to the hub
	// through Register and never change afterwards.
	state  connState
	user   user.User
	roomID string
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		log:  hub.log,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
}

// readPump decodes inbound frames and runs the connection state machine.
// Frames from one connection are handled in order.
func (c *Client) readPump() {
	defer func() {
		c.handleClose()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.log.Printf("read error (user %q): %v", c.user.UserID, err)
			}
			return
		}
		c.handleFrame(message)
	}
}

// writePump drains the send buffer to the socket and keeps it alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.markClosed()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Client) markClosed() {
	c.closed.Store(true)
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Client) isOpen() bool {
	return !c.closed.Load()
}

// kick closes the socket of a connection displaced by a newer session. The
// read goroutine then runs the close transition.
func (c *Client) kick() {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "replaced by a newer session")
	c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	c.conn.Close()
}
