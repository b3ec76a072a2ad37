// Package relayclient speaks the relay's websocket protocol from Go. The
// load tester and the end-to-end tests drive the server through it.
package relayclient

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"room-relay/internal/chat"
	"room-relay/internal/user"
)

const (
	writeWait       = 10 * time.Second
	eventBufferSize = 256
)

var ErrClosed = errors.New("relay connection closed")

type Client struct {
	conn *websocket.Conn

	writeMu sync.Mutex
	events  chan chat.Event
	done    chan struct{}

	closeOnce sync.Once
	errMu     sync.Mutex
	err       error
}

// Dial connects to a relay websocket URL such as ws://localhost:3500/ws.
func Dial(ctx context.Context, url string) (*Client, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}

	c := &Client{
		conn:   conn,
		events: make(chan chat.Event, eventBufferSize),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	defer close(c.events)

	for {
		var ev chat.Event
		if err := c.conn.ReadJSON(&ev); err != nil {
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				continue
			}
			c.setErr(err)
			return
		}

		select {
		case c.events <- ev:
		case <-c.done:
			return
		}
	}
}

// Events yields server events in arrival order. The channel is closed when
// the connection ends; Err then reports why.
func (c *Client) Events() <-chan chat.Event {
	return c.events
}

func (c *Client) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

func (c *Client) setErr(err error) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

// Auth binds the connection to u and roomID. An empty roomID lets the
// server pick its default room.
func (c *Client) Auth(u user.User, roomID string) error {
	return c.write(chat.Envelope{Type: chat.EventAuth, User: &u, RoomID: roomID})
}

func (c *Client) SendMessage(content string) error {
	return c.write(chat.Envelope{Type: chat.EventMessage, Message: &chat.ChatMessage{Content: content}})
}

func (c *Client) SetTyping(isTyping bool) error {
	return c.write(chat.Envelope{Type: chat.EventTyping, IsTyping: &isTyping})
}

func (c *Client) write(env chat.Envelope) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(env)
}

// Next waits for the next event matching fn, discarding the others.
func (c *Client) Next(ctx context.Context, fn func(chat.Event) bool) (chat.Event, error) {
	for {
		select {
		case ev, ok := <-c.events:
			if !ok {
				if err := c.Err(); err != nil {
					return chat.Event{}, err
				}
				return chat.Event{}, ErrClosed
			}
			if fn == nil || fn(ev) {
				return ev, nil
			}
		case <-ctx.Done():
			return chat.Event{}, ctx.Err()
		}
	}
}

// Close sends a normal close frame and tears the connection down.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		c.writeMu.Unlock()

		err = c.conn.Close()
	})
	return err
}

// OfType matches events of the given type.
func OfType(t chat.EventType) func(chat.Event) bool {
	return func(ev chat.Event) bool { return ev.Type == t }
}
