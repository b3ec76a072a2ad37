package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
)

// DuplicatePolicy decides what happens when a user id authenticates while
// another connection already holds it.
type DuplicatePolicy string

const (
	// DuplicateEvict replaces the registry entry and force-closes the old connection.
	DuplicateEvict DuplicatePolicy = "evict"
	// DuplicateReject drops the new auth; the new connection stays unauthenticated.
	DuplicateReject DuplicatePolicy = "reject"
)

func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch p := DuplicatePolicy(s); p {
	case DuplicateEvict, DuplicateReject:
		return p, nil
	}
	return "", fmt.Errorf("unknown duplicate session policy %q", s)
}

// Archiver receives every stored message. Failures are logged only.
type Archiver interface {
	ArchiveMessage(ctx context.Context, msg ChatMessage) error
}

type Options struct {
	DefaultRoom string
	Policy      DuplicatePolicy
	Archive     Archiver
}

// Hub owns the connection registry. Its run loop is the only goroutine that
// touches the registry or sends on a client's send buffer.
type Hub struct {
	registry *Registry

	register   chan registration
	unregister chan unregistration
	broadcast  chan roomEvent
	exec       chan func(*Registry)
	done       chan struct{}

	repo        *Repository
	archive     Archiver
	policy      DuplicatePolicy
	defaultRoom string
	log         *log.Logger
}

type registration struct {
	client *Client
	reply  chan bool
}

type unregistration struct {
	client *Client
	reply  chan departure
}

// departure describes the registry state after a connection left it.
type departure struct {
	// removed is false when the connection had already been displaced.
	removed bool
	// replacedInRoom is true when the current holder of the user id is bound
	// to the same room as the departing connection.
	replacedInRoom bool
}

type roomEvent struct {
	roomID  string
	payload []byte
}

func NewHub(repo *Repository, logger *log.Logger, opts Options) *Hub {
	if opts.DefaultRoom == "" {
		opts.DefaultRoom = "general"
	}
	if opts.Policy == "" {
		opts.Policy = DuplicateEvict
	}

	return &Hub{
		registry:    NewRegistry(),
		register:    make(chan registration),
		unregister:  make(chan unregistration),
		broadcast:   make(chan roomEvent),
		exec:        make(chan func(*Registry)),
		done:        make(chan struct{}),
		repo:        repo,
		archive:     opts.Archive,
		policy:      opts.Policy,
		defaultRoom: opts.DefaultRoom,
		log:         logger,
	}
}

// Run processes registry mutations and fan-out until ctx is cancelled.
// Live connections are not notified when it stops.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			return

		case req := <-h.register:
			req.reply <- h.handleRegister(req.client)

		case req := <-h.unregister:
			req.reply <- h.handleUnregister(req.client)

		case ev := <-h.broadcast:
			h.fanOut(ev)

		case fn := <-h.exec:
			fn(h.registry)
		}
	}
}

func (h *Hub) handleRegister(c *Client) bool {
	if cur, ok := h.registry.Lookup(c.user.UserID); ok && cur != c && cur.isOpen() && h.policy == DuplicateReject {
		h.log.Printf("rejecting duplicate session for user %q in room %q", c.user.UserID, c.roomID)
		return false
	}

	if prev := h.registry.Register(c); prev != nil {
		h.log.Printf("evicting previous session of user %q in room %q", prev.user.UserID, prev.roomID)
		go prev.kick()
	}
	return true
}

func (h *Hub) handleUnregister(c *Client) departure {
	d := departure{removed: h.registry.Remove(c)}
	if !d.removed {
		if cur, ok := h.registry.Lookup(c.user.UserID); ok && cur.roomID == c.roomID {
			d.replacedInRoom = true
		}
	}
	return d
}

// fanOut queues the payload on every open connection in the room. A full
// buffer skips that recipient; nothing is retried or removed.
func (h *Hub) fanOut(ev roomEvent) {
	h.registry.ForEachInRoom(ev.roomID, func(c *Client) {
		select {
		case c.send <- ev.payload:
		default:
			h.log.Printf("send buffer full for user %q in room %q, dropping event", c.user.UserID, ev.roomID)
		}
	})
}

// Register adds c to the registry. It reports false when the duplicate
// session policy refused it or the hub is stopped.
func (h *Hub) Register(c *Client) bool {
	reply := make(chan bool, 1)
	select {
	case h.register <- registration{client: c, reply: reply}:
	case <-h.done:
		return false
	}
	return <-reply
}

func (h *Hub) Unregister(c *Client) departure {
	reply := make(chan departure, 1)
	select {
	case h.unregister <- unregistration{client: c, reply: reply}:
	case <-h.done:
		return departure{}
	}
	return <-reply
}

// Broadcast sends ev to every open connection registered to roomID,
// including the connection that caused it.
func (h *Hub) Broadcast(roomID string, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.log.Printf("error encoding %s event for room %q: %v", ev.Type, roomID, err)
		return
	}

	select {
	case h.broadcast <- roomEvent{roomID: roomID, payload: payload}:
	case <-h.done:
	}
}

func (h *Hub) Lookup(userID string) (*Client, bool) {
	type result struct {
		client *Client
		ok     bool
	}
	reply := make(chan result, 1)
	if !h.do(func(r *Registry) {
		c, ok := r.Lookup(userID)
		reply <- result{c, ok}
	}) {
		return nil, false
	}
	res := <-reply
	return res.client, res.ok
}

func (h *Hub) ConnectionCount() int {
	reply := make(chan int, 1)
	if !h.do(func(r *Registry) { reply <- r.Len() }) {
		return 0
	}
	return <-reply
}

func (h *Hub) do(fn func(*Registry)) bool {
	select {
	case h.exec <- fn:
		return true
	case <-h.done:
		return false
	}
}
