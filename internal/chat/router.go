package chat

import (
	"context"
	"time"

	"room-relay/internal/user"
)

// opTimeout bounds each storage call made on behalf of a socket event.
const opTimeout = 5 * time.Second

// handleFrame decodes one inbound frame and dispatches it by state.
// Nothing is ever written back to the sender on failure.
func (c *Client) handleFrame(raw []byte) {
	intent, err := DecodeIntent(raw)
	if err != nil {
		c.log.Printf("dropping frame (user %q, state %s): %v", c.user.UserID, c.state, err)
		return
	}

	switch in := intent.(type) {
	case AuthIntent:
		c.handleAuth(in)
	case MessageIntent:
		c.handleMessage(in)
	case TypingIntent:
		c.handleTyping(in)
	}
}

func (c *Client) handleAuth(in AuthIntent) {
	if c.state != stateUnauthenticated {
		c.log.Printf("ignoring re-auth from user %q, already in room %q", c.user.UserID, c.roomID)
		return
	}

	roomID := in.RoomID
	if roomID == "" {
		roomID = c.hub.defaultRoom
	}

	c.user = in.User
	c.roomID = roomID
	if !c.hub.Register(c) {
		c.user, c.roomID = user.User{}, ""
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := c.hub.repo.StoreUser(ctx, in.User); err != nil {
		c.rollbackAuth(err)
		return
	}
	if err := c.hub.repo.AddUserToRoom(ctx, in.User.UserID, roomID); err != nil {
		c.rollbackAuth(err)
		return
	}

	c.state = stateAuthenticated
	c.log.Printf("user %q (%s) joined room %q", c.user.UserID, c.user.UserName, roomID)
	c.hub.Broadcast(roomID, JoinEvent(c.user, roomID))
}

func (c *Client) rollbackAuth(err error) {
	c.log.Printf("dropping auth for user %q in room %q: %v", c.user.UserID, c.roomID, err)
	c.hub.Unregister(c)
	c.user, c.roomID = user.User{}, ""
}

func (c *Client) handleMessage(in MessageIntent) {
	if !c.requireAuth(EventMessage) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	stored, err := c.hub.repo.StoreMessage(ctx, ChatMessage{
		Timestamp: time.Now().UnixMilli(),
		UserID:    c.user.UserID,
		Username:  c.user.UserName,
		Content:   in.Content,
		RoomID:    c.roomID,
	})
	if err != nil {
		c.log.Printf("dropping message from user %q in room %q: %v", c.user.UserID, c.roomID, err)
		return
	}

	if c.hub.archive != nil {
		if err := c.hub.archive.ArchiveMessage(ctx, stored); err != nil {
			c.log.Printf("error archiving message %s: %v", stored.ID, err)
		}
	}

	c.hub.Broadcast(c.roomID, MessageEvent(c.user, stored))
}

func (c *Client) handleTyping(in TypingIntent) {
	if !c.requireAuth(EventTyping) {
		return
	}
	c.hub.Broadcast(c.roomID, TypingEvent(c.user, c.roomID, in.IsTyping))
}

func (c *Client) requireAuth(kind EventType) bool {
	if c.state == stateAuthenticated {
		return true
	}
	c.log.Printf("dropping %s frame: %v", kind, ErrAuthRequired)
	return false
}

// handleClose runs once when the socket is gone. An authenticated connection
// leaves its room unless a newer session of the same user now holds it.
func (c *Client) handleClose() {
	c.markClosed()

	if c.state != stateAuthenticated {
		c.state = stateClosed
		return
	}
	c.state = stateClosed

	d := c.hub.Unregister(c)
	if !d.removed && d.replacedInRoom {
		c.log.Printf("session of user %q in room %q closed after replacement", c.user.UserID, c.roomID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := c.hub.repo.RemoveUserFromRoom(ctx, c.user.UserID, c.roomID); err != nil {
		c.log.Printf("dropping leave of user %q from room %q: %v", c.user.UserID, c.roomID, err)
		return
	}

	c.log.Printf("user %q left room %q", c.user.UserID, c.roomID)
	c.hub.Broadcast(c.roomID, LeaveEvent(c.user, c.roomID))
}
