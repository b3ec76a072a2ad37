package chat

import (
	"encoding/json"
	"fmt"

	"room-relay/internal/user"
)

// ChatMessage is the canonical stored record. ID and Timestamp are assigned
// by the server; Timestamp is unix milliseconds.
type ChatMessage struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Content   string `json:"content"`
	RoomID    string `json:"roomId"`
}

type EventType string

const (
	EventAuth    EventType = "auth"
	EventMessage EventType = "message"
	EventJoin    EventType = "join"
	EventLeave   EventType = "leave"
	EventTyping  EventType = "typing"
)

// Envelope is the inbound wire shape. Clients may send fields that are not
// relevant to the event type; DecodeIntent keeps only what each type needs.
type Envelope struct {
	Type     EventType    `json:"type"`
	User     *user.User   `json:"user,omitempty"`
	Message  *ChatMessage `json:"message,omitempty"`
	RoomID   string       `json:"roomId,omitempty"`
	IsTyping *bool        `json:"isTyping,omitempty"`
}

// Intent is one decoded inbound client event.
type Intent interface {
	Kind() EventType
}

type AuthIntent struct {
	User   user.User
	RoomID string
}

type MessageIntent struct {
	Content string
}

type TypingIntent struct {
	IsTyping bool
}

func (AuthIntent) Kind() EventType    { return EventAuth }
func (MessageIntent) Kind() EventType { return EventMessage }
func (TypingIntent) Kind() EventType  { return EventTyping }

// DecodeIntent parses one inbound frame. Any frame that is not valid JSON,
// carries an unknown or outbound-only type, or is an auth without a user id
// yields an error wrapping ErrProtocol.
func DecodeIntent(raw []byte) (Intent, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}

	switch env.Type {
	case EventAuth:
		if env.User == nil || !env.User.Valid() {
			return nil, fmt.Errorf("%w: auth without user id", ErrProtocol)
		}
		return AuthIntent{User: *env.User, RoomID: env.RoomID}, nil
	case EventMessage:
		var content string
		if env.Message != nil {
			content = env.Message.Content
		}
		return MessageIntent{Content: content}, nil
	case EventTyping:
		return TypingIntent{IsTyping: env.IsTyping != nil && *env.IsTyping}, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrProtocol)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrProtocol, env.Type)
	}
}

// Event is an outbound server notification. Message is always the stored
// record, never the raw client submission.
type Event struct {
	Type     EventType    `json:"type"`
	User     user.User    `json:"user"`
	RoomID   string       `json:"roomId"`
	Message  *ChatMessage `json:"message,omitempty"`
	IsTyping *bool        `json:"isTyping,omitempty"`
}

func JoinEvent(u user.User, roomID string) Event {
	return Event{Type: EventJoin, User: u, RoomID: roomID}
}

func LeaveEvent(u user.User, roomID string) Event {
	return Event{Type: EventLeave, User: u, RoomID: roomID}
}

func MessageEvent(u user.User, stored ChatMessage) Event {
	return Event{Type: EventMessage, User: u, RoomID: stored.RoomID, Message: &stored}
}

func TypingEvent(u user.User, roomID string, isTyping bool) Event {
	return Event{Type: EventTyping, User: u, RoomID: roomID, IsTyping: &isTyping}
}
