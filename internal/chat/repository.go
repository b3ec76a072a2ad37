package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"room-relay/internal/user"
)

// DefaultHistoryLimit is the number of messages returned when no limit is given.
const DefaultHistoryLimit = 50

// RetentionPolicy bounds a room's message list. Window is measured from the
// most recent append, not per message. Zero values disable a bound.
type RetentionPolicy struct {
	Window      time.Duration
	MaxMessages int64
}

func DefaultRetention() RetentionPolicy {
	return RetentionPolicy{Window: 7 * 24 * time.Hour}
}

// Repository is the persistence gateway for messages, profiles and room
// membership. Each call touches a single key; there is no cross-key
// transaction between a profile write and a membership write.
type Repository struct {
	redis     *redis.Client
	users     *user.Repository
	retention RetentionPolicy
	now       func() time.Time
	newID     func() string
}

func NewRepository(redisClient *redis.Client, retention RetentionPolicy) *Repository {
	return &Repository{
		redis:     redisClient,
		users:     user.NewRepository(redisClient),
		retention: retention,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

func MessagesKey(roomID string) string {
	return "chat:" + roomID + ":messages"
}

func MembersKey(roomID string) string {
	return "room:" + roomID + ":users"
}

// StoreMessage assigns an id (and a timestamp) when absent, pushes the record
// to the head of the room list and resets the list's retention window.
func (r *Repository) StoreMessage(ctx context.Context, msg ChatMessage) (ChatMessage, error) {
	if msg.ID == "" {
		msg.ID = r.newID()
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = r.now().UnixMilli()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return ChatMessage{}, storageErr("storeMessage", err)
	}

	key := MessagesKey(msg.RoomID)
	_, err = r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, data)
		if r.retention.MaxMessages > 0 {
			pipe.LTrim(ctx, key, 0, r.retention.MaxMessages-1)
		}
		if r.retention.Window > 0 {
			pipe.Expire(ctx, key, r.retention.Window)
		}
		return nil
	})
	if err != nil {
		return ChatMessage{}, storageErr("storeMessage", err)
	}

	return msg, nil
}

// GetRoomMessages returns up to limit records, newest first.
func (r *Repository) GetRoomMessages(ctx context.Context, roomID string, limit int) ([]ChatMessage, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	raw, err := r.redis.LRange(ctx, MessagesKey(roomID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, storageErr("getRoomMessages", err)
	}

	messages := make([]ChatMessage, 0, len(raw))
	for _, item := range raw {
		var msg ChatMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, storageErr("getRoomMessages", fmt.Errorf("decode %s: %w", MessagesKey(roomID), err))
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (r *Repository) StoreUser(ctx context.Context, u user.User) error {
	if err := r.users.Save(ctx, u); err != nil {
		return storageErr("storeUser", err)
	}
	return nil
}

// GetUser returns user.ErrNotFound unwrapped on a miss; every other failure
// is a StorageError.
func (r *Repository) GetUser(ctx context.Context, userID string) (*user.User, error) {
	u, err := r.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, err
		}
		return nil, storageErr("getUser", err)
	}
	return u, nil
}

func (r *Repository) AddUserToRoom(ctx context.Context, userID, roomID string) error {
	if err := r.redis.SAdd(ctx, MembersKey(roomID), userID).Err(); err != nil {
		return storageErr("addUserToRoom", err)
	}
	return nil
}

func (r *Repository) RemoveUserFromRoom(ctx context.Context, userID, roomID string) error {
	if err := r.redis.SRem(ctx, MembersKey(roomID), userID).Err(); err != nil {
		return storageErr("removeUserFromRoom", err)
	}
	return nil
}

// GetRoomUsers returns member ids in no particular order.
func (r *Repository) GetRoomUsers(ctx context.Context, roomID string) ([]string, error) {
	ids, err := r.redis.SMembers(ctx, MembersKey(roomID)).Result()
	if err != nil {
		return nil, storageErr("getRoomUsers", err)
	}
	return ids, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return storageErr("ping", err)
	}
	return nil
}
