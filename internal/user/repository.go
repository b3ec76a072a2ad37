package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by Get when no profile is stored for the id.
var ErrNotFound = errors.New("user not found")

// Repository stores profiles as JSON scalars under user:{userId}, with no expiry.
type Repository struct {
	redis *redis.Client
}

func NewRepository(redisClient *redis.Client) *Repository {
	return &Repository{redis: redisClient}
}

func Key(userID string) string {
	return "user:" + userID
}

// Save upserts the whole record. Last write wins.
func (r *Repository) Save(ctx context.Context, u User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}

	if err := r.redis.Set(ctx, Key(u.UserID), data, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", Key(u.UserID), err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, userID string) (*User, error) {
	data, err := r.redis.Get(ctx, Key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", Key(userID), err)
	}

	u := &User{}
	if err := json.Unmarshal(data, u); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", Key(userID), err)
	}
	return u, nil
}
