package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"room-relay/internal/user"
)

func newTestClient(userID, roomID string) *Client {
	return &Client{
		user:   user.User{UserID: userID, UserName: "user-" + userID},
		roomID: roomID,
		send:   make(chan []byte, 4),
		done:   make(chan struct{}),
	}
}

func roomMembers(r *Registry, roomID string) []*Client {
	var out []*Client
	r.ForEachInRoom(roomID, func(c *Client) { out = append(out, c) })
	return out
}

func TestRegistry_RegisterLookupRemove(t *testing.T) {
	r := NewRegistry()
	c := newTestClient("1", "general")

	assert.Nil(t, r.Register(c))
	got, ok := r.Lookup("1")
	assert.True(t, ok)
	assert.Same(t, c, got)
	assert.Equal(t, 1, r.Len())

	assert.True(t, r.Remove(c))
	_, ok = r.Lookup("1")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, roomMembers(r, "general"))
	assert.NotContains(t, r.byRoom, "general", "expected empty room index to be dropped")
}

func TestRegistry_RegisterReplacesHolder(t *testing.T) {
	r := NewRegistry()
	first := newTestClient("1", "general")
	second := newTestClient("1", "lobby")

	r.Register(first)
	prev := r.Register(second)
	assert.Same(t, first, prev, "expected displaced connection to be returned")

	got, _ := r.Lookup("1")
	assert.Same(t, second, got)
	assert.Empty(t, roomMembers(r, "general"), "expected displaced connection to be unindexed")
	assert.Equal(t, []*Client{second}, roomMembers(r, "lobby"))

	assert.False(t, r.Remove(first), "expected displaced connection not to remove its replacement")
	got, ok := r.Lookup("1")
	assert.True(t, ok)
	assert.Same(t, second, got)
}

func TestRegistry_RegisterSameClientTwice(t *testing.T) {
	r := NewRegistry()
	c := newTestClient("1", "general")

	r.Register(c)
	assert.Nil(t, r.Register(c))
	assert.Len(t, roomMembers(r, "general"), 1)
}

func TestRegistry_ForEachInRoom(t *testing.T) {
	r := NewRegistry()
	a := newTestClient("a", "general")
	b := newTestClient("b", "general")
	closed := newTestClient("c", "general")
	elsewhere := newTestClient("d", "lobby")

	for _, c := range []*Client{a, b, closed, elsewhere} {
		r.Register(c)
	}
	closed.markClosed()

	assert.ElementsMatch(t, []*Client{a, b}, roomMembers(r, "general"))
	assert.Equal(t, []*Client{elsewhere}, roomMembers(r, "lobby"))
	assert.Empty(t, roomMembers(r, "nobody-here"))

	_, ok := r.Lookup("c")
	assert.True(t, ok, "expected closed connection to stay registered until removed")
}
