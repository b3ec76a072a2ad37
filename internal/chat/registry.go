package chat

// Registry maps each connected user to its live connection and indexes
// connections by room. It is not safe for concurrent use; the Hub's run loop
// is its only owner.
type Registry struct {
	byUser map[string]*Client
	byRoom map[string]map[*Client]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]*Client),
		byRoom: make(map[string]map[*Client]struct{}),
	}
}

// Register inserts c under its user id and room, replacing any previous
// holder of that user id. The displaced connection, if any, is returned and
// is no longer indexed.
func (r *Registry) Register(c *Client) (prev *Client) {
	userID := c.user.UserID
	if old, ok := r.byUser[userID]; ok && old != c {
		r.unindex(old)
		prev = old
	}

	r.byUser[userID] = c
	members, ok := r.byRoom[c.roomID]
	if !ok {
		members = make(map[*Client]struct{})
		r.byRoom[c.roomID] = members
	}
	members[c] = struct{}{}
	return prev
}

func (r *Registry) Lookup(userID string) (*Client, bool) {
	c, ok := r.byUser[userID]
	return c, ok
}

// Remove deletes c only if it is still the holder of its user id, so a
// displaced connection closing late never evicts its replacement.
func (r *Registry) Remove(c *Client) bool {
	if cur, ok := r.byUser[c.user.UserID]; !ok || cur != c {
		return false
	}
	delete(r.byUser, c.user.UserID)
	r.unindex(c)
	return true
}

// ForEachInRoom calls fn for every registered connection in roomID whose
// socket is still open.
func (r *Registry) ForEachInRoom(roomID string, fn func(*Client)) {
	for c := range r.byRoom[roomID] {
		if !c.isOpen() {
			continue
		}
		fn(c)
	}
}

func (r *Registry) Len() int {
	return len(r.byUser)
}

func (r *Registry) unindex(c *Client) {
	members, ok := r.byRoom[c.roomID]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(r.byRoom, c.roomID)
	}
}
