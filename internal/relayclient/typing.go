package relayclient

import (
	"slices"

	"room-relay/internal/chat"
)

// TypingSet tracks who is typing in a room as seen by one client. The
// client's own name is never listed even though the relay echoes its
// typing events back to it.
type TypingSet struct {
	self  string
	names map[string]struct{}
}

func NewTypingSet(selfName string) *TypingSet {
	return &TypingSet{self: selfName, names: make(map[string]struct{})}
}

// Apply folds ev into the set and reports whether the visible list changed.
// A leave clears the departing user.
func (s *TypingSet) Apply(ev chat.Event) bool {
	name := ev.User.UserName
	if name == "" || name == s.self {
		return false
	}

	_, present := s.names[name]
	switch {
	case ev.Type == chat.EventTyping && ev.IsTyping != nil && *ev.IsTyping:
		s.names[name] = struct{}{}
		return !present
	case ev.Type == chat.EventTyping, ev.Type == chat.EventLeave:
		delete(s.names, name)
		return present
	}
	return false
}

// Names returns the typing users in sorted order.
func (s *TypingSet) Names() []string {
	out := make([]string, 0, len(s.names))
	for name := range s.names {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
