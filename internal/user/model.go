package user

import "strings"

// User is a caller-asserted identity. Nothing verifies it beyond shape.
type User struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// Valid reports whether u carries an id to key the profile by.
func (u User) Valid() bool {
	return strings.TrimSpace(u.UserID) != ""
}
