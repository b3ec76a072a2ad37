package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrProtocol marks a malformed frame or unknown event type. The
	// connection stays open and the client is not told.
	ErrProtocol = errors.New("protocol error")

	// ErrAuthRequired marks a message or typing frame sent before auth.
	ErrAuthRequired = errors.New("auth required")
)

// StorageError wraps any failure of the backing store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
