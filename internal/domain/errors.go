package domain

import (
	"errors"
	"fmt"
)

// ErrUnreachable marks network-class failures: no response, connection-level
// errors, timeouts. The store treats these as benign for sync and falls back
// to a local merge for mutations.
var ErrUnreachable = errors.New("cart service unreachable")

// ErrSnapshotNotFound is returned by snapshot repositories when a session
// has no persisted cart.
var ErrSnapshotNotFound = errors.New("cart snapshot not found")

// ErrInvalidQuantity rejects quantities outside an operation's allowed
// range before anything hits the wire.
var ErrInvalidQuantity = errors.New("quantity out of range")

// RemoteError is a response the upstream actually produced: an HTTP error
// status or an explicit non-success payload.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("cart service rejected the request (status %d)", e.StatusCode)
}

// IsUnreachable reports whether err is a network-class failure.
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrUnreachable)
}
