package session

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no session row matches.
	ErrNotFound = errors.New("session not found")
	// ErrRedisUnavailable wraps transport failures of the Redis adapter.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrCorrupt is returned when a stored record cannot be decoded.
	ErrCorrupt = errors.New("session record corrupt")
)

// Store is the durable record of active sessions. Every method is atomic
// with respect to a single session row; Rotate is atomic across the old and
// new rows.
type Store interface {
	// Save inserts a new session row.
	Save(ctx context.Context, sess *Session) error
	// FindByUserAndSession returns ErrNotFound unless a row with sessionID
	// exists and belongs to userID.
	FindByUserAndSession(ctx context.Context, userID, sessionID string) (*Session, error)
	// FindAllByUser lists a user's rows ordered by creation time.
	FindAllByUser(ctx context.Context, userID string) ([]*Session, error)
	// DeleteBySession removes a row. Deleting a missing row is not an error.
	DeleteBySession(ctx context.Context, sessionID string) error
	// DeleteAllByUser removes every row of a user and returns the removed
	// session ids.
	DeleteAllByUser(ctx context.Context, userID string) ([]string, error)
	// Rotate deletes oldSessionID and inserts next as one step. It returns
	// ErrNotFound, leaving next unsaved, when the old row is already gone.
	Rotate(ctx context.Context, oldSessionID string, next *Session) error
}
