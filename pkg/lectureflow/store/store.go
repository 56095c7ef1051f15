// Package store provides persistent storage for session snapshots.
package store

import (
	"errors"
	"time"
)

// Store persists session snapshots keyed by session id.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores a snapshot for a session.
	// Overwrites any existing snapshot for the same id.
	Save(sessionID string, data []byte) error

	// Load retrieves the latest snapshot for a session.
	// Returns ErrNotFound if no snapshot exists.
	Load(sessionID string) ([]byte, error)

	// Delete removes a session's snapshot.
	// Returns nil if no snapshot exists.
	Delete(sessionID string) error

	// List returns metadata for every stored session,
	// ordered by most recently updated first.
	List() ([]Info, error)

	// Close releases any resources (connections, files).
	Close() error
}

// Info provides snapshot metadata without loading the full state.
type Info struct {
	SessionID string
	UpdatedAt time.Time
	Size      int64
}

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates no snapshot exists for the session.
	ErrNotFound = errors.New("session snapshot not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("session store closed")
)
