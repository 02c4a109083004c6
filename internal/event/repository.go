package event

import (
	"context"
	"time"
)

// Repository defines the storage interface for events.
// It offers per-record atomic updates only; there are no multi-record
// transactions.
type Repository interface {
	// FindEventsByUser returns all of a user's events ordered by priority.
	FindEventsByUser(ctx context.Context, userID string) ([]*Event, error)

	// FindEventsInRange returns a user's dated events with from <= date < to.
	FindEventsInRange(ctx context.Context, userID string, from, to time.Time) ([]*Event, error)

	// GetEvent retrieves an event by ID. Returns nil, nil if it does not exist.
	GetEvent(ctx context.Context, id string) (*Event, error)

	// CreateEvent inserts a new event and sets its ID, Version and timestamps.
	CreateEvent(ctx context.Context, e *Event) error

	// UpdateEvent applies a patch to a single event and returns the stored result.
	// Returns ErrNotFound if the event does not exist and ErrConflict if
	// patch.IfVersion is set and does not match.
	UpdateEvent(ctx context.Context, id string, patch Patch) (*Event, error)

	// DeleteEvent removes an event. Returns ErrNotFound if it does not exist.
	DeleteEvent(ctx context.Context, id string) error

	// Close releases any resources held by the repository.
	Close() error
}
