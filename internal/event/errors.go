package event

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Error kinds. Callers match them with errors.Is.
var (
	ErrInvalid     = errors.New("invalid input")
	ErrNotFound    = errors.New("event not found")
	ErrForbidden   = errors.New("event belongs to another user")
	ErrNoSlot      = errors.New("no available slot")
	ErrPersistence = errors.New("persistence failure")
	ErrConflict    = errors.New("event was modified concurrently")
)

// ValidationError lists every violated constraint of a rejected input.
type ValidationError struct {
	Violations []string
}

// Invalid builds a ValidationError from one or more violations.
func Invalid(violations ...string) *ValidationError {
	return &ValidationError{Violations: violations}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalid, strings.Join(e.Violations, "; "))
}

// Is reports ErrInvalid.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

// SchedulingError reports an event that could not be placed within the
// search horizon.
type SchedulingError struct {
	Index   int
	EventID string
	Horizon time.Duration
}

func (e *SchedulingError) Error() string {
	if e.EventID == "" {
		return fmt.Sprintf("%s within %s", ErrNoSlot, e.Horizon)
	}
	return fmt.Sprintf("%s for event #%d (%s) within %s", ErrNoSlot, e.Index, e.EventID, e.Horizon)
}

// Is reports ErrNoSlot.
func (e *SchedulingError) Is(target error) bool {
	return target == ErrNoSlot
}

// NotFound returns an error matching ErrNotFound for the given id.
func NotFound(id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Forbidden returns an error matching ErrForbidden for the given id.
func Forbidden(id string) error {
	return fmt.Errorf("%w: %s", ErrForbidden, id)
}

// Conflict returns an error matching both ErrConflict and ErrPersistence.
func Conflict(id string, version int64) error {
	return fmt.Errorf("%w: %w: %s at version %d", ErrPersistence, ErrConflict, id, version)
}

// Persistence wraps a store failure so it matches ErrPersistence.
func Persistence(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}
