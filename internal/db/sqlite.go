// Package db provides SQLite storage implementation.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/javiermolinar/docket/internal/event"
)

// timestampLayout is fixed-width so stored timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

const eventColumns = `id, user_id, title, date_unix_ms, duration, details, priority, version, created_at, updated_at`

// SQLite implements event.Repository using SQLite.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

var _ event.Repository = (*SQLite)(nil)

// New creates a new SQLite repository and runs migrations.
func New(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite allows a single writer; concurrent batch updates queue on the pool.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &SQLite{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// FindEventsByUser returns all of a user's events ordered by priority.
func (s *SQLite) FindEventsByUser(ctx context.Context, userID string) ([]*event.Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM events
		WHERE user_id = ?
		ORDER BY priority, created_at, id
	`
	return s.queryEvents(ctx, "listing events", query, userID)
}

// FindEventsInRange returns a user's dated events with from <= date < to.
func (s *SQLite) FindEventsInRange(ctx context.Context, userID string, from, to time.Time) ([]*event.Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM events
		WHERE user_id = ?
		  AND date_unix_ms IS NOT NULL
		  AND date_unix_ms >= ?
		  AND date_unix_ms < ?
		ORDER BY date_unix_ms, priority
	`
	return s.queryEvents(ctx, "listing events in range", query, userID, from.UnixMilli(), to.UnixMilli())
}

// GetEvent retrieves an event by ID. Returns nil, nil if it does not exist.
func (s *SQLite) GetEvent(ctx context.Context, id string) (*event.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = ?`

	e, err := scanEvent(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, event.Persistence("querying event", err)
	}
	return e, nil
}

// CreateEvent inserts a new event and sets its ID, Version and timestamps.
func (s *SQLite) CreateEvent(ctx context.Context, e *event.Event) error {
	now := s.now()
	id := uuid.NewString()

	query := `
		INSERT INTO events (
			id, user_id, title, date_unix_ms, duration, details, priority,
			version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		id,
		e.UserID,
		e.Title,
		dateValue(e.Date),
		e.Duration,
		e.Details,
		e.Priority,
		now.UTC().Format(timestampLayout),
		now.UTC().Format(timestampLayout),
	)
	if err != nil {
		return event.Persistence("inserting event", err)
	}

	e.ID = id
	e.Version = 1
	e.CreatedAt = now
	e.UpdatedAt = now
	return nil
}

// UpdateEvent applies a patch to a single event in one statement and returns
// the stored result.
func (s *SQLite) UpdateEvent(ctx context.Context, id string, patch event.Patch) (*event.Event, error) {
	sets := []string{"version = version + 1", "updated_at = ?"}
	args := []any{s.now().UTC().Format(timestampLayout)}

	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.ClearDate {
		sets = append(sets, "date_unix_ms = NULL")
	}
	if patch.Date != nil {
		sets = append(sets, "date_unix_ms = ?")
		args = append(args, patch.Date.UnixMilli())
	}
	if patch.Duration != nil {
		sets = append(sets, "duration = ?")
		args = append(args, *patch.Duration)
	}
	if patch.Details != nil {
		sets = append(sets, "details = ?")
		args = append(args, *patch.Details)
	}
	if patch.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, *patch.Priority)
	}

	query := `UPDATE events SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	args = append(args, id)
	if patch.IfVersion != nil {
		query += ` AND version = ?`
		args = append(args, *patch.IfVersion)
	}
	query += ` RETURNING ` + eventColumns

	updated, err := scanEvent(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, s.missOrConflict(ctx, id, patch.IfVersion)
	}
	if err != nil {
		return nil, event.Persistence("updating event", err)
	}
	return updated, nil
}

// missOrConflict tells apart a missing event from a stale version.
func (s *SQLite) missOrConflict(ctx context.Context, id string, version *int64) error {
	current, err := s.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	if current == nil || version == nil {
		return event.NotFound(id)
	}
	return event.Conflict(id, *version)
}

// DeleteEvent removes an event. Other events keep their priorities.
func (s *SQLite) DeleteEvent(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return event.Persistence("deleting event", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return event.NotFound(id)
	}

	return nil
}

// Close releases database resources.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) queryEvents(ctx context.Context, op, query string, args ...any) ([]*event.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, event.Persistence(op, err)
	}
	defer func() { _ = rows.Close() }()

	var events []*event.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, event.Persistence("scanning event", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, event.Persistence("iterating events", err)
	}

	return events, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (*event.Event, error) {
	var (
		e         event.Event
		date      sql.NullInt64
		createdAt string
		updatedAt string
	)

	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.Title,
		&date,
		&e.Duration,
		&e.Details,
		&e.Priority,
		&e.Version,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if date.Valid {
		d := time.UnixMilli(date.Int64)
		e.Date = &d
	}

	e.CreatedAt, err = time.Parse(timestampLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created at: %w", err)
	}

	e.UpdatedAt, err = time.Parse(timestampLayout, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing updated at: %w", err)
	}

	return &e, nil
}

// dateValue converts an optional date to its column value.
func dateValue(d *time.Time) any {
	if d == nil {
		return nil
	}
	return d.UnixMilli()
}
