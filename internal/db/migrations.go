package db

import "fmt"

// migrate creates the schema if needed.
func (s *SQLite) migrate() error {
	query := `
		CREATE TABLE IF NOT EXISTS events (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL,
			title        TEXT NOT NULL,
			date_unix_ms INTEGER,
			duration     REAL NOT NULL DEFAULT 0 CHECK(duration >= 0 AND duration <= 24),
			details      TEXT NOT NULL DEFAULT '',
			priority     INTEGER NOT NULL DEFAULT 0 CHECK(priority >= 0),
			version      INTEGER NOT NULL DEFAULT 1,
			created_at   TEXT NOT NULL,
			updated_at   TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_events_user_priority ON events(user_id, priority);
		CREATE INDEX IF NOT EXISTS idx_events_user_date ON events(user_id, date_unix_ms);
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("creating events table: %w", err)
	}

	return nil
}
