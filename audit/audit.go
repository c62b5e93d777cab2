// Package audit keeps a local log of access attempts in SQLite. Secrets are
// never written.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"dooropener/state"
)

// Config locates the database. An empty path disables the log.
type Config struct {
	Path string `yaml:"path"`
}

// Entry is one authentication cycle.
type Entry struct {
	CycleID    string
	TagUID     string
	PassportID *int32 // nil when no credential could be read
	Outcome    state.AuthState
	Detail     string
	At         time.Time
}

// Store writes entries to a single-connection SQLite database.
type Store struct {
	db *sql.DB
}

// Open creates the database file if needed and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)",
		path,
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Record appends e. A zero At is replaced by the current time.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	var passportID any
	if e.PassportID != nil {
		passportID = *e.PassportID
	}

	if _, err := s.db.ExecContext(ctx, `
INSERT INTO access_events(cycle_id, tag_uid, passport_id, outcome, detail, at_ms)
VALUES (?, ?, ?, ?, ?, ?);
`,
		e.CycleID, e.TagUID, passportID, e.Outcome.String(), e.Detail, e.At.UTC().UnixMilli(),
	); err != nil {
		return fmt.Errorf("record access event: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT cycle_id, tag_uid, passport_id, outcome, detail, at_ms
FROM access_events
ORDER BY at_ms DESC, id DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query access events: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e          Entry
			passportID sql.NullInt32
			outcome    string
			atMS       int64
		)
		if err := rows.Scan(&e.CycleID, &e.TagUID, &passportID, &outcome, &e.Detail, &atMS); err != nil {
			return nil, fmt.Errorf("scan access event: %w", err)
		}
		if passportID.Valid {
			id := passportID.Int32
			e.PassportID = &id
		}
		if e.Outcome, err = state.Parse(outcome); err != nil {
			return nil, fmt.Errorf("access event %s: %w", e.CycleID, err)
		}
		e.At = time.UnixMilli(atMS).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
