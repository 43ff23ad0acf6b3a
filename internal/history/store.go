// Package history persists build events in SQLite and projects them into
// build summaries for the history command.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/texbuild/internal/errors"
)

// Store is the build history backend.
type Store interface {
	// Append records an event, registering the build on its first event.
	Append(ctx context.Context, buildID, kind string, payload []byte) error
	// Events returns the events of one build in the order they were recorded.
	Events(ctx context.Context, buildID string) ([]Event, error)
	// RecentBuilds lists build IDs first seen at or after since, newest
	// first. A limit <= 0 returns all of them.
	RecentBuilds(ctx context.Context, since time.Time, limit int) ([]string, error)
	Close() error
}

const schema = `
CREATE TABLE IF NOT EXISTS builds (
	build_id   TEXT PRIMARY KEY,
	started_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_builds_started_at ON builds(started_at);

CREATE TABLE IF NOT EXISTS build_events (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	build_id    TEXT NOT NULL REFERENCES builds(build_id),
	kind        TEXT NOT NULL,
	recorded_at INTEGER NOT NULL,
	payload     BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_build_events_build ON build_events(build_id, seq);
`

// SQLiteStore keeps the history in a single SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the history database at dbPath, creating its parent
// directory when needed. ":memory:" gives a throwaway database.
func Open(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, errors.HistoryError("create directory", err).WithContext("path", dbPath)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.HistoryError("open database", err).WithContext("path", dbPath)
	}
	// One connection: writes are serialized and ":memory:" stays one database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.HistoryError("initialize schema", err).WithContext("path", dbPath)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, buildID, kind string, payload []byte) error {
	at := s.now().UnixMilli()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.HistoryError("begin append", err).WithContext("build_id", buildID)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO builds (build_id, started_at) VALUES (?, ?)`,
		buildID, at,
	); err != nil {
		return errors.HistoryError("register build", err).WithContext("build_id", buildID)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO build_events (build_id, kind, recorded_at, payload) VALUES (?, ?, ?, ?)`,
		buildID, kind, at, payload,
	); err != nil {
		return errors.HistoryError("insert event", err).WithContext("build_id", buildID).WithContext("kind", kind)
	}
	if err := tx.Commit(); err != nil {
		return errors.HistoryError("commit event", err).WithContext("build_id", buildID)
	}
	return nil
}

func (s *SQLiteStore) Events(ctx context.Context, buildID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, kind, recorded_at, payload FROM build_events WHERE build_id = ? ORDER BY seq`,
		buildID,
	)
	if err != nil {
		return nil, errors.HistoryError("query events", err).WithContext("build_id", buildID)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		ev := Event{BuildID: buildID}
		var at int64
		if err := rows.Scan(&ev.Seq, &ev.Kind, &at, &ev.Payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.RecordedAt = time.UnixMilli(at)
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *SQLiteStore) RecentBuilds(ctx context.Context, since time.Time, limit int) ([]string, error) {
	if limit <= 0 {
		limit = -1 // no LIMIT in SQLite
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT build_id FROM builds WHERE started_at >= ? ORDER BY started_at DESC, rowid DESC LIMIT ?`,
		since.UnixMilli(), limit,
	)
	if err != nil {
		return nil, errors.HistoryError("query builds", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
