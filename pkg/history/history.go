// Package history records deploy/undeploy events per ref in a small
// SQLite database under the installation's state directory, giving
// consumers a queryable log beyond what the on-disk symlink layout can
// express on its own.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/abhijitnavale/flatpak/pkg/storeerr"
)

// Event names recorded against a ref.
const (
	EventDeployed   = "deployed"
	EventUndeployed = "undeployed"
	EventActivated  = "activated"
)

// Entry is one row of a ref's history.
type Entry struct {
	Ref       string
	Checksum  string
	Event     string
	Timestamp time.Time
}

// Store wraps the history database.
type Store struct {
	db *sql.DB
}

// DBPath is the conventional path of the history database under an
// installation root, mirroring how the repo and overrides directories
// are named.
func DBPath(installRoot string) string {
	return filepath.Join(installRoot, "state", "history.db")
}

// Open creates (if needed) and opens the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, storeerr.Wrap(err, storeerr.IOError, "failed to create history directory")
	}

	dsn := fmt.Sprintf("%s?_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, storeerr.Wrap(err, storeerr.IOError, "failed to open history database")
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS history (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			ref       TEXT NOT NULL,
			checksum  TEXT NOT NULL,
			event     TEXT NOT NULL,
			occurred_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_history_ref ON history(ref);
	`)
	if err != nil {
		return storeerr.Wrap(err, storeerr.IOError, "failed to initialize history schema")
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends one event row for ref.
func (s *Store) Record(ctx context.Context, ref, checksum, event string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO history (ref, checksum, event, occurred_at) VALUES (?, ?, ?, ?)`,
		ref, checksum, event, at.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return storeerr.Wrap(err, storeerr.IOError, "failed to record history event")
	}
	return nil
}

// History returns every recorded event for ref, oldest first.
func (s *Store) History(ctx context.Context, ref string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ref, checksum, event, occurred_at FROM history WHERE ref = ? ORDER BY id ASC`, ref)
	if err != nil {
		return nil, storeerr.Wrap(err, storeerr.IOError, "failed to query history")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var occurredAt string
		if err := rows.Scan(&e.Ref, &e.Checksum, &e.Event, &occurredAt); err != nil {
			return nil, storeerr.Wrap(err, storeerr.IOError, "failed to scan history row")
		}
		e.Timestamp, err = time.Parse(time.RFC3339Nano, occurredAt)
		if err != nil {
			return nil, storeerr.Wrap(err, storeerr.ParseError, "failed to parse history timestamp")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeerr.Wrap(err, storeerr.IOError, "failed to iterate history rows")
	}
	return entries, nil
}
