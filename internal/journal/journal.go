// Package journal keeps a SQLite history of every capture attempt,
// including the ones that failed and left no file behind.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ryan-winkler/catch/internal/vault"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Entry is one recorded capture attempt.
type Entry struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Path      string    `json:"path"`
	Created   bool      `json:"created"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// timeLayout is fixed-width so created_at sorts correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Journal is a SQLite-backed vault.Recorder.
type Journal struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS captures (
	id         TEXT PRIMARY KEY,
	text       TEXT NOT NULL,
	path       TEXT NOT NULL,
	created    INTEGER NOT NULL,
	message    TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_captures_created_at ON captures(created_at);
`

// Open opens (or creates) the journal database at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// Captures arrive from several goroutines; one connection serialises writes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record stores a capture attempt.
func (j *Journal) Record(ctx context.Context, a vault.Attempt) error {
	at := a.At
	if at.IsZero() {
		at = time.Now()
	}
	created := 0
	if a.Created {
		created = 1
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO captures (id, text, path, created, message, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), a.Text, a.Path, created, a.Message, at.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("record capture: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. limit <= 0 means 20.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, text, path, created, message, created_at FROM captures ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query captures: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			created int
			at      string
		)
		if err := rows.Scan(&e.ID, &e.Text, &e.Path, &created, &e.Message, &at); err != nil {
			return nil, fmt.Errorf("scan capture: %w", err)
		}
		e.Created = created == 1
		createdAt, err := time.Parse(timeLayout, at)
		if err != nil {
			return nil, fmt.Errorf("capture %s: bad created_at %q: %w", e.ID, at, err)
		}
		e.CreatedAt = createdAt
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
