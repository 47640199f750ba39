// Package cache is an optional sqlite-backed store for the most recent feed
// snapshot, keyed by collection path, so the UI can render instantly on
// startup before the first live snapshot arrives. It is never a system of
// record: cached data seeds a view once and is replaced wholesale by live
// snapshots, never merged with them.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type Cache struct {
	db *sql.DB
}

// Open creates or opens the snapshot database at dsn, e.g. "feed.db" or an
// in-memory DSN in tests.
func Open(ctx context.Context, dsn string) (*Cache, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	_, err = db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS snapshots (
  collection TEXT PRIMARY KEY,
  payload    BLOB NOT NULL,
  saved_at   TIMESTAMP NOT NULL
);
`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}

	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Save stores value as the latest snapshot of collection, replacing any
// previous one.
func (c *Cache) Save(ctx context.Context, collection string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode snapshot[%s]: %w", collection, err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO snapshots (collection, payload, saved_at) VALUES (?, ?, ?)
		ON CONFLICT(collection) DO UPDATE SET payload = excluded.payload, saved_at = excluded.saved_at
	`, collection, payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save snapshot[%s]: %w", collection, err)
	}
	return nil
}

// Load reads the latest snapshot of collection into out. It reports whether
// a snapshot was present.
func (c *Cache) Load(ctx context.Context, collection string, out any) (bool, error) {
	var payload []byte
	err := c.db.QueryRowContext(ctx, `SELECT payload FROM snapshots WHERE collection = ?`, collection).Scan(&payload)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load snapshot[%s]: %w", collection, err)
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return false, fmt.Errorf("decode snapshot[%s]: %w", collection, err)
	}
	return true, nil
}

// Clear drops every cached snapshot, e.g. on sign-out.
func (c *Cache) Clear(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM snapshots`)
	if err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}
