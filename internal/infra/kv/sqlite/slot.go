// Package sqlite implements kv.Slot as rows of a single SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"leadcrm/internal/infra/kv"
)

// Slot persists payloads in a `state(bucket, payload)` table.
type Slot struct {
	db   *sql.DB
	path string
}

// New opens (or creates) the sqlite database at path and ensures the state table.
func New(path string) (*Slot, error) {
	if path == "" {
		path = "leadcrm.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single writer connection keeps sqlite from reporting SQLITE_BUSY
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return &Slot{db: db, path: path}, nil
}

// Driver returns the slot driver identifier.
func (s *Slot) Driver() kv.Driver { return kv.DriverSQLite }

// Load returns the payload stored for key.
func (s *Slot) Load(ctx context.Context, key string) ([]byte, bool, error) {
	if err := kv.CheckKey(key); err != nil {
		return nil, false, err
	}
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM state WHERE bucket = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select %s: %w", key, err)
	}
	return payload, true, nil
}

// Save upserts the payload for key.
func (s *Slot) Save(ctx context.Context, key string, payload []byte) error {
	if err := kv.CheckKey(key); err != nil {
		return err
	}
	if payload == nil {
		payload = []byte{}
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, key, payload); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Slot) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Slot) Path() string { return s.path }

// Close releases the database handle.
func (s *Slot) Close() error { return s.db.Close() }
