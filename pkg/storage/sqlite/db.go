// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package sqlite opens the SQLite database that holds pending authorization
// states and platform connections, and applies its schema migrations.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	// Registers the "sqlite" driver.
	_ "modernc.org/sqlite"

	"github.com/stacklok/hirehive/pkg/storage"
)

const driverName = "sqlite"

// busyTimeout is how long a writer waits for a competing lock.
const busyTimeout = 5 * time.Second

// DB wraps the shared *sql.DB. Stores built on the same DB share one
// connection pool; Close is safe to call from each of them.
type DB struct {
	db        *sql.DB
	path      string
	closeOnce sync.Once
	closeErr  error
}

// Open opens (creating if needed) the database at path and migrates it to
// the latest schema.
func Open(ctx context.Context, path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open(driverName, dsn(path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite has a single writer.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{db: db, path: path}, nil
}

func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	return "file:" + path + "?" + q.Encode()
}

// DB returns the underlying connection pool.
func (d *DB) DB() *sql.DB {
	return d.db
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// Ping checks that the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: sqlite %s: %w", storage.ErrUnavailable, d.path, err)
	}
	return nil
}

// Close closes the connection pool once.
func (d *DB) Close() error {
	d.closeOnce.Do(func() {
		d.closeErr = d.db.Close()
	})
	return d.closeErr
}

// UnixNano converts t for storage in an INTEGER column.
func UnixNano(t time.Time) int64 {
	return t.UTC().UnixNano()
}

// FromUnixNano converts a stored INTEGER column back to a UTC time.
func FromUnixNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// NullUnixNano converts an optional time for storage in a nullable INTEGER column.
func NullUnixNano(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: UnixNano(*t), Valid: true}
}

// FromNullUnixNano converts a nullable INTEGER column back to an optional time.
func FromNullUnixNano(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := FromUnixNano(n.Int64)
	return &t
}
