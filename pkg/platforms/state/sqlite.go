// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqlite3 "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/stacklok/hirehive/pkg/storage/sqlite"
)

// SQLiteStore keeps states in the oauth_states table.
type SQLiteStore struct {
	wrapper *sqlite.DB
	db      *sql.DB
	opts    options
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a store on an opened and migrated database.
func NewSQLiteStore(db *sqlite.DB, opts ...Option) *SQLiteStore {
	return &SQLiteStore{wrapper: db, db: db.DB(), opts: newOptions(opts)}
}

// Create implements Store.
func (s *SQLiteStore) Create(ctx context.Context, provider, userID, redirectURI string) (string, error) {
	value, err := GenerateState()
	if err != nil {
		return "", err
	}

	st := s.opts.newState(value, provider, userID, redirectURI)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO oauth_states (state, provider, user_id, redirect_uri, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		st.State,
		st.Provider,
		st.UserID,
		st.RedirectURI,
		sqlite.UnixNano(st.ExpiresAt),
		sqlite.UnixNano(st.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", errStateCollision
		}
		return "", fmt.Errorf("inserting state: %w", err)
	}
	return value, nil
}

// ValidateAndConsume implements Store. The delete and the read are one
// statement, so two concurrent callbacks cannot both see the row.
func (s *SQLiteStore) ValidateAndConsume(ctx context.Context, value string) (*OAuthState, error) {
	var (
		st                   = OAuthState{State: value}
		expiresAt, createdAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		DELETE FROM oauth_states WHERE state = ?
		RETURNING provider, user_id, redirect_uri, expires_at, created_at`,
		value,
	).Scan(&st.Provider, &st.UserID, &st.RedirectURI, &expiresAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidState
	}
	if err != nil {
		return nil, fmt.Errorf("consuming state: %w", err)
	}

	st.ExpiresAt = sqlite.FromUnixNano(expiresAt)
	st.CreatedAt = sqlite.FromUnixNano(createdAt)
	if st.Expired(s.opts.now()) {
		return nil, ErrInvalidState
	}
	return &st, nil
}

// CleanupExpired implements Store.
func (s *SQLiteStore) CleanupExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM oauth_states WHERE expires_at <= ?`,
		sqlite.UnixNano(s.opts.now()),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting expired states: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting expired states: %w", err)
	}
	return int(n), nil
}

// Ping implements Store.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.wrapper.Ping(ctx)
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.wrapper.Close()
}

// isUniqueViolation checks for a SQLite PRIMARY KEY or UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite3.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
