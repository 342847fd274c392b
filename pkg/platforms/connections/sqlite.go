// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package connections

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/stacklok/hirehive/pkg/storage"
	"github.com/stacklok/hirehive/pkg/storage/sqlite"
)

// SQLiteStore keeps connections in the platform_connections table.
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

// connectionColumns is the column list shared by every query returning a connection.
const connectionColumns = `id, platform_name, type, status, api_key, refresh_token,
	token_expires_at, token_scopes, oauth_provider, monthly_cost, connected_at,
	created_at, updated_at`

const upsertInsert = `
	INSERT INTO platform_connections (
		id, platform_name, type, status, api_key, refresh_token, token_expires_at,
		token_scopes, oauth_provider, monthly_cost, connected_at, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (platform_name) DO UPDATE SET
		status       = excluded.status,
		api_key      = excluded.api_key,
		connected_at = excluded.connected_at,
		updated_at   = excluded.updated_at`

const upsertTokenColumns = `,
		refresh_token    = excluded.refresh_token,
		token_expires_at = excluded.token_expires_at,
		token_scopes     = excluded.token_scopes,
		oauth_provider   = excluded.oauth_provider`

// Upsert implements Store. Creation and reconnect are one statement.
func (s *SQLiteStore) Upsert(ctx context.Context, u Upsert) (*PlatformConnection, error) {
	query := upsertInsert
	if !u.Simulated {
		query += upsertTokenColumns
	}
	query += ` RETURNING ` + connectionColumns

	now := sqlite.UnixNano(s.opts.now())
	row := s.db.QueryRowContext(ctx, query,
		uuid.NewString(),
		u.PlatformName,
		string(TypePremium),
		string(StatusActive),
		u.APIKey,
		nullString(u.RefreshToken),
		sqlite.NullUnixNano(u.TokenExpiresAt),
		u.TokenScopes,
		u.OAuthProvider,
		u.MonthlyCost,
		sqlite.UnixNano(u.ConnectedAt),
		now,
		now,
	)

	conn, err := scanConnection(row)
	if err != nil {
		return nil, fmt.Errorf("upserting connection: %w", err)
	}
	return conn, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, platformName string) (*PlatformConnection, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+connectionColumns+` FROM platform_connections WHERE platform_name = ?`,
		platformName,
	)
	conn, err := scanConnection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting connection: %w", err)
	}
	return conn, nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context) ([]PlatformConnection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+connectionColumns+` FROM platform_connections ORDER BY platform_name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing connections: %w", err)
	}
	defer rows.Close()

	var list []PlatformConnection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning connection: %w", err)
		}
		list = append(list, *conn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating connections: %w", err)
	}
	return list, nil
}

// UpdateTokens implements Store.
func (s *SQLiteStore) UpdateTokens(ctx context.Context, platformName string, update TokenUpdate) (*PlatformConnection, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE platform_connections SET
			status           = ?,
			api_key          = ?,
			refresh_token    = COALESCE(?, refresh_token),
			token_expires_at = ?,
			token_scopes     = COALESCE(NULLIF(?, ''), token_scopes),
			updated_at       = ?
		WHERE platform_name = ?
		RETURNING `+connectionColumns,
		string(StatusActive),
		update.APIKey,
		nullString(update.RefreshToken),
		sqlite.NullUnixNano(update.TokenExpiresAt),
		update.TokenScopes,
		sqlite.UnixNano(s.opts.now()),
		platformName,
	)
	conn, err := scanConnection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating tokens: %w", err)
	}
	return conn, nil
}

// Disconnect implements Store.
func (s *SQLiteStore) Disconnect(ctx context.Context, platformName string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE platform_connections SET
			status           = ?,
			api_key          = '',
			refresh_token    = NULL,
			token_expires_at = NULL,
			updated_at       = ?
		WHERE platform_name = ?`,
		string(StatusInactive),
		sqlite.UnixNano(s.opts.now()),
		platformName,
	)
	if err != nil {
		return fmt.Errorf("disconnecting: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Ping implements Store.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.wrapper.Ping(ctx)
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.wrapper.Close()
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanConnection(sc scanner) (*PlatformConnection, error) {
	var (
		conn                      PlatformConnection
		connType, status          string
		refreshToken              sql.NullString
		tokenExpiresAt, connected sql.NullInt64
		createdAt, updatedAt      int64
	)
	err := sc.Scan(
		&conn.ID,
		&conn.PlatformName,
		&connType,
		&status,
		&conn.APIKey,
		&refreshToken,
		&tokenExpiresAt,
		&conn.TokenScopes,
		&conn.OAuthProvider,
		&conn.MonthlyCost,
		&connected,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	conn.Type = Type(connType)
	conn.Status = Status(status)
	if refreshToken.Valid {
		conn.RefreshToken = &refreshToken.String
	}
	conn.TokenExpiresAt = sqlite.FromNullUnixNano(tokenExpiresAt)
	conn.ConnectedAt = sqlite.FromNullUnixNano(connected)
	conn.CreatedAt = sqlite.FromUnixNano(createdAt)
	conn.UpdatedAt = sqlite.FromUnixNano(updatedAt)
	return &conn, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
