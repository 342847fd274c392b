// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package sqlite

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/hirehive/pkg/storage"
)

func TestOpen_AppliesMigrations(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "nested", "hirehive.db")
	db, err := Open(t.Context(), dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.Equal(t, dbPath, db.Path())
	require.NoError(t, db.Ping(t.Context()))

	for _, table := range []string{"oauth_states", "platform_connections"} {
		var name string
		err := db.DB().QueryRowContext(t.Context(),
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}
}

func TestOpen_Reopen(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "hirehive.db")
	db, err := Open(t.Context(), dbPath)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// migrations are idempotent
	db, err = Open(t.Context(), dbPath)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestClose_Idempotent(t *testing.T) {
	t.Parallel()

	db, err := Open(t.Context(), filepath.Join(t.TempDir(), "hirehive.db"))
	require.NoError(t, err)

	require.NoError(t, db.Close())
	require.NoError(t, db.Close())
	assert.ErrorIs(t, db.Ping(t.Context()), storage.ErrUnavailable)
}

func TestTimeConversions(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 14, 15, 9, 26, 535897932, time.UTC)
	assert.True(t, now.Equal(FromUnixNano(UnixNano(now))))

	assert.Equal(t, sql.NullInt64{}, NullUnixNano(nil))
	assert.Nil(t, FromNullUnixNano(sql.NullInt64{}))

	got := FromNullUnixNano(NullUnixNano(&now))
	require.NotNil(t, got)
	assert.True(t, now.Equal(*got))
}
