// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/hirehive/pkg/config"
	"github.com/stacklok/hirehive/pkg/platforms/state"
	"github.com/stacklok/hirehive/pkg/storage/sqlite"
)

func TestRunCleanup(t *testing.T) {
	t.Parallel()

	t.Run("memory backend is rejected", func(t *testing.T) {
		t.Parallel()
		cfg := &config.Config{
			Connections: config.ConnectionsConfig{Backend: config.BackendMemory},
			State:       config.StateConfig{Backend: config.BackendMemory},
		}

		var out bytes.Buffer
		err := runCleanup(context.Background(), cfg, &out)
		require.ErrorIs(t, err, errMemoryCleanup)
		assert.Contains(t, err.Error(), "memory state backend")
		assert.Empty(t, out.String())
	})

	t.Run("sqlite removes expired states", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		dbPath := filepath.Join(t.TempDir(), "hirehive.db")

		db, err := sqlite.Open(ctx, dbPath)
		require.NoError(t, err)
		past := time.Now().Add(-time.Hour)
		stale := state.NewSQLiteStore(db, state.WithClock(func() time.Time { return past }))
		_, err = stale.Create(ctx, "linkedin", "user-1", "http://localhost:3000/api/platforms/linkedin/callback")
		require.NoError(t, err)
		fresh := state.NewSQLiteStore(db)
		_, err = fresh.Create(ctx, "indeed", "user-1", "http://localhost:3000/api/platforms/indeed/callback")
		require.NoError(t, err)
		require.NoError(t, db.Close())

		cfg := &config.Config{
			Connections: config.ConnectionsConfig{Backend: config.BackendSQLite},
			State:       config.StateConfig{Backend: config.BackendSQLite},
			SQLite:      config.SQLiteConfig{Path: dbPath},
		}

		var out bytes.Buffer
		require.NoError(t, runCleanup(ctx, cfg, &out))
		assert.Equal(t, "Removed 1 expired authorization state(s)\n", out.String())
	})
}
