// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/stacklok/hirehive/pkg/config"
	"github.com/stacklok/hirehive/pkg/logger"
	"github.com/stacklok/hirehive/pkg/platforms/connections"
	"github.com/stacklok/hirehive/pkg/platforms/state"
	"github.com/stacklok/hirehive/pkg/storage/sqlite"
)

// stores are the persistence backends selected by the configuration.
type stores struct {
	states      state.Store
	connections connections.Store
}

// openStores opens the configured backends. The SQLite database is shared
// when both stores use it.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	var db *sqlite.DB
	if cfg.UsesSQLite() {
		var err error
		db, err = sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		logger.Infow("opened sqlite database", "path", db.Path())
	}

	s := &stores{}
	switch cfg.State.Backend {
	case config.BackendMemory:
		s.states = state.NewMemoryStore()
	case config.BackendSQLite:
		s.states = state.NewSQLiteStore(db)
	case config.BackendRedis:
		redisStore, err := state.NewRedisStore(ctx, state.RedisConfig{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if err != nil {
			if db != nil {
				_ = db.Close()
			}
			return nil, err
		}
		s.states = redisStore
	default:
		return nil, fmt.Errorf("unsupported state backend %q", cfg.State.Backend)
	}

	switch cfg.Connections.Backend {
	case config.BackendMemory:
		s.connections = connections.NewMemoryStore()
	case config.BackendSQLite:
		s.connections = connections.NewSQLiteStore(db)
	default:
		_ = s.states.Close()
		return nil, fmt.Errorf("unsupported connections backend %q", cfg.Connections.Backend)
	}

	logger.Infow("storage backends ready",
		"state_backend", cfg.State.Backend,
		"connections_backend", cfg.Connections.Backend,
	)
	return s, nil
}

// Close releases all backends.
func (s *stores) Close() error {
	return errors.Join(s.states.Close(), s.connections.Close())
}
