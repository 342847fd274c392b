// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package connections

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stacklok/hirehive/pkg/storage"
)

// MemoryStore keeps connections in process memory.
type MemoryStore struct {
	mu          sync.RWMutex
	connections map[string]*PlatformConnection
	opts        options
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		connections: make(map[string]*PlatformConnection),
		opts:        newOptions(opts),
	}
}

// Upsert implements Store.
func (s *MemoryStore) Upsert(_ context.Context, u Upsert) (*PlatformConnection, error) {
	now := s.opts.now().UTC()
	connectedAt := u.ConnectedAt.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	conn, ok := s.connections[u.PlatformName]
	if !ok {
		conn = &PlatformConnection{
			ID:             uuid.NewString(),
			PlatformName:   u.PlatformName,
			Type:           TypePremium,
			Status:         StatusActive,
			APIKey:         u.APIKey,
			RefreshToken:   cloneString(u.RefreshToken),
			TokenExpiresAt: cloneTime(u.TokenExpiresAt),
			TokenScopes:    u.TokenScopes,
			OAuthProvider:  u.OAuthProvider,
			MonthlyCost:    u.MonthlyCost,
			ConnectedAt:    &connectedAt,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		s.connections[u.PlatformName] = conn
		return clone(conn), nil
	}

	conn.Status = StatusActive
	conn.APIKey = u.APIKey
	conn.ConnectedAt = &connectedAt
	conn.UpdatedAt = now
	if !u.Simulated {
		conn.RefreshToken = cloneString(u.RefreshToken)
		conn.TokenExpiresAt = cloneTime(u.TokenExpiresAt)
		conn.TokenScopes = u.TokenScopes
		conn.OAuthProvider = u.OAuthProvider
	}
	return clone(conn), nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, platformName string) (*PlatformConnection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conn, ok := s.connections[platformName]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return clone(conn), nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context) ([]PlatformConnection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]PlatformConnection, 0, len(s.connections))
	for _, conn := range s.connections {
		list = append(list, *clone(conn))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].PlatformName < list[j].PlatformName })
	return list, nil
}

// UpdateTokens implements Store.
func (s *MemoryStore) UpdateTokens(_ context.Context, platformName string, update TokenUpdate) (*PlatformConnection, error) {
	now := s.opts.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	conn, ok := s.connections[platformName]
	if !ok {
		return nil, storage.ErrNotFound
	}

	conn.Status = StatusActive
	conn.APIKey = update.APIKey
	conn.TokenExpiresAt = cloneTime(update.TokenExpiresAt)
	if update.RefreshToken != nil {
		conn.RefreshToken = cloneString(update.RefreshToken)
	}
	if update.TokenScopes != "" {
		conn.TokenScopes = update.TokenScopes
	}
	conn.UpdatedAt = now
	return clone(conn), nil
}

// Disconnect implements Store.
func (s *MemoryStore) Disconnect(_ context.Context, platformName string) error {
	now := s.opts.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	conn, ok := s.connections[platformName]
	if !ok {
		return storage.ErrNotFound
	}

	conn.Status = StatusInactive
	conn.APIKey = ""
	conn.RefreshToken = nil
	conn.TokenExpiresAt = nil
	conn.UpdatedAt = now
	return nil
}

// Ping implements Store.
func (*MemoryStore) Ping(_ context.Context) error {
	return nil
}

// Close implements Store.
func (*MemoryStore) Close() error {
	return nil
}

func clone(conn *PlatformConnection) *PlatformConnection {
	c := *conn
	c.RefreshToken = cloneString(conn.RefreshToken)
	c.TokenExpiresAt = cloneTime(conn.TokenExpiresAt)
	c.ConnectedAt = cloneTime(conn.ConnectedAt)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
