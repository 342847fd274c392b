// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"context"
	"sync"
)

// MemoryStore keeps states in process memory. It is suitable for a single
// replica; states are lost on restart.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]OAuthState
	opts   options
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		states: make(map[string]OAuthState),
		opts:   newOptions(opts),
	}
}

// Create implements Store.
func (s *MemoryStore) Create(_ context.Context, provider, userID, redirectURI string) (string, error) {
	value, err := GenerateState()
	if err != nil {
		return "", err
	}

	st := s.opts.newState(value, provider, userID, redirectURI)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.states[value]; exists {
		return "", errStateCollision
	}
	s.states[value] = st
	return value, nil
}

// ValidateAndConsume implements Store.
func (s *MemoryStore) ValidateAndConsume(_ context.Context, value string) (*OAuthState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[value]
	if !ok {
		return nil, ErrInvalidState
	}
	delete(s.states, value)

	if st.Expired(s.opts.now()) {
		return nil, ErrInvalidState
	}
	return &st, nil
}

// CleanupExpired implements Store.
func (s *MemoryStore) CleanupExpired(_ context.Context) (int, error) {
	now := s.opts.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Collect first, then delete
	var expired []string
	for value, st := range s.states {
		if st.Expired(now) {
			expired = append(expired, value)
		}
	}
	for _, value := range expired {
		delete(s.states, value)
	}
	return len(expired), nil
}

// Ping implements Store.
func (*MemoryStore) Ping(_ context.Context) error {
	return nil
}

// Close implements Store.
func (*MemoryStore) Close() error {
	return nil
}
