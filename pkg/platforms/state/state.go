// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package state stores the single-use anti-CSRF state tokens that correlate
// an outbound authorization redirect with the provider callback.
//
// A state value can be consumed at most once. Consumption deletes the record
// whether or not it has expired, so a replayed state is always rejected.
package state

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=state.go Store

const (
	// DefaultTTL is how long an authorization attempt may take.
	DefaultTTL = 10 * time.Minute

	// stateBytes is the entropy of a state value.
	stateBytes = 32
)

// ErrInvalidState is returned by ValidateAndConsume when the state is
// unknown, already used or expired. It is an expected outcome, not a fault.
var ErrInvalidState = errors.New("invalid or expired state")

var errStateCollision = errors.New("state collision")

// OAuthState is a pending authorization attempt.
type OAuthState struct {
	State       string
	Provider    string
	UserID      string
	RedirectURI string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// Expired reports whether the state is no longer usable at now.
func (s *OAuthState) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store persists pending authorization attempts.
type Store interface {
	// Create records a new state bound to provider, user and callback URI and returns its value.
	Create(ctx context.Context, provider, userID, redirectURI string) (string, error)
	// ValidateAndConsume atomically removes the state and returns it when it
	// was still valid. Unknown and expired states yield ErrInvalidState.
	ValidateAndConsume(ctx context.Context, value string) (*OAuthState, error)
	// CleanupExpired removes expired states and returns how many were removed.
	CleanupExpired(ctx context.Context) (int, error)
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases the backend.
	Close() error
}

// Option configures a Store.
type Option func(*options)

type options struct {
	ttl time.Duration
	now func() time.Time
}

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func newOptions(opts []Option) options {
	o := options{ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) newState(value, provider, userID, redirectURI string) OAuthState {
	now := o.now().UTC()
	return OAuthState{
		State:       value,
		Provider:    provider,
		UserID:      userID,
		RedirectURI: redirectURI,
		ExpiresAt:   now.Add(o.ttl),
		CreatedAt:   now,
	}
}

// GenerateState returns a new unguessable base64url state value.
func GenerateState() (string, error) {
	b := make([]byte, stateBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
