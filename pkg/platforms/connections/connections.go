// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package connections persists connected recruitment platforms, keyed by
// their platform name.
package connections

import (
	"context"
	"time"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=connections.go Store

// Type is the subscription tier of a connection.
type Type string

// Connection tiers.
const (
	TypeFree       Type = "FREE"
	TypePremium    Type = "PREMIUM"
	TypeEnterprise Type = "ENTERPRISE"
)

// Status is the state of a connection.
type Status string

// Connection statuses.
const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
	StatusError    Status = "ERROR"
)

// PlatformConnection is a connected recruitment platform.
type PlatformConnection struct {
	ID             string
	PlatformName   string
	Type           Type
	Status         Status
	APIKey         string
	RefreshToken   *string
	TokenExpiresAt *time.Time
	TokenScopes    string
	OAuthProvider  string
	MonthlyCost    float64
	ConnectedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Upsert describes a successful connect. A new connection is created as
// PREMIUM and ACTIVE with every field set. An existing connection is set
// ACTIVE with the new token and connect time; Type and MonthlyCost are never
// changed. Simulated connects leave the remaining token fields of an existing
// connection untouched.
type Upsert struct {
	PlatformName   string
	OAuthProvider  string
	APIKey         string
	RefreshToken   *string
	TokenExpiresAt *time.Time
	TokenScopes    string
	MonthlyCost    float64
	ConnectedAt    time.Time
	Simulated      bool
}

// TokenUpdate is the result of a token refresh. A nil RefreshToken or an
// empty TokenScopes keeps the stored value.
type TokenUpdate struct {
	APIKey         string
	RefreshToken   *string
	TokenExpiresAt *time.Time
	TokenScopes    string
}

// Store persists platform connections. Lookups of unknown platforms return
// storage.ErrNotFound.
type Store interface {
	// Upsert creates or reconnects the connection for u.PlatformName in one atomic step.
	Upsert(ctx context.Context, u Upsert) (*PlatformConnection, error)
	// Get returns the connection for platformName.
	Get(ctx context.Context, platformName string) (*PlatformConnection, error)
	// List returns all connections ordered by platform name.
	List(ctx context.Context) ([]PlatformConnection, error)
	// UpdateTokens stores refreshed tokens and marks the connection ACTIVE.
	UpdateTokens(ctx context.Context, platformName string, update TokenUpdate) (*PlatformConnection, error)
	// Disconnect marks the connection INACTIVE and clears its tokens.
	Disconnect(ctx context.Context, platformName string) error
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases the backend.
	Close() error
}

// Option configures a Store.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source used for CreatedAt and UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func newOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
