// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package identity resolves who started a connection flow. The session layer
// in front of this service authenticates users and forwards the user id in a
// trusted header; requests without it run as an explicit anonymous identity.
package identity

import (
	"net/http"
	"strings"
)

// Kind says how an identity was established.
type Kind string

const (
	// KindAuthenticated is a user forwarded by the session layer.
	KindAuthenticated Kind = "authenticated"
	// KindAnonymousOrDefault is the configured fallback user. It carries no
	// privileges beyond starting a connection flow.
	KindAnonymousOrDefault Kind = "anonymous_or_default"
)

const (
	// DefaultHeader is the trusted header carrying the user id.
	DefaultHeader = "X-Hirehive-User"
	// DefaultUserID is used when no user id is configured for anonymous requests.
	DefaultUserID = "anonymous"
)

// Identity is the caller of a connection flow.
type Identity struct {
	UserID string
	Kind   Kind
}

// IsAuthenticated reports whether the identity came from the session layer.
func (i Identity) IsAuthenticated() bool {
	return i.Kind == KindAuthenticated
}

// Resolver extracts the caller identity from a request.
type Resolver interface {
	Resolve(r *http.Request) Identity
}

// HeaderResolver trusts a single request header set by the session layer.
type HeaderResolver struct {
	header      string
	defaultUser string
}

// NewHeaderResolver creates a resolver reading header, falling back to defaultUser.
func NewHeaderResolver(header, defaultUser string) *HeaderResolver {
	if header == "" {
		header = DefaultHeader
	}
	if strings.TrimSpace(defaultUser) == "" {
		defaultUser = DefaultUserID
	}
	return &HeaderResolver{header: header, defaultUser: defaultUser}
}

// Resolve implements Resolver.
func (h *HeaderResolver) Resolve(r *http.Request) Identity {
	if userID := strings.TrimSpace(r.Header.Get(h.header)); userID != "" {
		return Identity{UserID: userID, Kind: KindAuthenticated}
	}
	return Identity{UserID: h.defaultUser, Kind: KindAnonymousOrDefault}
}
