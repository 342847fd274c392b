// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package credentials resolves the OAuth2 client credentials configured for a provider.
package credentials

import (
	"strings"

	"github.com/stacklok/toolhive-core/env"

	"github.com/stacklok/hirehive/pkg/platforms/providers"
)

//go:generate mockgen -destination=mocks/mock_resolver.go -package=mocks -source=resolver.go Resolver

// Credentials is an OAuth2 client id and secret pair.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// String keeps the secret out of logs and error messages.
func (c Credentials) String() string {
	return "client_id=" + c.ClientID + " client_secret=***"
}

// Resolver looks up the client credentials for a provider. The boolean is
// false when either value is missing; that is an expected outcome, not an error.
type Resolver interface {
	Resolve(provider providers.Config) (Credentials, bool)
}

// EnvResolver reads credentials from the environment variables named by the provider.
type EnvResolver struct {
	env env.Reader
}

// NewEnvResolver creates a resolver reading from envReader. A nil reader reads the process environment.
func NewEnvResolver(envReader env.Reader) *EnvResolver {
	if envReader == nil {
		envReader = &env.OSReader{}
	}
	return &EnvResolver{env: envReader}
}

// Resolve implements Resolver.
func (r *EnvResolver) Resolve(provider providers.Config) (Credentials, bool) {
	if provider.ClientIDEnv == "" || provider.ClientSecretEnv == "" {
		return Credentials{}, false
	}

	clientID := strings.TrimSpace(r.env.Getenv(provider.ClientIDEnv))
	clientSecret := strings.TrimSpace(r.env.Getenv(provider.ClientSecretEnv))
	if clientID == "" || clientSecret == "" {
		return Credentials{}, false
	}

	return Credentials{ClientID: clientID, ClientSecret: clientSecret}, true
}
