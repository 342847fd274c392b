// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package providers is the static registry of recruitment platforms that
// can be connected through OAuth2.
package providers

import (
	"slices"
	"sort"
)

// Config describes one OAuth2 provider. Values returned by the registry are
// copies; mutating them does not affect the registry.
type Config struct {
	// ID is the path segment used in /api/platforms/{provider}/...
	ID string
	// PlatformName is the display name and the key platform connections are stored under.
	PlatformName string
	// AuthorizationURL is the provider consent endpoint.
	AuthorizationURL string
	// TokenURL is the provider token endpoint.
	TokenURL string
	// Scopes are requested in order, space-joined.
	Scopes []string
	// ClientIDEnv and ClientSecretEnv name the environment variables holding
	// the client credentials.
	ClientIDEnv     string
	ClientSecretEnv string
	// Available is false for providers whose OAuth integration is not offered yet.
	Available bool
	// SimulatedTokenPrefix prefixes synthetic tokens issued when no credentials are configured.
	SimulatedTokenPrefix string
	// MonthlyCost is recorded when a connection is first created.
	MonthlyCost float64
}

var registry = map[string]Config{
	"linkedin": {
		ID:                   "linkedin",
		PlatformName:         "LinkedIn Recruiter",
		AuthorizationURL:     "https://www.linkedin.com/oauth/v2/authorization",
		TokenURL:             "https://www.linkedin.com/oauth/v2/accessToken",
		Scopes:               []string{"r_liteprofile", "r_emailaddress", "w_member_social"},
		ClientIDEnv:          "LINKEDIN_CLIENT_ID",
		ClientSecretEnv:      "LINKEDIN_CLIENT_SECRET",
		Available:            true,
		SimulatedTokenPrefix: "li_",
		MonthlyCost:          825,
	},
	"indeed": {
		ID:                   "indeed",
		PlatformName:         "Indeed",
		AuthorizationURL:     "https://secure.indeed.com/oauth/v2/authorize",
		TokenURL:             "https://apis.indeed.com/oauth/v2/tokens",
		Scopes:               []string{"employer_access", "email", "offline_access"},
		ClientIDEnv:          "INDEED_CLIENT_ID",
		ClientSecretEnv:      "INDEED_CLIENT_SECRET",
		Available:            true,
		SimulatedTokenPrefix: "indeed_",
		MonthlyCost:          299,
	},
	"glassdoor": {
		ID:                   "glassdoor",
		PlatformName:         "Glassdoor",
		AuthorizationURL:     "https://www.glassdoor.com/oauth/authorize",
		TokenURL:             "https://www.glassdoor.com/oauth/token",
		Scopes:               []string{"employer"},
		ClientIDEnv:          "GLASSDOOR_CLIENT_ID",
		ClientSecretEnv:      "GLASSDOOR_CLIENT_SECRET",
		Available:            false,
		SimulatedTokenPrefix: "gd_",
		MonthlyCost:          199,
	},
	"ziprecruiter": {
		ID:                   "ziprecruiter",
		PlatformName:         "ZipRecruiter",
		AuthorizationURL:     "https://www.ziprecruiter.com/oauth/authorize",
		TokenURL:             "https://api.ziprecruiter.com/oauth/token",
		Scopes:               []string{"jobs", "candidates"},
		ClientIDEnv:          "ZIPRECRUITER_CLIENT_ID",
		ClientSecretEnv:      "ZIPRECRUITER_CLIENT_SECRET",
		Available:            false,
		SimulatedTokenPrefix: "zr_",
		MonthlyCost:          249,
	},
}

// Lookup returns the provider registered under id.
func Lookup(id string) (Config, bool) {
	cfg, ok := registry[id]
	if !ok {
		return Config{}, false
	}
	return clone(cfg), true
}

// All returns every registered provider sorted by ID.
func All() []Config {
	all := make([]Config, 0, len(registry))
	for _, cfg := range registry {
		all = append(all, clone(cfg))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

func clone(cfg Config) Config {
	cfg.Scopes = slices.Clone(cfg.Scopes)
	return cfg
}
