// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"strings"

	"github.com/stacklok/toolhive-core/env"
)

// Environment variables consulted for the externally visible origin.
const (
	AppURLEnvVar    = "APP_URL"
	VercelURLEnvVar = "VERCEL_URL"
)

// DefaultBaseURL is used when neither APP_URL nor VERCEL_URL is set.
const DefaultBaseURL = "http://localhost:3000"

// ResolveBaseURL returns APP_URL, else https:// plus VERCEL_URL, else
// DefaultBaseURL. Trailing slashes are removed.
func ResolveBaseURL(envReader env.Reader) string {
	if appURL := strings.TrimSpace(envReader.Getenv(AppURLEnvVar)); appURL != "" {
		return strings.TrimRight(appURL, "/")
	}
	if vercelURL := strings.TrimSpace(envReader.Getenv(VercelURLEnvVar)); vercelURL != "" {
		return "https://" + strings.TrimRight(vercelURL, "/")
	}
	return DefaultBaseURL
}
