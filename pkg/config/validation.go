// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	neturl "net/url"
	"strings"
)

// ErrInvalidConfig is returned when the configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error

	if c.Address == "" {
		errs = append(errs, fmt.Errorf("%s must not be empty", KeyAddress))
	}

	if err := validateBaseURL(c.BaseURL); err != nil {
		errs = append(errs, err)
	}

	if !strings.HasPrefix(c.SettingsPath, "/") {
		errs = append(errs, fmt.Errorf("%s must start with /, got %q", KeySettingsPath, c.SettingsPath))
	}

	switch c.Connections.Backend {
	case BackendMemory, BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("%s must be one of %s, %s, got %q",
			KeyConnectionsBackend, BackendMemory, BackendSQLite, c.Connections.Backend))
	}

	switch c.State.Backend {
	case BackendMemory, BackendSQLite:
	case BackendRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, fmt.Errorf("%s is required when %s is %s", KeyRedisAddr, KeyStateBackend, BackendRedis))
		}
	default:
		errs = append(errs, fmt.Errorf("%s must be one of %s, %s, %s, got %q",
			KeyStateBackend, BackendMemory, BackendSQLite, BackendRedis, c.State.Backend))
	}

	if c.State.CleanupInterval <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyStateCleanupInterval))
	}

	if c.UsesSQLite() && c.SQLite.Path == "" {
		errs = append(errs, fmt.Errorf("%s must not be empty", KeySQLitePath))
	}

	if c.Identity.Header == "" || c.Identity.DefaultUser == "" {
		errs = append(errs, fmt.Errorf("%s and %s must not be empty", KeyIdentityHeader, KeyIdentityDefaultUser))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func validateBaseURL(raw string) error {
	u, err := neturl.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid base URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base URL %q must start with http:// or https://", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("base URL %q has no host", raw)
	}
	return nil
}
