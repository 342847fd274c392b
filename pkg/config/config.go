// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config contains the definition of the service configuration and
// the logic required to load it from flags, environment and config files.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/stacklok/toolhive-core/env"
)

// EnvPrefix is the prefix of environment variables mapped onto config keys.
// HIREHIVE_STATE_BACKEND sets state.backend.
const EnvPrefix = "HIREHIVE"

// Storage backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config keys.
const (
	KeyAddress                 = "address"
	KeyDebug                   = "debug"
	KeySettingsPath            = "settings_path"
	KeyConnectionsBackend      = "connections.backend"
	KeyStateBackend            = "state.backend"
	KeyStateCleanupInterval    = "state.cleanup_interval"
	KeySQLitePath              = "sqlite.path"
	KeyRedisAddr               = "redis.addr"
	KeyRedisPassword           = "redis.password"
	KeyRedisDB                 = "redis.db"
	KeyRedisKeyPrefix          = "redis.key_prefix"
	KeyIdentityHeader          = "identity.header"
	KeyIdentityDefaultUser     = "identity.default_user"
	KeyMetricsEnabled          = "metrics.enabled"
	KeyTokenClientCABundle     = "token_client.ca_bundle"
	KeyTokenClientAllowPrivate = "token_client.allow_private_ips"
	KeyTokenClientAllowHTTP    = "token_client.allow_http"
)

// Config represents the configuration of the service.
type Config struct {
	Address      string            `yaml:"address"`
	Debug        bool              `yaml:"debug"`
	BaseURL      string            `yaml:"base_url"`
	SettingsPath string            `yaml:"settings_path"`
	Connections  ConnectionsConfig `yaml:"connections"`
	State        StateConfig       `yaml:"state"`
	SQLite       SQLiteConfig      `yaml:"sqlite"`
	Redis        RedisConfig       `yaml:"redis"`
	Identity     IdentityConfig    `yaml:"identity"`
	Metrics      MetricsConfig     `yaml:"metrics"`
	TokenClient  TokenClientConfig `yaml:"token_client"`
}

// ConnectionsConfig selects the platform connection store.
type ConnectionsConfig struct {
	Backend string `yaml:"backend"`
}

// StateConfig selects the authorization state store.
type StateConfig struct {
	Backend         string        `yaml:"backend"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// SQLiteConfig holds the SQLite database settings.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// RedisConfig holds the Redis settings used by the redis state backend.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password,omitempty"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// IdentityConfig configures how the calling user is identified.
type IdentityConfig struct {
	// Header is the request header set by the trusted session layer.
	Header string `yaml:"header"`
	// DefaultUser is used when the header is absent.
	DefaultUser string `yaml:"default_user"`
}

// MetricsConfig controls the /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// TokenClientConfig configures the outbound client used for provider token endpoints.
type TokenClientConfig struct {
	CABundle        string `yaml:"ca_bundle,omitempty"`
	AllowPrivateIPs bool   `yaml:"allow_private_ips"`
	AllowHTTP       bool   `yaml:"allow_http"`
}

// DefaultSQLitePath is the database location under the XDG data directory.
func DefaultSQLitePath() string {
	return filepath.Join(xdg.DataHome, "hirehive", "hirehive.db")
}

// SetDefaults registers default values and environment mapping on v.
func SetDefaults(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyAddress, "127.0.0.1:8080")
	v.SetDefault(KeyDebug, false)
	v.SetDefault(KeySettingsPath, "/settings")
	v.SetDefault(KeyConnectionsBackend, BackendSQLite)
	v.SetDefault(KeyStateBackend, BackendSQLite)
	v.SetDefault(KeyStateCleanupInterval, 5*time.Minute)
	v.SetDefault(KeySQLitePath, DefaultSQLitePath())
	v.SetDefault(KeyRedisAddr, "")
	v.SetDefault(KeyRedisPassword, "")
	v.SetDefault(KeyRedisDB, 0)
	v.SetDefault(KeyRedisKeyPrefix, "hirehive:")
	v.SetDefault(KeyIdentityHeader, "X-Hirehive-User")
	v.SetDefault(KeyIdentityDefaultUser, "anonymous")
	v.SetDefault(KeyMetricsEnabled, true)
	v.SetDefault(KeyTokenClientCABundle, "")
	v.SetDefault(KeyTokenClientAllowPrivate, false)
	v.SetDefault(KeyTokenClientAllowHTTP, false)
}

// Load reads the configuration from v and resolves the base URL from envReader.
func Load(v *viper.Viper, envReader env.Reader) (*Config, error) {
	if envReader == nil {
		envReader = &env.OSReader{}
	}

	cfg := &Config{
		Address:      v.GetString(KeyAddress),
		Debug:        v.GetBool(KeyDebug),
		BaseURL:      ResolveBaseURL(envReader),
		SettingsPath: v.GetString(KeySettingsPath),
		Connections: ConnectionsConfig{
			Backend: strings.ToLower(v.GetString(KeyConnectionsBackend)),
		},
		State: StateConfig{
			Backend:         strings.ToLower(v.GetString(KeyStateBackend)),
			CleanupInterval: v.GetDuration(KeyStateCleanupInterval),
		},
		SQLite: SQLiteConfig{
			Path: v.GetString(KeySQLitePath),
		},
		Redis: RedisConfig{
			Addr:      v.GetString(KeyRedisAddr),
			Password:  v.GetString(KeyRedisPassword),
			DB:        v.GetInt(KeyRedisDB),
			KeyPrefix: v.GetString(KeyRedisKeyPrefix),
		},
		Identity: IdentityConfig{
			Header:      v.GetString(KeyIdentityHeader),
			DefaultUser: v.GetString(KeyIdentityDefaultUser),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool(KeyMetricsEnabled),
		},
		TokenClient: TokenClientConfig{
			CABundle:        v.GetString(KeyTokenClientCABundle),
			AllowPrivateIPs: v.GetBool(KeyTokenClientAllowPrivate),
			AllowHTTP:       v.GetBool(KeyTokenClientAllowHTTP),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UsesSQLite reports whether any store is backed by SQLite.
func (c *Config) UsesSQLite() bool {
	return c.Connections.Backend == BackendSQLite || c.State.Backend == BackendSQLite
}

// YAML renders the configuration with secrets redacted.
func (c *Config) YAML() ([]byte, error) {
	redacted := *c
	if redacted.Redis.Password != "" {
		redacted.Redis.Password = "***"
	}
	out, err := yaml.Marshal(&redacted)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return out, nil
}
