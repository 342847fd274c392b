// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"gopkg.in/yaml.v3"

	"github.com/stacklok/toolhive-core/env/mocks"
)

func newEnv(t *testing.T, values map[string]string) *mocks.MockReader {
	t.Helper()
	ctrl := gomock.NewController(t)
	reader := mocks.NewMockReader(ctrl)
	reader.EXPECT().Getenv(gomock.Any()).DoAndReturn(func(key string) string {
		return values[key]
	}).AnyTimes()
	return reader
}

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestResolveBaseURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "APP_URL wins",
			env:  map[string]string{"APP_URL": "https://hr.example.com", "VERCEL_URL": "preview.vercel.app"},
			want: "https://hr.example.com",
		},
		{
			name: "APP_URL trailing slash trimmed",
			env:  map[string]string{"APP_URL": "https://hr.example.com/"},
			want: "https://hr.example.com",
		},
		{
			name: "VERCEL_URL gets https",
			env:  map[string]string{"VERCEL_URL": "preview-123.vercel.app"},
			want: "https://preview-123.vercel.app",
		},
		{
			name: "blank APP_URL falls through",
			env:  map[string]string{"APP_URL": "  ", "VERCEL_URL": "preview-123.vercel.app"},
			want: "https://preview-123.vercel.app",
		},
		{
			name: "default",
			env:  map[string]string{},
			want: "http://localhost:3000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ResolveBaseURL(newEnv(t, tt.env)))
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(newViper(), newEnv(t, nil))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Address)
	assert.Equal(t, "http://localhost:3000", cfg.BaseURL)
	assert.Equal(t, "/settings", cfg.SettingsPath)
	assert.Equal(t, BackendSQLite, cfg.Connections.Backend)
	assert.Equal(t, BackendSQLite, cfg.State.Backend)
	assert.Equal(t, 5*time.Minute, cfg.State.CleanupInterval)
	assert.Equal(t, DefaultSQLitePath(), cfg.SQLite.Path)
	assert.Equal(t, "hirehive:", cfg.Redis.KeyPrefix)
	assert.Equal(t, "X-Hirehive-User", cfg.Identity.Header)
	assert.Equal(t, "anonymous", cfg.Identity.DefaultUser)
	assert.True(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.TokenClient.AllowHTTP)
	assert.True(t, cfg.UsesSQLite())
}

func TestLoad_Overrides(t *testing.T) {
	t.Parallel()

	v := newViper()
	v.Set(KeyStateBackend, "REDIS")
	v.Set(KeyRedisAddr, "localhost:6379")
	v.Set(KeyConnectionsBackend, BackendMemory)
	v.Set(KeyStateCleanupInterval, "30s")
	v.Set(KeySettingsPath, "/admin/integrations")

	cfg, err := Load(v, newEnv(t, map[string]string{"APP_URL": "https://hr.example.com"}))
	require.NoError(t, err)

	assert.Equal(t, BackendRedis, cfg.State.Backend)
	assert.Equal(t, BackendMemory, cfg.Connections.Backend)
	assert.Equal(t, 30*time.Second, cfg.State.CleanupInterval)
	assert.Equal(t, "https://hr.example.com", cfg.BaseURL)
	assert.False(t, cfg.UsesSQLite())
}

func TestLoad_EnvironmentKeys(t *testing.T) {
	t.Setenv("HIREHIVE_STATE_BACKEND", "memory")
	t.Setenv("HIREHIVE_IDENTITY_DEFAULT_USER", "demo")

	cfg, err := Load(newViper(), newEnv(t, nil))
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.State.Backend)
	assert.Equal(t, "demo", cfg.Identity.DefaultUser)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		return &Config{
			Address:      ":8080",
			BaseURL:      "http://localhost:3000",
			SettingsPath: "/settings",
			Connections:  ConnectionsConfig{Backend: BackendMemory},
			State:        StateConfig{Backend: BackendMemory, CleanupInterval: time.Minute},
			Identity:     IdentityConfig{Header: "X-User", DefaultUser: "anonymous"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:    "unknown state backend",
			mutate:  func(c *Config) { c.State.Backend = "etcd" },
			wantErr: "state.backend must be one of",
		},
		{
			name:    "redis without address",
			mutate:  func(c *Config) { c.State.Backend = BackendRedis },
			wantErr: "redis.addr is required",
		},
		{
			name:    "redis connections backend",
			mutate:  func(c *Config) { c.Connections.Backend = BackendRedis },
			wantErr: "connections.backend must be one of",
		},
		{
			name:    "sqlite without path",
			mutate:  func(c *Config) { c.State.Backend = BackendSQLite },
			wantErr: "sqlite.path must not be empty",
		},
		{
			name:    "relative settings path",
			mutate:  func(c *Config) { c.SettingsPath = "settings" },
			wantErr: "settings_path must start with /",
		},
		{
			name:    "base URL without scheme",
			mutate:  func(c *Config) { c.BaseURL = "hr.example.com" },
			wantErr: "must start with http:// or https://",
		},
		{
			name:    "zero cleanup interval",
			mutate:  func(c *Config) { c.State.CleanupInterval = 0 },
			wantErr: "state.cleanup_interval must be positive",
		},
		{
			name:    "empty identity header",
			mutate:  func(c *Config) { c.Identity.Header = "" },
			wantErr: "identity.header and identity.default_user must not be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_YAML(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Address: ":8080",
		State:   StateConfig{Backend: BackendRedis, CleanupInterval: 5 * time.Minute},
		Redis:   RedisConfig{Addr: "localhost:6379", Password: "hunter2"},
	}

	out, err := cfg.YAML()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "hunter2")

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(out, &decoded))
	redis, ok := decoded["redis"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "***", redis["password"])
	assert.Equal(t, "localhost:6379", redis["addr"])
	assert.Equal(t, "hunter2", cfg.Redis.Password, "the original is not modified")
}
