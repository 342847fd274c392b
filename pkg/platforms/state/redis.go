// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"

	"github.com/stacklok/hirehive/pkg/logger"
	"github.com/stacklok/hirehive/pkg/storage"
)

// Default timeouts for Redis operations.
const (
	DefaultDialTimeout  = 5 * time.Second
	DefaultReadTimeout  = 3 * time.Second
	DefaultWriteTimeout = 3 * time.Second
)

const (
	// DefaultKeyPrefix namespaces state keys.
	DefaultKeyPrefix = "hirehive:"

	// connectAttempts bounds the startup ping retries.
	connectAttempts = 5

	// scanCount is the SCAN batch size used by CleanupExpired.
	scanCount = 100
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string

	// Timeouts (defaults: Dial=5s, Read=3s, Write=3s).
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// deleteIfExpiredScript removes a state record only when its embedded expiry
// has passed, so a sweep never races a concurrent Create on the same key.
var deleteIfExpiredScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then
  return 0
end
local ok, rec = pcall(cjson.decode, v)
if not ok or rec.expires_at_ms == nil then
  redis.call('DEL', KEYS[1])
  return 1
end
if tonumber(rec.expires_at_ms) <= tonumber(ARGV[1]) then
  redis.call('DEL', KEYS[1])
  return 1
end
return 0
`)

// redisState is the JSON record stored under each state key.
type redisState struct {
	Provider    string    `json:"provider"`
	UserID      string    `json:"user_id"`
	RedirectURI string    `json:"redirect_uri"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
	// ExpiresAtMs duplicates ExpiresAt for the cleanup script.
	ExpiresAtMs int64 `json:"expires_at_ms"`
}

// RedisStore keeps states in Redis with GETDEL consumption. Shared by all replicas.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	opts      options
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to Redis, retrying the initial ping with exponential backoff.
func NewRedisStore(ctx context.Context, cfg RedisConfig, opts ...Option) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	applyRedisDefaults(&cfg)

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        []string{cfg.Addr},
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	_, err := backoff.Retry(ctx, func() (string, error) {
		return client.Ping(ctx).Result()
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(connectAttempts),
		backoff.WithNotify(func(err error, d time.Duration) {
			logger.Warnw("redis not reachable, retrying", "addr", cfg.Addr, "error", err, "retry_in", d)
		}),
	)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return NewRedisStoreWithClient(client, cfg.KeyPrefix, opts...), nil
}

// NewRedisStoreWithClient creates a store on an existing client (used with miniredis in tests).
func NewRedisStoreWithClient(client redis.UniversalClient, keyPrefix string, opts ...Option) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix, opts: newOptions(opts)}
}

func applyRedisDefaults(cfg *RedisConfig) {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
}

func (s *RedisStore) key(value string) string {
	return s.keyPrefix + "state:" + value
}

// Create implements Store.
func (s *RedisStore) Create(ctx context.Context, provider, userID, redirectURI string) (string, error) {
	value, err := GenerateState()
	if err != nil {
		return "", err
	}

	st := s.opts.newState(value, provider, userID, redirectURI)
	data, err := json.Marshal(redisState{
		Provider:    st.Provider,
		UserID:      st.UserID,
		RedirectURI: st.RedirectURI,
		ExpiresAt:   st.ExpiresAt,
		CreatedAt:   st.CreatedAt,
		ExpiresAtMs: st.ExpiresAt.UnixMilli(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal state: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.key(value), data, s.opts.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to store state: %w", err)
	}
	if !ok {
		return "", errStateCollision
	}
	return value, nil
}

// ValidateAndConsume implements Store.
func (s *RedisStore) ValidateAndConsume(ctx context.Context, value string) (*OAuthState, error) {
	data, err := s.client.GetDel(ctx, s.key(value)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrInvalidState
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume state: %w", err)
	}

	var rec redisState
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}

	st := &OAuthState{
		State:       value,
		Provider:    rec.Provider,
		UserID:      rec.UserID,
		RedirectURI: rec.RedirectURI,
		ExpiresAt:   rec.ExpiresAt,
		CreatedAt:   rec.CreatedAt,
	}
	// Key TTLs are coarse; the embedded expiry is authoritative.
	if st.Expired(s.opts.now()) {
		return nil, ErrInvalidState
	}
	return st, nil
}

// CleanupExpired implements Store. Redis expires keys on its own; the sweep
// catches records whose TTL outlived the embedded expiry.
func (s *RedisStore) CleanupExpired(ctx context.Context) (int, error) {
	nowMs := s.opts.now().UnixMilli()
	removed := 0

	iter := s.client.Scan(ctx, 0, s.key("*"), scanCount).Iterator()
	for iter.Next(ctx) {
		n, err := deleteIfExpiredScript.Run(ctx, s.client, []string{iter.Val()}, nowMs).Int()
		if err != nil {
			return removed, fmt.Errorf("failed to delete expired state: %w", err)
		}
		removed += n
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("failed to scan states: %w", err)
	}
	return removed, nil
}

// Ping implements Store.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: redis: %w", storage.ErrUnavailable, err)
	}
	return nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
