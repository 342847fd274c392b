// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package connections

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/hirehive/pkg/storage"
	"github.com/stacklok/hirehive/pkg/storage/sqlite"
)

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type storeFactory func(t *testing.T) Store

func fixedClock() time.Time { return baseTime }

func backends() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(_ *testing.T) Store {
			return NewMemoryStore(WithClock(fixedClock))
		},
		"sqlite": func(t *testing.T) Store {
			t.Helper()
			db, err := sqlite.Open(t.Context(), filepath.Join(t.TempDir(), "connections.db"))
			require.NoError(t, err)
			s := NewSQLiteStore(db, WithClock(fixedClock))
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func ptr[T any](v T) *T { return &v }

func oauthUpsert(token string, connectedAt time.Time) Upsert {
	return Upsert{
		PlatformName:   "LinkedIn Recruiter",
		OAuthProvider:  "linkedin",
		APIKey:         token,
		RefreshToken:   ptr("refresh-" + token),
		TokenExpiresAt: ptr(connectedAt.Add(time.Hour)),
		TokenScopes:    "r_liteprofile r_emailaddress",
		MonthlyCost:    825,
		ConnectedAt:    connectedAt,
	}
}

func TestStore_UpsertCreates(t *testing.T) {
	t.Parallel()

	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			store := factory(t)
			ctx := t.Context()

			conn, err := store.Upsert(ctx, oauthUpsert("tok-1", baseTime))
			require.NoError(t, err)

			want := &PlatformConnection{
				PlatformName:   "LinkedIn Recruiter",
				Type:           TypePremium,
				Status:         StatusActive,
				APIKey:         "tok-1",
				RefreshToken:   ptr("refresh-tok-1"),
				TokenExpiresAt: ptr(baseTime.Add(time.Hour)),
				TokenScopes:    "r_liteprofile r_emailaddress",
				OAuthProvider:  "linkedin",
				MonthlyCost:    825,
				ConnectedAt:    ptr(baseTime),
				CreatedAt:      baseTime,
				UpdatedAt:      baseTime,
			}
			if diff := cmp.Diff(want, conn, cmpopts.IgnoreFields(PlatformConnection{}, "ID")); diff != "" {
				t.Errorf("Upsert() mismatch (-want +got):\n%s", diff)
			}
			assert.NotEmpty(t, conn.ID)

			got, err := store.Get(ctx, "LinkedIn Recruiter")
			require.NoError(t, err)
			assert.Equal(t, conn, got)
		})
	}
}

func TestStore_ReconnectKeepsTypeAndCost(t *testing.T) {
	t.Parallel()

	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			store := factory(t)
			ctx := t.Context()

			first, err := store.Upsert(ctx, oauthUpsert("tok-1", baseTime))
			require.NoError(t, err)

			later := baseTime.Add(24 * time.Hour)
			second := oauthUpsert("tok-2", later)
			second.MonthlyCost = 1
			second.RefreshToken = nil
			second.TokenExpiresAt = nil
			second.TokenScopes = "r_liteprofile"

			conn, err := store.Upsert(ctx, second)
			require.NoError(t, err)

			assert.Equal(t, first.ID, conn.ID)
			assert.Equal(t, TypePremium, conn.Type)
			assert.Equal(t, 825.0, conn.MonthlyCost)
			assert.Equal(t, StatusActive, conn.Status)
			assert.Equal(t, "tok-2", conn.APIKey)
			assert.Nil(t, conn.RefreshToken)
			assert.Nil(t, conn.TokenExpiresAt)
			assert.Equal(t, "r_liteprofile", conn.TokenScopes)
			require.NotNil(t, conn.ConnectedAt)
			assert.True(t, later.Equal(*conn.ConnectedAt))
			assert.True(t, first.CreatedAt.Equal(conn.CreatedAt))

			list, err := store.List(ctx)
			require.NoError(t, err)
			assert.Len(t, list, 1)
		})
	}
}

func TestStore_SimulatedReconnectKeepsTokenFields(t *testing.T) {
	t.Parallel()

	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			store := factory(t)
			ctx := t.Context()

			_, err := store.Upsert(ctx, oauthUpsert("tok-1", baseTime))
			require.NoError(t, err)

			conn, err := store.Upsert(ctx, Upsert{
				PlatformName:  "LinkedIn Recruiter",
				OAuthProvider: "linkedin",
				APIKey:        "li_abcdefghijkl",
				TokenScopes:   "ignored on update",
				MonthlyCost:   1,
				ConnectedAt:   baseTime.Add(time.Minute),
				Simulated:     true,
			})
			require.NoError(t, err)

			assert.Equal(t, "li_abcdefghijkl", conn.APIKey)
			assert.Equal(t, ptr("refresh-tok-1"), conn.RefreshToken)
			assert.Equal(t, "r_liteprofile r_emailaddress", conn.TokenScopes)
			assert.Equal(t, 825.0, conn.MonthlyCost)
		})
	}
}

func TestStore_SimulatedCreate(t *testing.T) {
	t.Parallel()

	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			store := factory(t)

			conn, err := store.Upsert(t.Context(), Upsert{
				PlatformName:  "Indeed",
				OAuthProvider: "indeed",
				APIKey:        "indeed_0123456789ab",
				TokenScopes:   "employer_access email offline_access",
				MonthlyCost:   299,
				ConnectedAt:   baseTime,
				Simulated:     true,
			})
			require.NoError(t, err)

			assert.Equal(t, TypePremium, conn.Type)
			assert.Equal(t, StatusActive, conn.Status)
			assert.Nil(t, conn.RefreshToken)
			assert.Nil(t, conn.TokenExpiresAt)
			assert.Equal(t, "employer_access email offline_access", conn.TokenScopes)
			assert.Equal(t, 299.0, conn.MonthlyCost)
		})
	}
}

func TestStore_GetUnknown(t *testing.T) {
	t.Parallel()

	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			store := factory(t)

			_, err := store.Get(t.Context(), "Monster")
			assert.ErrorIs(t, err, storage.ErrNotFound)

			_, err = store.UpdateTokens(t.Context(), "Monster", TokenUpdate{APIKey: "x"})
			assert.ErrorIs(t, err, storage.ErrNotFound)

			assert.ErrorIs(t, store.Disconnect(t.Context(), "Monster"), storage.ErrNotFound)
		})
	}
}

func TestStore_UpdateTokens(t *testing.T) {
	t.Parallel()

	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			store := factory(t)
			ctx := t.Context()

			_, err := store.Upsert(ctx, oauthUpsert("tok-1", baseTime))
			require.NoError(t, err)

			// no rotation, no scope: keep stored values
			conn, err := store.UpdateTokens(ctx, "LinkedIn Recruiter", TokenUpdate{
				APIKey:         "tok-2",
				TokenExpiresAt: ptr(baseTime.Add(2 * time.Hour)),
			})
			require.NoError(t, err)
			assert.Equal(t, "tok-2", conn.APIKey)
			assert.Equal(t, ptr("refresh-tok-1"), conn.RefreshToken)
			assert.Equal(t, "r_liteprofile r_emailaddress", conn.TokenScopes)
			require.NotNil(t, conn.TokenExpiresAt)
			assert.True(t, baseTime.Add(2*time.Hour).Equal(*conn.TokenExpiresAt))

			// rotation
			conn, err = store.UpdateTokens(ctx, "LinkedIn Recruiter", TokenUpdate{
				APIKey:       "tok-3",
				RefreshToken: ptr("refresh-rotated"),
				TokenScopes:  "r_liteprofile",
			})
			require.NoError(t, err)
			assert.Equal(t, ptr("refresh-rotated"), conn.RefreshToken)
			assert.Equal(t, "r_liteprofile", conn.TokenScopes)
			assert.Nil(t, conn.TokenExpiresAt)
		})
	}
}

func TestStore_Disconnect(t *testing.T) {
	t.Parallel()

	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			store := factory(t)
			ctx := t.Context()

			_, err := store.Upsert(ctx, oauthUpsert("tok-1", baseTime))
			require.NoError(t, err)

			require.NoError(t, store.Disconnect(ctx, "LinkedIn Recruiter"))

			conn, err := store.Get(ctx, "LinkedIn Recruiter")
			require.NoError(t, err)
			assert.Equal(t, StatusInactive, conn.Status)
			assert.Empty(t, conn.APIKey)
			assert.Nil(t, conn.RefreshToken)
			assert.Nil(t, conn.TokenExpiresAt)
			assert.Equal(t, TypePremium, conn.Type)
			assert.Equal(t, 825.0, conn.MonthlyCost)

			// reconnect reactivates
			conn, err = store.Upsert(ctx, oauthUpsert("tok-2", baseTime.Add(time.Hour)))
			require.NoError(t, err)
			assert.Equal(t, StatusActive, conn.Status)
		})
	}
}

func TestStore_ListOrdered(t *testing.T) {
	t.Parallel()

	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			store := factory(t)
			ctx := t.Context()

			for _, platform := range []string{"ZipRecruiter", "Indeed", "LinkedIn Recruiter"} {
				u := oauthUpsert("tok", baseTime)
				u.PlatformName = platform
				_, err := store.Upsert(ctx, u)
				require.NoError(t, err)
			}

			list, err := store.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 3)
			assert.Equal(t, "Indeed", list[0].PlatformName)
			assert.Equal(t, "LinkedIn Recruiter", list[1].PlatformName)
			assert.Equal(t, "ZipRecruiter", list[2].PlatformName)
			require.NoError(t, store.Ping(ctx))
		})
	}
}

func TestStore_ConcurrentUpsertsCreateOneRow(t *testing.T) {
	t.Parallel()

	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			store := factory(t)
			ctx := t.Context()

			var wg sync.WaitGroup
			errs := make(chan error, 10)
			for i := range 10 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := store.Upsert(ctx, oauthUpsert(string(rune('a'+i)), baseTime))
					errs <- err
				}()
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				require.NoError(t, err)
			}

			list, err := store.List(ctx)
			require.NoError(t, err)
			assert.Len(t, list, 1)
		})
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()

	conn, err := store.Upsert(t.Context(), oauthUpsert("tok-1", baseTime))
	require.NoError(t, err)
	*conn.RefreshToken = "tampered"
	conn.APIKey = "tampered"

	got, err := store.Get(t.Context(), "LinkedIn Recruiter")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", got.APIKey)
	assert.Equal(t, "refresh-tok-1", *got.RefreshToken)
}
