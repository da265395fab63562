package authdb_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authcore/authdb"
	"github.com/dmitrymomot/authcore/pkg/geoip"
)

const (
	desktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/115.0"
	iphoneUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 16_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.6 Mobile/15E148 Safari/604.1"
)

func TestUpdateSessionToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("refreshes telemetry in the cache, not the durable row", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, authdb.DefaultConfig())
		acc := createTestAccount(t, env, "update@example.com")

		tok, err := env.db.CreateSessionToken(ctx,
			&authdb.SessionTokenSource{UID: acc.UID, Email: acc.Email}, desktopUA)
		require.NoError(t, err)

		// Sign in on a desktop, keep browsing on a phone.
		require.NoError(t, env.db.UpdateSessionToken(ctx, tok, iphoneUA, ""))

		sessions, err := env.db.Sessions(ctx, acc.UID)
		require.NoError(t, err)
		require.Len(t, sessions, 1)
		assert.Equal(t, "mobile", sessions[0].UADeviceType)
		assert.Equal(t, "ios", sessions[0].UAOS)
		assert.Equal(t, "16.6", sessions[0].UAOSVersion)

		// The durable row still remembers the desktop sign-in.
		durable, err := env.store.SessionToken(ctx, tok.ID)
		require.NoError(t, err)
		assert.Equal(t, "desktop", durable.UADeviceType)
		assert.Equal(t, "windows", durable.UAOS)
	})

	t.Run("single-token reads skip the cache", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, authdb.DefaultConfig())
		acc := createTestAccount(t, env, "hotpath@example.com")

		tok, err := env.db.CreateSessionToken(ctx,
			&authdb.SessionTokenSource{UID: acc.UID, Email: acc.Email}, desktopUA)
		require.NoError(t, err)
		require.NoError(t, env.db.UpdateSessionToken(ctx, tok, iphoneUA, ""))

		got, err := env.db.SessionToken(ctx, tok.ID)
		require.NoError(t, err)
		assert.Equal(t, "desktop", got.UADeviceType,
			"SessionToken serves durable telemetry even when the cache is fresher")
	})

	t.Run("disabled feature leaves the cache byte-for-byte unchanged", func(t *testing.T) {
		t.Parallel()
		cfg := authdb.DefaultConfig()
		cfg.LastAccessUpdatesEnabled = false
		env := newTestEnv(t, cfg)
		acc := createTestAccount(t, env, "disabled@example.com")

		tok, err := env.db.CreateSessionToken(ctx,
			&authdb.SessionTokenSource{UID: acc.UID, Email: acc.Email}, desktopUA)
		require.NoError(t, err)

		seed := []byte(`[{"id":"sentinel","last_access_at":"2024-01-01T00:00:00Z"}]`)
		require.NoError(t, env.cache.Set(ctx, acc.UID, seed))
		setsBefore := env.cache.sets

		require.NoError(t, env.db.UpdateSessionToken(ctx, tok, iphoneUA, ""))

		assert.Equal(t, seed, env.cache.snapshot(acc.UID))
		assert.Equal(t, setsBefore, env.cache.sets)
	})

	t.Run("sample-rate miss is a no-op", func(t *testing.T) {
		t.Parallel()
		cfg := authdb.DefaultConfig()
		cfg.LastAccessUpdatesSampleRate = 0.5
		env := newTestEnv(t, cfg, authdb.WithSampler(func() float64 { return 0.9 }))
		acc := createTestAccount(t, env, "sampled-out@example.com")

		tok, err := env.db.CreateSessionToken(ctx,
			&authdb.SessionTokenSource{UID: acc.UID, Email: acc.Email}, "")
		require.NoError(t, err)
		require.NoError(t, env.db.UpdateSessionToken(ctx, tok, "", ""))
		assert.Zero(t, env.cache.sets)
	})

	t.Run("sample-rate hit writes", func(t *testing.T) {
		t.Parallel()
		cfg := authdb.DefaultConfig()
		cfg.LastAccessUpdatesSampleRate = 0.5
		env := newTestEnv(t, cfg, authdb.WithSampler(func() float64 { return 0.1 }))
		acc := createTestAccount(t, env, "sampled-in@example.com")

		tok, err := env.db.CreateSessionToken(ctx,
			&authdb.SessionTokenSource{UID: acc.UID, Email: acc.Email}, "")
		require.NoError(t, err)
		require.NoError(t, env.db.UpdateSessionToken(ctx, tok, "", ""))
		assert.Equal(t, 1, env.cache.sets)
	})

	t.Run("email pattern restricts eligibility", func(t *testing.T) {
		t.Parallel()
		cfg := authdb.DefaultConfig()
		cfg.LastAccessUpdatesEmailPattern = `@testers\.example\.com$`
		env := newTestEnv(t, cfg)

		outsider := createTestAccount(t, env, "user@example.com")
		insider := createTestAccount(t, env, "user@testers.example.com")

		outTok, err := env.db.CreateSessionToken(ctx,
			&authdb.SessionTokenSource{UID: outsider.UID, Email: outsider.Email}, "")
		require.NoError(t, err)
		inTok, err := env.db.CreateSessionToken(ctx,
			&authdb.SessionTokenSource{UID: insider.UID, Email: insider.Email}, "")
		require.NoError(t, err)

		require.NoError(t, env.db.UpdateSessionToken(ctx, outTok, "", ""))
		require.NoError(t, env.db.UpdateSessionToken(ctx, inTok, "", ""))

		assert.Nil(t, env.cache.snapshot(outsider.UID))
		assert.NotNil(t, env.cache.snapshot(insider.UID))
	})

	t.Run("nil token fails with errno 110", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, authdb.DefaultConfig())
		assert.ErrorIs(t, env.db.UpdateSessionToken(ctx, nil, "", ""), authdb.ErrUnknownToken)
	})

	t.Run("resolves a location for the supplied ip", func(t *testing.T) {
		t.Parallel()
		resolver := &stubResolver{loc: geoip.Location{
			City:     "Winnipeg",
			Country:  "Canada",
			TimeZone: "America/Winnipeg",
		}}
		env := newTestEnv(t, authdb.DefaultConfig(), authdb.WithGeoResolver(resolver))
		acc := createTestAccount(t, env, "geo@example.com")

		tok, err := env.db.CreateSessionToken(ctx,
			&authdb.SessionTokenSource{UID: acc.UID, Email: acc.Email}, "")
		require.NoError(t, err)
		require.NoError(t, env.db.UpdateSessionToken(ctx, tok, "", "203.0.113.9"))

		sessions, err := env.db.Sessions(ctx, acc.UID)
		require.NoError(t, err)
		require.Len(t, sessions, 1)
		require.NotNil(t, sessions[0].Location)
		assert.Equal(t, "Winnipeg", sessions[0].Location.City)
		assert.Equal(t, 1, resolver.calls)
	})

	t.Run("no ip means no lookup", func(t *testing.T) {
		t.Parallel()
		resolver := &stubResolver{}
		env := newTestEnv(t, authdb.DefaultConfig(), authdb.WithGeoResolver(resolver))
		acc := createTestAccount(t, env, "noip@example.com")

		tok, err := env.db.CreateSessionToken(ctx,
			&authdb.SessionTokenSource{UID: acc.UID, Email: acc.Email}, "")
		require.NoError(t, err)
		require.NoError(t, env.db.UpdateSessionToken(ctx, tok, "", ""))
		assert.Zero(t, resolver.calls)
	})
}

func TestSessions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("overlays cached telemetry per session", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, authdb.DefaultConfig())
		acc := createTestAccount(t, env, "multi@example.com")

		first, err := env.db.CreateSessionToken(ctx,
			&authdb.SessionTokenSource{UID: acc.UID, Email: acc.Email}, desktopUA)
		require.NoError(t, err)
		second, err := env.db.CreateSessionToken(ctx,
			&authdb.SessionTokenSource{UID: acc.UID, Email: acc.Email}, desktopUA)
		require.NoError(t, err)

		// Only the second session gets fresh telemetry.
		require.NoError(t, env.db.UpdateSessionToken(ctx, second, iphoneUA, ""))

		sessions, err := env.db.Sessions(ctx, acc.UID)
		require.NoError(t, err)
		require.Len(t, sessions, 2)

		byID := map[string]*authdb.SessionToken{}
		for _, s := range sessions {
			byID[s.ID] = s
		}
		assert.Equal(t, "desktop", byID[first.ID].UADeviceType, "stale row keeps its own telemetry")
		assert.Equal(t, "mobile", byID[second.ID].UADeviceType)
	})

	t.Run("corrupt cache degrades to durable rows", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, authdb.DefaultConfig())
		acc := createTestAccount(t, env, "corrupt@example.com")

		_, err := env.db.CreateSessionToken(ctx,
			&authdb.SessionTokenSource{UID: acc.UID, Email: acc.Email}, desktopUA)
		require.NoError(t, err)
		require.NoError(t, env.cache.Set(ctx, acc.UID, []byte("{not json")))

		sessions, err := env.db.Sessions(ctx, acc.UID)
		require.NoError(t, err)
		assert.Len(t, sessions, 1)
	})

	t.Run("omits expired sessions", func(t *testing.T) {
		t.Parallel()
		cfg := authdb.DefaultConfig()
		cfg.SessionTokenLifetime = 24 * time.Hour
		env := newTestEnv(t, cfg)
		acc := createTestAccount(t, env, "expired@example.com")

		live, err := env.db.CreateSessionToken(ctx,
			&authdb.SessionTokenSource{UID: acc.UID, Email: acc.Email}, "")
		require.NoError(t, err)

		stale := &authdb.SessionToken{
			ID:        "stale-" + live.ID[:32],
			UID:       acc.UID,
			Email:     acc.Email,
			CreatedAt: live.CreatedAt.Add(-48 * time.Hour),
		}
		require.NoError(t, env.store.CreateSessionToken(ctx, stale))

		sessions, err := env.db.Sessions(ctx, acc.UID)
		require.NoError(t, err)
		require.Len(t, sessions, 1)
		assert.Equal(t, live.ID, sessions[0].ID)
	})
}

func TestDeleteSessionTokenCacheFiltering(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t, authdb.DefaultConfig())
	acc := createTestAccount(t, env, "filter@example.com")

	first, err := env.db.CreateSessionToken(ctx,
		&authdb.SessionTokenSource{UID: acc.UID, Email: acc.Email}, "")
	require.NoError(t, err)
	second, err := env.db.CreateSessionToken(ctx,
		&authdb.SessionTokenSource{UID: acc.UID, Email: acc.Email}, "")
	require.NoError(t, err)

	require.NoError(t, env.db.UpdateSessionToken(ctx, first, "", ""))
	require.NoError(t, env.db.UpdateSessionToken(ctx, second, "", ""))

	require.NoError(t, env.db.DeleteSessionToken(ctx, first))

	// The sibling's cached entry survives the delete.
	var entries []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.cache.snapshot(acc.UID), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, second.ID, entries[0].ID)
}
