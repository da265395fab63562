package authdb_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authcore/authdb"
)

func TestRecordSecurityEvent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t, authdb.DefaultConfig())
	acc := createTestAccount(t, env, "audit@example.com")

	event := &authdb.SecurityEvent{
		UID:      acc.UID,
		Name:     "account.login",
		IP:       "203.0.113.7",
		Verified: true,
	}
	require.NoError(t, env.db.RecordSecurityEvent(ctx, event))

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.False(t, event.CreatedAt.IsZero())

	events, err := env.db.SecurityEvents(ctx, authdb.SecurityEventQuery{UID: acc.UID})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "account.login", events[0].Name)
	assert.Equal(t, "203.0.113.7", events[0].IP)
	assert.True(t, events[0].Verified)
}

func TestSecurityEvents(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cfg := authdb.DefaultConfig()
	cfg.SecurityEventsLimit = 2
	env := newTestEnv(t, cfg)
	acc := createTestAccount(t, env, "audit2@example.com")

	base := time.Now().UTC().Add(-time.Hour)
	names := []string{"account.create", "account.login", "account.reset"}
	for i, name := range names {
		require.NoError(t, env.db.RecordSecurityEvent(ctx, &authdb.SecurityEvent{
			UID:       acc.UID,
			Name:      name,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	t.Run("oldest first", func(t *testing.T) {
		events, err := env.db.SecurityEvents(ctx, authdb.SecurityEventQuery{UID: acc.UID, Limit: 2})
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "account.create", events[0].Name)
		assert.Equal(t, "account.login", events[1].Name)
	})

	t.Run("zero limit means the configured default", func(t *testing.T) {
		events, err := env.db.SecurityEvents(ctx, authdb.SecurityEventQuery{UID: acc.UID})
		require.NoError(t, err)
		assert.Len(t, events, 2)
	})

	t.Run("limit clamps at the configured maximum", func(t *testing.T) {
		events, err := env.db.SecurityEvents(ctx, authdb.SecurityEventQuery{UID: acc.UID, Limit: 50})
		require.NoError(t, err)
		assert.Len(t, events, 2)
	})

	t.Run("tighter limits are honored", func(t *testing.T) {
		events, err := env.db.SecurityEvents(ctx, authdb.SecurityEventQuery{UID: acc.UID, Limit: 1})
		require.NoError(t, err)
		assert.Len(t, events, 1)
	})
}
