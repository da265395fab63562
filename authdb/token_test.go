package authdb_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authcore/authdb"
)

func TestDeriveTokenID(t *testing.T) {
	t.Parallel()

	const key = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

	t.Run("deterministic", func(t *testing.T) {
		t.Parallel()

		first, err := authdb.DeriveTokenID(authdb.KindSessionToken, key)
		require.NoError(t, err)
		second, err := authdb.DeriveTokenID(authdb.KindSessionToken, key)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Len(t, first, 64)
	})

	t.Run("kinds are domain separated", func(t *testing.T) {
		t.Parallel()

		ids := map[string]bool{}
		for _, kind := range []authdb.TokenKind{
			authdb.KindSessionToken,
			authdb.KindKeyFetchToken,
			authdb.KindPasswordForgotToken,
			authdb.KindAccountResetToken,
		} {
			id, err := authdb.DeriveTokenID(kind, key)
			require.NoError(t, err)
			ids[id] = true
		}
		assert.Len(t, ids, 4, "one secret must never map to the same id twice")
	})

	t.Run("rejects malformed keys", func(t *testing.T) {
		t.Parallel()

		_, err := authdb.DeriveTokenID(authdb.KindSessionToken, "not-hex!")
		assert.Error(t, err)
	})

	t.Run("rejects unknown kinds", func(t *testing.T) {
		t.Parallel()

		_, err := authdb.DeriveTokenID(authdb.TokenKind("mystery"), key)
		assert.Error(t, err)
	})
}
