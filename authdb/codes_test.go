package authdb_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authcore/authdb"
)

func TestUnblockCodes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("generated codes use the Crockford alphabet", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, authdb.DefaultConfig())
		acc := createTestAccount(t, env, "ub1@example.com")

		code, err := env.db.CreateUnblockCode(ctx, acc.UID)
		require.NoError(t, err)
		assert.Len(t, code, 8)
		for _, r := range code {
			assert.Contains(t, "0123456789ABCDEFGHJKMNPQRSTVWXYZ", string(r))
		}
	})

	t.Run("consume accepts human transcription variants", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, authdb.DefaultConfig())
		acc := createTestAccount(t, env, "ub2@example.com")

		code, err := env.db.CreateUnblockCode(ctx, acc.UID)
		require.NoError(t, err)

		// Lowercase, separators, and the letters Crockford folds.
		typed := strings.ToLower(code[:4] + "-" + code[4:])
		typed = strings.ReplaceAll(typed, "1", "l")
		typed = strings.ReplaceAll(typed, "0", "o")

		assert.NoError(t, env.db.ConsumeUnblockCode(ctx, acc.UID, typed))
	})

	t.Run("codes are single use", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, authdb.DefaultConfig())
		acc := createTestAccount(t, env, "ub3@example.com")

		code, err := env.db.CreateUnblockCode(ctx, acc.UID)
		require.NoError(t, err)

		require.NoError(t, env.db.ConsumeUnblockCode(ctx, acc.UID, code))
		assert.ErrorIs(t, env.db.ConsumeUnblockCode(ctx, acc.UID, code), authdb.ErrInvalidUnblockCode)
	})

	t.Run("wrong code fails with errno 127", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, authdb.DefaultConfig())
		acc := createTestAccount(t, env, "ub4@example.com")

		_, err := env.db.CreateUnblockCode(ctx, acc.UID)
		require.NoError(t, err)

		assert.ErrorIs(t, env.db.ConsumeUnblockCode(ctx, acc.UID, "ZZZZZZZZ"), authdb.ErrInvalidUnblockCode)
		assert.ErrorIs(t, env.db.ConsumeUnblockCode(ctx, acc.UID, "short"), authdb.ErrInvalidUnblockCode)
	})

	t.Run("a new code replaces the previous one", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, authdb.DefaultConfig())
		acc := createTestAccount(t, env, "ub5@example.com")

		first, err := env.db.CreateUnblockCode(ctx, acc.UID)
		require.NoError(t, err)
		second, err := env.db.CreateUnblockCode(ctx, acc.UID)
		require.NoError(t, err)

		assert.ErrorIs(t, env.db.ConsumeUnblockCode(ctx, acc.UID, first), authdb.ErrInvalidUnblockCode)
		assert.NoError(t, env.db.ConsumeUnblockCode(ctx, acc.UID, second))
	})

	t.Run("expired codes fail with errno 127", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, authdb.DefaultConfig())
		acc := createTestAccount(t, env, "ub6@example.com")

		sum := sha256.Sum256([]byte("AAAAAAAA"))
		require.NoError(t, env.store.ReplaceUnblockCode(ctx, &authdb.UnblockCode{
			UID:       acc.UID,
			CodeHash:  hex.EncodeToString(sum[:]),
			CreatedAt: time.Now().UTC().Add(-2 * time.Hour),
		}))

		assert.ErrorIs(t, env.db.ConsumeUnblockCode(ctx, acc.UID, "AAAAAAAA"), authdb.ErrInvalidUnblockCode)
	})
}

func TestSigninCodes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("consume returns the primary email and flow id", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, authdb.DefaultConfig())
		acc := createTestAccount(t, env, "sc1@example.com")
		flowID := uuid.New()

		code, err := env.db.CreateSigninCode(ctx, acc.UID, flowID)
		require.NoError(t, err)
		assert.Len(t, code, 16)

		got, err := env.db.ConsumeSigninCode(ctx, code)
		require.NoError(t, err)
		assert.Equal(t, "sc1@example.com", got.Email)
		assert.Equal(t, flowID, got.FlowID)
	})

	t.Run("codes are single use", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, authdb.DefaultConfig())
		acc := createTestAccount(t, env, "sc2@example.com")

		code, err := env.db.CreateSigninCode(ctx, acc.UID, uuid.Nil)
		require.NoError(t, err)

		_, err = env.db.ConsumeSigninCode(ctx, code)
		require.NoError(t, err)
		_, err = env.db.ConsumeSigninCode(ctx, code)
		assert.ErrorIs(t, err, authdb.ErrInvalidSigninCode)
	})

	t.Run("unknown codes fail with errno 146", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, authdb.DefaultConfig())

		_, err := env.db.ConsumeSigninCode(ctx, "0123456789abcdef")
		assert.ErrorIs(t, err, authdb.ErrInvalidSigninCode)
	})

	t.Run("expired codes fail with errno 146", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, authdb.DefaultConfig())
		acc := createTestAccount(t, env, "sc3@example.com")

		require.NoError(t, env.store.CreateSigninCode(ctx, &authdb.SigninCode{
			Code:      "feedfacefeedface",
			UID:       acc.UID,
			CreatedAt: time.Now().UTC().Add(-3 * time.Hour),
		}))

		_, err := env.db.ConsumeSigninCode(ctx, "feedfacefeedface")
		assert.ErrorIs(t, err, authdb.ErrInvalidSigninCode)
	})

	t.Run("collision triggers regeneration, never an overwrite", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, authdb.DefaultConfig())
		other := createTestAccount(t, env, "holder@example.com")
		acc := createTestAccount(t, env, "sc4@example.com")

		colliding := bytes.Repeat([]byte{0xAB}, 8)
		fresh := bytes.Repeat([]byte{0xCD}, 8)

		// The existing code owns the colliding value.
		require.NoError(t, env.store.CreateSigninCode(ctx, &authdb.SigninCode{
			Code:      hex.EncodeToString(colliding),
			UID:       other.UID,
			CreatedAt: time.Now().UTC(),
		}))

		collideDB, err := authdb.New(env.store, nil, authdb.DefaultConfig(),
			authdb.WithRand(sequenceReader(colliding, fresh)))
		require.NoError(t, err)

		code, err := collideDB.CreateSigninCode(ctx, acc.UID, uuid.Nil)
		require.NoError(t, err)
		assert.Equal(t, hex.EncodeToString(fresh), code)

		// The original holder's code is still intact.
		got, err := env.db.ConsumeSigninCode(ctx, hex.EncodeToString(colliding))
		require.NoError(t, err)
		assert.Equal(t, "holder@example.com", got.Email)
	})

	t.Run("a broken random source bounds the retry loop", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, authdb.DefaultConfig())
		acc := createTestAccount(t, env, "sc5@example.com")

		stuck := bytes.Repeat([]byte{0x11}, 8)
		require.NoError(t, env.store.CreateSigninCode(ctx, &authdb.SigninCode{
			Code:      hex.EncodeToString(stuck),
			UID:       acc.UID,
			CreatedAt: time.Now().UTC(),
		}))

		stuckDB, err := authdb.New(env.store, nil, authdb.DefaultConfig(),
			authdb.WithRand(repeatReader{b: 0x11}))
		require.NoError(t, err)

		_, err = stuckDB.CreateSigninCode(ctx, acc.UID, uuid.Nil)
		assert.Error(t, err)
	})
}
