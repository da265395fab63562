package authdb_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authcore/authdb"
)

func strPtr(s string) *string { return &s }

func typePtr(t authdb.DeviceType) *authdb.DeviceType { return &t }

func newDeviceSession(t *testing.T, env *testEnv, email string) (*authdb.Account, *authdb.SessionToken) {
	t.Helper()

	acc := createTestAccount(t, env, email)
	tok, err := env.db.CreateSessionToken(context.Background(),
		&authdb.SessionTokenSource{UID: acc.UID, Email: acc.Email}, desktopUA)
	require.NoError(t, err)
	return acc, tok
}

func TestCreateDevice(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("registers and merges session telemetry", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, authdb.DefaultConfig())
		acc, tok := newDeviceSession(t, env, "dev1@example.com")

		dev, err := env.db.CreateDevice(ctx, acc.UID, tok.ID, authdb.DeviceInfo{
			Name: strPtr("My Laptop"),
			Type: typePtr(authdb.DeviceDesktop),
		})
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, dev.ID)
		assert.Equal(t, "My Laptop", dev.Name)
		assert.Equal(t, authdb.DeviceDesktop, dev.Type)
		assert.Equal(t, "firefox", dev.UABrowser, "telemetry merged from the session")
		assert.False(t, dev.LastAccessAt.IsZero())
	})

	t.Run("unknown session token fails with errno 123", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, authdb.DefaultConfig())
		acc := createTestAccount(t, env, "dev2@example.com")

		_, err := env.db.CreateDevice(ctx, acc.UID, "no-such-token", authdb.DeviceInfo{})
		assert.ErrorIs(t, err, authdb.ErrBadSessionToken)
	})

	t.Run("session owned by another account fails with errno 123", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, authdb.DefaultConfig())
		_, tok := newDeviceSession(t, env, "owner@example.com")
		intruder := createTestAccount(t, env, "intruder@example.com")

		_, err := env.db.CreateDevice(ctx, intruder.UID, tok.ID, authdb.DeviceInfo{})
		assert.ErrorIs(t, err, authdb.ErrBadSessionToken)
	})

	t.Run("bound session conflicts with errno 124 carrying the device id", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, authdb.DefaultConfig())
		acc, tok := newDeviceSession(t, env, "dev3@example.com")

		first, err := env.db.CreateDevice(ctx, acc.UID, tok.ID, authdb.DeviceInfo{})
		require.NoError(t, err)

		_, err = env.db.CreateDevice(ctx, acc.UID, tok.ID, authdb.DeviceInfo{})
		require.ErrorIs(t, err, authdb.ErrDeviceConflict)

		var coded *authdb.Error
		require.True(t, errors.As(err, &coded))
		assert.Equal(t, authdb.ErrnoDeviceConflict, coded.Errno)
		assert.Equal(t, first.ID, coded.ConflictDeviceID)

		// The binding never flips to the newcomer.
		devices, err := env.db.Devices(ctx, acc.UID)
		require.NoError(t, err)
		require.Len(t, devices, 1)
		assert.Equal(t, first.ID, devices[0].ID)
	})
}

func TestUpdateDevice(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("partial update keeps unset fields and clears push fields", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, authdb.DefaultConfig())
		acc, tok := newDeviceSession(t, env, "upd1@example.com")

		dev, err := env.db.CreateDevice(ctx, acc.UID, tok.ID, authdb.DeviceInfo{
			Name:          strPtr("Phone"),
			Type:          typePtr(authdb.DeviceMobile),
			PushCallback:  strPtr("https://push.example.com/cb"),
			PushPublicKey: strPtr("pubkey"),
			PushAuthKey:   strPtr("authkey"),
		})
		require.NoError(t, err)

		updated, err := env.db.UpdateDevice(ctx, acc.UID, tok.ID, authdb.DeviceInfo{
			ID:           dev.ID,
			Name:         strPtr("Renamed Phone"),
			PushCallback: strPtr(""),
		})
		require.NoError(t, err)

		assert.Equal(t, "Renamed Phone", updated.Name)
		assert.Equal(t, authdb.DeviceMobile, updated.Type, "unset field kept")
		assert.Empty(t, updated.PushCallback, "empty string clears the push field")
		assert.Equal(t, "pubkey", updated.PushPublicKey)
	})

	t.Run("moving onto a session bound elsewhere conflicts with errno 124", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, authdb.DefaultConfig())
		acc, firstTok := newDeviceSession(t, env, "upd2@example.com")

		secondTok, err := env.db.CreateSessionToken(ctx,
			&authdb.SessionTokenSource{UID: acc.UID, Email: acc.Email}, "")
		require.NoError(t, err)

		firstDev, err := env.db.CreateDevice(ctx, acc.UID, firstTok.ID, authdb.DeviceInfo{})
		require.NoError(t, err)
		secondDev, err := env.db.CreateDevice(ctx, acc.UID, secondTok.ID, authdb.DeviceInfo{})
		require.NoError(t, err)

		_, err = env.db.UpdateDevice(ctx, acc.UID, firstTok.ID, authdb.DeviceInfo{ID: secondDev.ID})
		require.ErrorIs(t, err, authdb.ErrDeviceConflict)

		var coded *authdb.Error
		require.True(t, errors.As(err, &coded))
		assert.Equal(t, firstDev.ID, coded.ConflictDeviceID)
	})

	t.Run("moving onto a free session rebinds", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, authdb.DefaultConfig())
		acc, firstTok := newDeviceSession(t, env, "upd3@example.com")

		dev, err := env.db.CreateDevice(ctx, acc.UID, firstTok.ID, authdb.DeviceInfo{})
		require.NoError(t, err)

		freeTok, err := env.db.CreateSessionToken(ctx,
			&authdb.SessionTokenSource{UID: acc.UID, Email: acc.Email}, "")
		require.NoError(t, err)

		moved, err := env.db.UpdateDevice(ctx, acc.UID, freeTok.ID, authdb.DeviceInfo{ID: dev.ID})
		require.NoError(t, err)
		assert.Equal(t, freeTok.ID, moved.SessionTokenID)

		// The old session is free for a new device again.
		_, err = env.db.CreateDevice(ctx, acc.UID, firstTok.ID, authdb.DeviceInfo{})
		assert.NoError(t, err)
	})

	t.Run("unknown device fails with errno 123", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, authdb.DefaultConfig())
		acc, tok := newDeviceSession(t, env, "upd4@example.com")

		_, err := env.db.UpdateDevice(ctx, acc.UID, tok.ID, authdb.DeviceInfo{ID: uuid.New()})
		assert.ErrorIs(t, err, authdb.ErrBadSessionToken)
	})
}

func TestDeleteDevice(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t, authdb.DefaultConfig())
	acc, tok := newDeviceSession(t, env, "deldev@example.com")

	dev, err := env.db.CreateDevice(ctx, acc.UID, tok.ID, authdb.DeviceInfo{})
	require.NoError(t, err)

	require.NoError(t, env.db.DeleteDevice(ctx, acc.UID, dev.ID))

	// The session token survives its device.
	_, err = env.db.SessionToken(ctx, tok.ID)
	assert.NoError(t, err)

	assert.ErrorIs(t, env.db.DeleteDevice(ctx, acc.UID, dev.ID), authdb.ErrBadSessionToken)
}

func TestDevices(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t, authdb.DefaultConfig())
	acc, tok := newDeviceSession(t, env, "listdev@example.com")

	dev, err := env.db.CreateDevice(ctx, acc.UID, tok.ID, authdb.DeviceInfo{Name: strPtr("Laptop")})
	require.NoError(t, err)

	// Telemetry refreshed through the cache shows up on the device list.
	require.NoError(t, env.db.UpdateSessionToken(ctx, tok, iphoneUA, ""))

	devices, err := env.db.Devices(ctx, acc.UID)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, dev.ID, devices[0].ID)
	assert.Equal(t, "Laptop", devices[0].Name)
	assert.Equal(t, "mobile", devices[0].UADeviceType)

	empty, err := env.db.Devices(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, empty)
}
