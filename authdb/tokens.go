package authdb

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authcore/pkg/useragent"
)

// passCodeSize is the byte length of password-forgot pass codes.
const passCodeSize = 16

// CreateSessionToken derives a fresh session token for the source account.
// The raw user-agent string is parsed into the token's UA fields; a
// pending-verification source yields a must-verify token with a bounded
// lifetime instead of an infinite one.
func (db *DB) CreateSessionToken(ctx context.Context, src *SessionTokenSource, rawUA string) (*SessionToken, error) {
	id, key, err := db.newToken(KindSessionToken)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	tok := &SessionToken{
		ID:           id,
		Key:          key,
		UID:          src.UID,
		Email:        src.Email,
		CreatedAt:    now,
		LastAccessAt: now,
		MustVerify:   src.MustVerify,
	}
	tok.UABrowser, tok.UABrowserVersion, tok.UAOS, tok.UAOSVersion,
		tok.UADeviceType, tok.UAFormFactor = parseUA(rawUA)

	if err := db.store.CreateSessionToken(ctx, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// SessionToken returns the durable session row by id. The session cache is
// never consulted here: single-token lookups sit on the authentication hot
// path, so this read may report older telemetry than Sessions for the same
// token. Absent and expired tokens both fail with ErrUnknownToken.
func (db *DB) SessionToken(ctx context.Context, id string) (*SessionToken, error) {
	tok, err := db.store.SessionToken(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnknownToken
		}
		return nil, err
	}
	if db.sessionExpired(tok, time.Now()) {
		return nil, ErrUnknownToken
	}
	return tok, nil
}

// sessionExpired reports whether a session token is past its lifetime.
// Must-verify sessions are always bounded; device-bound sessions never
// expire; the rest follow SessionTokenLifetime, where zero means infinite.
func (db *DB) sessionExpired(tok *SessionToken, now time.Time) bool {
	if tok.MustVerify {
		ttl := db.cfg.UnverifiedSessionTokenLifetime
		return ttl > 0 && now.Sub(tok.CreatedAt) > ttl
	}
	if tok.DeviceID != uuid.Nil {
		return false
	}
	ttl := db.cfg.SessionTokenLifetime
	return ttl > 0 && now.Sub(tok.CreatedAt) > ttl
}

// DeleteSessionToken removes the session token, any device bound to it,
// and its entry in the account's cached session array. Idempotent.
func (db *DB) DeleteSessionToken(ctx context.Context, tok *SessionToken) error {
	if err := db.store.DeleteDeviceBySessionToken(ctx, tok.ID); err != nil {
		return err
	}
	if err := db.store.DeleteSessionToken(ctx, tok.ID); err != nil {
		return err
	}

	db.removeCachedSession(ctx, tok.UID, tok.ID)
	return nil
}

// CreateKeyFetchToken derives a fresh key-fetch token carrying the wrapped
// key material.
func (db *DB) CreateKeyFetchToken(ctx context.Context, src *KeyFetchTokenSource) (*KeyFetchToken, error) {
	id, key, err := db.newToken(KindKeyFetchToken)
	if err != nil {
		return nil, err
	}

	tok := &KeyFetchToken{
		ID:            id,
		Key:           key,
		UID:           src.UID,
		WrapKB:        src.WrapKB,
		EmailVerified: src.EmailVerified,
		CreatedAt:     time.Now().UTC(),
	}
	if err := db.store.CreateKeyFetchToken(ctx, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// KeyFetchToken returns the key-fetch token by id. Absent and expired
// tokens both fail with ErrUnknownToken.
func (db *DB) KeyFetchToken(ctx context.Context, id string) (*KeyFetchToken, error) {
	tok, err := db.store.KeyFetchToken(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnknownToken
		}
		return nil, err
	}
	if tokenExpired(tok.CreatedAt, db.cfg.KeyFetchTokenLifetime) {
		return nil, ErrUnknownToken
	}
	return tok, nil
}

// DeleteKeyFetchToken removes the key-fetch token. Idempotent.
func (db *DB) DeleteKeyFetchToken(ctx context.Context, tok *KeyFetchToken) error {
	return db.store.DeleteKeyFetchToken(ctx, tok.ID)
}

// CreatePasswordForgotToken derives a fresh password-forgot token for the
// account with the configured number of tries.
func (db *DB) CreatePasswordForgotToken(ctx context.Context, acc *Account) (*PasswordForgotToken, error) {
	id, key, err := db.newToken(KindPasswordForgotToken)
	if err != nil {
		return nil, err
	}
	passCode, err := db.randomHex(passCodeSize)
	if err != nil {
		return nil, err
	}

	tok := &PasswordForgotToken{
		ID:        id,
		Key:       key,
		UID:       acc.UID,
		Email:     acc.Email,
		PassCode:  passCode,
		Tries:     db.cfg.PasswordForgotTries,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.store.CreatePasswordForgotToken(ctx, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// PasswordForgotToken returns the password-forgot token by id. Absent and
// expired tokens both fail with ErrUnknownToken.
func (db *DB) PasswordForgotToken(ctx context.Context, id string) (*PasswordForgotToken, error) {
	tok, err := db.store.PasswordForgotToken(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnknownToken
		}
		return nil, err
	}
	if tokenExpired(tok.CreatedAt, db.cfg.PasswordForgotTokenLifetime) {
		return nil, ErrUnknownToken
	}
	return tok, nil
}

// UpdatePasswordForgotToken persists the token's mutated Tries counter.
// The decrement-and-check-exhaustion policy belongs to the caller.
func (db *DB) UpdatePasswordForgotToken(ctx context.Context, tok *PasswordForgotToken) error {
	if err := db.store.UpdatePasswordForgotToken(ctx, tok); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUnknownToken
		}
		return err
	}
	return nil
}

// DeletePasswordForgotToken removes the password-forgot token. Idempotent.
func (db *DB) DeletePasswordForgotToken(ctx context.Context, tok *PasswordForgotToken) error {
	return db.store.DeletePasswordForgotToken(ctx, tok.ID)
}

// ForgotPasswordVerified converts a verified forgot-password flow into a
// fresh account-reset token and deletes the forgot-password token. The new
// token's creation time is strictly later than the source's.
func (db *DB) ForgotPasswordVerified(ctx context.Context, src *PasswordForgotToken) (*AccountResetToken, error) {
	// Validate through the facade so an expired source fails with errno
	// 110 before the conversion starts.
	if _, err := db.PasswordForgotToken(ctx, src.ID); err != nil {
		return nil, err
	}

	id, key, err := db.newToken(KindAccountResetToken)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if !now.After(src.CreatedAt) {
		now = src.CreatedAt.Add(time.Nanosecond)
	}

	tok := &AccountResetToken{
		ID:        id,
		Key:       key,
		UID:       src.UID,
		CreatedAt: now,
	}
	if err := db.store.CreateAccountResetToken(ctx, tok); err != nil {
		return nil, err
	}
	if err := db.store.DeletePasswordForgotToken(ctx, src.ID); err != nil {
		return nil, err
	}
	return tok, nil
}

// AccountResetToken returns the account-reset token by id. Absent and
// expired tokens both fail with ErrUnknownToken.
func (db *DB) AccountResetToken(ctx context.Context, id string) (*AccountResetToken, error) {
	tok, err := db.store.AccountResetToken(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnknownToken
		}
		return nil, err
	}
	if tokenExpired(tok.CreatedAt, db.cfg.AccountResetTokenLifetime) {
		return nil, ErrUnknownToken
	}
	return tok, nil
}

// DeleteAccountResetToken removes the account-reset token. Idempotent.
func (db *DB) DeleteAccountResetToken(ctx context.Context, tok *AccountResetToken) error {
	return db.store.DeleteAccountResetToken(ctx, tok.ID)
}

// DeleteExpiredSessionTokens prunes session tokens that are not bound to a
// device and have outlived SessionTokenLifetime. A zero lifetime disables
// pruning. Returns the number of rows removed.
func (db *DB) DeleteExpiredSessionTokens(ctx context.Context) (int64, error) {
	ttl := db.cfg.SessionTokenLifetime
	if ttl <= 0 {
		return 0, nil
	}
	return db.store.DeleteExpiredSessionTokens(ctx, time.Now().UTC().Add(-ttl))
}

// tokenExpired reports whether a fixed-window token is past its lifetime.
func tokenExpired(createdAt time.Time, ttl time.Duration) bool {
	return ttl > 0 && time.Since(createdAt) > ttl
}

// parseUA breaks a raw user-agent string into the fields stored on a
// session token. Parse failures are not errors here; whatever could be
// extracted is kept and the rest stays empty.
func parseUA(rawUA string) (browser, browserVer, os, osVer, deviceType, formFactor string) {
	deviceType = string(DeviceUnknown)
	if rawUA == "" {
		return
	}

	ua, _ := useragent.Parse(rawUA)
	if ua.BrowserName() != useragent.BrowserUnknown {
		browser = ua.BrowserName()
		browserVer = ua.BrowserVer()
	}
	if ua.OS() != useragent.OSUnknown {
		os = ua.OS()
		osVer = ua.OSVer()
	}
	if model := ua.DeviceModel(); model != "" && model != useragent.MobileDeviceUnknown {
		formFactor = model
	}

	switch ua.DeviceType() {
	case useragent.DeviceTypeMobile, useragent.DeviceTypeDesktop, useragent.DeviceTypeTablet:
		deviceType = ua.DeviceType()
	case useragent.DeviceTypeTV, useragent.DeviceTypeConsole, useragent.DeviceTypeBot:
		deviceType = string(DeviceOther)
	}
	return
}
