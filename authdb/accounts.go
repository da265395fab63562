package authdb

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authcore/pkg/logger"
	"github.com/dmitrymomot/authcore/pkg/sanitizer"
)

// emailCodeSize is the byte length of generated email verification codes.
const emailCodeSize = 16

// CreateAccount persists a new account together with its primary email
// row. The uid and email code are generated when absent. Fails with
// ErrAccountExists if the uid or normalized email is already registered.
func (db *DB) CreateAccount(ctx context.Context, acc *Account) (*Account, error) {
	if acc.UID == uuid.Nil {
		acc.UID = uuid.New()
	}
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = time.Now().UTC()
	}
	if acc.VerifierSetAt.IsZero() {
		acc.VerifierSetAt = acc.CreatedAt
	}
	acc.NormalizedEmail = sanitizer.NormalizeEmail(acc.Email)
	if acc.EmailCode == "" {
		code, err := db.randomHex(emailCodeSize)
		if err != nil {
			return nil, err
		}
		acc.EmailCode = code
	}

	email := &EmailRecord{
		Email:           acc.Email,
		NormalizedEmail: acc.NormalizedEmail,
		Verified:        acc.EmailVerified,
		Primary:         true,
		UID:             acc.UID,
		VerifyCode:      acc.EmailCode,
		CreatedAt:       acc.CreatedAt,
	}

	if err := db.store.CreateAccount(ctx, acc, email); err != nil {
		if errors.Is(err, ErrUIDTaken) || errors.Is(err, ErrEmailTaken) {
			return nil, ErrAccountExists
		}
		return nil, err
	}

	return acc, nil
}

// Account returns the account row for the uid. Fails with
// ErrUnknownAccount.
func (db *DB) Account(ctx context.Context, uid uuid.UUID) (*Account, error) {
	acc, err := db.store.Account(ctx, uid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnknownAccount
		}
		return nil, err
	}
	return acc, nil
}

// AccountExists reports whether any account owns the email. Unknown
// accounts are absorbed into false; only storage failures surface.
func (db *DB) AccountExists(ctx context.Context, email string) (bool, error) {
	_, err := db.store.EmailRecord(ctx, sanitizer.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// EmailRecord returns the email row for the address. Fails with
// ErrUnknownAccount.
func (db *DB) EmailRecord(ctx context.Context, email string) (*EmailRecord, error) {
	rec, err := db.store.EmailRecord(ctx, sanitizer.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnknownAccount
		}
		return nil, err
	}
	return rec, nil
}

// AccountRecord resolves the account owning the email, via the primary or
// any secondary address, and assembles the composite read-time view: the
// account, all of its email rows (primary first), and the primary email
// pointer. Fails with ErrUnknownAccount.
func (db *DB) AccountRecord(ctx context.Context, email string) (*AccountRecord, error) {
	rec, err := db.EmailRecord(ctx, email)
	if err != nil {
		return nil, err
	}

	acc, err := db.Account(ctx, rec.UID)
	if err != nil {
		return nil, err
	}

	emails, err := db.store.AccountEmails(ctx, rec.UID)
	if err != nil {
		return nil, err
	}

	view := &AccountRecord{Account: acc, Emails: emails}
	for _, e := range emails {
		if e.Primary {
			view.PrimaryEmail = e
			break
		}
	}
	return view, nil
}

// CreateEmail adds a secondary email to the account. The record is stored
// unverified with a fresh verification code unless one is supplied. Fails
// with ErrUnknownAccount if the account does not exist and ErrAccountExists
// if the address is already registered.
func (db *DB) CreateEmail(ctx context.Context, uid uuid.UUID, rec *EmailRecord) (*EmailRecord, error) {
	if _, err := db.Account(ctx, uid); err != nil {
		return nil, err
	}

	rec.UID = uid
	rec.Primary = false
	rec.NormalizedEmail = sanitizer.NormalizeEmail(rec.Email)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.VerifyCode == "" {
		code, err := db.randomHex(emailCodeSize)
		if err != nil {
			return nil, err
		}
		rec.VerifyCode = code
	}

	if err := db.store.CreateEmail(ctx, rec); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrAccountExists
		}
		return nil, err
	}
	return rec, nil
}

// ErrPrimaryEmail is returned when attempting to delete the account's
// primary email. Promote another address first.
var ErrPrimaryEmail = errors.New("authdb: cannot delete primary email")

// DeleteEmail removes a secondary email from the account. Fails with
// ErrUnknownAccount if the address is not owned by the account and
// ErrPrimaryEmail if it is the primary one.
func (db *DB) DeleteEmail(ctx context.Context, uid uuid.UUID, email string) error {
	normalized := sanitizer.NormalizeEmail(email)

	rec, err := db.store.EmailRecord(ctx, normalized)
	if err != nil || rec.UID != uid {
		if err == nil || errors.Is(err, ErrNotFound) {
			return ErrUnknownAccount
		}
		return err
	}
	if rec.Primary {
		return ErrPrimaryEmail
	}

	if err := db.store.DeleteEmail(ctx, uid, normalized); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUnknownAccount
		}
		return err
	}
	return nil
}

// SetPrimaryEmail atomically flips the primary flag from the current
// primary email to the named one. Fails with ErrUnknownAccount if the email
// does not belong to the account.
func (db *DB) SetPrimaryEmail(ctx context.Context, uid uuid.UUID, email string) error {
	if err := db.store.SetPrimaryEmail(ctx, uid, sanitizer.NormalizeEmail(email)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUnknownAccount
		}
		return err
	}
	return nil
}

// VerifyEmail marks the email verified if and only if the supplied code
// matches the stored one exactly. Verifying an already-verified email is a
// no-op, not an error. A mismatched code fails with
// ErrInvalidVerificationCode.
func (db *DB) VerifyEmail(ctx context.Context, rec *EmailRecord, code string) error {
	if rec.Verified {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(rec.VerifyCode), []byte(code)) != 1 {
		return ErrInvalidVerificationCode
	}

	if err := db.store.MarkEmailVerified(ctx, rec.UID, rec.NormalizedEmail); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUnknownAccount
		}
		return err
	}
	return nil
}

// DeleteAccount removes the account and cascades to all emails, tokens,
// devices, codes, and security events, then clears the account's session
// cache entry.
func (db *DB) DeleteAccount(ctx context.Context, rec *AccountRecord) error {
	uid := rec.Account.UID
	if err := db.store.DeleteAccount(ctx, uid); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUnknownAccount
		}
		return err
	}

	db.clearCachedSessions(ctx, uid)
	return nil
}

// ResetAccount replaces the account's password-verification material,
// purges every token and device for the account, and clears its session
// cache entry. The account and email rows stay intact. The reset token
// must still be valid; it is consumed by the operation.
func (db *DB) ResetAccount(ctx context.Context, tok *AccountResetToken, params ResetAccountParams) error {
	// Re-read through the facade so an expired or deleted token fails
	// with errno 110 before any state changes.
	current, err := db.AccountResetToken(ctx, tok.ID)
	if err != nil {
		return err
	}
	uid := current.UID

	if err := db.store.ReplaceVerifier(ctx, uid, params, time.Now().UTC()); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUnknownAccount
		}
		return err
	}
	if err := db.store.DeleteAccountDevices(ctx, uid); err != nil {
		return err
	}
	if err := db.store.DeleteAccountTokens(ctx, uid); err != nil {
		return err
	}

	db.clearCachedSessions(ctx, uid)
	return nil
}

// clearCachedSessions drops the whole cached session array for the
// account. Cache failures are logged and absorbed.
func (db *DB) clearCachedSessions(ctx context.Context, uid uuid.UUID) {
	if err := db.cache.Delete(ctx, uid); err != nil {
		db.log.WarnContext(ctx, "failed to clear cached sessions",
			logger.UID(uid), logger.Error(err))
	}
}

// randomHex returns n random bytes hex-encoded from the facade's random
// source.
func (db *DB) randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(db.rand, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
