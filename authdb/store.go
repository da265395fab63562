package authdb

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the durable record store behind the DB facade. Implementations
// provide per-row atomicity for single-record writes; nothing here assumes
// cross-row transactions beyond what the individual methods describe.
//
// Store methods report failures with the store-level sentinels (ErrNotFound,
// ErrEmailTaken, ...) or a *BoundDeviceError; the facade translates those
// into coded Errors. Any other error is a storage failure and propagates
// unchanged.
//
// Token ids are unique across the whole token namespace, not per kind: a
// CreateSessionToken call with an id already used by, say, a key-fetch
// token must fail with ErrTokenIDTaken.
type Store interface {
	// CreateAccount persists the account row together with its initial
	// primary email row. Fails with ErrUIDTaken or ErrEmailTaken.
	CreateAccount(ctx context.Context, acc *Account, email *EmailRecord) error
	Account(ctx context.Context, uid uuid.UUID) (*Account, error)

	// EmailRecord looks an email row up by its normalized form.
	EmailRecord(ctx context.Context, normalized string) (*EmailRecord, error)

	// AccountEmails returns all email rows for the account, primary first,
	// then by creation time.
	AccountEmails(ctx context.Context, uid uuid.UUID) ([]*EmailRecord, error)

	// CreateEmail adds a secondary email row. Fails with ErrEmailTaken if
	// the normalized form is registered to any account.
	CreateEmail(ctx context.Context, rec *EmailRecord) error
	DeleteEmail(ctx context.Context, uid uuid.UUID, normalized string) error

	// SetPrimaryEmail flips the primary flag from the current primary row
	// to the named one. Fails with ErrNotFound if the email does not
	// belong to the account.
	SetPrimaryEmail(ctx context.Context, uid uuid.UUID, normalized string) error
	MarkEmailVerified(ctx context.Context, uid uuid.UUID, normalized string) error

	// ReplaceVerifier overwrites the account's password-verification
	// material and stamps VerifierSetAt.
	ReplaceVerifier(ctx context.Context, uid uuid.UUID, params ResetAccountParams, at time.Time) error

	// DeleteAccount removes the account and cascades to its emails,
	// tokens, devices, codes, and security events.
	DeleteAccount(ctx context.Context, uid uuid.UUID) error

	CreateSessionToken(ctx context.Context, tok *SessionToken) error
	// SessionToken returns the durable row with DeviceID populated from
	// any bound device. Expiry is the facade's concern, not the store's.
	SessionToken(ctx context.Context, id string) (*SessionToken, error)
	SessionTokens(ctx context.Context, uid uuid.UUID) ([]*SessionToken, error)
	DeleteSessionToken(ctx context.Context, id string) error

	CreateKeyFetchToken(ctx context.Context, tok *KeyFetchToken) error
	KeyFetchToken(ctx context.Context, id string) (*KeyFetchToken, error)
	DeleteKeyFetchToken(ctx context.Context, id string) error

	CreatePasswordForgotToken(ctx context.Context, tok *PasswordForgotToken) error
	PasswordForgotToken(ctx context.Context, id string) (*PasswordForgotToken, error)
	// UpdatePasswordForgotToken persists the mutated Tries counter.
	UpdatePasswordForgotToken(ctx context.Context, tok *PasswordForgotToken) error
	DeletePasswordForgotToken(ctx context.Context, id string) error

	CreateAccountResetToken(ctx context.Context, tok *AccountResetToken) error
	AccountResetToken(ctx context.Context, id string) (*AccountResetToken, error)
	DeleteAccountResetToken(ctx context.Context, id string) error

	// DeleteAccountTokens removes every token of every kind for the
	// account.
	DeleteAccountTokens(ctx context.Context, uid uuid.UUID) error

	// DeleteExpiredSessionTokens removes session tokens that are not bound
	// to a device and were created before the cutoff. Returns the number
	// of rows removed.
	DeleteExpiredSessionTokens(ctx context.Context, cutoff time.Time) (int64, error)

	// CreateDevice inserts the device row. Fails with *BoundDeviceError if
	// the session token is already bound to another device.
	CreateDevice(ctx context.Context, dev *Device) error
	Device(ctx context.Context, uid, deviceID uuid.UUID) (*Device, error)
	// UpdateDevice rewrites the stored name/type/push fields and session
	// binding. Fails with ErrNotFound or *BoundDeviceError.
	UpdateDevice(ctx context.Context, dev *Device) error
	DeleteDevice(ctx context.Context, uid, deviceID uuid.UUID) error
	// DeleteDeviceBySessionToken removes whatever device is bound to the
	// session token. Idempotent.
	DeleteDeviceBySessionToken(ctx context.Context, sessionTokenID string) error
	// DeleteAccountDevices removes every device for the account.
	DeleteAccountDevices(ctx context.Context, uid uuid.UUID) error
	Devices(ctx context.Context, uid uuid.UUID) ([]*Device, error)

	// ReplaceUnblockCode upserts the single unblock-code row for the
	// account.
	ReplaceUnblockCode(ctx context.Context, code *UnblockCode) error
	// ConsumeUnblockCode atomically deletes the row matching uid and hash,
	// provided it was created at or after notBefore. Fails with
	// ErrNotFound otherwise.
	ConsumeUnblockCode(ctx context.Context, uid uuid.UUID, codeHash string, notBefore time.Time) error

	// CreateSigninCode inserts the code row. Fails with ErrSigninCodeTaken
	// if an unconsumed row with the same code exists.
	CreateSigninCode(ctx context.Context, code *SigninCode) error
	// ConsumeSigninCode atomically deletes and returns the row, provided
	// it was created at or after notBefore. Fails with ErrNotFound.
	ConsumeSigninCode(ctx context.Context, code string, notBefore time.Time) (*SigninCode, error)

	// CreateSecurityEvent appends one audit entry.
	CreateSecurityEvent(ctx context.Context, event *SecurityEvent) error
	// SecurityEvents returns up to limit audit entries for the account,
	// oldest first.
	SecurityEvents(ctx context.Context, uid uuid.UUID, limit int) ([]*SecurityEvent, error)
}
