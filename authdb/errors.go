package authdb

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Stable numeric error codes surfaced to API clients. The values never
// change between releases; clients branch on them.
const (
	ErrnoAccountExists           = 101
	ErrnoUnknownAccount          = 102
	ErrnoInvalidVerificationCode = 105
	ErrnoUnknownToken            = 110
	ErrnoBadSessionToken         = 123
	ErrnoDeviceConflict          = 124
	ErrnoInvalidUnblockCode      = 127
	ErrnoInvalidSigninCode       = 146
)

// Error is a coded operation error. Two Errors match via errors.Is when
// their errno values are equal, so sentinel checks keep working for errors
// constructed with extra payload (e.g. the conflicting device id).
type Error struct {
	Errno   int
	Message string

	// ConflictDeviceID carries the id of the device already bound to the
	// session token. Set only for ErrnoDeviceConflict.
	ConflictDeviceID uuid.UUID
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (errno %d)", e.Message, e.Errno)
}

// Is matches by errno so callers can use errors.Is against the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Errno == e.Errno
}

// Sentinel operation errors. Use errors.Is to check; the concrete error
// returned by an operation may carry additional payload.
var (
	ErrAccountExists           = &Error{Errno: ErrnoAccountExists, Message: "account already exists"}
	ErrUnknownAccount          = &Error{Errno: ErrnoUnknownAccount, Message: "unknown account"}
	ErrInvalidVerificationCode = &Error{Errno: ErrnoInvalidVerificationCode, Message: "invalid verification code"}

	// ErrUnknownToken covers both truly absent and expired tokens. The two
	// cases are deliberately indistinguishable so callers cannot probe
	// token expiry timing.
	ErrUnknownToken = &Error{Errno: ErrnoUnknownToken, Message: "the authentication token could not be found"}

	ErrBadSessionToken    = &Error{Errno: ErrnoBadSessionToken, Message: "unknown device"}
	ErrDeviceConflict     = &Error{Errno: ErrnoDeviceConflict, Message: "session already registered by another device"}
	ErrInvalidUnblockCode = &Error{Errno: ErrnoInvalidUnblockCode, Message: "invalid unblock code"}
	ErrInvalidSigninCode  = &Error{Errno: ErrnoInvalidSigninCode, Message: "invalid signin code"}
)

// deviceConflictError builds an errno 124 error carrying the id of the
// device that already owns the session token.
func deviceConflictError(deviceID uuid.UUID) *Error {
	return &Error{
		Errno:            ErrnoDeviceConflict,
		Message:          "session already registered by another device",
		ConflictDeviceID: deviceID,
	}
}

// Store-level sentinels. Store implementations return these; the DB facade
// translates them into coded Errors before they reach callers.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("authdb: record not found")

	// ErrEmailTaken indicates the normalized email is already registered.
	ErrEmailTaken = errors.New("authdb: email already registered")

	// ErrUIDTaken indicates an account row already exists for the uid.
	ErrUIDTaken = errors.New("authdb: uid already registered")

	// ErrTokenIDTaken indicates a token with the same id already exists
	// somewhere in the token namespace, regardless of kind.
	ErrTokenIDTaken = errors.New("authdb: token id already exists")

	// ErrSigninCodeTaken indicates an unconsumed signin code with the same
	// value already exists.
	ErrSigninCodeTaken = errors.New("authdb: signin code already exists")

	// ErrCacheMiss indicates the session cache has no entry for the key.
	ErrCacheMiss = errors.New("authdb: cache miss")

	// ErrNoStore indicates New was called without a durable store.
	ErrNoStore = errors.New("authdb: no store configured")
)

// BoundDeviceError is returned by Store.CreateDevice and Store.UpdateDevice
// when the target session token is already bound to a different device. It
// carries the id of that device for the errno 124 payload.
type BoundDeviceError struct {
	DeviceID uuid.UUID
}

func (e *BoundDeviceError) Error() string {
	return fmt.Sprintf("authdb: session token already bound to device %s", e.DeviceID)
}
