package authdb

import (
	"time"

	"github.com/google/uuid"
)

// Account is the durable account row. The password-verification material
// (AuthSalt, VerifyHash, WrapWrapKB) is opaque to this package; it is stored
// and replaced as-is, never interpreted.
type Account struct {
	UID             uuid.UUID
	Email           string // primary email, denormalized for display
	NormalizedEmail string
	EmailVerified   bool
	EmailCode       string // code the verification email carries
	AuthSalt        []byte
	VerifyHash      []byte
	WrapWrapKB      []byte
	VerifierSetAt   time.Time
	CreatedAt       time.Time
	Locale          string
}

// EmailRecord is a single email row owned by an account. Exactly one email
// per account has Primary set; NormalizedEmail is unique across all
// accounts.
type EmailRecord struct {
	Email           string
	NormalizedEmail string
	Verified        bool
	Primary         bool
	UID             uuid.UUID
	VerifyCode      string
	CreatedAt       time.Time
}

// AccountRecord is a read-time composite view: the account plus the full
// ordered set of its email rows and a pointer to the primary one. It is
// assembled on read and never stored.
type AccountRecord struct {
	Account      *Account
	Emails       []*EmailRecord
	PrimaryEmail *EmailRecord
}

// TokenKind discriminates the four token variants sharing one identifier
// namespace.
type TokenKind string

const (
	KindSessionToken        TokenKind = "session"
	KindKeyFetchToken       TokenKind = "keyFetch"
	KindPasswordForgotToken TokenKind = "passwordForgot"
	KindAccountResetToken   TokenKind = "accountReset"
)

// SessionToken represents an authenticated browser or device session. The
// identity fields are written once at creation; the telemetry fields
// (LastAccessAt, UA*, Location) are refreshed through the session cache and
// may be stale on the durable row.
type SessionToken struct {
	ID        string
	Key       string // hex token secret, populated at creation only
	UID       uuid.UUID
	Email     string
	CreatedAt time.Time

	UABrowser        string
	UABrowserVersion string
	UAOS             string
	UAOSVersion      string
	UADeviceType     string
	UAFormFactor     string

	LastAccessAt time.Time
	Location     *Location

	// MustVerify marks a session created from a pending-verification
	// source; such sessions get a bounded lifetime instead of living as
	// long as their device binding.
	MustVerify bool

	// DeviceID is the device bound to this session, or uuid.Nil. Populated
	// by the store at read time.
	DeviceID uuid.UUID
}

// KeyFetchToken authorizes a single retrieval of wrapped key material.
type KeyFetchToken struct {
	ID            string
	Key           string
	UID           uuid.UUID
	WrapKB        []byte
	EmailVerified bool
	CreatedAt     time.Time
}

// PasswordForgotToken drives the forgot-password flow. Tries is a bounded
// retry counter persisted via UpdatePasswordForgotToken; the
// decrement-and-check policy belongs to the caller.
type PasswordForgotToken struct {
	ID        string
	Key       string
	UID       uuid.UUID
	Email     string
	PassCode  string
	Tries     int
	CreatedAt time.Time
}

// AccountResetToken authorizes a single replacement of the account's
// password-verification material.
type AccountResetToken struct {
	ID        string
	Key       string
	UID       uuid.UUID
	CreatedAt time.Time
}

// SessionTokenSource carries the fields a new session token derives from.
// It is usually built from an email record (sign-in) or an existing session
// token (refresh).
type SessionTokenSource struct {
	UID   uuid.UUID
	Email string

	// MustVerify propagates a pending-verification marker from the source
	// record onto the new token.
	MustVerify bool
}

// KeyFetchTokenSource carries the fields a new key-fetch token derives
// from.
type KeyFetchTokenSource struct {
	UID           uuid.UUID
	WrapKB        []byte
	EmailVerified bool
}

// DeviceType is the coarse device category stored on a device row.
type DeviceType string

const (
	DeviceMobile  DeviceType = "mobile"
	DeviceDesktop DeviceType = "desktop"
	DeviceTablet  DeviceType = "tablet"
	DeviceOther   DeviceType = "other"
	DeviceUnknown DeviceType = "unknown"
)

// Device is a named endpoint bound 1:1 to a session token. The push fields
// are independently clearable. The UA and LastAccessAt fields are not
// stored on the device row; reads merge them in from the bound session.
type Device struct {
	ID             uuid.UUID
	UID            uuid.UUID
	SessionTokenID string
	Name           string
	Type           DeviceType
	PushCallback   string
	PushPublicKey  string
	PushAuthKey    string
	CreatedAt      time.Time

	// Merged from the bound session token at read time.
	LastAccessAt     time.Time
	UABrowser        string
	UABrowserVersion string
	UAOS             string
	UAOSVersion      string
	UADeviceType     string
	UAFormFactor     string
	Location         *Location
}

// DeviceInfo is a partial device update. Nil fields keep the stored value;
// a pointer to the empty string clears the corresponding push field.
type DeviceInfo struct {
	ID            uuid.UUID // device to update; ignored by CreateDevice when zero
	Name          *string
	Type          *DeviceType
	PushCallback  *string
	PushPublicKey *string
	PushAuthKey   *string
}

// UnblockCode is the single active unblock code for an account, stored as a
// SHA-256 hash of the normalized code. Creating a new code replaces the
// row; consuming it deletes the row.
type UnblockCode struct {
	UID       uuid.UUID
	CodeHash  string
	CreatedAt time.Time
}

// SigninCode is a single-use sign-in correlation code. Code holds the
// hex-encoded random value and doubles as the row key; it is unique among
// unconsumed codes.
type SigninCode struct {
	Code      string
	UID       uuid.UUID
	FlowID    uuid.UUID // optional, uuid.Nil when the flow has no id
	CreatedAt time.Time
}

// SigninCodeConsumption is the result of consuming a signin code.
type SigninCodeConsumption struct {
	Email  string
	FlowID uuid.UUID
}

// SecurityEvent is one append-only audit log entry keyed by account and IP.
type SecurityEvent struct {
	ID        uuid.UUID
	UID       uuid.UUID
	Name      string
	IP        string
	TokenID   string // optional
	Verified  bool
	CreatedAt time.Time
}

// SecurityEventQuery selects audit entries for one account, oldest first.
// Limit bounds the result; zero means the configured default.
type SecurityEventQuery struct {
	UID   uuid.UUID
	Limit int
}

// Location is a resolved approximate position for an IP address. Unknown
// fields are empty.
type Location struct {
	City      string `json:"city,omitempty"`
	Country   string `json:"country,omitempty"`
	State     string `json:"state,omitempty"`
	StateCode string `json:"state_code,omitempty"`
	TimeZone  string `json:"time_zone,omitempty"`
}

// ResetAccountParams carries the replacement password-verification
// material applied by ResetAccount.
type ResetAccountParams struct {
	AuthSalt   []byte
	VerifyHash []byte
	WrapWrapKB []byte
}
