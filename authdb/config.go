package authdb

import "time"

// Config holds token lifetimes, code parameters, and the feature gates for
// last-access telemetry updates. It is injected at construction; nothing in
// this package reads ambient global state.
type Config struct {
	// SessionTokenLifetime bounds unbound session tokens, measured from
	// creation. Zero means sessions never expire. Device-bound sessions
	// never expire regardless of this value.
	SessionTokenLifetime time.Duration `env:"AUTHDB_SESSION_TOKEN_LIFETIME" envDefault:"0"`

	// UnverifiedSessionTokenLifetime bounds sessions carrying the
	// must-verify marker. Such sessions never get an infinite lifetime.
	UnverifiedSessionTokenLifetime time.Duration `env:"AUTHDB_UNVERIFIED_SESSION_TOKEN_LIFETIME" envDefault:"672h"`

	KeyFetchTokenLifetime       time.Duration `env:"AUTHDB_KEY_FETCH_TOKEN_LIFETIME" envDefault:"1h"`
	PasswordForgotTokenLifetime time.Duration `env:"AUTHDB_PASSWORD_FORGOT_TOKEN_LIFETIME" envDefault:"15m"`
	AccountResetTokenLifetime   time.Duration `env:"AUTHDB_ACCOUNT_RESET_TOKEN_LIFETIME" envDefault:"15m"`

	// PasswordForgotTries seeds the retry counter on a fresh
	// password-forgot token.
	PasswordForgotTries int `env:"AUTHDB_PASSWORD_FORGOT_TRIES" envDefault:"3"`

	UnblockCodeLifetime time.Duration `env:"AUTHDB_UNBLOCK_CODE_LIFETIME" envDefault:"1h"`
	SigninCodeLifetime  time.Duration `env:"AUTHDB_SIGNIN_CODE_LIFETIME" envDefault:"2h"`

	// LastAccessUpdatesEnabled gates all telemetry writes to the session
	// cache. When false, UpdateSessionToken is a no-op.
	LastAccessUpdatesEnabled bool `env:"AUTHDB_LAST_ACCESS_UPDATES_ENABLED" envDefault:"true"`

	// LastAccessUpdatesSampleRate is the fraction of eligible update calls
	// that actually write, in [0, 1].
	LastAccessUpdatesSampleRate float64 `env:"AUTHDB_LAST_ACCESS_UPDATES_SAMPLE_RATE" envDefault:"1"`

	// LastAccessUpdatesEmailPattern restricts telemetry updates to
	// accounts whose email matches the regular expression. Empty means all
	// accounts are eligible.
	LastAccessUpdatesEmailPattern string `env:"AUTHDB_LAST_ACCESS_UPDATES_EMAIL_PATTERN" envDefault:""`

	// GeoTimeout bounds a single geolocation lookup on the telemetry
	// update path.
	GeoTimeout time.Duration `env:"AUTHDB_GEO_TIMEOUT" envDefault:"500ms"`

	// SecurityEventsLimit is the default (and maximum) number of audit
	// entries returned by SecurityEvents.
	SecurityEventsLimit int `env:"AUTHDB_SECURITY_EVENTS_LIMIT" envDefault:"100"`
}

// DefaultConfig returns the configuration used when no environment
// overrides are supplied.
func DefaultConfig() Config {
	return Config{
		SessionTokenLifetime:           0,
		UnverifiedSessionTokenLifetime: 28 * 24 * time.Hour,
		KeyFetchTokenLifetime:          time.Hour,
		PasswordForgotTokenLifetime:    15 * time.Minute,
		AccountResetTokenLifetime:      15 * time.Minute,
		PasswordForgotTries:            3,
		UnblockCodeLifetime:            time.Hour,
		SigninCodeLifetime:             2 * time.Hour,
		LastAccessUpdatesEnabled:       true,
		LastAccessUpdatesSampleRate:    1,
		GeoTimeout:                     500 * time.Millisecond,
		SecurityEventsLimit:            100,
	}
}
