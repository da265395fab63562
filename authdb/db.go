package authdb

import (
	"crypto/rand"
	"io"
	"log/slog"
	mrand "math/rand/v2"
	"regexp"

	"github.com/dmitrymomot/authcore/pkg/geoip"
)

// DB is the facade over the durable store, the session telemetry cache, and
// the geolocation and user-agent collaborators. All account, token, device,
// and code operations hang off this type. Safe for concurrent use as long
// as the injected collaborators are.
type DB struct {
	store Store
	cache SessionCache
	cfg   Config
	log   *slog.Logger
	geo   geoip.Resolver

	// rand feeds token secrets and one-time codes. Injectable so tests can
	// force collisions.
	rand io.Reader

	// sample returns a value in [0, 1) compared against the configured
	// sample rate. Injectable for deterministic tests.
	sample func() float64

	emailPattern *regexp.Regexp
}

// Option configures a DB during construction.
type Option func(*DB)

// WithLogger sets the logger for absorbed cache and geolocation failures.
func WithLogger(log *slog.Logger) Option {
	return func(db *DB) {
		if log != nil {
			db.log = log
		}
	}
}

// WithGeoResolver sets the IP geolocation resolver used on the telemetry
// update path. Without one, sessions simply carry no location.
func WithGeoResolver(r geoip.Resolver) Option {
	return func(db *DB) {
		if r != nil {
			db.geo = r
		}
	}
}

// WithRand overrides the random source for token secrets and one-time
// codes.
func WithRand(r io.Reader) Option {
	return func(db *DB) {
		if r != nil {
			db.rand = r
		}
	}
}

// WithSampler overrides the sampling function gating telemetry updates.
func WithSampler(fn func() float64) Option {
	return func(db *DB) {
		if fn != nil {
			db.sample = fn
		}
	}
}

// New builds a DB facade. The store is required; a nil cache disables
// telemetry caching via NoopSessionCache.
func New(store Store, cache SessionCache, cfg Config, opts ...Option) (*DB, error) {
	if store == nil {
		return nil, ErrNoStore
	}
	if cache == nil {
		cache = NoopSessionCache{}
	}

	db := &DB{
		store:  store,
		cache:  cache,
		cfg:    cfg,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		geo:    geoip.NoopResolver{},
		rand:   rand.Reader,
		sample: mrand.Float64,
	}

	if cfg.LastAccessUpdatesEmailPattern != "" {
		pattern, err := regexp.Compile(cfg.LastAccessUpdatesEmailPattern)
		if err != nil {
			return nil, err
		}
		db.emailPattern = pattern
	}

	for _, opt := range opts {
		opt(db)
	}

	return db, nil
}
