package authdb

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authcore/pkg/geoip"
	"github.com/dmitrymomot/authcore/pkg/logger"
)

// UpdateSessionToken refreshes the session's last-access telemetry in the
// cache: the current time, a re-parse of the supplied user-agent string,
// and a best-effort location for the supplied IP. The durable row is never
// touched by this path; the cache is the sole record of fresh telemetry.
//
// The write is gated by the injected configuration: disabled feature,
// sample-rate miss, or an account email outside the eligible pattern all
// make this a no-op that leaves the cache byte-for-byte unchanged. Cache
// and geolocation failures are logged and absorbed; the call only fails on
// a nil token.
//
// Concurrent updates for different sessions of the same account can race
// on the shared per-account array; the last writer wins. Telemetry is not
// authentication-critical state, so this is accepted rather than paid for
// with locking on the hot path.
func (db *DB) UpdateSessionToken(ctx context.Context, tok *SessionToken, rawUA, ip string) error {
	if tok == nil {
		return ErrUnknownToken
	}
	if !db.cfg.LastAccessUpdatesEnabled {
		return nil
	}
	if db.sample() >= db.cfg.LastAccessUpdatesSampleRate {
		return nil
	}
	if db.emailPattern != nil && !db.emailPattern.MatchString(tok.Email) {
		return nil
	}

	if rawUA != "" {
		tok.UABrowser, tok.UABrowserVersion, tok.UAOS, tok.UAOSVersion,
			tok.UADeviceType, tok.UAFormFactor = parseUA(rawUA)
	}
	if ip != "" {
		if loc := db.resolveLocation(ctx, ip); loc != nil {
			tok.Location = loc
		}
	}
	tok.LastAccessAt = time.Now().UTC()

	entries := db.readCachedSessions(ctx, tok.UID)
	updated := cachedFromToken(tok)
	replaced := false
	for i, entry := range entries {
		if entry.ID == tok.ID {
			entries[i] = updated
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, updated)
	}

	db.writeCachedSessions(ctx, tok.UID, entries)
	return nil
}

// Sessions returns all session tokens for the account with cached
// telemetry overlaid onto the durable rows. Rows without a cache entry
// keep their own, possibly stale, telemetry; a cache miss or failure
// degrades to plain durable data. Expired sessions are omitted.
func (db *DB) Sessions(ctx context.Context, uid uuid.UUID) ([]*SessionToken, error) {
	tokens, err := db.store.SessionTokens(ctx, uid)
	if err != nil {
		return nil, err
	}

	cached := make(map[string]cachedSession)
	for _, entry := range db.readCachedSessions(ctx, uid) {
		cached[entry.ID] = entry
	}

	now := time.Now()
	live := tokens[:0]
	for _, tok := range tokens {
		if db.sessionExpired(tok, now) {
			continue
		}
		if entry, ok := cached[tok.ID]; ok {
			applyCached(tok, entry)
		}
		live = append(live, tok)
	}
	return live, nil
}

// removeCachedSession filters one token id out of the account's cached
// session array, preserving the sibling entries. Clearing the whole key
// here would throw away telemetry for sessions that are still alive.
func (db *DB) removeCachedSession(ctx context.Context, uid uuid.UUID, tokenID string) {
	data, err := db.cache.Get(ctx, uid)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			db.log.WarnContext(ctx, "failed to read cached sessions",
				logger.UID(uid), logger.Error(err))
		}
		return
	}

	entries, err := decodeCachedSessions(data)
	if err != nil {
		db.log.WarnContext(ctx, "failed to decode cached sessions",
			logger.UID(uid), logger.Error(err))
		return
	}

	remaining := entries[:0]
	for _, entry := range entries {
		if entry.ID != tokenID {
			remaining = append(remaining, entry)
		}
	}
	if len(remaining) == len(entries) {
		return
	}

	db.writeCachedSessions(ctx, uid, remaining)
}

// readCachedSessions returns the account's cached session array, or nil on
// miss, failure, or corrupt data. Failures are logged and absorbed.
func (db *DB) readCachedSessions(ctx context.Context, uid uuid.UUID) []cachedSession {
	data, err := db.cache.Get(ctx, uid)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			db.log.WarnContext(ctx, "failed to read cached sessions",
				logger.UID(uid), logger.Error(err))
		}
		return nil
	}

	entries, err := decodeCachedSessions(data)
	if err != nil {
		db.log.WarnContext(ctx, "failed to decode cached sessions",
			logger.UID(uid), logger.Error(err))
		return nil
	}
	return entries
}

// writeCachedSessions writes the account's whole session array back to the
// cache. Failures are logged and absorbed.
func (db *DB) writeCachedSessions(ctx context.Context, uid uuid.UUID, entries []cachedSession) {
	data, err := encodeCachedSessions(entries)
	if err != nil {
		db.log.WarnContext(ctx, "failed to encode cached sessions",
			logger.UID(uid), logger.Error(err))
		return
	}
	if err := db.cache.Set(ctx, uid, data); err != nil {
		db.log.WarnContext(ctx, "failed to write cached sessions",
			logger.UID(uid), logger.Error(err))
	}
}

// resolveLocation turns an IP address into a location through the injected
// resolver, bounded by the configured timeout. Every failure is absorbed
// into "no location".
func (db *DB) resolveLocation(ctx context.Context, ip string) *Location {
	if db.geo == nil {
		return nil
	}
	if db.cfg.GeoTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, db.cfg.GeoTimeout)
		defer cancel()
	}

	loc, err := db.geo.Resolve(ctx, ip)
	if err != nil {
		if !errors.Is(err, geoip.ErrUnresolvable) && !errors.Is(err, geoip.ErrInvalidIP) {
			db.log.WarnContext(ctx, "geolocation lookup failed",
				logger.IP(ip), logger.Error(err))
		}
		return nil
	}
	return &Location{
		City:      loc.City,
		Country:   loc.Country,
		State:     loc.State,
		StateCode: loc.StateCode,
		TimeZone:  loc.TimeZone,
	}
}
