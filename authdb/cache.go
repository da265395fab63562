package authdb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SessionCache is the fast key-value cache holding per-account session
// telemetry. One key per account; the value is the serialized array of all
// cached sessions for that account, updated as a read-modify-write unit.
//
// The cache is best-effort: implementations return errors, but the DB
// facade absorbs every one of them. Telemetry degrades to stale or absent,
// the enclosing operation never fails.
type SessionCache interface {
	// Get returns the serialized session array for the account, or
	// ErrCacheMiss.
	Get(ctx context.Context, uid uuid.UUID) ([]byte, error)
	Set(ctx context.Context, uid uuid.UUID, data []byte) error
	Delete(ctx context.Context, uid uuid.UUID) error
}

// NoopSessionCache disables telemetry caching. Every read misses, every
// write succeeds without effect.
type NoopSessionCache struct{}

func (NoopSessionCache) Get(ctx context.Context, uid uuid.UUID) ([]byte, error) {
	return nil, ErrCacheMiss
}

func (NoopSessionCache) Set(ctx context.Context, uid uuid.UUID, data []byte) error {
	return nil
}

func (NoopSessionCache) Delete(ctx context.Context, uid uuid.UUID) error {
	return nil
}

// cachedSession is the telemetry overlay stored in the cache for one
// session token. Only fields refreshed on authenticated requests live here;
// identity fields stay on the durable row.
type cachedSession struct {
	ID               string    `json:"id"`
	LastAccessAt     time.Time `json:"last_access_at"`
	UABrowser        string    `json:"ua_browser,omitempty"`
	UABrowserVersion string    `json:"ua_browser_version,omitempty"`
	UAOS             string    `json:"ua_os,omitempty"`
	UAOSVersion      string    `json:"ua_os_version,omitempty"`
	UADeviceType     string    `json:"ua_device_type,omitempty"`
	UAFormFactor     string    `json:"ua_form_factor,omitempty"`
	Location         *Location `json:"location,omitempty"`
}

func encodeCachedSessions(entries []cachedSession) ([]byte, error) {
	return json.Marshal(entries)
}

func decodeCachedSessions(data []byte) ([]cachedSession, error) {
	var entries []cachedSession
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// cachedFromToken snapshots the telemetry fields of a session token.
func cachedFromToken(tok *SessionToken) cachedSession {
	return cachedSession{
		ID:               tok.ID,
		LastAccessAt:     tok.LastAccessAt,
		UABrowser:        tok.UABrowser,
		UABrowserVersion: tok.UABrowserVersion,
		UAOS:             tok.UAOS,
		UAOSVersion:      tok.UAOSVersion,
		UADeviceType:     tok.UADeviceType,
		UAFormFactor:     tok.UAFormFactor,
		Location:         tok.Location,
	}
}

// applyCached overlays cached telemetry onto a durable session row.
func applyCached(tok *SessionToken, entry cachedSession) {
	tok.LastAccessAt = entry.LastAccessAt
	tok.UABrowser = entry.UABrowser
	tok.UABrowserVersion = entry.UABrowserVersion
	tok.UAOS = entry.UAOS
	tok.UAOSVersion = entry.UAOSVersion
	tok.UADeviceType = entry.UADeviceType
	tok.UAFormFactor = entry.UAFormFactor
	tok.Location = entry.Location
}
