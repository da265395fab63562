// Package authdb is the credential and session-state core of the account
// service. It issues, validates, refreshes, and revokes short-lived
// authentication tokens, tracks the devices bound to login sessions,
// overlays best-effort last-access telemetry onto session tokens through an
// external cache, and manages single-use unblock and signin codes.
//
// The package exposes a single DB facade constructed from three injected
// collaborators:
//
//   - Store: the durable record store (MemoryStore, PostgresStore or
//     MongoStore)
//   - SessionCache: a fast key-value cache holding per-account session
//     telemetry (RedisSessionCache or NoopSessionCache)
//   - geoip.Resolver: an optional IP-to-location resolver
//
// Cache and geolocation failures are absorbed inside the facade and logged;
// they never fail the enclosing operation. Durable store failures propagate
// unchanged.
//
// Errors that callers are expected to branch on carry a stable numeric code
// (errno) and match their sentinel via errors.Is:
//
//	tok, err := db.SessionToken(ctx, id)
//	if errors.Is(err, authdb.ErrUnknownToken) {
//	    // absent or expired, deliberately indistinguishable
//	}
package authdb
