// Package geoip resolves IP addresses to approximate locations.
//
// The package exposes a small Resolver interface consumed by the session
// telemetry path, a MaxMind City database implementation with an LRU
// memoization layer in front of it, and a no-op resolver for tests and
// deployments without a geolocation database.
//
// Lookups for private, loopback, and unspecified addresses short-circuit
// with ErrUnresolvable before touching the database. Callers on hot paths
// are expected to treat every resolver failure as "no location".
package geoip
