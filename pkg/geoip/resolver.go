package geoip

import "context"

// Location is a resolved approximate position. Fields the database cannot
// fill stay empty.
type Location struct {
	City      string
	Country   string
	State     string
	StateCode string
	TimeZone  string
}

// Resolver maps an IP address to a location. Implementations must be safe
// for concurrent use; callers treat any error as "location unknown".
type Resolver interface {
	Resolve(ctx context.Context, ip string) (Location, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, ip string) (Location, error)

func (f ResolverFunc) Resolve(ctx context.Context, ip string) (Location, error) {
	return f(ctx, ip)
}

// NoopResolver never resolves anything. Useful when no geolocation
// database is configured.
type NoopResolver struct{}

func (NoopResolver) Resolve(ctx context.Context, ip string) (Location, error) {
	return Location{}, ErrUnresolvable
}
