package geoip

import (
	"context"
	"net"

	"github.com/oschwald/geoip2-golang"

	"github.com/dmitrymomot/authcore/pkg/cache"
)

const defaultCacheSize = 4096

// MaxMindResolver resolves addresses against a MaxMind City database.
// Results are memoized in an LRU cache keyed by the address string, so
// repeated lookups from the same client never touch the database reader.
type MaxMindResolver struct {
	reader *geoip2.Reader
	memo   *cache.LRUCache[string, Location]
}

// MaxMindOption configures a MaxMindResolver.
type MaxMindOption func(*MaxMindResolver)

// WithCacheSize overrides the memoization cache capacity.
func WithCacheSize(size int) MaxMindOption {
	return func(r *MaxMindResolver) {
		if size > 0 {
			r.memo = cache.NewLRUCache[string, Location](size)
		}
	}
}

// OpenMaxMind opens a MaxMind City database file.
func OpenMaxMind(path string, opts ...MaxMindOption) (*MaxMindResolver, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return newMaxMind(reader, opts...), nil
}

// NewMaxMindFromBytes builds a resolver from an in-memory database, e.g.
// one shipped via embed.
func NewMaxMindFromBytes(db []byte, opts ...MaxMindOption) (*MaxMindResolver, error) {
	reader, err := geoip2.FromBytes(db)
	if err != nil {
		return nil, err
	}
	return newMaxMind(reader, opts...), nil
}

func newMaxMind(reader *geoip2.Reader, opts ...MaxMindOption) *MaxMindResolver {
	r := &MaxMindResolver{
		reader: reader,
		memo:   cache.NewLRUCache[string, Location](defaultCacheSize),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve implements Resolver.
func (r *MaxMindResolver) Resolve(ctx context.Context, ip string) (Location, error) {
	if err := ctx.Err(); err != nil {
		return Location{}, err
	}
	if r.reader == nil {
		return Location{}, ErrDatabaseClosed
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return Location{}, ErrInvalidIP
	}
	if parsed.IsPrivate() || parsed.IsLoopback() || parsed.IsUnspecified() {
		return Location{}, ErrUnresolvable
	}

	if loc, ok := r.memo.Get(ip); ok {
		return loc, nil
	}

	record, err := r.reader.City(parsed)
	if err != nil {
		return Location{}, err
	}
	if record.Country.IsoCode == "" && record.Location.TimeZone == "" {
		return Location{}, ErrUnresolvable
	}

	loc := Location{
		City:     record.City.Names["en"],
		Country:  record.Country.Names["en"],
		TimeZone: record.Location.TimeZone,
	}
	if len(record.Subdivisions) > 0 {
		loc.State = record.Subdivisions[0].Names["en"]
		loc.StateCode = record.Subdivisions[0].IsoCode
	}

	r.memo.Put(ip, loc)
	return loc, nil
}

// Close releases the underlying database reader.
func (r *MaxMindResolver) Close() error {
	if r.reader == nil {
		return nil
	}
	err := r.reader.Close()
	r.reader = nil
	return err
}
