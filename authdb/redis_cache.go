package authdb

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisSessionCache implements SessionCache on a Redis server. One key per
// account holds the serialized session array; entries expire after the
// configured TTL so telemetry for dormant accounts ages out on its own.
type RedisSessionCache struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

var _ SessionCache = (*RedisSessionCache)(nil)

// RedisSessionCacheOption configures a RedisSessionCache.
type RedisSessionCacheOption func(*RedisSessionCache)

// WithKeyPrefix overrides the default "authdb:sessions:" key prefix.
func WithKeyPrefix(prefix string) RedisSessionCacheOption {
	return func(c *RedisSessionCache) {
		if prefix != "" {
			c.keyPrefix = prefix
		}
	}
}

// WithTTL overrides the default 30-day entry TTL. Zero keeps entries
// forever.
func WithTTL(ttl time.Duration) RedisSessionCacheOption {
	return func(c *RedisSessionCache) {
		if ttl >= 0 {
			c.ttl = ttl
		}
	}
}

// NewRedisSessionCache wraps an existing Redis client. The client is owned
// by the caller; the cache never closes it.
func NewRedisSessionCache(client redis.UniversalClient, opts ...RedisSessionCacheOption) *RedisSessionCache {
	c := &RedisSessionCache{
		client:    client,
		keyPrefix: "authdb:sessions:",
		ttl:       30 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisSessionCache) key(uid uuid.UUID) string {
	return c.keyPrefix + uid.String()
}

// Get returns the serialized session array for the account, or
// ErrCacheMiss.
func (c *RedisSessionCache) Get(ctx context.Context, uid uuid.UUID) ([]byte, error) {
	data, err := c.client.Get(ctx, c.key(uid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	return data, nil
}

// Set writes the whole serialized session array for the account.
func (c *RedisSessionCache) Set(ctx context.Context, uid uuid.UUID, data []byte) error {
	return c.client.Set(ctx, c.key(uid), data, c.ttl).Err()
}

// Delete drops the account's entry. Deleting an absent key is not an
// error.
func (c *RedisSessionCache) Delete(ctx context.Context, uid uuid.UUID) error {
	return c.client.Del(ctx, c.key(uid)).Err()
}
