package authdb_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/authcore/authdb"
	"github.com/dmitrymomot/authcore/pkg/mongo"
	"github.com/dmitrymomot/authcore/pkg/redis"
)

func TestOpenRedisSessionCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("empty url", func(t *testing.T) {
		t.Parallel()
		_, err := authdb.OpenRedisSessionCache(ctx, redis.Config{})
		assert.ErrorIs(t, err, redis.ErrEmptyConnectionURL)
	})

	t.Run("malformed url", func(t *testing.T) {
		t.Parallel()
		_, err := authdb.OpenRedisSessionCache(ctx, redis.Config{
			ConnectionURL:  "not-a-redis-url",
			RetryAttempts:  1,
			ConnectTimeout: time.Second,
		})
		assert.ErrorIs(t, err, redis.ErrFailedToParseRedisConnString)
	})

	t.Run("unreachable server", func(t *testing.T) {
		t.Parallel()
		_, err := authdb.OpenRedisSessionCache(ctx, redis.Config{
			ConnectionURL:  "redis://127.0.0.1:1/0",
			RetryAttempts:  1,
			RetryInterval:  10 * time.Millisecond,
			ConnectTimeout: 2 * time.Second,
		})
		assert.ErrorIs(t, err, redis.ErrRedisNotReady)
	})
}

func TestOpenMongoStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("empty url", func(t *testing.T) {
		t.Parallel()
		_, err := authdb.OpenMongoStore(ctx, mongo.Config{}, "authcore")
		assert.ErrorIs(t, err, mongo.ErrEmptyConnectionURL)
	})

	t.Run("invalid url", func(t *testing.T) {
		t.Parallel()
		_, err := authdb.OpenMongoStore(ctx, mongo.Config{
			ConnectionURL:  "not-a-mongodb-url",
			RetryAttempts:  1,
			ConnectTimeout: time.Second,
		}, "authcore")
		assert.ErrorIs(t, err, mongo.ErrFailedToConnectToMongo)
	})
}
