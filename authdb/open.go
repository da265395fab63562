package authdb

import (
	"context"

	"github.com/dmitrymomot/authcore/pkg/mongo"
	"github.com/dmitrymomot/authcore/pkg/redis"
)

// OpenRedisSessionCache dials the configured Redis server and wraps the
// client in a RedisSessionCache.
func OpenRedisSessionCache(ctx context.Context, cfg redis.Config, opts ...RedisSessionCacheOption) (*RedisSessionCache, error) {
	client, err := redis.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewRedisSessionCache(client, opts...), nil
}

// OpenMongoStore connects to the configured deployment, ensures the
// secondary indexes, and returns a store on the named database.
func OpenMongoStore(ctx context.Context, cfg mongo.Config, database string) (*MongoStore, error) {
	db, err := mongo.ConnectDatabase(ctx, cfg, database)
	if err != nil {
		return nil, err
	}
	store, err := NewMongoStore(db)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	return store, nil
}
