// Package redis connects the session telemetry cache to its Redis server.
//
// It wraps the go-redis client with environment-driven configuration,
// a Connect helper that retries until the server answers a ping, and a
// Healthcheck adapter for liveness and readiness probes.
//
// Typical bootstrap:
//
//	var cfg redis.Config
//	if err := config.Load(&cfg); err != nil {
//		log.Fatal(err)
//	}
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
// Failures are wrapped in package sentinels (ErrRedisNotReady and friends)
// via errors.Join, so callers can classify them with errors.Is.
package redis
