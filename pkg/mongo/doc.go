// Package mongo connects the MongoDB-backed durable store to its deployment.
//
// It wraps the official v2 driver with environment-driven configuration and
// a Connect helper that retries until the deployment answers a ping. Both
// dialing and server selection are bounded by the configured timeout, so a
// dead deployment fails fast instead of hanging on the driver default.
//
// Typical bootstrap:
//
//	var cfg mongo.Config
//	if err := config.Load(&cfg); err != nil {
//		log.Fatal(err)
//	}
//
//	db, err := mongo.ConnectDatabase(ctx, cfg, "authcore")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer db.Client().Disconnect(ctx)
//
// Failures are wrapped in package sentinels via errors.Join, so callers can
// classify them with errors.Is. Healthcheck adapts a connected client into
// a probe function for liveness and readiness endpoints.
package mongo
