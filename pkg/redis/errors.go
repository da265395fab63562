package redis

import "errors"

var (
	// ErrEmptyConnectionURL indicates the configuration carries no URL at all.
	ErrEmptyConnectionURL = errors.New("redis: empty connection URL")

	// ErrFailedToParseRedisConnString indicates the URL is not a valid redis:// URL.
	ErrFailedToParseRedisConnString = errors.New("redis: failed to parse connection string")

	// ErrRedisNotReady indicates the server never answered a ping within the
	// configured attempts.
	ErrRedisNotReady = errors.New("redis: server did not become ready")

	// ErrHealthcheckFailed wraps ping failures reported by Healthcheck.
	ErrHealthcheckFailed = errors.New("redis: healthcheck failed")
)
