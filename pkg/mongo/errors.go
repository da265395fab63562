package mongo

import "errors"

var (
	// ErrEmptyConnectionURL indicates the configuration carries no URL at all.
	ErrEmptyConnectionURL = errors.New("mongo: empty connection URL")

	// ErrFailedToConnectToMongo wraps the last connection or ping failure.
	ErrFailedToConnectToMongo = errors.New("mongo: failed to connect")

	// ErrHealthcheckFailed wraps ping failures reported by Healthcheck.
	ErrHealthcheckFailed = errors.New("mongo: healthcheck failed")
)
