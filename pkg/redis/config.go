package redis

import "time"

// Config describes how to reach the Redis server backing the session
// telemetry cache. Fields are populated from the environment via
// github.com/caarlos0/env.
type Config struct {
	// ConnectionURL in the form "redis://:password@host:6379/0".
	ConnectionURL string `env:"REDIS_URL,required" envDefault:"redis://localhost:6379/0"`

	// RetryAttempts bounds how many times Connect pings the server before
	// giving up.
	RetryAttempts int `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`

	// RetryInterval is the pause between failed attempts.
	RetryInterval time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`

	// ConnectTimeout caps the whole Connect call, retries included.
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
}
