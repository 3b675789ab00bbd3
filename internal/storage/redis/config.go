package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// DialTimeout bounds the connection check performed by New
	DialTimeout time.Duration

	// MaxTxAttempts bounds optimistic-lock attempts for a single update or delete
	MaxTxAttempts int

	// SubscriptionBuffer is the number of undelivered notifications held per subscriber
	SubscriptionBuffer int
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:                "redis://localhost:6379",
		PoolSize:           10,
		MinIdleConns:       2,
		DialTimeout:        5 * time.Second,
		MaxTxAttempts:      5,
		SubscriptionBuffer: 64,
	}
}
