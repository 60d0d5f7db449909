package domain

import (
	"context"
	"time"
)

// Cache defines the session store used by the history collaborator.
// Supports two-phase caching: local LRU + Redis.
// All methods require sessionID so sessions never see each other's data.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, sessionID string, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, sessionID string, key string, value []byte, ttl time.Duration) error

	// Delete removes a value or a list.
	Delete(ctx context.Context, sessionID string, key string) error

	// Append pushes value at the tail of the list stored at key, keeps at most
	// maxLen newest items and refreshes the list expiration.
	// Returns the list length after the push.
	Append(ctx context.Context, sessionID string, key string, value []byte, maxLen int, ttl time.Duration) (int64, error)

	// Range returns every item of the list stored at key, oldest first.
	// Returns nil, nil if the list does not exist.
	Range(ctx context.Context, sessionID string, key string) ([][]byte, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string `env:"DARY_CACHE_TYPE" env-default:"memory" validate:"oneof=memory redis"`

	// Local LRU cache settings
	LocalMaxSize int           `env:"DARY_CACHE_LOCAL_MAX_SIZE" env-default:"10000" validate:"gte=0"`
	LocalTTL     time.Duration `env:"DARY_CACHE_LOCAL_TTL" env-default:"5m"`

	// Redis settings
	RedisAddr     string `env:"DARY_REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string `env:"DARY_REDIS_PASSWORD"`
	RedisDB       int    `env:"DARY_REDIS_DB" env-default:"0"`

	// Two-phase settings
	EnableTwoPhase bool `env:"DARY_CACHE_TWO_PHASE" env-default:"false"` // If true, check local first, then Redis
}
