package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// appendScript pushes to a list, trims it to the newest ARGV[2] items and
// refreshes its TTL in one round trip.
var appendScript = redis.NewScript(`
	local n = redis.call('RPUSH', KEYS[1], ARGV[1])
	local max = tonumber(ARGV[2])
	if max > 0 and n > max then
		redis.call('LTRIM', KEYS[1], -max, -1)
		n = max
	end
	if tonumber(ARGV[3]) > 0 then
		redis.call('PEXPIRE', KEYS[1], ARGV[3])
	end
	return n
`)

// RedisCache implements Cache using Redis.
// Used for multi-node deployments and as L2 in two-phase caching.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache.
func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisCacheFromClient(client), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get retrieves a value from Redis.
func (c *RedisCache) Get(ctx context.Context, sessionID string, key string) ([]byte, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("sessionID is required")
	}

	val, err := c.client.Get(ctx, c.makeKey(sessionID, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Set stores a value in Redis with TTL.
func (c *RedisCache) Set(ctx context.Context, sessionID string, key string, value []byte, ttl time.Duration) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}

	return c.client.Set(ctx, c.makeKey(sessionID, key), value, ttl).Err()
}

// Delete removes a value or list from Redis.
func (c *RedisCache) Delete(ctx context.Context, sessionID string, key string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}

	return c.client.Del(ctx, c.makeKey(sessionID, key)).Err()
}

// Append pushes value to the Redis list at key using a Lua script so the
// push, trim and expiry are atomic.
func (c *RedisCache) Append(ctx context.Context, sessionID string, key string, value []byte, maxLen int, ttl time.Duration) (int64, error) {
	if sessionID == "" {
		return 0, fmt.Errorf("sessionID is required")
	}

	n, err := appendScript.Run(ctx, c.client, []string{c.makeKey(sessionID, key)}, value, maxLen, ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Range returns the whole list at key, oldest first.
func (c *RedisCache) Range(ctx context.Context, sessionID string, key string) ([][]byte, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("sessionID is required")
	}

	vals, err := c.client.LRange(ctx, c.makeKey(sessionID, key), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, nil
	}

	out := make([][]byte, len(vals))
	for i, v := range vals {
		out[i] = []byte(v)
	}
	return out, nil
}

// Ping checks Redis connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) makeKey(sessionID, key string) string {
	return "dary:" + sessionID + ":" + key
}
