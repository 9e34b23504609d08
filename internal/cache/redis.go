package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig captures the connection parameters for the Redis client.
type RedisConfig struct {
	Address  string
	Username string
	Password string
	DB       int
	TLS      bool
	Timeout  time.Duration
}

const defaultRedisTimeout = 5 * time.Second
const redisKeyPrefix = "insyd:"

// RedisClient wraps go-redis with the key namespacing used across the backend.
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient creates a new Redis client and pings the server so that
// misconfiguration is surfaced during application startup.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*RedisClient, error) {
	cfg.Address = strings.TrimSpace(cfg.Address)
	if cfg.Address == "" {
		return nil, errors.New("redis: address is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRedisTimeout
	}

	opts := &redis.Options{
		Addr:         cfg.Address,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	}
	if cfg.TLS {
		host := cfg.Address
		if idx := strings.LastIndex(host, ":"); idx > 0 {
			host = host[:idx]
		}
		opts.TLSConfig = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Address, err)
	}

	return &RedisClient{client: client}, nil
}

// NewRedisClientFrom wraps an existing go-redis client.
func NewRedisClientFrom(client *redis.Client) *RedisClient {
	return &RedisClient{client: client}
}

// Close closes the underlying connection pool.
func (c *RedisClient) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Ping checks the server is reachable.
func (c *RedisClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// IncrementWithTTL increments the supplied key and ensures the TTL is set to the requested window.
// It returns the current count and the remaining time-to-live.
func (c *RedisClient) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	prefixed := c.prefixed(key)

	count, err := c.client.Incr(ctx, prefixed).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis: increment %s: %w", key, err)
	}
	if count == 1 {
		if err := c.client.PExpire(ctx, prefixed, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("redis: expire %s: %w", key, err)
		}
	}

	ttl, err := c.client.PTTL(ctx, prefixed).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis: ttl %s: %w", key, err)
	}

	if ttl < 0 {
		ttl = window
	}
	return count, ttl, nil
}

// Push appends a payload to the tail of the list stored at key.
func (c *RedisClient) Push(ctx context.Context, key string, payload []byte) error {
	if err := c.client.RPush(ctx, c.prefixed(key), payload).Err(); err != nil {
		return fmt.Errorf("redis: push %s: %w", key, err)
	}
	return nil
}

// PopBlocking removes the head of the list at key, waiting up to wait for an element.
// The boolean is false when the wait elapsed without data.
func (c *RedisClient) PopBlocking(ctx context.Context, key string, wait time.Duration) ([]byte, bool, error) {
	result, err := c.client.BLPop(ctx, wait, c.prefixed(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis: pop %s: %w", key, err)
	}
	if len(result) < 2 {
		return nil, false, nil
	}
	return []byte(result[1]), true, nil
}

// Len reports the number of queued elements at key.
func (c *RedisClient) Len(ctx context.Context, key string) (int64, error) {
	return c.client.LLen(ctx, c.prefixed(key)).Result()
}

func (c *RedisClient) prefixed(key string) string {
	if strings.HasPrefix(key, redisKeyPrefix) {
		return key
	}
	return redisKeyPrefix + key
}

var (
	_ Store     = (*RedisClient)(nil)
	_ ListStore = (*RedisClient)(nil)
)
