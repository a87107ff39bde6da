// Package redis provides Redis client and caching operations for the GOSP
// staking pool. It persists resolved randomness across restarts and caches
// pool stat snapshots for read-side consumers.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps Redis operations for the staking pool
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration
type Config struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns connection defaults for the given URL.
func DefaultConfig(url string) *Config {
	return &Config{
		URL:          url,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// NewClient creates a new Redis client
func NewClient(cfg *Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.MaxRetries = cfg.MaxRetries
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Health checks Redis connectivity
func (c *Client) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Resolved randomness

// SetResolvedRandom persists a verified random number. Resolved values are
// immutable, so they never expire.
func (c *Client) SetResolvedRandom(ctx context.Context, requestID string, value uint64) error {
	key := fmt.Sprintf("random:%s", requestID)
	if err := c.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set resolved random: %w", err)
	}
	return nil
}

// GetResolvedRandom retrieves a verified random number if present.
func (c *Client) GetResolvedRandom(ctx context.Context, requestID string) (uint64, bool, error) {
	key := fmt.Sprintf("random:%s", requestID)
	val, err := c.rdb.Get(ctx, key).Uint64()
	if err != nil {
		if err == redis.Nil {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get resolved random: %w", err)
	}
	return val, true, nil
}

// Stat snapshots

// SetPoolStats caches a pool stats snapshot with expiration.
func (c *Client) SetPoolStats(ctx context.Context, stats any, expiration time.Duration) error {
	jsonData, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal pool stats: %w", err)
	}

	if err := c.rdb.Set(ctx, "pool_stats", jsonData, expiration).Err(); err != nil {
		return fmt.Errorf("failed to set pool stats: %w", err)
	}

	return nil
}

// GetPoolStats retrieves the cached pool stats snapshot.
func (c *Client) GetPoolStats(ctx context.Context, dest any) error {
	jsonData, err := c.rdb.Get(ctx, "pool_stats").Result()
	if err != nil {
		if err == redis.Nil {
			return fmt.Errorf("no cached pool stats")
		}
		return fmt.Errorf("failed to get pool stats: %w", err)
	}

	if err := json.Unmarshal([]byte(jsonData), dest); err != nil {
		return fmt.Errorf("failed to unmarshal pool stats: %w", err)
	}

	return nil
}

// Rate limiting

// CheckRateLimit checks if an action is rate limited
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	pipe := c.rdb.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}

	return incrCmd.Val() <= limit, nil
}
