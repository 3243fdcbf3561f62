package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/medicrew/backend/pkg/config"
	"github.com/medicrew/backend/pkg/retry"
)

// startupRetry is short: without Redis the API runs single-instance instead
var startupRetry = retry.Config{
	MaxAttempts:     3,
	InitialDelay:    200 * time.Millisecond,
	MaxDelay:        time.Second,
	BackoffFactor:   2,
	MaxTotalTimeout: 5 * time.Second,
}

// Client wraps the go-redis client shared by the cache, the rate limiter and
// the portal event bus
type Client struct {
	client *redis.Client
}

// NewClient connects and pings Redis, retrying briefly
func NewClient(cfg *config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	err := retry.Do(context.Background(), startupRetry, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return rdb.Ping(ctx).Err()
	})
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.RedisAddr(), err)
	}
	return &Client{client: rdb}, nil
}

// Client returns the underlying go-redis client
func (c *Client) Client() *redis.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
