package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Options configures the Redis connection used for scope events and cleanup jobs.
type Options struct {
	Addr            string
	Password        string
	DB              int
	PoolSize        int
	ConnectAttempts int           // pings at startup; values below 1 mean one
	RetryDelay      time.Duration // first delay between pings, doubled each time
}

// Client wraps the go-redis client used for scope events and cleanup jobs.
type Client struct {
	*redis.Client
	logger *zap.Logger
}

// NewClient creates a Redis client and waits until it answers a ping, retrying
// while Redis is still starting.
func NewClient(ctx context.Context, opts Options, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
		PoolSize: opts.PoolSize,
	})

	if err := pingWithRetry(ctx, rdb.Ping, opts.ConnectAttempts, opts.RetryDelay, logger); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	logger.Info("redis connected", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	return &Client{Client: rdb, logger: logger}, nil
}

// Close closes the connection pool.
func (c *Client) Close() error {
	c.logger.Info("redis connection closed")
	return c.Client.Close()
}

func pingWithRetry(ctx context.Context, ping func(context.Context) *redis.StatusCmd, attempts int, delay time.Duration, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if attempts < 1 {
		attempts = 1
	}
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	var err error
	for i := 1; i <= attempts; i++ {
		if err = ping(ctx).Err(); err == nil {
			return nil
		}
		if i == attempts {
			break
		}
		logger.Warn("redis not ready, retrying", zap.Int("attempt", i), zap.Duration("delay", delay), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
