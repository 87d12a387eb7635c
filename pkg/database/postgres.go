package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PoolOptions tunes the connection pool behind the channel directory and
// ticket ledger.
type PoolOptions struct {
	MaxConns        int32
	ConnectAttempts int           // pings at startup; values below 1 mean one
	RetryDelay      time.Duration // first delay between pings, doubled each time
}

// NewPostgresPool creates a pgx connection pool and waits until the database
// answers, retrying while it is still starting.
func NewPostgresPool(ctx context.Context, dsn string, opts PoolOptions, logger *zap.Logger) (*pgxpool.Pool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}
	config.MaxConnIdleTime = 5 * time.Minute
	if opts.MaxConns > 0 {
		config.MaxConns = opts.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pingWithRetry(ctx, pool.Ping, opts, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("postgres pool ready",
		zap.String("host", config.ConnConfig.Host),
		zap.String("database", config.ConnConfig.Database),
		zap.Int32("max_conns", config.MaxConns))
	return pool, nil
}

func pingWithRetry(ctx context.Context, ping func(context.Context) error, opts PoolOptions, logger *zap.Logger) error {
	attempts, delay := opts.ConnectAttempts, opts.RetryDelay
	if attempts < 1 {
		attempts = 1
	}
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	var err error
	for i := 1; i <= attempts; i++ {
		if err = ping(ctx); err == nil {
			return nil
		}
		if i == attempts {
			break
		}
		logger.Warn("database not ready, retrying", zap.Int("attempt", i), zap.Duration("delay", delay), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
