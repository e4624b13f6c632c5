package database

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/travigo/vgnwatch/pkg/config"
)

const (
	maxConnections = 5
	connectTimeout = 10 * time.Second
)

// ConnectPostgres opens a pool against the schedule database and pings it
func ConnectPostgres(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	poolConfig.MaxConns = maxConnections
	poolConfig.ConnConfig.ConnectTimeout = connectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}

// Connect retries ConnectPostgres with a short exponential backoff. Configuration errors are not retried.
func Connect(ctx context.Context, cfg config.PostgresConfig, maxRetries uint64) (*pgxpool.Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var pool *pgxpool.Pool

	retryBackoff := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)

	err := backoff.RetryNotify(func() error {
		var err error
		pool, err = ConnectPostgres(ctx, cfg)
		return err
	}, retryBackoff, func(err error, wait time.Duration) {
		log.Warn().Err(err).Str("host", cfg.Host).Dur("wait", wait).Msg("Postgres not reachable, retrying")
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("host", cfg.Host).Str("database", cfg.Database).Msg("Connected to Postgres")

	return pool, nil
}
