package redis_client

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/travigo/vgnwatch/pkg/config"
)

const dialTimeout = 5 * time.Second

func Options(cfg *config.Config) *redis.Options {
	options := &redis.Options{
		Addr:        cfg.RedisAddress(),
		DB:          cfg.RedisDatabase,
		DialTimeout: dialTimeout,
	}

	if cfg.RedisPassword != "" {
		options.Password = cfg.RedisPassword
	}

	return options
}

// Connect opens a client and pings it once
func Connect(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(Options(cfg))

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return client, nil
}

// ConnectWithRetry retries Connect with a short exponential backoff, used at process start
func ConnectWithRetry(ctx context.Context, cfg *config.Config, maxRetries uint64) (*redis.Client, error) {
	var client *redis.Client

	retryBackoff := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)

	err := backoff.RetryNotify(func() error {
		var err error
		client, err = Connect(ctx, cfg)
		return err
	}, retryBackoff, func(err error, wait time.Duration) {
		log.Warn().Err(err).Str("address", cfg.RedisAddress()).Dur("wait", wait).Msg("Redis not reachable, retrying")
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("address", cfg.RedisAddress()).Int("database", cfg.RedisDatabase).Msg("Connected to Redis")

	return client, nil
}
