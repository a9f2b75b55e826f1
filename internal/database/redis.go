package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrInvalidRedisURL is returned for a malformed Redis connection URL.
	ErrInvalidRedisURL = errors.New("database: failed to parse redis connection URL")

	// ErrRedisNotReady wraps the last error after exhausting connect retries.
	ErrRedisNotReady = errors.New("database: redis did not become ready")
)

// RedisConfig controls the Redis connection and retry behavior. The URL is
// optional: an empty value disables the cross-instance relay entirely.
type RedisConfig struct {
	ConnectionURL  string        `env:"REDIS_URL"`
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
}

// Enabled reports whether a Redis URL was configured.
func (c RedisConfig) Enabled() bool { return c.ConnectionURL != "" }

// ConnectRedis creates a Redis client and verifies it with a ping, retrying
// with a fixed interval. The whole connect process is bounded by
// cfg.ConnectTimeout.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRedisURL, err)
	}

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	attempts := max(cfg.RetryAttempts, 1)

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %w", ErrRedisNotReady, ctx.Err())
			case <-time.After(cfg.RetryInterval):
			}
		}

		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close() //nolint:errcheck
			lastErr = err
			continue
		}
		return client, nil
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRedisNotReady, attempts, lastErr)
}

// RedisHealthcheck returns a health check function for the client.
func RedisHealthcheck(client *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("database: redis ping failed: %w", err)
		}
		return nil
	}
}
