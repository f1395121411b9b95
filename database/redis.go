package database

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/gobusker/gobusker-map/config"
)

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	TLSEnabled  bool
	PoolSize    int
	MinIdleConn int
}

// DefaultRedisConfig returns defaults for Azure Cache for Redis.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		TLSEnabled:  true,
		PoolSize:    20,
		MinIdleConn: 2,
	}
}

// RedisConfigFrom builds the Redis settings from the service config. TLS is
// off in development where Redis runs locally.
func RedisConfigFrom(cfg *config.Config) RedisConfig {
	rc := DefaultRedisConfig()
	rc.Addr = cfg.RedisAddr
	rc.Password = cfg.RedisPassword
	rc.DB = cfg.RedisDB
	rc.TLSEnabled = !cfg.IsDevelopment()
	return rc
}

// NewRedis connects to Redis, retrying the initial ping.
func NewRedis(ctx context.Context, cfg RedisConfig, retry RetryConfig) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConn,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(opts)

	err := Retry(ctx, retry, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}
