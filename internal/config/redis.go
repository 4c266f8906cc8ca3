package config

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig describes the optional Redis server.  It backs the redis
// token store and the sign-in rate limiter.
//
//	REDIS_ADDR     host:port (REDIS_HOST and REDIS_PORT take precedence when both set)
//	REDIS_PASSWORD optional password
//	REDIS_DB       database number
//	REDIS_TLS      enable TLS when "true" or "1"
//	REDIS_PREFIX   key namespace for console data
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TLS      bool   `yaml:"tls"`
	Prefix   string `yaml:"prefix"`
}

func applyRedisEnv(r *RedisConfig) {
	r.Enabled = envBool("REDIS_ENABLED", r.Enabled)
	r.Addr = envStr("REDIS_ADDR", r.Addr)
	if host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", ""); host != "" && port != "" {
		r.Addr = host + ":" + port
	}
	r.Password = envStr("REDIS_PASSWORD", r.Password)
	r.DB = envInt("REDIS_DB", r.DB)
	r.TLS = envBool("REDIS_TLS", r.TLS)
	r.Prefix = envStr("REDIS_PREFIX", r.Prefix)
}

// NewRedisClient connects to Redis and pings it with a short timeout.
// Callers degrade gracefully when it returns an error.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	var tlsConf *tls.Config
	if cfg.TLS {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      cfg.Addr,
		Password:  cfg.Password,
		DB:        cfg.DB,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}
