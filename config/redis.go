package config

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ConnectRedis builds a Redis client from cfg.
// It returns a nil client without error when Redis is not configured or the
// process runs in the test environment; callers treat nil as "no Redis".
func ConnectRedis(cfg *Config) (*redis.Client, error) {
	if cfg.IsTest() || cfg.RedisAddr == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	logrus.WithField("addr", cfg.RedisAddr).Info("connected to redis")
	return rdb, nil
}
