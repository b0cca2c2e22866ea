package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	cache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/serenacare/serena-api/util"
	"github.com/sirupsen/logrus"
)

const (
	defaultRateLimit  = 5
	defaultRateWindow = 15 * time.Minute
)

// RateLimitConfig holds configuration for rate limiting. Without Redis the
// counters live in process memory.
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
	Redis  *redis.Client
	Audit  *util.SecurityLogger
}

// RateLimit counts requests per path and client IP inside a fixed window.
type RateLimit struct {
	cfg     RateLimitConfig
	counter *rateCounter
}

func NewRateLimit(cfg RateLimitConfig) *RateLimit {
	if cfg.Limit <= 0 {
		cfg.Limit = defaultRateLimit
	}
	if cfg.Window <= 0 {
		cfg.Window = defaultRateWindow
	}
	return &RateLimit{cfg: cfg, counter: newRateCounter(cfg.Redis, cfg.Window)}
}

// Handler answers 429 once a client passes the limit on the route.
func (rl *RateLimit) Handler() gin.HandlerFunc {
	cfg, counter := rl.cfg, rl.counter
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		endpoint := c.Request.URL.Path
		key := rateLimitKey(endpoint, clientIP)

		count, err := counter.incr(c.Request.Context(), key)
		if err != nil {
			// Redis trouble must not lock users out.
			logrus.WithError(err).WithField("key", key).Warn("rate limit check failed")
			c.Next()
			return
		}

		if count > int64(cfg.Limit) {
			cfg.Audit.RateLimitExceeded(clientIP, endpoint)
			c.Header("Retry-After", fmt.Sprintf("%d", int(cfg.Window.Seconds())))
			util.CallTooManyRequests(c, util.APIErrorParams{
				Msg: "Too many requests. Please try again later.",
				Err: util.ErrRateLimited,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

func rateLimitKey(endpoint, clientIP string) string {
	return fmt.Sprintf("ratelimit:%s:%s", endpoint, clientIP)
}

type rateCounter struct {
	rdb    *redis.Client
	local  *cache.Cache
	window time.Duration
}

func newRateCounter(rdb *redis.Client, window time.Duration) *rateCounter {
	rc := &rateCounter{rdb: rdb, window: window}
	if rdb == nil {
		rc.local = cache.New(window, window)
	}
	return rc
}

func (rc *rateCounter) incr(ctx context.Context, key string) (int64, error) {
	if rc.rdb == nil {
		if err := rc.local.Add(key, int64(1), rc.window); err == nil {
			return 1, nil
		}
		return rc.local.IncrementInt64(key, 1)
	}

	pipe := rc.rdb.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, rc.window)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("failed to check rate limit: %w", err)
	}
	return incrCmd.Val(), nil
}

func (rc *rateCounter) reset(ctx context.Context, key string) error {
	if rc.rdb == nil {
		rc.local.Delete(key)
		return nil
	}
	return rc.rdb.Del(ctx, key).Err()
}

// Reset clears a client's counter on endpoint. It is a no-op on a nil RateLimit.
func (rl *RateLimit) Reset(ctx context.Context, clientIP, endpoint string) error {
	if rl == nil {
		return nil
	}
	if err := rl.counter.reset(ctx, rateLimitKey(endpoint, clientIP)); err != nil {
		return fmt.Errorf("failed to reset rate limit: %w", err)
	}
	return nil
}
