package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func newLimitedRouter(cfg RateLimitConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/login", NewRateLimit(cfg).Handler(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})
	return r
}

func postFrom(r *gin.Engine, remoteAddr string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = remoteAddr
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimiter_InMemory(t *testing.T) {
	r := newLimitedRouter(RateLimitConfig{Limit: 3, Window: time.Minute})

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, postFrom(r, "192.168.1.1:1234"), "request %d", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, postFrom(r, "192.168.1.1:1234"))

	// other clients keep their own budget
	assert.Equal(t, http.StatusOK, postFrom(r, "192.168.1.2:1234"))
}

func TestRateLimiter_DefaultConfig(t *testing.T) {
	r := newLimitedRouter(RateLimitConfig{})
	for i := 0; i < defaultRateLimit; i++ {
		assert.Equal(t, http.StatusOK, postFrom(r, "10.0.0.1:1234"))
	}
	assert.Equal(t, http.StatusTooManyRequests, postFrom(r, "10.0.0.1:1234"))
}

func TestRateLimiter_Redis(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer rdb.Close()
	key := "ratelimit:/auth/login:192.168.1.1"

	mock.ExpectIncr(key).SetVal(1)
	mock.ExpectExpire(key, time.Minute).SetVal(true)
	mock.ExpectIncr(key).SetVal(3)
	mock.ExpectExpire(key, time.Minute).SetVal(true)

	r := newLimitedRouter(RateLimitConfig{Limit: 2, Window: time.Minute, Redis: rdb})
	assert.Equal(t, http.StatusOK, postFrom(r, "192.168.1.1:1234"))
	assert.Equal(t, http.StatusTooManyRequests, postFrom(r, "192.168.1.1:1234"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiter_RedisErrorAllows(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer rdb.Close()
	key := "ratelimit:/auth/login:192.168.1.1"

	mock.ExpectIncr(key).SetErr(errors.New("redis connection error"))

	r := newLimitedRouter(RateLimitConfig{Limit: 1, Window: time.Minute, Redis: rdb})
	assert.Equal(t, http.StatusOK, postFrom(r, "192.168.1.1:1234"))
}

func TestRateLimit_ResetInMemory(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimit(RateLimitConfig{Limit: 1, Window: time.Minute})
	r := gin.New()
	r.POST("/auth/login", rl.Handler(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	assert.Equal(t, http.StatusOK, postFrom(r, "192.168.1.1:1234"))
	assert.Equal(t, http.StatusTooManyRequests, postFrom(r, "192.168.1.1:1234"))

	assert.NoError(t, rl.Reset(t.Context(), "192.168.1.1", "/auth/login"))
	assert.Equal(t, http.StatusOK, postFrom(r, "192.168.1.1:1234"))
}

func TestRateLimit_ResetRedis(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer rdb.Close()
	rl := NewRateLimit(RateLimitConfig{Limit: 1, Window: time.Minute, Redis: rdb})

	mock.ExpectDel("ratelimit:/auth/login:1.2.3.4").SetVal(1)
	assert.NoError(t, rl.Reset(t.Context(), "1.2.3.4", "/auth/login"))

	mock.ExpectDel("ratelimit:/auth/login:1.2.3.4").SetErr(errors.New("redis connection error"))
	assert.Error(t, rl.Reset(t.Context(), "1.2.3.4", "/auth/login"))
	assert.NoError(t, mock.ExpectationsWereMet())

	var none *RateLimit
	assert.NoError(t, none.Reset(t.Context(), "1.2.3.4", "/auth/login"))
}
