package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ibnmalik/lms-admin/internal/config"
	"github.com/ibnmalik/lms-admin/internal/response"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Limiter decides whether one more request under key fits its budget.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimit rejects requests over the limiter's budget with 429. Limiter
// errors let the request through.
func RateLimit(l Limiter, keyFn func(*gin.Context) string, log zerolog.Logger) gin.HandlerFunc {
	log = log.With().Str("component", "rate_limit").Logger()
	return func(c *gin.Context) {
		key := keyFn(c)
		ok, err := l.Allow(c.Request.Context(), key)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Rate limiter unavailable, allowing request")
			c.Next()
			return
		}
		if !ok {
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}

// SubmitKey buckets submits per admin, falling back to the client IP.
func SubmitKey(c *gin.Context) string {
	if claims := GetClaims(c); claims != nil {
		return config.CacheKey.SubmitRateKey(claims.UserID)
	}
	return "ratelimit:submit:ip:" + c.ClientIP()
}

// MemoryLimiter is a per-key token bucket held in process memory.
type MemoryLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // Tokens per interval
	interval time.Duration // Refill interval
	now      func() time.Time
}

type visitor struct {
	tokens   float64
	lastSeen time.Time
}

// NewMemoryLimiter creates a MemoryLimiter (e.g., 10 requests per minute).
func NewMemoryLimiter(rate int, interval time.Duration) *MemoryLimiter {
	rl := &MemoryLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		interval: interval,
		now:      time.Now,
	}

	// Cleanup stale visitors every minute.
	go func() {
		for range time.Tick(time.Minute) {
			rl.cleanup()
		}
	}()

	return rl
}

// Allow takes one token from key's bucket.
func (rl *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, exists := rl.visitors[key]
	if !exists {
		v = &visitor{tokens: float64(rl.rate), lastSeen: now}
		rl.visitors[key] = v
	}

	// Refill in proportion to the time since the last request.
	elapsed := now.Sub(v.lastSeen)
	v.tokens += elapsed.Seconds() / rl.interval.Seconds() * float64(rl.rate)
	if v.tokens > float64(rl.rate) {
		v.tokens = float64(rl.rate)
	}
	v.lastSeen = now

	if v.tokens < 1 {
		return false, nil
	}
	v.tokens--
	return true, nil
}

func (rl *MemoryLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, v := range rl.visitors {
		if rl.now().Sub(v.lastSeen) > 3*rl.interval {
			delete(rl.visitors, key)
		}
	}
}

// RedisLimiter counts requests per key in fixed windows shared by every
// instance.
type RedisLimiter struct {
	rdb    redis.Cmdable
	rate   int
	window time.Duration
}

// NewRedisLimiter creates a RedisLimiter allowing rate requests per window.
func NewRedisLimiter(rdb redis.Cmdable, rate int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, rate: rate, window: window}
}

// Allow increments key's counter, starting its window on the first hit.
func (rl *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	n, err := rl.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		if err := rl.rdb.Expire(ctx, key, rl.window).Err(); err != nil {
			return false, err
		}
	}
	return n <= int64(rl.rate), nil
}
