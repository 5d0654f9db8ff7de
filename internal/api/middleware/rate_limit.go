package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/skillradar/internal/utils"
)

// Limiter is a fixed-window counter. Allow reports whether the hit fits in
// the window and, when it does not, how long until the window resets.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error)
}

type RedisLimiter struct {
	rdb *redis.Client
}

func NewRedisLimiter(rdb *redis.Client) *RedisLimiter {
	return &RedisLimiter{rdb: rdb}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	key = "ratelimit:" + key
	n, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return true, 0, err
	}
	if n == 1 {
		if err := l.rdb.Expire(ctx, key, window).Err(); err != nil {
			return true, 0, err
		}
	}
	if n <= int64(limit) {
		return true, 0, nil
	}
	ttl, err := l.rdb.TTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		// a key without expiry would block forever
		_ = l.rdb.Expire(ctx, key, window).Err()
		ttl = window
	}
	return false, ttl, nil
}

// MemoryLimiter is the single-process fallback when Redis is not configured.
// Counters reset on restart.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*memWindow
	now     func() time.Time
}

type memWindow struct {
	count int
	reset time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{windows: map[string]*memWindow{}, now: time.Now}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.reset) {
		if len(l.windows) > 10000 {
			l.sweep(now)
		}
		w = &memWindow{reset: now.Add(window)}
		l.windows[key] = w
	}
	w.count++
	if w.count <= limit {
		return true, 0, nil
	}
	return false, w.reset.Sub(now), nil
}

func (l *MemoryLimiter) sweep(now time.Time) {
	for k, w := range l.windows {
		if !now.Before(w.reset) {
			delete(l.windows, k)
		}
	}
}

// KeyFunc picks the identity a limit applies to.
type KeyFunc func(c *gin.Context) string

func ByIP(c *gin.Context) string { return c.ClientIP() }

// ByUser falls back to the client IP before authentication has run.
func ByUser(c *gin.Context) string {
	if id := c.GetString(CtxUserID); id != "" {
		return id
	}
	return c.ClientIP()
}

// RateLimit answers 429 with Retry-After once key exceeds limit hits per
// window. Limiter failures let the request through.
func RateLimit(lim Limiter, l *logrus.Logger, scope string, limit int, window time.Duration, key KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if lim == nil || limit <= 0 {
			c.Next()
			return
		}
		ok, retry, err := lim.Allow(c.Request.Context(), scope+":"+key(c), limit, window)
		if err != nil {
			l.WithError(err).WithField("scope", scope).Warn("rate limiter unavailable")
		}
		if !ok {
			secs := int(math.Ceil(retry.Seconds()))
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			abort(c, http.StatusTooManyRequests, utils.CodeTooManyRequests, "trop de requêtes, réessayez plus tard")
			return
		}
		c.Next()
	}
}
