package http

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// rateLimiter allows up to limit events per window. It is not safe for
// concurrent use; a connection's read loop owns one, and keyedLimiter guards
// its own.
type rateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	start   time.Time
	counter int
}

func newRateLimiter(limit int) *rateLimiter {
	return &rateLimiter{
		limit:  limit,
		window: time.Minute,
		now:    time.Now,
	}
}

func (r *rateLimiter) allow() bool {
	if r == nil || r.limit <= 0 {
		return true
	}
	now := r.now()
	if r.start.IsZero() || now.Sub(r.start) >= r.window {
		r.start = now
		r.counter = 0
	}
	r.counter++
	return r.counter <= r.limit
}

// sweepThreshold bounds how many idle keys a keyedLimiter keeps before it
// drops the ones whose window has passed.
const sweepThreshold = 4096

// keyedLimiter holds one fixed window per key. It is safe for concurrent use.
type keyedLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*rateLimiter
}

func newKeyedLimiter(limit int) *keyedLimiter {
	return &keyedLimiter{
		limit:   limit,
		window:  time.Minute,
		now:     time.Now,
		windows: make(map[string]*rateLimiter),
	}
}

func (k *keyedLimiter) allow(key string) bool {
	if k == nil || k.limit <= 0 {
		return true
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if len(k.windows) >= sweepThreshold {
		k.sweepLocked()
	}
	rl, ok := k.windows[key]
	if !ok {
		rl = &rateLimiter{limit: k.limit, window: k.window, now: k.now}
		k.windows[key] = rl
	}
	return rl.allow()
}

func (k *keyedLimiter) sweepLocked() {
	now := k.now()
	for key, rl := range k.windows {
		if now.Sub(rl.start) >= k.window {
			delete(k.windows, key)
		}
	}
}

// RateLimit throttles requests per client IP and route. limit is the number
// of requests allowed per minute; 0 disables it.
func RateLimit(limit int, logger *zerolog.Logger) gin.HandlerFunc {
	limiter := newKeyedLimiter(limit)
	return func(c *gin.Context) {
		key := c.ClientIP() + " " + c.Request.Method + " " + c.FullPath()
		if !limiter.allow(key) {
			logger.Debug().Str("client_ip", c.ClientIP()).Str("path", c.Request.URL.Path).Msg("rate limited")
			c.Header("Retry-After", strconv.Itoa(int(limiter.window/time.Second)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "too many requests"})
			return
		}
		c.Next()
	}
}
