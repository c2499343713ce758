package ratelimit

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"leadflow/pkg/errors"
	"leadflow/pkg/metrics"
)

// ClientIDHeader lets a caller such as the CRM mutation pathway share one
// budget across its instances instead of being limited per IP.
const ClientIDHeader = "X-Client-ID"

var ErrRateLimited = errors.NewError("RATE_LIMIT_EXCEEDED", "rate limit exceeded", http.StatusTooManyRequests)

type RateLimitConfig struct {
	RPS             float64
	Burst           int
	CleanupInterval time.Duration
	MaxAge          time.Duration
}

func DefaultConfig() RateLimitConfig {
	return RateLimitConfig{
		RPS:             10.0,
		Burst:           20,
		CleanupInterval: 5 * time.Minute,
		MaxAge:          10 * time.Minute,
	}
}

func (c RateLimitConfig) withDefaults() RateLimitConfig {
	defaults := DefaultConfig()
	if c.RPS <= 0 {
		c.RPS = defaults.RPS
	}
	if c.Burst <= 0 {
		c.Burst = defaults.Burst
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = defaults.CleanupInterval
	}
	if c.MaxAge <= 0 {
		c.MaxAge = defaults.MaxAge
	}
	return c
}

// retryAfter is the whole number of seconds until one token is back.
func (c RateLimitConfig) retryAfter() string {
	secs := int(math.Ceil(1 / c.RPS))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet holds one token bucket per client key.
type limiterSet struct {
	mu      sync.Mutex
	entries map[string]*entry
	rps     rate.Limit
	burst   int
}

func newLimiterSet(cfg RateLimitConfig) *limiterSet {
	return &limiterSet{
		entries: make(map[string]*entry),
		rps:     rate.Limit(cfg.RPS),
		burst:   cfg.Burst,
	}
}

func (s *limiterSet) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(s.rps, s.burst)}
		s.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

// sweep drops the buckets idle for longer than maxAge and returns how many
// are left.
func (s *limiterSet) sweep(now time.Time, maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, e := range s.entries {
		if now.Sub(e.lastSeen) > maxAge {
			delete(s.entries, key)
		}
	}
	return len(s.entries)
}

func clientKey(c *gin.Context) string {
	if id := c.GetHeader(ClientIDHeader); id != "" {
		return "client:" + id
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = c.RemoteIP()
	}
	return "ip:" + ip
}

// RateLimitMiddleware limits requests per client id, or per IP when the
// caller sends no client id. Idle buckets are dropped every
// CleanupInterval until ctx is done.
func RateLimitMiddleware(ctx context.Context, config RateLimitConfig) gin.HandlerFunc {
	config = config.withDefaults()
	limiters := newLimiterSet(config)

	go func() {
		ticker := time.NewTicker(config.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				limiters.sweep(now, config.MaxAge)
			}
		}
	}()

	limit := formatRate(config.RPS)
	retryAfter := config.retryAfter()

	return func(c *gin.Context) {
		limiter := limiters.get(clientKey(c), time.Now())

		c.Header("X-RateLimit-Limit", limit)
		if !limiter.Allow() {
			metrics.RateLimitRequestsTotal.WithLabelValues("limited").Inc()
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errors.ToErrorResponse(ErrRateLimited))
			return
		}

		metrics.RateLimitRequestsTotal.WithLabelValues("allowed").Inc()

		remaining := int(limiter.Tokens())
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		c.Next()
	}
}

func formatRate(rps float64) string {
	return strconv.FormatFloat(rps, 'f', -1, 64)
}
