package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimitMiddlewareRejectsBurstOverflow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := gin.New()
	r.Use(RateLimitMiddleware(ctx, RateLimitConfig{RPS: 0.001, Burst: 2, CleanupInterval: time.Minute, MaxAge: time.Minute}))
	r.POST("/api/v1/dispatch", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/dispatch", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			assert.Equal(t, "1000", w.Header().Get("Retry-After"))
			assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/dispatch", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFormatRate(t *testing.T) {
	assert.Equal(t, "10", formatRate(10))
	assert.Equal(t, "2.5", formatRate(2.5))
}

func TestClientIDSharesBudgetAcrossIPs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := gin.New()
	r.Use(RateLimitMiddleware(ctx, RateLimitConfig{RPS: 0.001, Burst: 1}))
	r.POST("/api/v1/dispatch", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 2)
	for _, addr := range []string{"10.0.0.1:1234", "10.0.0.2:1234"} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/dispatch", nil)
		req.RemoteAddr = addr
		req.Header.Set(ClientIDHeader, "crm")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestSweepDropsIdleLimiters(t *testing.T) {
	s := newLimiterSet(DefaultConfig())
	start := time.Now()
	s.get("ip:a", start)
	s.get("ip:b", start.Add(time.Minute))

	assert.Equal(t, 1, s.sweep(start.Add(90*time.Second), time.Minute))
	assert.Equal(t, 0, s.sweep(start.Add(time.Hour), time.Minute))
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, "1", RateLimitConfig{RPS: 20}.retryAfter())
	assert.Equal(t, "4", RateLimitConfig{RPS: 0.25}.retryAfter())
}
