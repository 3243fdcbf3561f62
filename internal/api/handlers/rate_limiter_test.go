package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicrew/backend/internal/adapters/cache"
)

func TestRateLimiter_Cache(t *testing.T) {
	lru, err := cache.NewLRUAdapter(16)
	require.NoError(t, err)

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(lru, "consult:", 2, time.Hour)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	ok, _ := limiter.Allow(ctx, "1.2.3.4")
	assert.True(t, ok)
	ok, _ = limiter.Allow(ctx, "1.2.3.4")
	assert.True(t, ok)

	now = now.Add(15 * time.Minute)
	ok, retryAfter := limiter.Allow(ctx, "1.2.3.4")
	assert.False(t, ok)
	assert.Equal(t, 45*time.Minute, retryAfter)

	ok, _ = limiter.Allow(ctx, "5.6.7.8")
	assert.True(t, ok, "other clients have their own window")

	now = now.Add(45 * time.Minute)
	ok, _ = limiter.Allow(ctx, "1.2.3.4")
	assert.True(t, ok, "window resets")
}

func TestRateLimiter_Local(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(nil, "consult:", 1, time.Minute)
	limiter.now = func() time.Time { return now }

	ok, _ := limiter.Allow(context.Background(), "a")
	assert.True(t, ok)
	ok, retryAfter := limiter.Allow(context.Background(), "a")
	assert.False(t, ok)
	assert.Equal(t, time.Minute, retryAfter)
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	lru, err := cache.NewLRUAdapter(16)
	require.NoError(t, err)

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(lru, "consult:", 1, time.Hour)
	limiter.now = func() time.Time { return now }

	// a non-counter value under the window key makes Increment fail
	require.NoError(t, lru.Set(context.Background(), "consult:a:1735732800", []byte("busy"), 0))
	for i := 0; i < 3; i++ {
		ok, _ := limiter.Allow(context.Background(), "a")
		assert.True(t, ok)
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(nil, "consult:", 0, time.Hour)
	for i := 0; i < 5; i++ {
		ok, _ := limiter.Allow(context.Background(), "a")
		assert.True(t, ok)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:4321"
	assert.Equal(t, "10.0.0.5", clientIP(req, false))

	t.Run("ignores proxy headers by default", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "10.0.0.5:4321"
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		req.Header.Set("X-Real-IP", "192.168.1.1")
		assert.Equal(t, "10.0.0.5", clientIP(req, false))
	})

	t.Run("behind a trusted proxy", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "10.0.0.5:4321"
		req.Header.Set("X-Forwarded-For", "198.51.100.1, 203.0.113.7")
		assert.Equal(t, "203.0.113.7", clientIP(req, true))

		req.Header.Set("X-Real-IP", "192.168.1.1")
		assert.Equal(t, "192.168.1.1", clientIP(req, true))
	})
}

func TestRateLimiter_SpoofedForwardedForSharesBucket(t *testing.T) {
	limiter := NewRateLimiter(nil, "consult:", 1, time.Hour)
	handler := limiter.Limit(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	codes := make([]int, 0, 2)
	for _, forwarded := range []string{"198.51.100.1", "198.51.100.2"} {
		req := httptest.NewRequest("POST", "/api/consult", nil)
		req.RemoteAddr = "10.0.0.5:4321"
		req.Header.Set("X-Forwarded-For", forwarded)
		w := httptest.NewRecorder()
		handler(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestErrorResponse_RetryAfterRoundsUp(t *testing.T) {
	assert.Equal(t, 1, retryAfterSeconds(0))
	assert.Equal(t, 2, retryAfterSeconds(1.2))
	assert.Equal(t, 60, retryAfterSeconds(60))
}
