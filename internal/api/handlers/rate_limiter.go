package handlers

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/medicrew/backend/internal/adapters/cache"
	"github.com/medicrew/backend/internal/domain/providers"
	"github.com/medicrew/backend/internal/infrastructure/observability"
)

// RateLimiter counts requests per client in clock-aligned fixed windows.
// Counters live in the cache provider, so with Redis every API instance
// shares them.
type RateLimiter struct {
	counters providers.CacheProvider
	prefix   string
	limit    int
	window   time.Duration
	now      func() time.Time

	// trustProxy reads the client address from proxy headers
	trustProxy bool
}

// NewRateLimiter allows limit requests per client per window. A limit of
// zero or less disables limiting. Without a cache the counters are kept in
// process.
func NewRateLimiter(counters providers.CacheProvider, prefix string, limit int, window time.Duration) *RateLimiter {
	if counters == nil && limit > 0 {
		counters, _ = cache.NewLRUAdapter(cache.DefaultLRUSize)
	}
	return &RateLimiter{
		counters: counters,
		prefix:   prefix,
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

// SetTrustProxy makes the limiter key clients by the address a reverse proxy
// reports. Only enable it when every request passes through that proxy,
// otherwise callers can pick their own key.
func (l *RateLimiter) SetTrustProxy(trust bool) {
	l.trustProxy = trust
}

// Allow records one request for client and reports whether it fits the
// current window. When it does not, the second value is the time until the
// window closes. Counter failures let the request through.
func (l *RateLimiter) Allow(ctx context.Context, client string) (bool, time.Duration) {
	if l == nil || l.limit <= 0 {
		return true, 0
	}

	now := l.now()
	start := now.Truncate(l.window)
	resetIn := start.Add(l.window).Sub(now)
	key := fmt.Sprintf("%s%s:%d", l.prefix, client, start.Unix())

	count, err := l.counters.Increment(ctx, key, retryAfterSeconds(resetIn.Seconds()))
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("rate limit counter unavailable")
		return true, 0
	}
	if count > int64(l.limit) {
		return false, resetIn
	}
	return true, 0
}

// Limit wraps next, answering 429 with Retry-After once the client's window is spent
func (l *RateLimiter) Limit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		allowed, retryAfter := l.Allow(r.Context(), clientIP(r, l.trustProxy))
		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(retryAfter.Seconds())))
			respondWithError(w, http.StatusTooManyRequests, "Too many consultation requests, please try again later")
			return
		}
		next(w, r)
	}
}

// clientIP keys a request by its peer address. Behind a trusted proxy it uses
// X-Real-IP, else the last X-Forwarded-For hop, which the proxy appended.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
			return realIP
		}
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			parts := strings.Split(forwarded, ",")
			if last := strings.TrimSpace(parts[len(parts)-1]); last != "" {
				return last
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
