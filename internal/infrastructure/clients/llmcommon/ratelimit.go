// Package llmcommon holds the pieces shared by every language model client:
// client-side rate limiting, request metrics and upstream error classification.
package llmcommon

import (
	"context"
	"time"
)

// NewTokenBucket returns a limiter refilled at rpm tokens per minute.
// rpm == 0 selects 60; a negative rpm disables limiting and returns nil.
func NewTokenBucket(rpm int, burst int) *TokenBucket {
	if rpm == 0 {
		rpm = 60
	}
	if rpm < 0 {
		return nil
	}
	if burst <= 0 {
		burst = 5
	}
	return newTokenBucketWithRate(rpm, burst)
}

// TokenBucket is a channel-backed client-side request limiter.
type TokenBucket struct {
	tokens chan struct{}
	stop   chan struct{}
}

func newTokenBucketWithRate(rpm int, burst int) *TokenBucket {
	bucket := &TokenBucket{
		tokens: make(chan struct{}, burst),
		stop:   make(chan struct{}),
	}

	for i := 0; i < burst; i++ {
		bucket.tokens <- struct{}{}
	}

	interval := time.Minute / time.Duration(rpm)
	if interval <= 0 {
		interval = time.Millisecond
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-bucket.stop:
				return
			case <-ticker.C:
				select {
				case bucket.tokens <- struct{}{}:
				default:
				}
			}
		}
	}()

	return bucket
}

// Wait blocks until a token is available or ctx is done.
func (b *TokenBucket) Wait(ctx context.Context) error {
	if b == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.tokens:
		return nil
	}
}

// Stop halts the refill goroutine.
func (b *TokenBucket) Stop() {
	if b == nil {
		return
	}
	select {
	case <-b.stop:
	default:
		close(b.stop)
	}
}
