package providers

import (
	"context"
)

// CacheProvider is the shared key/value store behind insight caching and
// consult rate limiting. Expirations are in seconds; zero keeps the key.
type CacheProvider interface {
	// Get returns the stored bytes. A missing or expired key is a NOT_FOUND error.
	Get(ctx context.Context, key string) ([]byte, error)

	Set(ctx context.Context, key string, value []byte, expirationSeconds int) error

	Delete(ctx context.Context, key string) error

	Exists(ctx context.Context, key string) (bool, error)

	// Increment atomically adds one to the counter at key and returns the new
	// count. The expiration applies only when the counter is created.
	Increment(ctx context.Context, key string, expirationSeconds int) (int64, error)
}
