package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/medicrew/backend/internal/domain/providers"
	redisclient "github.com/medicrew/backend/internal/infrastructure/clients/redis"
	apperrors "github.com/medicrew/backend/pkg/errors"
)

const redisKeyPrefix = "medicrew:"

// RedisAdapter is the CacheProvider shared by every API instance. Keys are
// namespaced under medicrew: so one Redis can serve other tools.
type RedisAdapter struct {
	client *redisclient.Client
}

// NewRedisAdapter creates a Redis-backed cache
func NewRedisAdapter(client *redisclient.Client) providers.CacheProvider {
	return &RedisAdapter{
		client: client,
	}
}

func (a *RedisAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := a.client.Client().Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("cache key not found: %s", key))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get from cache: %w", err)
	}
	return result, nil
}

// Set stores a value in cache with expiration. Zero means no expiry.
func (a *RedisAdapter) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	expiration := time.Duration(expirationSeconds) * time.Second
	if err := a.client.Client().Set(ctx, redisKeyPrefix+key, value, expiration).Err(); err != nil {
		return fmt.Errorf("failed to set in cache: %w", err)
	}
	return nil
}

func (a *RedisAdapter) Delete(ctx context.Context, key string) error {
	if err := a.client.Client().Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete from cache: %w", err)
	}
	return nil
}

func (a *RedisAdapter) Exists(ctx context.Context, key string) (bool, error) {
	result, err := a.client.Client().Exists(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check existence in cache: %w", err)
	}
	return result > 0, nil
}

// Increment runs INCR and EXPIRE NX in one transaction so the window set by
// the first hit is never extended by later ones.
func (a *RedisAdapter) Increment(ctx context.Context, key string, expirationSeconds int) (int64, error) {
	key = redisKeyPrefix + key
	var count *redis.IntCmd
	_, err := a.client.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		count = pipe.Incr(ctx, key)
		if expirationSeconds > 0 {
			pipe.ExpireNX(ctx, key, time.Duration(expirationSeconds)*time.Second)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s: %w", key, err)
	}
	return count.Val(), nil
}
