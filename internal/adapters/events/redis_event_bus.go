package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/medicrew/backend/internal/domain/entities"
	"github.com/medicrew/backend/internal/domain/providers"
	redisclient "github.com/medicrew/backend/internal/infrastructure/clients/redis"
	"github.com/medicrew/backend/internal/infrastructure/observability"
)

// redisChannelPrefix namespaces portal channels on a shared Redis
const redisChannelPrefix = "medicrew:events:"

// subscribeTimeout bounds the wait for Redis to confirm a new subscription
const subscribeTimeout = 5 * time.Second

// RedisEventBus carries portal events over Redis Pub/Sub so the API and the
// SSE process share one stream. Each process holds one Redis subscription per
// channel and fans out to its local subscribers through a hub.
type RedisEventBus struct {
	client *redisclient.Client
	hub    *hub

	// subscriptions is guarded by hub.mu
	subscriptions map[string]*redis.PubSub
	// subscribeMu serialises opening Redis subscriptions
	subscribeMu sync.Mutex
}

// NewRedisEventBus creates a Redis-backed event bus
func NewRedisEventBus(client *redisclient.Client) providers.EventBus {
	b := &RedisEventBus{
		client:        client,
		hub:           newHub(),
		subscriptions: make(map[string]*redis.PubSub),
	}
	b.hub.onEmpty = b.closeSubscription
	return b
}

// Publish sends the event to every process subscribed to channel
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.PortalEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	receivers, err := b.client.Client().Publish(ctx, redisChannelPrefix+channel, data).Result()
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	observability.LoggerFromContext(ctx).Debug().
		Str("channel", channel).
		Str("event_id", event.ID).
		Str("event_type", string(event.Type)).
		Int64("receivers", receivers).
		Msg("published portal event")
	return nil
}

// Subscribe returns once Redis has confirmed the subscription, so events
// published after it returns are not missed. The channel closes when ctx is
// done or the bus is closed.
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.PortalEvent, error) {
	b.subscribeMu.Lock()
	defer b.subscribeMu.Unlock()

	sub, first := b.hub.add(channel)
	if first {
		pubsub := b.client.Client().Subscribe(context.Background(), redisChannelPrefix+channel)

		confirmCtx, cancel := context.WithTimeout(ctx, subscribeTimeout)
		_, err := pubsub.Receive(confirmCtx)
		cancel()
		if err != nil {
			_ = pubsub.Close()
			b.hub.remove(channel, sub)
			return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
		}

		b.hub.mu.Lock()
		if len(b.hub.subscribers[channel]) == 0 {
			// ctx ended while Redis was confirming
			b.hub.mu.Unlock()
			_ = pubsub.Close()
			return sub, nil
		}
		b.subscriptions[channel] = pubsub
		b.hub.mu.Unlock()
		go b.receive(channel, pubsub)
	}

	observability.GetLogger().Debug().
		Str("channel", channel).
		Int("subscribers", b.hub.count(channel)).
		Msg("subscribed to channel")

	go func() {
		<-ctx.Done()
		b.hub.remove(channel, sub)
	}()
	return sub, nil
}

func (b *RedisEventBus) receive(channel string, pubsub *redis.PubSub) {
	logger := observability.GetLogger()
	for msg := range pubsub.Channel() {
		var event entities.PortalEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			logger.Warn().Err(err).Str("channel", channel).Msg("failed to unmarshal portal event")
			continue
		}
		b.hub.deliver(channel, &event)
	}
}

// closeSubscription runs under hub.mu once a channel has no local subscribers
func (b *RedisEventBus) closeSubscription(channel string) {
	pubsub, ok := b.subscriptions[channel]
	if !ok {
		return
	}
	delete(b.subscriptions, channel)
	if err := pubsub.Close(); err != nil {
		observability.GetLogger().Warn().Err(err).Str("channel", channel).Msg("failed to close subscription")
	}
}

// Unsubscribe drops every local subscriber of a channel
func (b *RedisEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.hub.drop(channel)
	return nil
}

// Close closes every subscription. The Redis client stays open for its owner.
func (b *RedisEventBus) Close() error {
	b.hub.close()
	return nil
}
