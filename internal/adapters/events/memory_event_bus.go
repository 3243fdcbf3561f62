package events

import (
	"context"

	"github.com/medicrew/backend/internal/domain/entities"
	"github.com/medicrew/backend/internal/domain/providers"
)

// MemoryEventBus fans events out inside a single process. It backs the API
// when Redis is disabled, in which case the SSE endpoints are served by the
// API process itself.
type MemoryEventBus struct {
	hub *hub
}

// NewMemoryEventBus creates an in-process event bus
func NewMemoryEventBus() *MemoryEventBus {
	return &MemoryEventBus{hub: newHub()}
}

var _ providers.EventBus = (*MemoryEventBus)(nil)

// Publish delivers the event to current subscribers of channel
func (b *MemoryEventBus) Publish(ctx context.Context, channel string, event *entities.PortalEvent) error {
	b.hub.deliver(channel, event)
	return nil
}

// Subscribe registers a subscriber until ctx is done
func (b *MemoryEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.PortalEvent, error) {
	sub, _ := b.hub.add(channel)
	go func() {
		<-ctx.Done()
		b.hub.remove(channel, sub)
	}()
	return sub, nil
}

// Unsubscribe drops every subscriber of a channel
func (b *MemoryEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.hub.drop(channel)
	return nil
}

// Close closes every subscription
func (b *MemoryEventBus) Close() error {
	b.hub.close()
	return nil
}
