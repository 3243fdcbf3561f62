package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicrew/backend/internal/domain/entities"
	"github.com/medicrew/backend/internal/domain/providers"
)

func receive(t *testing.T, ch <-chan *entities.PortalEvent) *entities.PortalEvent {
	t.Helper()
	select {
	case event, ok := <-ch:
		require.True(t, ok, "channel closed")
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestMemoryEventBus_PublishSubscribe(t *testing.T) {
	bus := NewMemoryEventBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queueCh, err := bus.Subscribe(ctx, providers.EventChannelQueue)
	require.NoError(t, err)
	patientCh, err := bus.Subscribe(ctx, providers.GetPatientChannel("p-1"))
	require.NoError(t, err)

	event := entities.NewPortalEvent(entities.PortalEventQueueUpdated, "p-1", nil)
	require.NoError(t, bus.Publish(context.Background(), providers.EventChannelQueue, event))

	got := receive(t, queueCh)
	assert.Equal(t, event.ID, got.ID)

	select {
	case <-patientCh:
		t.Fatal("patient channel should not receive queue events")
	default:
	}
}

func TestMemoryEventBus_ContextCancelClosesChannel(t *testing.T) {
	bus := NewMemoryEventBus()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := bus.Subscribe(ctx, "c")
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestMemoryEventBus_CloseStopsDelivery(t *testing.T) {
	bus := NewMemoryEventBus()
	ch, err := bus.Subscribe(context.Background(), "c")
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	_, ok := <-ch
	assert.False(t, ok)

	assert.NoError(t, bus.Publish(context.Background(), "c", entities.NewPortalEvent(entities.PortalEventQueueUpdated, "", nil)))

	late, err := bus.Subscribe(context.Background(), "c")
	require.NoError(t, err)
	_, ok = <-late
	assert.False(t, ok)
}
