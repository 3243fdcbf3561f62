package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicrew/backend/internal/adapters/events"
	"github.com/medicrew/backend/internal/domain/entities"
	"github.com/medicrew/backend/pkg/config"
)

func TestOpenRepositories(t *testing.T) {
	t.Run("memory by default", func(t *testing.T) {
		repos, err := OpenRepositories(&config.Config{})
		require.NoError(t, err)
		defer repos.Close()

		ctx := context.Background()
		require.NoError(t, repos.Doctors.Upsert(ctx, &entities.Doctor{ID: "d-1", Name: "Dr. Ada", Email: "ada@example.com"}))
		doctors, err := repos.Doctors.List(ctx)
		require.NoError(t, err)
		assert.Len(t, doctors, 1)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := OpenRepositories(&config.Config{Storage: config.StorageConfig{Driver: "sqlite"}})
		assert.ErrorContains(t, err, "sqlite")
	})
}

func TestOpenMessaging_LocalFallback(t *testing.T) {
	messaging, err := OpenMessaging(&config.Config{})
	require.NoError(t, err)
	defer messaging.Close()

	assert.IsType(t, &events.MemoryEventBus{}, messaging.EventBus)

	ctx := context.Background()
	require.NoError(t, messaging.Cache.Set(ctx, "k", []byte("v"), 60))
	value, err := messaging.Cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)
}
