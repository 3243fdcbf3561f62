package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/medicrew/backend/pkg/errors"
)

func TestLRUAdapter_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	adapter, err := NewLRUAdapter(8)
	require.NoError(t, err)

	require.NoError(t, adapter.Set(ctx, "insights:sc-1", []byte(`{"a":1}`), 60))

	value, err := adapter.Get(ctx, "insights:sc-1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), value)

	exists, err := adapter.Exists(ctx, "insights:sc-1")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, adapter.Delete(ctx, "insights:sc-1"))
	_, err = adapter.Get(ctx, "insights:sc-1")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestLRUAdapter_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	adapter, err := newLRUAdapter(8, func() time.Time { return now })
	require.NoError(t, err)

	require.NoError(t, adapter.Set(ctx, "short", []byte("x"), 10))
	require.NoError(t, adapter.Set(ctx, "forever", []byte("y"), 0))

	now = now.Add(11 * time.Second)

	exists, err := adapter.Exists(ctx, "short")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = adapter.Get(ctx, "short")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))

	value, err := adapter.Get(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, []byte("y"), value)
}

func TestLRUAdapter_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	adapter, err := NewLRUAdapter(2)
	require.NoError(t, err)

	require.NoError(t, adapter.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, adapter.Set(ctx, "b", []byte("2"), 0))
	_, err = adapter.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, adapter.Set(ctx, "c", []byte("3"), 0))

	exists, _ := adapter.Exists(ctx, "b")
	assert.False(t, exists)
	exists, _ = adapter.Exists(ctx, "a")
	assert.True(t, exists)
}

func TestLRUAdapter_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	adapter, err := NewLRUAdapter(2)
	require.NoError(t, err)

	original := []byte("abc")
	require.NoError(t, adapter.Set(ctx, "k", original, 0))
	original[0] = 'z'

	value, err := adapter.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), value)
}

func TestLRUAdapter_Increment(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	adapter, err := newLRUAdapter(8, func() time.Time { return now })
	require.NoError(t, err)

	for want := int64(1); want <= 3; want++ {
		got, err := adapter.Increment(ctx, "hits", 60)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	// later hits do not extend the window
	now = now.Add(61 * time.Second)
	got, err := adapter.Increment(ctx, "hits", 60)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)

	require.NoError(t, adapter.Set(ctx, "text", []byte("hello"), 0))
	_, err = adapter.Increment(ctx, "text", 0)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
}
