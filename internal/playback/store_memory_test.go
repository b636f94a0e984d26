package playback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "vidgate/pkg/domain"
	"vidgate/pkg/requestcontext"
)

func TestInMemoryQuotaStore(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	videoID := id.VideoID(uuid.New())

	t.Run("get or create is idempotent and keeps the first ceiling", func(t *testing.T) {
		store := NewInMemoryQuotaStore()

		q, err := store.GetOrCreate(ctx, videoID, "Viewer@Example.com", 3, now.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 3, q.MaxViews)
		assert.Equal(t, 0, q.CurrentViews)
		assert.Equal(t, "viewer@example.com", q.Email)

		again, err := store.GetOrCreate(ctx, videoID, "viewer@example.com", 10, now.Add(2*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 3, again.MaxViews, "existing ceiling must not change")
	})

	t.Run("consume counts up to the ceiling and no further", func(t *testing.T) {
		store := NewInMemoryQuotaStore()
		_, err := store.GetOrCreate(ctx, videoID, "viewer@example.com", 3, now.Add(time.Hour))
		require.NoError(t, err)

		for want := 1; want <= 3; want++ {
			q, err := store.Consume(ctx, videoID, "viewer@example.com")
			require.NoError(t, err)
			assert.Equal(t, want, q.CurrentViews)
		}

		_, err = store.Consume(ctx, videoID, "viewer@example.com")
		require.ErrorIs(t, err, ErrQuotaExhausted)

		q, err := store.Get(ctx, videoID, "viewer@example.com")
		require.NoError(t, err)
		assert.Equal(t, 3, q.CurrentViews, "failed consume must not move the counter")
	})

	t.Run("consume without a quota reports not found", func(t *testing.T) {
		store := NewInMemoryQuotaStore()
		_, err := store.Consume(ctx, videoID, "viewer@example.com")
		require.ErrorIs(t, err, ErrQuotaNotFound)
	})

	t.Run("quotas are scoped per viewer and per video", func(t *testing.T) {
		store := NewInMemoryQuotaStore()
		otherVideo := id.VideoID(uuid.New())
		_, err := store.GetOrCreate(ctx, videoID, "a@example.com", 1, now.Add(time.Hour))
		require.NoError(t, err)
		_, err = store.GetOrCreate(ctx, videoID, "b@example.com", 1, now.Add(time.Hour))
		require.NoError(t, err)
		_, err = store.GetOrCreate(ctx, otherVideo, "a@example.com", 1, now.Add(time.Hour))
		require.NoError(t, err)

		_, err = store.Consume(ctx, videoID, "a@example.com")
		require.NoError(t, err)

		q, err := store.Get(ctx, videoID, "b@example.com")
		require.NoError(t, err)
		assert.Equal(t, 0, q.CurrentViews)

		q, err = store.Get(ctx, otherVideo, "a@example.com")
		require.NoError(t, err)
		assert.Equal(t, 0, q.CurrentViews)
	})
}

func TestInMemoryQuotaStore_ConcurrentConsume(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	videoID := id.VideoID(uuid.New())

	const (
		maxViews = 3
		callers  = 20
	)

	store := NewInMemoryQuotaStore()
	_, err := store.GetOrCreate(ctx, videoID, "viewer@example.com", maxViews, now.Add(time.Hour))
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		exhausted int
	)
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			_, err := store.Consume(ctx, videoID, "viewer@example.com")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case err == ErrQuotaExhausted:
				exhausted++
			default:
				t.Errorf("unexpected consume error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, maxViews, succeeded, "exactly the ceiling may succeed")
	assert.Equal(t, callers-maxViews, exhausted)

	q, err := store.Get(ctx, videoID, "viewer@example.com")
	require.NoError(t, err)
	assert.Equal(t, maxViews, q.CurrentViews, "counter lands exactly on the ceiling")
}
