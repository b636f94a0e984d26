//go:build integration

package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "vidgate/pkg/domain"
	"vidgate/pkg/testutil/containers"
)

func TestPostgresQuotaStore_Integration(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	store := NewPostgres(pg.Pool)
	ctx := context.Background()

	t.Run("get or create keeps the first ceiling", func(t *testing.T) {
		require.NoError(t, pg.TruncateAll(ctx))
		videoID := id.VideoID(uuid.New())

		q, err := store.GetOrCreate(ctx, videoID, "viewer@example.com", 3, time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 3, q.MaxViews)

		again, err := store.GetOrCreate(ctx, videoID, "viewer@example.com", 10, time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 3, again.MaxViews)
	})

	t.Run("consume distinguishes missing from exhausted", func(t *testing.T) {
		require.NoError(t, pg.TruncateAll(ctx))
		videoID := id.VideoID(uuid.New())

		_, err := store.Consume(ctx, videoID, "viewer@example.com")
		require.ErrorIs(t, err, ErrQuotaNotFound)

		_, err = store.GetOrCreate(ctx, videoID, "viewer@example.com", 1, time.Now().Add(time.Hour))
		require.NoError(t, err)

		q, err := store.Consume(ctx, videoID, "viewer@example.com")
		require.NoError(t, err)
		assert.Equal(t, 1, q.CurrentViews)

		_, err = store.Consume(ctx, videoID, "viewer@example.com")
		require.ErrorIs(t, err, ErrQuotaExhausted)
	})

	t.Run("concurrent consume never crosses the ceiling", func(t *testing.T) {
		require.NoError(t, pg.TruncateAll(ctx))
		videoID := id.VideoID(uuid.New())

		const (
			maxViews = 3
			callers  = 20
		)
		_, err := store.GetOrCreate(ctx, videoID, "viewer@example.com", maxViews, time.Now().Add(time.Hour))
		require.NoError(t, err)

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
		)
		wg.Add(callers)
		for i := 0; i < callers; i++ {
			go func() {
				defer wg.Done()
				_, err := store.Consume(ctx, videoID, "viewer@example.com")
				if err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
					return
				}
				if !errors.Is(err, ErrQuotaExhausted) {
					t.Errorf("unexpected consume error: %v", err)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, maxViews, succeeded)

		q, err := store.Get(ctx, videoID, "viewer@example.com")
		require.NoError(t, err)
		assert.Equal(t, maxViews, q.CurrentViews)
	})
}
