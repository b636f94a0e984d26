package audit

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "vidgate/pkg/domain"
	"vidgate/pkg/requestcontext"
)

func TestEmit(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithRequestID(ctx, "req-123")

	t.Run("stamps id, timestamp and request id", func(t *testing.T) {
		store := NewInMemoryStore()
		pub := NewPublisher(store)

		require.NoError(t, pub.Emit(ctx, Entry{
			VideoID: id.VideoID(uuid.New()),
			Email:   "viewer@example.com",
			Action:  ActionAccessRequested,
			Outcome: OutcomeGranted,
		}))

		entries := store.All()
		require.Len(t, entries, 1)
		assert.NotEqual(t, uuid.Nil, entries[0].ID)
		assert.Equal(t, now, entries[0].Timestamp)
		assert.Equal(t, "req-123", entries[0].RequestID)
	})

	t.Run("caller-supplied fields are kept", func(t *testing.T) {
		store := NewInMemoryStore()
		pub := NewPublisher(store)

		entryID := uuid.New()
		earlier := now.Add(-time.Minute)
		require.NoError(t, pub.Emit(ctx, Entry{
			ID:        entryID,
			Timestamp: earlier,
			RequestID: "req-other",
			Action:    ActionPlaybackTracked,
			Outcome:   OutcomeDenied,
		}))

		entries := store.All()
		require.Len(t, entries, 1)
		assert.Equal(t, entryID, entries[0].ID)
		assert.Equal(t, earlier, entries[0].Timestamp)
		assert.Equal(t, "req-other", entries[0].RequestID)
	})
}

func TestLogAudit_DeviceLabel(t *testing.T) {
	ctx := context.Background()
	const chromeMac = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	t.Run("client signature is mirrored as a readable device label", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		store := NewInMemoryStore()

		LogAudit(ctx, logger, NewPublisher(store), Entry{
			VideoID:         id.VideoID(uuid.New()),
			Email:           "viewer@example.com",
			Action:          ActionAccessRequested,
			Outcome:         OutcomeGranted,
			ClientSignature: chromeMac,
		})

		assert.Contains(t, buf.String(), "device=")
		assert.Contains(t, buf.String(), "Chrome")
		assert.Len(t, store.All(), 1)
	})

	t.Run("no signature, no device attribute", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))

		LogAudit(ctx, logger, nil, Entry{
			Action:  ActionCredentialDeleted,
			Outcome: OutcomeGranted,
		})

		assert.NotContains(t, buf.String(), "device=")
	})
}

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	videoID := id.VideoID(uuid.New())
	otherVideo := id.VideoID(uuid.New())

	store := NewInMemoryStore()
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Append(ctx, Entry{
			ID: uuid.New(), VideoID: videoID, Action: ActionPlaybackTracked, Outcome: OutcomeGranted,
		}))
	}
	require.NoError(t, store.Append(ctx, Entry{
		ID: uuid.New(), VideoID: videoID, Action: ActionPlaybackTracked, Outcome: OutcomeDenied,
	}))
	require.NoError(t, store.Append(ctx, Entry{
		ID: uuid.New(), VideoID: otherVideo, Action: ActionAccessRequested, Outcome: OutcomeGranted,
	}))

	t.Run("list is scoped to the video and honors the limit", func(t *testing.T) {
		entries, err := store.ListByVideo(ctx, videoID, 0)
		require.NoError(t, err)
		assert.Len(t, entries, 4)

		entries, err = store.ListByVideo(ctx, videoID, 2)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("count filters on action and outcome", func(t *testing.T) {
		n, err := store.CountByVideo(ctx, videoID, ActionPlaybackTracked, OutcomeGranted)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		n, err = store.CountByVideo(ctx, videoID, ActionPlaybackTracked, OutcomeDenied)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}
