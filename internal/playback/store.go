package playback

import (
	"context"
	"time"

	id "vidgate/pkg/domain"
)

// QuotaStore persists view quotas. Consume is the only mutation after
// creation and must be a single atomic compare-and-increment against the
// durable store: racing requests must never push CurrentViews past MaxViews
// nor lose an increment.
type QuotaStore interface {
	// GetOrCreate returns the existing quota for the pair, creating it with
	// the given ceiling when absent. The ceiling of an existing quota is
	// never changed.
	GetOrCreate(ctx context.Context, videoID id.VideoID, email string, maxViews int, expiresAt time.Time) (*Quota, error)

	// Get returns the quota, or ErrQuotaNotFound.
	Get(ctx context.Context, videoID id.VideoID, email string) (*Quota, error)

	// Consume atomically increments CurrentViews by one if and only if
	// CurrentViews < MaxViews, returning the post-increment quota.
	// Returns ErrQuotaExhausted when the ceiling is reached and
	// ErrQuotaNotFound when no quota exists.
	Consume(ctx context.Context, videoID id.VideoID, email string) (*Quota, error)

	// ListByVideo returns every quota for a video. Reporting path only.
	ListByVideo(ctx context.Context, videoID id.VideoID) ([]*Quota, error)
}
