// Package playback validates access proofs at consumption time and enforces
// the view quota. The quota counter is monotonic: it only ever moves toward
// max_views, and never crosses it, regardless of how many requests race.
package playback

import (
	"errors"
	"time"

	id "vidgate/pkg/domain"
)

// Sentinel errors returned by quota stores. Services map them to coded
// domain errors at the boundary.
var (
	ErrQuotaNotFound  = errors.New("playback quota not found")
	ErrQuotaExhausted = errors.New("playback quota exhausted")
)

// Quota is the consumable view allowance for one (video, identity) pair.
// Invariant: 0 <= CurrentViews <= MaxViews at all times.
type Quota struct {
	VideoID      id.VideoID
	Email        string
	MaxViews     int
	CurrentViews int
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Remaining returns the views left before exhaustion.
func (q *Quota) Remaining() int {
	if q.CurrentViews >= q.MaxViews {
		return 0
	}
	return q.MaxViews - q.CurrentViews
}

// VideoStats is the reporting rollup for one video.
type VideoStats struct {
	VideoID              id.VideoID
	TotalViews           int
	UniqueViewers        int
	CompletedViews       int
	TotalDurationSeconds int
}

// TrackResult is what a successful consumption returns to the caller.
type TrackResult struct {
	RemainingViews int
}
