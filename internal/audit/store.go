package audit

import (
	"context"

	id "vidgate/pkg/domain"
)

// Store persists audit entries. Append is the only write; the read side
// exists for external reporting collaborators and the stats rollup, never for
// the authorization path.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByVideo(ctx context.Context, videoID id.VideoID, limit int) ([]Entry, error)
	CountByVideo(ctx context.Context, videoID id.VideoID, action Action, outcome Outcome) (int, error)
}
