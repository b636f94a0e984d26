package audit

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"vidgate/internal/fingerprint"
	"vidgate/pkg/requestcontext"
)

// Publisher captures structured audit entries. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

// Emit stamps missing identity and time fields, then appends. The request ID
// and timestamp come from the request context when present so the trail lines
// up with the HTTP logs.
func (p *Publisher) Emit(ctx context.Context, entry Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = requestcontext.Now(ctx)
	}
	if entry.RequestID == "" {
		entry.RequestID = requestcontext.RequestID(ctx)
	}
	return p.store.Append(ctx, entry)
}

// LogAudit mirrors an audit entry into the structured logger and emits it via
// the publisher. A failed emit is logged but never fails the caller's
// operation; denial of the underlying request already happened or didn't.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher *Publisher, entry Entry) {
	if logger != nil {
		args := []any{
			"log_type", "audit",
			"video_id", entry.VideoID.String(),
			"email", entry.Email,
			"outcome", string(entry.Outcome),
			"reason", entry.Reason,
			"request_id", requestcontext.RequestID(ctx),
		}
		if entry.ClientSignature != "" {
			args = append(args, "device", fingerprint.DisplayName(entry.ClientSignature))
		}
		logger.InfoContext(ctx, string(entry.Action), args...)
	}

	if publisher == nil {
		return
	}
	if err := publisher.Emit(ctx, entry); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit entry",
			"action", string(entry.Action), "error", err)
	}
}
