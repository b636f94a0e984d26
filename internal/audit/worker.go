package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// OutboxSource is the slice of the store the worker needs.
type OutboxSource interface {
	NextOutboxBatch(ctx context.Context, n int) ([]OutboxRow, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// Worker drains the audit outbox to Kafka. Rows are only marked published
// after a successful produce, so a crash between the two replays the row
// (at-least-once delivery; consumers dedupe on entry ID).
type Worker struct {
	source   OutboxSource
	sink     *KafkaSink
	logger   *slog.Logger
	interval time.Duration
	batch    int
}

func NewWorker(source OutboxSource, sink *KafkaSink, logger *slog.Logger) *Worker {
	return &Worker{
		source:   source,
		sink:     sink,
		logger:   logger,
		interval: 2 * time.Second,
		batch:    100,
	}
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drainOnce(ctx); err != nil && ctx.Err() == nil {
				w.logger.WarnContext(ctx, "audit outbox drain failed", "error", err)
			}
		}
	}
}

func (w *Worker) drainOnce(ctx context.Context) error {
	rows, err := w.source.NextOutboxBatch(ctx, w.batch)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	published := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		if err := w.sink.Publish(ctx, row.EntryID.String(), row.Payload); err != nil {
			// Stop the batch here; the unpublished remainder is retried
			// next tick in order.
			if markErr := w.source.MarkPublished(ctx, published); markErr != nil {
				return markErr
			}
			return err
		}
		published = append(published, row.ID)
	}
	return w.source.MarkPublished(ctx, published)
}
