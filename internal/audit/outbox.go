package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OutboxRow is one queued, not-yet-published audit payload.
type OutboxRow struct {
	ID      uuid.UUID
	EntryID uuid.UUID
	Payload []byte
}

// NextOutboxBatch returns up to n unpublished rows in insertion order. Rows
// are locked with SKIP LOCKED so multiple worker instances never double-publish.
func (s *PostgresStore) NextOutboxBatch(ctx context.Context, n int) ([]OutboxRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, entry_id, payload
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED`,
		n,
	)
	if err != nil {
		return nil, fmt.Errorf("query outbox batch: %w", err)
	}
	defer rows.Close()

	var out []OutboxRow
	for rows.Next() {
		var r OutboxRow
		if err := rows.Scan(&r.ID, &r.EntryID, &r.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkPublished stamps the given outbox rows as delivered.
func (s *PostgresStore) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE audit_outbox SET published_at = $1 WHERE id = ANY($2)`,
		time.Now(), ids,
	)
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}
