package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	id "vidgate/pkg/domain"
)

// PostgresStore persists entries using the transactional outbox pattern: each
// append lands in the durable audit_log table and, in the same transaction,
// queues an outbox row that the worker drains to Kafka. The local table is the
// queryable record; the Kafka topic is the distribution stream.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// outboxPayload is the JSON structure published to Kafka. Field names match
// Entry so consumers deserialize symmetrically.
type outboxPayload struct {
	ID                string  `json:"id"`
	VideoID           string  `json:"video_id,omitempty"`
	CourseID          string  `json:"course_id,omitempty"`
	Email             string  `json:"email,omitempty"`
	UserID            string  `json:"user_id,omitempty"`
	Action            string  `json:"action"`
	Outcome           string  `json:"outcome,omitempty"`
	Reason            string  `json:"reason,omitempty"`
	DurationSeconds   int     `json:"duration_seconds,omitempty"`
	CompletionPercent float64 `json:"completion_percent,omitempty"`
	Timestamp         string  `json:"timestamp"`
	NetworkOrigin     string  `json:"network_origin,omitempty"`
	ClientSignature   string  `json:"client_signature,omitempty"`
	Fingerprint       string  `json:"fingerprint,omitempty"`
	RequestID         string  `json:"request_id,omitempty"`
}

func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	payload := outboxPayload{
		ID:                entry.ID.String(),
		Action:            string(entry.Action),
		Outcome:           string(entry.Outcome),
		Reason:            entry.Reason,
		Email:             entry.Email,
		DurationSeconds:   entry.DurationSeconds,
		CompletionPercent: entry.CompletionPercent,
		Timestamp:         entry.Timestamp.Format(time.RFC3339Nano),
		NetworkOrigin:     entry.NetworkOrigin,
		ClientSignature:   entry.ClientSignature,
		Fingerprint:       entry.Fingerprint,
		RequestID:         entry.RequestID,
	}
	if !entry.VideoID.IsNil() {
		payload.VideoID = entry.VideoID.String()
	}
	if !entry.CourseID.IsNil() {
		payload.CourseID = entry.CourseID.String()
	}
	if !entry.UserID.IsNil() {
		payload.UserID = entry.UserID.String()
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin audit tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO audit_log (
			id, video_id, course_id, email, user_id, action, outcome, reason,
			duration_seconds, completion_percent, occurred_at,
			network_origin, client_signature, fingerprint, request_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		entry.ID,
		nilUUID(uuid.UUID(entry.VideoID)),
		nilUUID(uuid.UUID(entry.CourseID)),
		entry.Email,
		nilUUID(uuid.UUID(entry.UserID)),
		string(entry.Action),
		string(entry.Outcome),
		entry.Reason,
		entry.DurationSeconds,
		entry.CompletionPercent,
		entry.Timestamp,
		entry.NetworkOrigin,
		entry.ClientSignature,
		entry.Fingerprint,
		entry.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO audit_outbox (id, entry_id, payload, created_at)
		VALUES ($1, $2, $3, $4)`,
		uuid.New(), entry.ID, payloadBytes, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox row: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit audit tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByVideo(ctx context.Context, videoID id.VideoID, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, video_id, course_id, email, user_id, action, outcome, reason,
		       duration_seconds, completion_percent, occurred_at,
		       network_origin, client_signature, fingerprint, request_id
		FROM audit_log
		WHERE video_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2`,
		uuid.UUID(videoID), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                         Entry
			videoID, courseID, userID *uuid.UUID
			action, outcome           string
		)
		err := rows.Scan(&e.ID, &videoID, &courseID, &e.Email, &userID, &action,
			&outcome, &e.Reason, &e.DurationSeconds, &e.CompletionPercent,
			&e.Timestamp, &e.NetworkOrigin, &e.ClientSignature, &e.Fingerprint,
			&e.RequestID)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if videoID != nil {
			e.VideoID = id.VideoID(*videoID)
		}
		if courseID != nil {
			e.CourseID = id.CourseID(*courseID)
		}
		if userID != nil {
			e.UserID = id.UserID(*userID)
		}
		e.Action = Action(action)
		e.Outcome = Outcome(outcome)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountByVideo(ctx context.Context, videoID id.VideoID, action Action, outcome Outcome) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM audit_log
		WHERE video_id = $1 AND action = $2 AND outcome = $3`,
		uuid.UUID(videoID), string(action), string(outcome),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return count, nil
}

// nilUUID maps the nil UUID to a SQL NULL so optional references stay NULL in
// the table instead of the zero UUID.
func nilUUID(u uuid.UUID) *uuid.UUID {
	if u == uuid.Nil {
		return nil
	}
	return &u
}
