package playback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	id "vidgate/pkg/domain"
	"vidgate/pkg/requestcontext"
)

// PostgresQuotaStore persists quotas in playback_quotas. Consume is one
// conditional UPDATE, so the compare and the increment are a single statement
// the database serializes; there is no read-then-write window.
type PostgresQuotaStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresQuotaStore {
	return &PostgresQuotaStore{pool: pool}
}

func (s *PostgresQuotaStore) GetOrCreate(ctx context.Context, videoID id.VideoID, email string, maxViews int, expiresAt time.Time) (*Quota, error) {
	// DO NOTHING + re-select keeps the existing ceiling when two issuers
	// race on first creation.
	_, err := s.pool.Exec(ctx, `
		INSERT INTO playback_quotas (video_id, email, max_views, current_views, created_at, expires_at)
		VALUES ($1, lower($2), $3, 0, $4, $5)
		ON CONFLICT (video_id, email) DO NOTHING`,
		uuid.UUID(videoID), email, maxViews, requestcontext.Now(ctx), expiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create playback quota: %w", err)
	}
	return s.Get(ctx, videoID, email)
}

func (s *PostgresQuotaStore) Get(ctx context.Context, videoID id.VideoID, email string) (*Quota, error) {
	q := &Quota{VideoID: videoID}
	err := s.pool.QueryRow(ctx, `
		SELECT email, max_views, current_views, created_at, expires_at
		FROM playback_quotas
		WHERE video_id = $1 AND email = lower($2)`,
		uuid.UUID(videoID), email,
	).Scan(&q.Email, &q.MaxViews, &q.CurrentViews, &q.CreatedAt, &q.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrQuotaNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get playback quota: %w", err)
	}
	return q, nil
}

func (s *PostgresQuotaStore) Consume(ctx context.Context, videoID id.VideoID, email string) (*Quota, error) {
	q := &Quota{VideoID: videoID}
	err := s.pool.QueryRow(ctx, `
		UPDATE playback_quotas
		SET current_views = current_views + 1
		WHERE video_id = $1 AND email = lower($2) AND current_views < max_views
		RETURNING email, max_views, current_views, created_at, expires_at`,
		uuid.UUID(videoID), email,
	).Scan(&q.Email, &q.MaxViews, &q.CurrentViews, &q.CreatedAt, &q.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either no quota or an exhausted one; one more read to tell the
		// caller which. The answer may be stale by a concurrent increment,
		// but only in the direction of exhaustion.
		if _, getErr := s.Get(ctx, videoID, email); errors.Is(getErr, ErrQuotaNotFound) {
			return nil, ErrQuotaNotFound
		}
		return nil, ErrQuotaExhausted
	}
	if err != nil {
		return nil, fmt.Errorf("consume playback quota: %w", err)
	}
	return q, nil
}

func (s *PostgresQuotaStore) ListByVideo(ctx context.Context, videoID id.VideoID) ([]*Quota, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT email, max_views, current_views, created_at, expires_at
		FROM playback_quotas
		WHERE video_id = $1`,
		uuid.UUID(videoID),
	)
	if err != nil {
		return nil, fmt.Errorf("list playback quotas: %w", err)
	}
	defer rows.Close()

	var out []*Quota
	for rows.Next() {
		q := &Quota{VideoID: videoID}
		if err := rows.Scan(&q.Email, &q.MaxViews, &q.CurrentViews, &q.CreatedAt, &q.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan playback quota: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}
