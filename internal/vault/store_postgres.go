package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists credentials in the delegated_credentials table.
// The primary key on email makes Upsert a single atomic statement, which is
// what gives concurrent refreshes their last-write-wins semantics.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Find(ctx context.Context, email string) (*DelegatedCredential, error) {
	var cred DelegatedCredential
	err := s.pool.QueryRow(ctx, `
		SELECT email, access_token, refresh_token, expires_at, created_at, updated_at
		FROM delegated_credentials
		WHERE email = lower($1)`,
		email,
	).Scan(&cred.Email, &cred.AccessToken, &cred.RefreshToken, &cred.ExpiresAt,
		&cred.CreatedAt, &cred.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find delegated credential: %w", err)
	}
	return &cred, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, cred DelegatedCredential) error {
	now := time.Now()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO delegated_credentials (email, access_token, refresh_token, expires_at, created_at, updated_at)
		VALUES (lower($1), $2, $3, $4, $5, $5)
		ON CONFLICT (email) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at`,
		cred.Email, cred.AccessToken, cred.RefreshToken, cred.ExpiresAt, now,
	)
	if err != nil {
		return fmt.Errorf("upsert delegated credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, email string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM delegated_credentials WHERE email = lower($1)`,
		email,
	)
	if err != nil {
		return fmt.Errorf("delete delegated credential: %w", err)
	}
	return nil
}
