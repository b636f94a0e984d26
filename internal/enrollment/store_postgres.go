package enrollment

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	id "vidgate/pkg/domain"
	dErrors "vidgate/pkg/domain-errors"
)

// PostgresOracle reads the platform's enrollments table. Where several
// records exist for the same (course, email) pair, the newest wins; the
// platform's admin flows occasionally leave superseded rows behind.
type PostgresOracle struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresOracle {
	return &PostgresOracle{pool: pool}
}

func (o *PostgresOracle) Lookup(ctx context.Context, courseID id.CourseID, email string) (*Enrollment, error) {
	var (
		eID, cID       uuid.UUID
		e              Enrollment
		status, paySts string
	)
	err := o.pool.QueryRow(ctx, `
		SELECT id, course_id, email, status, payment_status
		FROM enrollments
		WHERE course_id = $1 AND lower(email) = lower($2)
		ORDER BY created_at DESC
		LIMIT 1`,
		uuid.UUID(courseID), email,
	).Scan(&eID, &cID, &e.Email, &status, &paySts)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUpstream, "enrollment lookup failed")
	}
	e.ID = id.EnrollmentID(eID)
	e.CourseID = id.CourseID(cID)
	e.Status = Status(status)
	e.PaymentStatus = PaymentStatus(paySts)
	return &e, nil
}
