package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	id "vidgate/pkg/domain"
	dErrors "vidgate/pkg/domain-errors"
)

// PostgresCatalog reads the platform's videos and courses tables.
type PostgresCatalog struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresCatalog {
	return &PostgresCatalog{pool: pool}
}

func (c *PostgresCatalog) GetVideo(ctx context.Context, videoID id.VideoID) (*Video, error) {
	var (
		vID, cID uuid.UUID
		v        Video
		status   string
	)
	err := c.pool.QueryRow(ctx, `
		SELECT id, course_id, title, embed_url, status
		FROM videos
		WHERE id = $1`,
		uuid.UUID(videoID),
	).Scan(&vID, &cID, &v.Title, &v.EmbedURL, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, dErrors.New(dErrors.CodeNotFound, "video not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUpstream, "catalog video lookup failed")
	}
	v.ID = id.VideoID(vID)
	v.CourseID = id.CourseID(cID)
	v.Status = Status(status)
	return &v, nil
}

func (c *PostgresCatalog) GetCourse(ctx context.Context, courseID id.CourseID) (*Course, error) {
	var (
		cID    uuid.UUID
		course Course
		status string
	)
	err := c.pool.QueryRow(ctx, `
		SELECT id, title, status
		FROM courses
		WHERE id = $1`,
		uuid.UUID(courseID),
	).Scan(&cID, &course.Title, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, dErrors.New(dErrors.CodeNotFound, "course not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUpstream, "catalog course lookup failed")
	}
	course.ID = id.CourseID(cID)
	course.Status = Status(status)
	return &course, nil
}
