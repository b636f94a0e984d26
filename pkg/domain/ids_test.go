package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "vidgate/pkg/domain-errors"
)

func TestParseVideoID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseVideoID("")
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseVideoID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseVideoID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		raw := uuid.New()
		id, err := ParseVideoID(raw.String())
		require.NoError(t, err)
		assert.Equal(t, VideoID(raw), id)
		assert.False(t, id.IsNil())
	})
}

func TestTypeDistinction(t *testing.T) {
	videoID := VideoID(uuid.New())
	courseID := CourseID(uuid.New())

	// These would fail to compile if types were interchangeable:
	// var _ VideoID = courseID   // compile error
	// var _ CourseID = videoID   // compile error

	assert.NotEqual(t, uuid.UUID(videoID), uuid.UUID(courseID))
}
