// Package domain holds typed identifiers shared across the service. Wrapping
// uuid.UUID in distinct types makes cross-type assignment a compile error, so
// a VideoID can never silently travel where a CourseID is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "vidgate/pkg/domain-errors"
)

type (
	// VideoID identifies a hosted video in the catalog.
	VideoID uuid.UUID

	// CourseID identifies a course in the catalog.
	CourseID uuid.UUID

	// UserID identifies a platform user. Optional on the access path, since
	// entitlement is keyed by email.
	UserID uuid.UUID

	// EnrollmentID identifies the enrollment record a proof was issued against.
	EnrollmentID uuid.UUID
)

func (id VideoID) String() string      { return uuid.UUID(id).String() }
func (id CourseID) String() string     { return uuid.UUID(id).String() }
func (id UserID) String() string       { return uuid.UUID(id).String() }
func (id EnrollmentID) String() string { return uuid.UUID(id).String() }

func (id VideoID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id CourseID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id EnrollmentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// parseUUID enforces the shared invariant: IDs are valid, non-nil UUIDs.
func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is required", field)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid UUID", field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s must not be the nil UUID", field)
	}
	return u, nil
}

// ParseVideoID constructs a VideoID from external input. Call at trust
// boundaries; direct casting bypasses validation.
func ParseVideoID(s string) (VideoID, error) {
	u, err := parseUUID(s, "video_id")
	return VideoID(u), err
}

// ParseCourseID constructs a CourseID from external input.
func ParseCourseID(s string) (CourseID, error) {
	u, err := parseUUID(s, "course_id")
	return CourseID(u), err
}

// ParseUserID constructs a UserID from external input.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user_id")
	return UserID(u), err
}

// ParseEnrollmentID constructs an EnrollmentID from external input.
func ParseEnrollmentID(s string) (EnrollmentID, error) {
	u, err := parseUUID(s, "enrollment_id")
	return EnrollmentID(u), err
}
