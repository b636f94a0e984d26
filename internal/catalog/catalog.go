// Package catalog exposes the read-only view of the platform's video and
// course records that the access gate consults. The catalog itself is owned
// by the wider platform; this subsystem never writes to it.
package catalog

import (
	"context"

	id "vidgate/pkg/domain"
)

// Status is the publication state of a video or course.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusDraft    Status = "draft"
)

// Video is a hosted video as the gate sees it. EmbedURL is the third-party
// player target returned to authorized viewers.
type Video struct {
	ID       id.VideoID
	CourseID id.CourseID
	Title    string
	EmbedURL string
	Status   Status
}

// Course groups videos behind a single entitlement.
type Course struct {
	ID     id.CourseID
	Title  string
	Status Status
}

// Catalog answers video and course lookups. Implementations must return a
// CodeNotFound domain error for missing records so the issuer can map
// absence and inactivity to distinct denials.
type Catalog interface {
	GetVideo(ctx context.Context, videoID id.VideoID) (*Video, error)
	GetCourse(ctx context.Context, courseID id.CourseID) (*Course, error)
}
