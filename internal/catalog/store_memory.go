package catalog

import (
	"context"
	"sync"

	id "vidgate/pkg/domain"
	dErrors "vidgate/pkg/domain-errors"
)

// InMemoryCatalog is a fake for tests and local development.
type InMemoryCatalog struct {
	mu      sync.RWMutex
	videos  map[id.VideoID]Video
	courses map[id.CourseID]Course
}

func NewInMemory() *InMemoryCatalog {
	return &InMemoryCatalog{
		videos:  make(map[id.VideoID]Video),
		courses: make(map[id.CourseID]Course),
	}
}

// PutVideo seeds a video. Test helper.
func (c *InMemoryCatalog) PutVideo(v Video) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.videos[v.ID] = v
}

// PutCourse seeds a course. Test helper.
func (c *InMemoryCatalog) PutCourse(course Course) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.courses[course.ID] = course
}

func (c *InMemoryCatalog) GetVideo(_ context.Context, videoID id.VideoID) (*Video, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.videos[videoID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "video not found")
	}
	return &v, nil
}

func (c *InMemoryCatalog) GetCourse(_ context.Context, courseID id.CourseID) (*Course, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	course, ok := c.courses[courseID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "course not found")
	}
	return &course, nil
}
