package handler

import (
	"strings"

	"vidgate/internal/access"
	id "vidgate/pkg/domain"
	dErrors "vidgate/pkg/domain-errors"
)

// RequestAccessRequest is the HTTP request body for POST /videos/{videoID}/access.
type RequestAccessRequest struct {
	CourseID string `json:"course_id"`
	Email    string `json:"email"`
	UserID   string `json:"user_id,omitempty"`

	// Parsed values (populated by Validate and ParsePathVideoID)
	parsedVideoID  id.VideoID
	parsedCourseID id.CourseID
	parsedUserID   id.UserID
}

// Validate validates and parses the request body.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *RequestAccessRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}

	r.Email = strings.TrimSpace(r.Email)
	if r.Email == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "email is required")
	}
	if len(r.Email) > 254 || !strings.Contains(r.Email, "@") {
		return dErrors.New(dErrors.CodeInvalidInput, "email is not valid")
	}

	courseID, err := id.ParseCourseID(strings.TrimSpace(r.CourseID))
	if err != nil {
		return err
	}
	r.parsedCourseID = courseID

	if userID := strings.TrimSpace(r.UserID); userID != "" {
		parsed, err := id.ParseUserID(userID)
		if err != nil {
			return err
		}
		r.parsedUserID = parsed
	}

	return nil
}

// ParsePathVideoID parses the video ID from the URL path.
func (r *RequestAccessRequest) ParsePathVideoID(raw string) error {
	videoID, err := id.ParseVideoID(raw)
	if err != nil {
		return err
	}
	r.parsedVideoID = videoID
	return nil
}

// ParsedVideoID returns the validated video ID.
func (r *RequestAccessRequest) ParsedVideoID() id.VideoID {
	return r.parsedVideoID
}

// ToDomain builds the domain request from the validated fields.
func (r *RequestAccessRequest) ToDomain() access.IssueRequest {
	return access.IssueRequest{
		VideoID:  r.parsedVideoID,
		CourseID: r.parsedCourseID,
		Email:    r.Email,
		UserID:   r.parsedUserID,
	}
}
