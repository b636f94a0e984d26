package handler

import (
	"strings"

	"vidgate/internal/playback"
	dErrors "vidgate/pkg/domain-errors"
)

// TrackRequest is the HTTP request body for POST /playback/track.
type TrackRequest struct {
	Proof             string  `json:"proof"`
	DurationSeconds   int     `json:"duration_seconds"`
	CompletionPercent float64 `json:"completion_percent"`
}

// Validate validates the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *TrackRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}

	r.Proof = strings.TrimSpace(r.Proof)
	if r.Proof == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "proof is required")
	}
	if r.DurationSeconds < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "duration_seconds must not be negative")
	}
	if r.CompletionPercent < 0 || r.CompletionPercent > 100 {
		return dErrors.New(dErrors.CodeInvalidInput, "completion_percent must be between 0 and 100")
	}
	return nil
}

// ToDomain builds the domain request from the validated fields.
func (r *TrackRequest) ToDomain() playback.TrackRequest {
	return playback.TrackRequest{
		Proof:             r.Proof,
		DurationSeconds:   r.DurationSeconds,
		CompletionPercent: r.CompletionPercent,
	}
}

// ValidateRequest is the HTTP request body for POST /playback/validate.
type ValidateRequest struct {
	Proof string `json:"proof"`
}

// Validate validates the request.
func (r *ValidateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}
	r.Proof = strings.TrimSpace(r.Proof)
	if r.Proof == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "proof is required")
	}
	return nil
}
