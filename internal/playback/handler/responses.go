package handler

import (
	"time"

	"vidgate/internal/access/proof"
	"vidgate/internal/playback"
)

// TrackResponse is the HTTP response for POST /playback/track.
type TrackResponse struct {
	RemainingViews int `json:"remaining_views"`
}

// FromTrackResult converts a domain TrackResult to an HTTP response.
func FromTrackResult(result *playback.TrackResult) *TrackResponse {
	return &TrackResponse{RemainingViews: result.RemainingViews}
}

// ValidateResponse is the HTTP response for POST /playback/validate.
type ValidateResponse struct {
	Valid          bool      `json:"valid"`
	VideoID        string    `json:"video_id"`
	CourseID       string    `json:"course_id"`
	Email          string    `json:"email"`
	ExpiresAt      time.Time `json:"expires_at"`
	RemainingViews int       `json:"remaining_views"`
}

// FromClaims converts verified proof claims to an HTTP response.
func FromClaims(claims *proof.Claims, remaining int) *ValidateResponse {
	resp := &ValidateResponse{
		Valid:          true,
		VideoID:        claims.VideoID,
		CourseID:       claims.CourseID,
		Email:          claims.Email,
		RemainingViews: remaining,
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time
	}
	return resp
}

// StatsResponse is the HTTP response for GET /videos/{videoID}/stats.
type StatsResponse struct {
	VideoID              string `json:"video_id"`
	TotalViews           int    `json:"total_views"`
	UniqueViewers        int    `json:"unique_viewers"`
	CompletedViews       int    `json:"completed_views"`
	TotalDurationSeconds int    `json:"total_duration_seconds"`
}

// FromStats converts a domain VideoStats to an HTTP response.
func FromStats(stats *playback.VideoStats) *StatsResponse {
	return &StatsResponse{
		VideoID:              stats.VideoID.String(),
		TotalViews:           stats.TotalViews,
		UniqueViewers:        stats.UniqueViewers,
		CompletedViews:       stats.CompletedViews,
		TotalDurationSeconds: stats.TotalDurationSeconds,
	}
}
