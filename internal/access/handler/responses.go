package handler

import (
	"time"

	"vidgate/internal/access"
)

// RequestAccessResponse is the HTTP response for POST /videos/{videoID}/access.
type RequestAccessResponse struct {
	Proof        string    `json:"proof"`
	EmbedURL     string    `json:"embed_url"`
	ExpiresAt    time.Time `json:"expires_at"`
	MaxViews     int       `json:"max_views"`
	CurrentViews int       `json:"current_views"`
}

// FromIssueResult converts a domain IssueResult to an HTTP response.
func FromIssueResult(result *access.IssueResult) *RequestAccessResponse {
	return &RequestAccessResponse{
		Proof:        result.Proof,
		EmbedURL:     result.EmbedURL,
		ExpiresAt:    result.ExpiresAt,
		MaxViews:     result.MaxViews,
		CurrentViews: result.CurrentViews,
	}
}
