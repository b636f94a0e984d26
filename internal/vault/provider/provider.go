// Package provider talks to the delegated authorization provider: the
// third-party OAuth-style service that issues access/refresh credential pairs
// outside this system's control.
package provider

import (
	"context"
	"time"
)

// Tokens is one credential pair as the provider returned it. RefreshToken may
// be empty on refresh responses when the provider keeps the old one valid.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Client performs the two provider round-trips this system needs. Both calls
// are bounded-timeout network operations; any timeout, denial or malformed
// response surfaces as a CodeUpstream domain error.
type Client interface {
	// Exchange trades an authorization code for a credential pair.
	Exchange(ctx context.Context, code string) (*Tokens, error)

	// Refresh trades a refresh token for a new access token.
	Refresh(ctx context.Context, refreshToken string) (*Tokens, error)
}
