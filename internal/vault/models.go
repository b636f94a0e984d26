// Package vault holds exactly one delegated credential per identity and keeps
// it usable. Lifecycle: Absent -> Authorized -> Expired -> (Refreshing) ->
// Authorized | Absent. A credential that fails its single refresh attempt is
// purged, never retried; the identity re-runs the full authorization flow.
package vault

import "time"

// DelegatedCredential is the access/refresh token pair obtained from the
// delegated authorization provider on behalf of one identity.
type DelegatedCredential struct {
	Email        string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Expired reports whether the access token is past its expiry at the given
// instant.
func (c *DelegatedCredential) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}
