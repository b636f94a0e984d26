package vault

import "context"

// Store persists delegated credentials keyed by identity email.
//
// Upsert must be last-write-wins: concurrent refreshes for the same identity
// may both write, and whichever lands last is the credential subsequently
// read. Callers must not assume strict linear history.
type Store interface {
	// Find returns the credential for an identity, or nil when absent.
	Find(ctx context.Context, email string) (*DelegatedCredential, error)

	// Upsert creates or overwrites the identity's credential.
	Upsert(ctx context.Context, cred DelegatedCredential) error

	// Delete removes the identity's credential. Idempotent.
	Delete(ctx context.Context, email string) error
}
