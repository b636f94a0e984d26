package vault

import (
	"context"
	"strings"
	"sync"
	"time"
)

// InMemoryStore keeps credentials in a mutex-guarded map. Tests and
// single-instance development runs only.
type InMemoryStore struct {
	mu    sync.RWMutex
	creds map[string]DelegatedCredential
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{creds: make(map[string]DelegatedCredential)}
}

func (s *InMemoryStore) Find(_ context.Context, email string) (*DelegatedCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.creds[normalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	return &cred, nil
}

func (s *InMemoryStore) Upsert(_ context.Context, cred DelegatedCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalizeEmail(cred.Email)
	now := time.Now()
	if existing, ok := s.creds[key]; ok {
		cred.CreatedAt = existing.CreatedAt
	} else if cred.CreatedAt.IsZero() {
		cred.CreatedAt = now
	}
	cred.UpdatedAt = now
	s.creds[key] = cred
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.creds, normalizeEmail(email))
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
