package vault

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	platformredis "vidgate/internal/platform/redis"
)

// StateStore holds the opaque continuation state between the begin and
// complete phases of delegated authorization. Entries are single-use and
// expire on their TTL; Consume must be atomic so a replayed callback can
// never complete the flow twice.
type StateStore interface {
	Put(ctx context.Context, state, payload string, ttl time.Duration) error

	// Consume removes and returns the entry. ok is false for unknown,
	// expired or already-consumed state.
	Consume(ctx context.Context, state string) (payload string, ok bool, err error)
}

// RedisStateStore backs the continuation state with a shared TTL store so the
// begin and complete phases may land on different instances.
type RedisStateStore struct {
	client *platformredis.Client
}

func NewRedisStateStore(client *platformredis.Client) *RedisStateStore {
	return &RedisStateStore{client: client}
}

func stateKey(state string) string {
	return "vidgate:auth-state:" + state
}

func (s *RedisStateStore) Put(ctx context.Context, state, payload string, ttl time.Duration) error {
	if err := s.client.Set(ctx, stateKey(state), payload, ttl).Err(); err != nil {
		return fmt.Errorf("store auth state: %w", err)
	}
	return nil
}

func (s *RedisStateStore) Consume(ctx context.Context, state string) (string, bool, error) {
	payload, err := s.client.GetDel(ctx, stateKey(state)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("consume auth state: %w", err)
	}
	return payload, true, nil
}

// InMemoryStateStore is the single-instance fallback: one mutex-guarded map
// with expiry checked on read. Good enough for tests and development; a
// multi-instance fleet needs the Redis store.
type InMemoryStateStore struct {
	mu      sync.Mutex
	entries map[string]stateEntry
}

type stateEntry struct {
	payload   string
	expiresAt time.Time
}

func NewInMemoryStateStore() *InMemoryStateStore {
	return &InMemoryStateStore{entries: make(map[string]stateEntry)}
}

func (s *InMemoryStateStore) Put(_ context.Context, state, payload string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[state] = stateEntry{payload: payload, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *InMemoryStateStore) Consume(_ context.Context, state string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[state]
	if !ok {
		return "", false, nil
	}
	delete(s.entries, state)
	if time.Now().After(entry.expiresAt) {
		return "", false, nil
	}
	return entry.payload, true, nil
}
