package playback

import (
	"context"
	"strings"
	"sync"
	"time"

	id "vidgate/pkg/domain"
	"vidgate/pkg/requestcontext"
)

type quotaKey struct {
	videoID id.VideoID
	email   string
}

// InMemoryQuotaStore guards the whole map with one mutex, which makes the
// compare-and-increment trivially atomic. Tests and single-instance runs only.
type InMemoryQuotaStore struct {
	mu     sync.Mutex
	quotas map[quotaKey]*Quota
}

func NewInMemoryQuotaStore() *InMemoryQuotaStore {
	return &InMemoryQuotaStore{quotas: make(map[quotaKey]*Quota)}
}

func (s *InMemoryQuotaStore) key(videoID id.VideoID, email string) quotaKey {
	return quotaKey{videoID: videoID, email: strings.ToLower(strings.TrimSpace(email))}
}

func (s *InMemoryQuotaStore) GetOrCreate(ctx context.Context, videoID id.VideoID, email string, maxViews int, expiresAt time.Time) (*Quota, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.key(videoID, email)
	if q, ok := s.quotas[key]; ok {
		cp := *q
		return &cp, nil
	}

	q := &Quota{
		VideoID:      videoID,
		Email:        key.email,
		MaxViews:     maxViews,
		CurrentViews: 0,
		CreatedAt:    requestcontext.Now(ctx),
		ExpiresAt:    expiresAt,
	}
	s.quotas[key] = q
	cp := *q
	return &cp, nil
}

func (s *InMemoryQuotaStore) Get(_ context.Context, videoID id.VideoID, email string) (*Quota, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.quotas[s.key(videoID, email)]
	if !ok {
		return nil, ErrQuotaNotFound
	}
	cp := *q
	return &cp, nil
}

func (s *InMemoryQuotaStore) Consume(_ context.Context, videoID id.VideoID, email string) (*Quota, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.quotas[s.key(videoID, email)]
	if !ok {
		return nil, ErrQuotaNotFound
	}
	if q.CurrentViews >= q.MaxViews {
		return nil, ErrQuotaExhausted
	}
	q.CurrentViews++
	cp := *q
	return &cp, nil
}

func (s *InMemoryQuotaStore) ListByVideo(_ context.Context, videoID id.VideoID) ([]*Quota, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Quota
	for key, q := range s.quotas {
		if key.videoID == videoID {
			cp := *q
			out = append(out, &cp)
		}
	}
	return out, nil
}
