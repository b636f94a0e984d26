package vault

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidgate/internal/audit"
	"vidgate/internal/vault/provider"
	dErrors "vidgate/pkg/domain-errors"
	"vidgate/pkg/requestcontext"
)

// fakeProvider counts calls and returns a scripted response.
type fakeProvider struct {
	mu           sync.Mutex
	refreshCalls int
	tokens       *provider.Tokens
	err          error
}

func (f *fakeProvider) Exchange(_ context.Context, _ string) (*provider.Tokens, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tokens, nil
}

func (f *fakeProvider) Refresh(_ context.Context, _ string) (*provider.Tokens, error) {
	f.mu.Lock()
	f.refreshCalls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.tokens, nil
}

func (f *fakeProvider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

func newVault(t *testing.T, p provider.Client) (*Service, *InMemoryStore, *audit.InMemoryStore) {
	t.Helper()
	store := NewInMemoryStore()
	auditStore := audit.NewInMemoryStore()
	svc, err := New(store, p, WithAuditPublisher(audit.NewPublisher(auditStore)))
	require.NoError(t, err)
	return svc, store, auditStore
}

func TestGet(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	t.Run("absent identity returns nil", func(t *testing.T) {
		svc, _, _ := newVault(t, &fakeProvider{})
		cred, err := svc.Get(ctx, "nobody@example.com")
		require.NoError(t, err)
		assert.Nil(t, cred)
	})

	t.Run("unexpired credential returned unchanged without provider call", func(t *testing.T) {
		fp := &fakeProvider{}
		svc, store, _ := newVault(t, fp)
		require.NoError(t, store.Upsert(ctx, DelegatedCredential{
			Email:        "viewer@example.com",
			AccessToken:  "at-1",
			RefreshToken: "rt-1",
			ExpiresAt:    now.Add(30 * time.Minute),
		}))

		cred, err := svc.Get(ctx, "viewer@example.com")
		require.NoError(t, err)
		require.NotNil(t, cred)
		assert.Equal(t, "at-1", cred.AccessToken)
		assert.Equal(t, 0, fp.calls())
	})

	t.Run("expired credential refreshed exactly once", func(t *testing.T) {
		fp := &fakeProvider{tokens: &provider.Tokens{
			AccessToken: "at-2",
			ExpiresAt:   now.Add(time.Hour),
		}}
		svc, store, _ := newVault(t, fp)
		require.NoError(t, store.Upsert(ctx, DelegatedCredential{
			Email:        "viewer@example.com",
			AccessToken:  "at-1",
			RefreshToken: "rt-1",
			ExpiresAt:    now.Add(-time.Minute),
		}))

		cred, err := svc.Get(ctx, "viewer@example.com")
		require.NoError(t, err)
		require.NotNil(t, cred)
		assert.Equal(t, "at-2", cred.AccessToken)
		assert.Equal(t, "rt-1", cred.RefreshToken, "refresh token kept when provider does not rotate")
		assert.Equal(t, now.Add(time.Hour), cred.ExpiresAt)
		assert.Equal(t, 1, fp.calls())

		// The refreshed credential is durable.
		persisted, err := store.Find(ctx, "viewer@example.com")
		require.NoError(t, err)
		assert.Equal(t, "at-2", persisted.AccessToken)
	})

	t.Run("provider-rotated refresh token is persisted", func(t *testing.T) {
		fp := &fakeProvider{tokens: &provider.Tokens{
			AccessToken:  "at-2",
			RefreshToken: "rt-2",
			ExpiresAt:    now.Add(time.Hour),
		}}
		svc, store, _ := newVault(t, fp)
		require.NoError(t, store.Upsert(ctx, DelegatedCredential{
			Email:        "viewer@example.com",
			AccessToken:  "at-1",
			RefreshToken: "rt-1",
			ExpiresAt:    now.Add(-time.Minute),
		}))

		cred, err := svc.Get(ctx, "viewer@example.com")
		require.NoError(t, err)
		assert.Equal(t, "rt-2", cred.RefreshToken)
	})

	t.Run("refresh failure purges the record", func(t *testing.T) {
		fp := &fakeProvider{err: dErrors.New(dErrors.CodeUpstream, "provider returned status 400")}
		svc, store, auditStore := newVault(t, fp)
		require.NoError(t, store.Upsert(ctx, DelegatedCredential{
			Email:        "viewer@example.com",
			AccessToken:  "at-1",
			RefreshToken: "rt-1",
			ExpiresAt:    now.Add(-time.Minute),
		}))

		cred, err := svc.Get(ctx, "viewer@example.com")
		require.NoError(t, err)
		assert.Nil(t, cred)
		assert.Equal(t, 1, fp.calls(), "exactly one refresh attempt")

		// Subsequent get sees no record and does not reach the provider again.
		cred, err = svc.Get(ctx, "viewer@example.com")
		require.NoError(t, err)
		assert.Nil(t, cred)
		assert.Equal(t, 1, fp.calls())

		var purged bool
		for _, e := range auditStore.All() {
			if e.Action == audit.ActionCredentialPurged {
				purged = true
			}
		}
		assert.True(t, purged, "purge must land in the audit trail")
	})
}

func TestSaveAndDelete(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	t.Run("save is an idempotent overwrite", func(t *testing.T) {
		svc, store, _ := newVault(t, &fakeProvider{})
		require.NoError(t, svc.Save(ctx, "viewer@example.com", "at-1", "rt-1", now.Add(time.Hour)))
		require.NoError(t, svc.Save(ctx, "viewer@example.com", "at-2", "rt-2", now.Add(2*time.Hour)))

		cred, err := store.Find(ctx, "viewer@example.com")
		require.NoError(t, err)
		assert.Equal(t, "at-2", cred.AccessToken)
		assert.Equal(t, "rt-2", cred.RefreshToken)
	})

	t.Run("save rejects incomplete pair", func(t *testing.T) {
		svc, _, _ := newVault(t, &fakeProvider{})
		err := svc.Save(ctx, "viewer@example.com", "at-1", "", now.Add(time.Hour))
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeInvalidInput))
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		svc, _, _ := newVault(t, &fakeProvider{})
		require.NoError(t, svc.Save(ctx, "viewer@example.com", "at-1", "rt-1", now.Add(time.Hour)))
		require.NoError(t, svc.Delete(ctx, "viewer@example.com"))
		require.NoError(t, svc.Delete(ctx, "viewer@example.com"))

		cred, err := svc.Get(ctx, "viewer@example.com")
		require.NoError(t, err)
		assert.Nil(t, cred)
	})
}

func TestGet_ConcurrentRefresh(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	fp := &fakeProvider{tokens: &provider.Tokens{
		AccessToken: "at-new",
		ExpiresAt:   now.Add(time.Hour),
	}}
	svc, store, _ := newVault(t, fp)
	require.NoError(t, store.Upsert(ctx, DelegatedCredential{
		Email:        "viewer@example.com",
		AccessToken:  "at-old",
		RefreshToken: "rt-1",
		ExpiresAt:    now.Add(-time.Minute),
	}))

	// Overlapping gets may each reach the provider; last write wins and the
	// final stored credential must be the refreshed one.
	const callers = 8
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			_, _ = svc.Get(ctx, "viewer@example.com")
		}()
	}
	wg.Wait()

	cred, err := store.Find(ctx, "viewer@example.com")
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "at-new", cred.AccessToken)
}
