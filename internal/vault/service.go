package vault

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"vidgate/internal/audit"
	"vidgate/internal/platform/metrics"
	"vidgate/internal/vault/provider"
	dErrors "vidgate/pkg/domain-errors"
	"vidgate/pkg/requestcontext"
)

// Service owns the delegated credential lifecycle.
type Service struct {
	store    Store
	provider provider.Client
	logger   *slog.Logger
	auditPub *audit.Publisher
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(pub *audit.Publisher) Option {
	return func(s *Service) { s.auditPub = pub }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(store Store, providerClient provider.Client, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	if providerClient == nil {
		return nil, fmt.Errorf("provider client is required")
	}

	svc := &Service{
		store:    store,
		provider: providerClient,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Get returns a usable credential for the identity, or nil when none exists.
//
// An expired credential triggers exactly one refresh attempt within this
// call. Refresh success persists the new access token and expiry (the refresh
// token is kept unless the provider rotated it); any refresh failure purges
// the record and returns nil, so the caller re-runs the full authorization
// flow. No retries beyond the single attempt.
//
// Concurrent Gets for the same identity may both reach the provider; the
// upsert is last-write-wins and no lock is held across the network call.
func (s *Service) Get(ctx context.Context, email string) (*DelegatedCredential, error) {
	cred, err := s.store.Find(ctx, email)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load delegated credential")
	}
	if cred == nil {
		return nil, nil
	}
	if !cred.Expired(requestcontext.Now(ctx)) {
		return cred, nil
	}
	return s.refreshOnce(ctx, cred)
}

func (s *Service) refreshOnce(ctx context.Context, cred *DelegatedCredential) (*DelegatedCredential, error) {
	tokens, err := s.provider.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		// Denied, unreachable or malformed: all purge the record. The
		// distinction only matters to the audit trail.
		s.countRefresh("failure")
		if delErr := s.store.Delete(ctx, cred.Email); delErr != nil {
			return nil, dErrors.Wrap(delErr, dErrors.CodeInternal, "failed to purge credential after refresh failure")
		}
		audit.LogAudit(ctx, s.logger, s.auditPub, audit.Entry{
			Email:   cred.Email,
			Action:  audit.ActionCredentialPurged,
			Outcome: audit.OutcomeDenied,
			Reason:  refreshFailureReason(err),
		})
		return nil, nil
	}

	refreshed := DelegatedCredential{
		Email:        cred.Email,
		AccessToken:  tokens.AccessToken,
		RefreshToken: cred.RefreshToken,
		ExpiresAt:    tokens.ExpiresAt,
		CreatedAt:    cred.CreatedAt,
	}
	if tokens.RefreshToken != "" {
		refreshed.RefreshToken = tokens.RefreshToken
	}

	if err := s.store.Upsert(ctx, refreshed); err != nil {
		s.countRefresh("failure")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist refreshed credential")
	}

	s.countRefresh("success")
	audit.LogAudit(ctx, s.logger, s.auditPub, audit.Entry{
		Email:   cred.Email,
		Action:  audit.ActionCredentialRefreshed,
		Outcome: audit.OutcomeGranted,
	})
	return &refreshed, nil
}

// Save upserts a credential pair for an identity. Idempotent; always overwrites.
func (s *Service) Save(ctx context.Context, email, accessToken, refreshToken string, expiresAt time.Time) error {
	if email == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "email is required")
	}
	if accessToken == "" || refreshToken == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "credential pair is incomplete")
	}

	err := s.store.Upsert(ctx, DelegatedCredential{
		Email:        email,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save delegated credential")
	}

	audit.LogAudit(ctx, s.logger, s.auditPub, audit.Entry{
		Email:   email,
		Action:  audit.ActionCredentialSaved,
		Outcome: audit.OutcomeGranted,
	})
	return nil
}

// Delete removes an identity's credential. Idempotent.
func (s *Service) Delete(ctx context.Context, email string) error {
	if err := s.store.Delete(ctx, email); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete delegated credential")
	}

	audit.LogAudit(ctx, s.logger, s.auditPub, audit.Entry{
		Email:   email,
		Action:  audit.ActionCredentialDeleted,
		Outcome: audit.OutcomeGranted,
	})
	return nil
}

func (s *Service) countRefresh(result string) {
	if s.metrics != nil {
		s.metrics.CredentialRefresh.WithLabelValues(result).Inc()
	}
}

func refreshFailureReason(err error) string {
	if dErrors.Is(err, dErrors.CodeUpstream) {
		return "provider refresh failed"
	}
	return "refresh rejected"
}
