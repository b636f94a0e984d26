package vault

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"vidgate/internal/audit"
	dErrors "vidgate/pkg/domain-errors"
)

// stateTTL bounds how long a begun authorization may hang before the
// continuation state expires.
const stateTTL = 10 * time.Minute

// AuthorizeURLBuilder renders the provider consent URL for a state token.
// The production implementation is the provider HTTP client; tests stub it.
type AuthorizeURLBuilder interface {
	AuthorizeURL(state string) string
}

// Flow models delegated authorization as an explicit two-phase protocol.
// Begin hands out an opaque continuation; Complete consumes it and
// transitions the vault. HTTP redirect mechanics stay in the transport layer.
type Flow struct {
	vault    *Service
	states   StateStore
	urls     AuthorizeURLBuilder
	logger   *slog.Logger
	auditPub *audit.Publisher
}

func NewFlow(vaultSvc *Service, states StateStore, urls AuthorizeURLBuilder, opts ...FlowOption) (*Flow, error) {
	if vaultSvc == nil || states == nil || urls == nil {
		return nil, fmt.Errorf("vault service, state store and URL builder are required")
	}
	f := &Flow{vault: vaultSvc, states: states, urls: urls}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

type FlowOption func(*Flow)

func WithFlowLogger(logger *slog.Logger) FlowOption {
	return func(f *Flow) { f.logger = logger }
}

func WithFlowAuditPublisher(pub *audit.Publisher) FlowOption {
	return func(f *Flow) { f.auditPub = pub }
}

// statePayload is what the continuation carries between phases.
type statePayload struct {
	Email    string `json:"email"`
	ReturnTo string `json:"return_to"`
}

// BeginResult is the outcome of the begin phase.
type BeginResult struct {
	State       string
	RedirectURL string
}

// Begin mints a single-use state token, stores the continuation with a
// 10-minute TTL, and returns the provider consent URL to redirect to.
func (f *Flow) Begin(ctx context.Context, email, returnTo string) (*BeginResult, error) {
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "email is required")
	}

	state, err := randomState()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint state token")
	}

	payload, err := json.Marshal(statePayload{Email: email, ReturnTo: returnTo})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode state payload")
	}
	if err := f.states.Put(ctx, state, string(payload), stateTTL); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store authorization state")
	}

	audit.LogAudit(ctx, f.logger, f.auditPub, audit.Entry{
		Email:   email,
		Action:  audit.ActionAuthorizationBegun,
		Outcome: audit.OutcomeGranted,
	})

	return &BeginResult{State: state, RedirectURL: f.urls.AuthorizeURL(state)}, nil
}

// Complete consumes the continuation, exchanges the code at the provider and
// persists the resulting credential pair. Returns where the client should be
// redirected next.
//
// Unknown, expired or replayed state is a caller error; provider failure is
// an upstream denial. Neither leaves a credential behind.
func (f *Flow) Complete(ctx context.Context, code, state string) (returnTo string, err error) {
	if code == "" || state == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "code and state are required")
	}

	raw, ok, err := f.states.Consume(ctx, state)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume authorization state")
	}
	if !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown or expired authorization state")
	}

	var payload statePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "corrupt authorization state")
	}

	tokens, err := f.vault.provider.Exchange(ctx, code)
	if err != nil {
		// Already coded CodeUpstream by the provider client. Fail closed.
		return "", err
	}

	if err := f.vault.Save(ctx, payload.Email, tokens.AccessToken, tokens.RefreshToken, tokens.ExpiresAt); err != nil {
		return "", err
	}

	audit.LogAudit(ctx, f.logger, f.auditPub, audit.Entry{
		Email:   payload.Email,
		Action:  audit.ActionAuthorizationDone,
		Outcome: audit.OutcomeGranted,
	})

	return payload.ReturnTo, nil
}

func randomState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
