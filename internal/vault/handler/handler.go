// Package handler exposes the delegated authorization flow over HTTP. It owns
// the redirect mechanics only; state and credential handling live in the vault.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"vidgate/internal/vault"
	dErrors "vidgate/pkg/domain-errors"
	"vidgate/pkg/platform/httputil"
	"vidgate/pkg/requestcontext"
)

// Flow defines the interface for the two-phase delegated authorization.
type Flow interface {
	Begin(ctx context.Context, email, returnTo string) (*vault.BeginResult, error)
	Complete(ctx context.Context, code, state string) (string, error)
}

// Handler wires the delegated authorization endpoints to the vault flow.
type Handler struct {
	flow   Flow
	logger *slog.Logger

	// defaultReturnTo is where the callback redirects when the begin phase
	// recorded no destination.
	defaultReturnTo string
}

// New constructs a delegated-auth handler.
func New(flow Flow, logger *slog.Logger, defaultReturnTo string) *Handler {
	return &Handler{flow: flow, logger: logger, defaultReturnTo: defaultReturnTo}
}

// Register mounts the delegated authorization endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/auth/delegated/begin", h.HandleBegin)
	r.Get("/auth/delegated/callback", h.HandleCallback)
}

// HandleBegin handles GET /auth/delegated/begin requests and redirects the
// client to the provider consent screen.
func (h *Handler) HandleBegin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	email := strings.TrimSpace(r.URL.Query().Get("email"))
	returnTo := r.URL.Query().Get("return_to")
	if returnTo != "" && !isRelativeURL(returnTo) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "return_to must be a relative path"))
		return
	}

	result, err := h.flow.Begin(ctx, email, returnTo)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "delegated authorization begun",
		"request_id", requestcontext.RequestID(ctx),
		"email", email,
	)

	http.Redirect(w, r, result.RedirectURL, http.StatusFound)
}

// HandleCallback handles GET /auth/delegated/callback requests from the
// provider.
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	query := r.URL.Query()
	if provErr := query.Get("error"); provErr != "" {
		h.logger.WarnContext(ctx, "provider refused delegated authorization",
			"request_id", requestID,
			"provider_error", provErr,
		)
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeAuthorizationDenied, "provider refused authorization: %s", provErr))
		return
	}

	returnTo, err := h.flow.Complete(ctx, query.Get("code"), query.Get("state"))
	if err != nil {
		h.logger.WarnContext(ctx, "delegated authorization failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	if returnTo == "" || !isRelativeURL(returnTo) {
		returnTo = h.defaultReturnTo
	}
	http.Redirect(w, r, returnTo, http.StatusFound)
}

// isRelativeURL accepts only same-origin path redirects, closing the open
// redirect hole on the callback.
func isRelativeURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == "" && strings.HasPrefix(u.Path, "/")
}
