// Package handler exposes the access decision over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vidgate/internal/access"
	"vidgate/pkg/platform/httputil"
	"vidgate/pkg/requestcontext"
)

// Service defines the interface for access decisions.
type Service interface {
	Issue(ctx context.Context, req access.IssueRequest) (*access.IssueResult, error)
}

// Handler wires the access endpoint to the access service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an access handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the access endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/videos/{videoID}/access", h.HandleRequestAccess)
}

// HandleRequestAccess handles POST /videos/{videoID}/access requests.
func (h *Handler) HandleRequestAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[RequestAccessRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := req.ParsePathVideoID(chi.URLParam(r, "videoID")); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Issue(ctx, req.ToDomain())
	if err != nil {
		h.logger.WarnContext(ctx, "access request refused",
			"request_id", requestID,
			"video_id", req.ParsedVideoID().String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "access granted",
		"request_id", requestID,
		"video_id", req.ParsedVideoID().String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromIssueResult(result))
}
