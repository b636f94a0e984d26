// Package handler exposes playback tracking, proof validation and the stats
// rollup over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vidgate/internal/access/proof"
	"vidgate/internal/playback"
	id "vidgate/pkg/domain"
	"vidgate/pkg/platform/httputil"
	"vidgate/pkg/requestcontext"
)

// Service defines the interface for playback operations.
type Service interface {
	Track(ctx context.Context, req playback.TrackRequest) (*playback.TrackResult, error)
	Validate(ctx context.Context, token string) (*proof.Claims, int, error)
	Stats(ctx context.Context, videoID id.VideoID) (*playback.VideoStats, error)
}

// Handler wires playback endpoints to the playback service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a playback handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts playback endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/playback/track", h.HandleTrack)
	r.Post("/playback/validate", h.HandleValidate)
	r.Get("/videos/{videoID}/stats", h.HandleStats)
}

// HandleTrack handles POST /playback/track requests.
func (h *Handler) HandleTrack(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[TrackRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Track(ctx, req.ToDomain())
	if err != nil {
		h.logger.WarnContext(ctx, "playback track refused",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "playback tracked",
		"request_id", requestID,
		"remaining_views", result.RemainingViews,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromTrackResult(result))
}

// HandleValidate handles POST /playback/validate requests.
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ValidateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	claims, remaining, err := h.service.Validate(ctx, req.Proof)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromClaims(claims, remaining))
}

// HandleStats handles GET /videos/{videoID}/stats requests.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	videoID, err := id.ParseVideoID(chi.URLParam(r, "videoID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	stats, err := h.service.Stats(ctx, videoID)
	if err != nil {
		h.logger.ErrorContext(ctx, "stats rollup failed",
			"request_id", requestcontext.RequestID(ctx),
			"video_id", videoID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromStats(stats))
}
