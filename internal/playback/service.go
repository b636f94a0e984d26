package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"vidgate/internal/access/proof"
	"vidgate/internal/audit"
	"vidgate/internal/enrollment"
	"vidgate/internal/platform/metrics"
	id "vidgate/pkg/domain"
	dErrors "vidgate/pkg/domain-errors"
	"vidgate/pkg/requestcontext"
)

// ProofVerifier checks an access proof and returns its claims.
type ProofVerifier interface {
	Verify(ctx context.Context, token string) (*proof.Claims, error)
}

// completedThreshold is the completion percentage at or above which a view
// counts as completed in reporting.
const completedThreshold = 90.0

// TrackRequest reports one playback event against a proof.
type TrackRequest struct {
	Proof             string
	DurationSeconds   int
	CompletionPercent float64
}

// Service consumes view quota against validated proofs and serves the
// reporting rollups.
type Service struct {
	verifier ProofVerifier
	quotas   QuotaStore
	oracle   enrollment.Oracle
	auditLog audit.Store

	logger   *slog.Logger
	auditPub *audit.Publisher
	metrics  *metrics.Metrics
	tracer   trace.Tracer
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

// WithEnrollmentOracle enables the soft entitlement re-check on Track. The
// re-check is advisory: an anomaly is audited, never blocking, because the
// proof already embodies a positive decision for its whole lifetime.
func WithEnrollmentOracle(oracle enrollment.Oracle) Option {
	return func(s *Service) { s.oracle = oracle }
}

func New(verifier ProofVerifier, quotas QuotaStore, auditLog audit.Store, opts ...Option) (*Service, error) {
	if verifier == nil || quotas == nil || auditLog == nil {
		return nil, fmt.Errorf("verifier, quota store and audit store are required")
	}

	svc := &Service{
		verifier: verifier,
		quotas:   quotas,
		auditLog: auditLog,
		tracer:   otel.Tracer("vidgate/playback"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Track validates the proof, consumes one view, and records the event.
//
// Denials are precise: a bad or expired proof is CodeInvalidToken, a missing
// quota is CodeNotFound, and an exhausted one is CodeQuotaExceeded with zero
// side effects on the counter.
func (s *Service) Track(ctx context.Context, req TrackRequest) (*TrackResult, error) {
	ctx, span := s.tracer.Start(ctx, "playback.Track")
	defer span.End()

	if err := validateTrackRequest(req); err != nil {
		return nil, err
	}

	claims, err := s.verifier.Verify(ctx, req.Proof)
	if err != nil {
		s.deniedProof(ctx, audit.ActionPlaybackTracked)
		return nil, err
	}

	videoID, courseID, err := parseScope(claims)
	if err != nil {
		s.deniedProof(ctx, audit.ActionPlaybackTracked)
		return nil, err
	}
	span.SetAttributes(attribute.String("video_id", videoID.String()))

	s.recheckEnrollment(ctx, videoID, courseID, claims.Email)

	quota, err := s.quotas.Consume(ctx, videoID, claims.Email)
	if err != nil {
		switch {
		case errors.Is(err, ErrQuotaNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "no playback quota for this proof")
		case errors.Is(err, ErrQuotaExhausted):
			if s.metrics != nil {
				s.metrics.QuotaExceeded.Inc()
			}
			audit.LogAudit(ctx, s.logger, s.auditPub, audit.Entry{
				VideoID:         videoID,
				CourseID:        courseID,
				Email:           claims.Email,
				Action:          audit.ActionPlaybackTracked,
				Outcome:         audit.OutcomeDenied,
				Reason:          string(dErrors.CodeQuotaExceeded),
				NetworkOrigin:   requestcontext.ClientIP(ctx),
				ClientSignature: requestcontext.UserAgent(ctx),
			})
			return nil, dErrors.New(dErrors.CodeQuotaExceeded, "view quota exhausted")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume view quota")
		}
	}

	audit.LogAudit(ctx, s.logger, s.auditPub, audit.Entry{
		VideoID:           videoID,
		CourseID:          courseID,
		Email:             claims.Email,
		Action:            audit.ActionPlaybackTracked,
		Outcome:           audit.OutcomeGranted,
		DurationSeconds:   req.DurationSeconds,
		CompletionPercent: req.CompletionPercent,
		NetworkOrigin:     requestcontext.ClientIP(ctx),
		ClientSignature:   requestcontext.UserAgent(ctx),
	})
	if s.metrics != nil {
		s.metrics.PlaybackTracked.Inc()
		s.metrics.ViewDurationSecs.Observe(float64(req.DurationSeconds))
	}

	return &TrackResult{RemainingViews: quota.Remaining()}, nil
}

// Validate checks a proof without consuming quota and reports the remaining
// allowance alongside the claims.
func (s *Service) Validate(ctx context.Context, token string) (*proof.Claims, int, error) {
	claims, err := s.verifier.Verify(ctx, token)
	if err != nil {
		s.deniedProof(ctx, audit.ActionProofValidated)
		return nil, 0, err
	}

	videoID, courseID, err := parseScope(claims)
	if err != nil {
		s.deniedProof(ctx, audit.ActionProofValidated)
		return nil, 0, err
	}

	remaining := 0
	if quota, qErr := s.quotas.Get(ctx, videoID, claims.Email); qErr == nil {
		remaining = quota.Remaining()
	}

	audit.LogAudit(ctx, s.logger, s.auditPub, audit.Entry{
		VideoID:         videoID,
		CourseID:        courseID,
		Email:           claims.Email,
		Action:          audit.ActionProofValidated,
		Outcome:         audit.OutcomeGranted,
		NetworkOrigin:   requestcontext.ClientIP(ctx),
		ClientSignature: requestcontext.UserAgent(ctx),
	})

	return claims, remaining, nil
}

// Stats rolls up consumption for one video across all viewers. Duration and
// completion come from the audit trail, counters from the quota store.
func (s *Service) Stats(ctx context.Context, videoID id.VideoID) (*VideoStats, error) {
	ctx, span := s.tracer.Start(ctx, "playback.Stats",
		trace.WithAttributes(attribute.String("video_id", videoID.String())))
	defer span.End()

	if videoID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "video_id is required")
	}

	quotas, err := s.quotas.ListByVideo(ctx, videoID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list playback quotas")
	}

	stats := &VideoStats{VideoID: videoID}
	for _, q := range quotas {
		stats.TotalViews += q.CurrentViews
		if q.CurrentViews > 0 {
			stats.UniqueViewers++
		}
	}

	entries, err := s.auditLog.ListByVideo(ctx, videoID, 0)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read audit trail")
	}
	for _, e := range entries {
		if e.Action != audit.ActionPlaybackTracked || e.Outcome != audit.OutcomeGranted {
			continue
		}
		stats.TotalDurationSeconds += e.DurationSeconds
		if e.CompletionPercent >= completedThreshold {
			stats.CompletedViews++
		}
	}

	return stats, nil
}

// deniedProof records a denial for a proof that failed verification. The
// proof's scope is unknown at this point, so the entry carries only the
// request metadata.
func (s *Service) deniedProof(ctx context.Context, action audit.Action) {
	if s.metrics != nil {
		s.metrics.AccessDenied.WithLabelValues(string(dErrors.CodeInvalidToken)).Inc()
	}
	audit.LogAudit(ctx, s.logger, s.auditPub, audit.Entry{
		Action:          action,
		Outcome:         audit.OutcomeDenied,
		Reason:          string(dErrors.CodeInvalidToken),
		NetworkOrigin:   requestcontext.ClientIP(ctx),
		ClientSignature: requestcontext.UserAgent(ctx),
	})
}

// recheckEnrollment is advisory only. A lapsed entitlement inside the proof
// window is an anomaly worth a trail entry, not a reason to interrupt a
// viewer mid-video.
func (s *Service) recheckEnrollment(ctx context.Context, videoID id.VideoID, courseID id.CourseID, email string) {
	if s.oracle == nil {
		return
	}

	enr, err := s.oracle.Lookup(ctx, courseID, email)
	if err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "enrollment re-check failed", "course_id", courseID.String(), "error", err)
		}
		return
	}
	if enr != nil && enr.ActivePaid() {
		return
	}

	audit.LogAudit(ctx, s.logger, s.auditPub, audit.Entry{
		VideoID:  videoID,
		CourseID: courseID,
		Email:    email,
		Action:   audit.ActionEnrollmentRecheck,
		Outcome:  audit.OutcomeDenied,
		Reason:   "enrollment no longer active and paid",
	})
}

func parseScope(claims *proof.Claims) (id.VideoID, id.CourseID, error) {
	videoID, err := id.ParseVideoID(claims.VideoID)
	if err != nil {
		return id.VideoID{}, id.CourseID{}, dErrors.New(dErrors.CodeInvalidToken, "proof carries a malformed video scope")
	}
	courseID, err := id.ParseCourseID(claims.CourseID)
	if err != nil {
		return id.VideoID{}, id.CourseID{}, dErrors.New(dErrors.CodeInvalidToken, "proof carries a malformed course scope")
	}
	return videoID, courseID, nil
}

func validateTrackRequest(req TrackRequest) error {
	if strings.TrimSpace(req.Proof) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "proof is required")
	}
	if req.DurationSeconds < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "duration_seconds must not be negative")
	}
	if req.CompletionPercent < 0 || req.CompletionPercent > 100 {
		return dErrors.New(dErrors.CodeInvalidInput, "completion_percent must be between 0 and 100")
	}
	return nil
}
