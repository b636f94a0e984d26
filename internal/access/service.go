// Package access is the single authorization decision point: it decides, per
// request, whether a viewer may watch a video right now, and mints the
// short-lived proof of a positive decision.
package access

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"vidgate/internal/access/proof"
	"vidgate/internal/audit"
	"vidgate/internal/catalog"
	"vidgate/internal/enrollment"
	"vidgate/internal/fingerprint"
	"vidgate/internal/platform/metrics"
	"vidgate/internal/playback"
	id "vidgate/pkg/domain"
	dErrors "vidgate/pkg/domain-errors"
	"vidgate/pkg/requestcontext"
)

// IssueRequest identifies the viewer and the content being requested.
type IssueRequest struct {
	VideoID  id.VideoID
	CourseID id.CourseID
	Email    string
	UserID   id.UserID // optional
}

// IssueResult carries the minted proof and the playback allowance.
type IssueResult struct {
	Proof        string
	EmbedURL     string
	ExpiresAt    time.Time
	MaxViews     int
	CurrentViews int
}

// Service orchestrates catalog, oracle and fingerprint checks into one
// decision, and mints the proof on success.
type Service struct {
	catalog     catalog.Catalog
	oracle      enrollment.Oracle
	signer      *proof.Signer
	quotas      playback.QuotaStore
	fingerprint *fingerprint.Generator

	defaultMaxViews int

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

func WithDefaultMaxViews(n int) Option {
	return func(s *Service) { s.defaultMaxViews = n }
}

func New(cat catalog.Catalog, oracle enrollment.Oracle, signer *proof.Signer, quotas playback.QuotaStore, fp *fingerprint.Generator, opts ...Option) (*Service, error) {
	if cat == nil || oracle == nil || signer == nil || quotas == nil || fp == nil {
		return nil, fmt.Errorf("catalog, oracle, signer, quota store and fingerprint generator are required")
	}

	svc := &Service{
		catalog:         cat,
		oracle:          oracle,
		signer:          signer,
		quotas:          quotas,
		fingerprint:     fp,
		defaultMaxViews: 3,
		tracer:          otel.Tracer("vidgate/access"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Issue runs the authorization decision for one (viewer, video) pair.
//
// Failures while resolving content or entitlement still write exactly one
// denied audit entry with the specific reason before the error is returned;
// denial is never silent. An unreachable oracle or catalog is a denial, not
// a grant.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (*IssueResult, error) {
	ctx, span := s.tracer.Start(ctx, "access.Issue",
		trace.WithAttributes(attribute.String("video_id", req.VideoID.String())))
	defer span.End()

	if err := validateIssueRequest(req); err != nil {
		// Caller bug, not a security event; no audit entry.
		return nil, err
	}

	video, course, err := s.resolveContent(ctx, req.VideoID, req.CourseID)
	if err != nil {
		s.denied(ctx, req, err)
		return nil, err
	}

	enr, err := s.checkEntitlement(ctx, req.CourseID, req.Email)
	if err != nil {
		s.denied(ctx, req, err)
		return nil, err
	}

	fp := s.fingerprint.Fingerprint(requestcontext.ClientIP(ctx), requestcontext.UserAgent(ctx))

	token, expiresAt, err := s.signer.Mint(ctx, video.ID, course.ID, req.Email, req.UserID, enr.ID)
	if err != nil {
		return nil, err
	}

	quota, err := s.quotas.GetOrCreate(ctx, video.ID, req.Email, s.defaultMaxViews, expiresAt)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to provision playback quota")
	}

	audit.LogAudit(ctx, s.logger, s.auditPub, audit.Entry{
		VideoID:         req.VideoID,
		CourseID:        req.CourseID,
		Email:           req.Email,
		UserID:          req.UserID,
		Action:          audit.ActionAccessRequested,
		Outcome:         audit.OutcomeGranted,
		NetworkOrigin:   requestcontext.ClientIP(ctx),
		ClientSignature: requestcontext.UserAgent(ctx),
		Fingerprint:     fp,
	})
	if s.metrics != nil {
		s.metrics.ProofsIssued.Inc()
	}

	return &IssueResult{
		Proof:        token,
		EmbedURL:     video.EmbedURL,
		ExpiresAt:    expiresAt,
		MaxViews:     quota.MaxViews,
		CurrentViews: quota.CurrentViews,
	}, nil
}

// Validate checks a proof's signature and expiry and returns its claims.
// Quota state plays no part here. A rejected proof still leaves a denied
// audit entry; only the empty-input case is silent.
func (s *Service) Validate(ctx context.Context, token string) (*proof.Claims, error) {
	if token == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "proof is required")
	}

	claims, err := s.signer.Verify(ctx, token)
	if err != nil {
		reason := string(dErrors.CodeOf(err))
		audit.LogAudit(ctx, s.logger, s.auditPub, audit.Entry{
			Action:          audit.ActionProofValidated,
			Outcome:         audit.OutcomeDenied,
			Reason:          reason,
			NetworkOrigin:   requestcontext.ClientIP(ctx),
			ClientSignature: requestcontext.UserAgent(ctx),
		})
		if s.metrics != nil {
			s.metrics.AccessDenied.WithLabelValues(reason).Inc()
		}
		return nil, err
	}
	return claims, nil
}

// resolveContent loads video and course concurrently; both must exist and be
// active, and the video must belong to the requested course.
func (s *Service) resolveContent(ctx context.Context, videoID id.VideoID, courseID id.CourseID) (*catalog.Video, *catalog.Course, error) {
	var (
		video  *catalog.Video
		course *catalog.Course
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.catalog.GetVideo(gctx, videoID)
		if err != nil {
			return err
		}
		video = v
		return nil
	})
	g.Go(func() error {
		c, err := s.catalog.GetCourse(gctx, courseID)
		if err != nil {
			return err
		}
		course = c
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if video.CourseID != courseID {
		return nil, nil, dErrors.New(dErrors.CodeNotFound, "video does not belong to course")
	}
	if video.Status != catalog.StatusActive {
		return nil, nil, dErrors.New(dErrors.CodeUnavailable, "video is not active")
	}
	if course.Status != catalog.StatusActive {
		return nil, nil, dErrors.New(dErrors.CodeUnavailable, "course is not active")
	}
	return video, course, nil
}

// checkEntitlement asks the oracle and fails closed on any ambiguity.
func (s *Service) checkEntitlement(ctx context.Context, courseID id.CourseID, email string) (*enrollment.Enrollment, error) {
	enr, err := s.oracle.Lookup(ctx, courseID, email)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUpstream, "enrollment oracle unavailable")
	}
	if enr == nil || !enr.ActivePaid() {
		return nil, dErrors.New(dErrors.CodeAuthorizationDenied, "no active paid enrollment")
	}
	return enr, nil
}

func (s *Service) denied(ctx context.Context, req IssueRequest, cause error) {
	reason := string(dErrors.CodeOf(cause))
	audit.LogAudit(ctx, s.logger, s.auditPub, audit.Entry{
		VideoID:         req.VideoID,
		CourseID:        req.CourseID,
		Email:           req.Email,
		UserID:          req.UserID,
		Action:          audit.ActionAccessRequested,
		Outcome:         audit.OutcomeDenied,
		Reason:          reason,
		NetworkOrigin:   requestcontext.ClientIP(ctx),
		ClientSignature: requestcontext.UserAgent(ctx),
	})
	if s.metrics != nil {
		s.metrics.AccessDenied.WithLabelValues(reason).Inc()
	}
}

func validateIssueRequest(req IssueRequest) error {
	if req.VideoID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "video_id is required")
	}
	if req.CourseID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "course_id is required")
	}
	if req.Email == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "email is required")
	}
	return nil
}
