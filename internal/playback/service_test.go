package playback

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidgate/internal/access/proof"
	"vidgate/internal/audit"
	"vidgate/internal/enrollment"
	id "vidgate/pkg/domain"
	dErrors "vidgate/pkg/domain-errors"
	"vidgate/pkg/requestcontext"
)

type playbackFixture struct {
	svc        *Service
	signer     *proof.Signer
	quotas     *InMemoryQuotaStore
	oracle     *enrollment.InMemoryOracle
	auditStore *audit.InMemoryStore

	videoID      id.VideoID
	courseID     id.CourseID
	enrollmentID id.EnrollmentID
}

func newPlaybackFixture(t *testing.T) *playbackFixture {
	t.Helper()

	f := &playbackFixture{
		signer:       proof.NewSigner("test-signing-key", time.Hour),
		quotas:       NewInMemoryQuotaStore(),
		oracle:       enrollment.NewInMemory(),
		auditStore:   audit.NewInMemoryStore(),
		videoID:      id.VideoID(uuid.New()),
		courseID:     id.CourseID(uuid.New()),
		enrollmentID: id.EnrollmentID(uuid.New()),
	}
	f.oracle.Put(enrollment.Enrollment{
		ID:            f.enrollmentID,
		CourseID:      f.courseID,
		Email:         "viewer@example.com",
		Status:        enrollment.StatusEnrolled,
		PaymentStatus: enrollment.PaymentPaid,
	})

	svc, err := New(f.signer, f.quotas, f.auditStore,
		WithEnrollmentOracle(f.oracle),
		WithAuditPublisher(audit.NewPublisher(f.auditStore)),
	)
	require.NoError(t, err)
	f.svc = svc
	return f
}

// mintProof issues a proof and provisions the matching quota, mirroring what
// the access service does on a granted request.
func (f *playbackFixture) mintProof(t *testing.T, ctx context.Context, maxViews int) string {
	t.Helper()
	token, expiresAt, err := f.signer.Mint(ctx, f.videoID, f.courseID, "viewer@example.com", id.UserID{}, f.enrollmentID)
	require.NoError(t, err)
	_, err = f.quotas.GetOrCreate(ctx, f.videoID, "viewer@example.com", maxViews, expiresAt)
	require.NoError(t, err)
	return token
}

func TestTrack(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	t.Run("three views count down, the fourth is refused", func(t *testing.T) {
		f := newPlaybackFixture(t)
		token := f.mintProof(t, ctx, 3)

		for _, wantRemaining := range []int{2, 1, 0} {
			res, err := f.svc.Track(ctx, TrackRequest{Proof: token, DurationSeconds: 60, CompletionPercent: 10})
			require.NoError(t, err)
			assert.Equal(t, wantRemaining, res.RemainingViews)
		}

		_, err := f.svc.Track(ctx, TrackRequest{Proof: token})
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeQuotaExceeded))

		q, err := f.quotas.Get(ctx, f.videoID, "viewer@example.com")
		require.NoError(t, err)
		assert.Equal(t, 3, q.CurrentViews, "refused track must not move the counter")

		var denied int
		for _, e := range f.auditStore.All() {
			if e.Action == audit.ActionPlaybackTracked && e.Outcome == audit.OutcomeDenied {
				denied++
				assert.Equal(t, string(dErrors.CodeQuotaExceeded), e.Reason)
			}
		}
		assert.Equal(t, 1, denied, "exactly one denied trail entry")
	})

	t.Run("tampered proof is refused without touching the quota", func(t *testing.T) {
		f := newPlaybackFixture(t)
		token := f.mintProof(t, ctx, 3)

		raw := []byte(token)
		raw[len(raw)/2] ^= 0x01
		_, err := f.svc.Track(ctx, TrackRequest{Proof: string(raw)})
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeInvalidToken))

		q, err := f.quotas.Get(ctx, f.videoID, "viewer@example.com")
		require.NoError(t, err)
		assert.Equal(t, 0, q.CurrentViews)

		entries := f.auditStore.All()
		require.Len(t, entries, 1, "rejected proof still lands in the trail")
		assert.Equal(t, audit.ActionPlaybackTracked, entries[0].Action)
		assert.Equal(t, audit.OutcomeDenied, entries[0].Outcome)
		assert.Equal(t, string(dErrors.CodeInvalidToken), entries[0].Reason)
	})

	t.Run("expired proof is refused", func(t *testing.T) {
		f := newPlaybackFixture(t)
		token := f.mintProof(t, ctx, 3)

		later := requestcontext.WithTime(context.Background(), now.Add(time.Hour+time.Minute))
		_, err := f.svc.Track(later, TrackRequest{Proof: token})
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeInvalidToken))

		entries := f.auditStore.All()
		require.Len(t, entries, 1)
		assert.Equal(t, audit.OutcomeDenied, entries[0].Outcome)
		assert.Equal(t, string(dErrors.CodeInvalidToken), entries[0].Reason)
	})

	t.Run("valid proof without a quota reports not found", func(t *testing.T) {
		f := newPlaybackFixture(t)
		token, _, err := f.signer.Mint(ctx, f.videoID, f.courseID, "viewer@example.com", id.UserID{}, f.enrollmentID)
		require.NoError(t, err)

		_, err = f.svc.Track(ctx, TrackRequest{Proof: token})
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
	})

	t.Run("cancelled enrollment still tracks inside the proof window", func(t *testing.T) {
		f := newPlaybackFixture(t)
		token := f.mintProof(t, ctx, 3)

		f.oracle.Put(enrollment.Enrollment{
			ID:            f.enrollmentID,
			CourseID:      f.courseID,
			Email:         "viewer@example.com",
			Status:        enrollment.StatusCancelled,
			PaymentStatus: enrollment.PaymentPaid,
		})

		res, err := f.svc.Track(ctx, TrackRequest{Proof: token, DurationSeconds: 30})
		require.NoError(t, err, "re-check is advisory, the proof still grants")
		assert.Equal(t, 2, res.RemainingViews)

		var anomaly bool
		for _, e := range f.auditStore.All() {
			if e.Action == audit.ActionEnrollmentRecheck {
				anomaly = true
			}
		}
		assert.True(t, anomaly, "lapsed entitlement lands in the trail")
	})

	t.Run("unreachable oracle never blocks tracking", func(t *testing.T) {
		f := newPlaybackFixture(t)
		token := f.mintProof(t, ctx, 3)
		f.oracle.Err = dErrors.New(dErrors.CodeUpstream, "oracle unreachable")

		_, err := f.svc.Track(ctx, TrackRequest{Proof: token})
		require.NoError(t, err)
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		f := newPlaybackFixture(t)
		for name, req := range map[string]TrackRequest{
			"empty proof":         {Proof: ""},
			"negative duration":   {Proof: "x", DurationSeconds: -1},
			"completion over 100": {Proof: "x", CompletionPercent: 101},
		} {
			_, err := f.svc.Track(ctx, req)
			require.Error(t, err, name)
			assert.True(t, dErrors.Is(err, dErrors.CodeInvalidInput), name)
		}
	})
}

func TestValidate(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	t.Run("reports claims and remaining views without consuming", func(t *testing.T) {
		f := newPlaybackFixture(t)
		token := f.mintProof(t, ctx, 3)

		claims, remaining, err := f.svc.Validate(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, f.videoID.String(), claims.VideoID)
		assert.Equal(t, "viewer@example.com", claims.Email)
		assert.Equal(t, 3, remaining)

		q, err := f.quotas.Get(ctx, f.videoID, "viewer@example.com")
		require.NoError(t, err)
		assert.Equal(t, 0, q.CurrentViews)
	})

	t.Run("garbage token is refused and audited", func(t *testing.T) {
		f := newPlaybackFixture(t)
		_, _, err := f.svc.Validate(ctx, "not-a-proof")
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeInvalidToken))

		entries := f.auditStore.All()
		require.Len(t, entries, 1)
		assert.Equal(t, audit.ActionProofValidated, entries[0].Action)
		assert.Equal(t, audit.OutcomeDenied, entries[0].Outcome)
		assert.Equal(t, string(dErrors.CodeInvalidToken), entries[0].Reason)
	})
}

func TestStats(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	f := newPlaybackFixture(t)
	token := f.mintProof(t, ctx, 3)

	// A second viewer with one completed view.
	otherEnrollment := id.EnrollmentID(uuid.New())
	f.oracle.Put(enrollment.Enrollment{
		ID:            otherEnrollment,
		CourseID:      f.courseID,
		Email:         "other@example.com",
		Status:        enrollment.StatusConfirmed,
		PaymentStatus: enrollment.PaymentPaid,
	})
	otherToken, expiresAt, err := f.signer.Mint(ctx, f.videoID, f.courseID, "other@example.com", id.UserID{}, otherEnrollment)
	require.NoError(t, err)
	_, err = f.quotas.GetOrCreate(ctx, f.videoID, "other@example.com", 3, expiresAt)
	require.NoError(t, err)

	_, err = f.svc.Track(ctx, TrackRequest{Proof: token, DurationSeconds: 120, CompletionPercent: 40})
	require.NoError(t, err)
	_, err = f.svc.Track(ctx, TrackRequest{Proof: token, DurationSeconds: 300, CompletionPercent: 95})
	require.NoError(t, err)
	_, err = f.svc.Track(ctx, TrackRequest{Proof: otherToken, DurationSeconds: 600, CompletionPercent: 100})
	require.NoError(t, err)

	stats, err := f.svc.Stats(ctx, f.videoID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalViews)
	assert.Equal(t, 2, stats.UniqueViewers)
	assert.Equal(t, 2, stats.CompletedViews)
	assert.Equal(t, 1020, stats.TotalDurationSeconds)

	t.Run("unknown video rolls up to zero", func(t *testing.T) {
		stats, err := f.svc.Stats(ctx, id.VideoID(uuid.New()))
		require.NoError(t, err)
		assert.Zero(t, stats.TotalViews)
		assert.Zero(t, stats.UniqueViewers)
	})
}
