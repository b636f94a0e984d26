// Package proof mints and verifies the short-lived access proof: a signed,
// scoped assertion that one authorization decision was positive. Proofs are
// never persisted verbatim; only the signature and expiry are enforced at
// validation time.
package proof

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "vidgate/pkg/domain"
	dErrors "vidgate/pkg/domain-errors"
	"vidgate/pkg/requestcontext"
)

// Claims scope a proof to one video, course and identity. The enrollment ID
// records which entitlement the decision was made against.
type Claims struct {
	VideoID      string `json:"video_id"`
	CourseID     string `json:"course_id"`
	Email        string `json:"email"`
	UserID       string `json:"user_id,omitempty"`
	EnrollmentID string `json:"enrollment_id"`
	jwt.RegisteredClaims
}

// Signer mints and verifies proofs with a shared HMAC key. A single service
// both issues and validates, so an asymmetric scheme buys nothing here.
type Signer struct {
	key []byte
	ttl time.Duration
}

// NewSigner builds a signer. ttl is the fixed proof lifetime; issuance sets
// exp = iat + ttl exactly.
func NewSigner(signingKey string, ttl time.Duration) *Signer {
	return &Signer{key: []byte(signingKey), ttl: ttl}
}

// TTL returns the configured proof lifetime.
func (s *Signer) TTL() time.Duration {
	return s.ttl
}

// Mint issues a proof for the given scope. The issue instant comes from the
// request context so expiry math is deterministic under test.
func (s *Signer) Mint(ctx context.Context, videoID id.VideoID, courseID id.CourseID, email string, userID id.UserID, enrollmentID id.EnrollmentID) (token string, expiresAt time.Time, err error) {
	issuedAt := requestcontext.Now(ctx)
	expiresAt = issuedAt.Add(s.ttl)

	claims := Claims{
		VideoID:      videoID.String(),
		CourseID:     courseID.String(),
		Email:        email,
		EnrollmentID: enrollmentID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if !userID.IsNil() {
		claims.UserID = userID.String()
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign access proof")
	}
	return token, expiresAt, nil
}

// Verify checks signature and expiry, nothing else. Any tampering, an
// unexpected signing method, or a past-expiry proof yields CodeInvalidToken.
func (s *Signer) Verify(ctx context.Context, token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return s.key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return requestcontext.Now(ctx) }),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidToken, "invalid access proof")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeInvalidToken, "invalid access proof")
	}
	return claims, nil
}
