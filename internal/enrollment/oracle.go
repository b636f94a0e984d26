// Package enrollment exposes the entitlement authority. The oracle answers
// whether an identity currently holds a paid, active right to a course; this
// subsystem reads enrollment state and never writes it.
package enrollment

import (
	"context"

	id "vidgate/pkg/domain"
)

// Status is the enrollment workflow state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusEnrolled  Status = "enrolled"
	StatusCancelled Status = "cancelled"
)

// PaymentStatus is the payment workflow state.
type PaymentStatus string

const (
	PaymentPending             PaymentStatus = "pending"
	PaymentPendingVerification PaymentStatus = "pending_verification"
	PaymentPaid                PaymentStatus = "paid"
	PaymentFailed              PaymentStatus = "failed"
)

// Enrollment is the read-only entitlement record.
type Enrollment struct {
	ID            id.EnrollmentID
	CourseID      id.CourseID
	Email         string
	Status        Status
	PaymentStatus PaymentStatus
}

// ActivePaid reports whether this enrollment currently entitles its holder.
// Confirmed or enrolled status with settled payment; nothing else counts.
func (e *Enrollment) ActivePaid() bool {
	if e == nil {
		return false
	}
	statusOK := e.Status == StatusConfirmed || e.Status == StatusEnrolled
	return statusOK && e.PaymentStatus == PaymentPaid
}

// Oracle is the external entitlement authority. A missing enrollment returns
// (nil, nil); transport failures return a CodeUpstream error and must be
// treated as a denial by callers (fail closed).
type Oracle interface {
	Lookup(ctx context.Context, courseID id.CourseID, email string) (*Enrollment, error)
}
