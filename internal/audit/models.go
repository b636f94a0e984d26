// Package audit provides the append-only decision trail. Every access
// decision and every delegated-credential lifecycle transition lands here;
// nothing in this subsystem mutates or deletes an entry after the fact.
package audit

import (
	"time"

	"github.com/google/uuid"

	id "vidgate/pkg/domain"
)

// Action names the operation that produced an entry.
type Action string

const (
	// Access decisions.
	ActionAccessRequested Action = "access_requested"
	ActionProofValidated  Action = "proof_validated"
	ActionPlaybackTracked Action = "playback_tracked"

	// Anomaly signals. Recorded, never blocking.
	ActionEnrollmentRecheck Action = "enrollment_recheck"

	// Delegated credential lifecycle.
	ActionCredentialSaved     Action = "credential_saved"
	ActionCredentialRefreshed Action = "credential_refreshed"
	ActionCredentialPurged    Action = "credential_purged"
	ActionCredentialDeleted   Action = "credential_deleted"
	ActionAuthorizationBegun  Action = "delegated_authorization_begun"
	ActionAuthorizationDone   Action = "delegated_authorization_completed"
)

// Outcome records which way a decision went.
type Outcome string

const (
	OutcomeGranted Outcome = "granted"
	OutcomeDenied  Outcome = "denied"
)

// Entry is one immutable record in the decision trail.
type Entry struct {
	ID       uuid.UUID
	VideoID  id.VideoID
	CourseID id.CourseID
	Email    string
	UserID   id.UserID // nil UUID when the caller supplied no user

	Action  Action
	Outcome Outcome
	Reason  string

	// Playback consumption, zero outside playback_tracked entries.
	DurationSeconds   int
	CompletionPercent float64

	Timestamp       time.Time
	NetworkOrigin   string
	ClientSignature string
	Fingerprint     string
	RequestID       string
}
