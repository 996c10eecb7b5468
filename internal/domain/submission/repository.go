package submission

import (
	"context"
	"time"
)

// Repository defines persistence operations for Submission entities,
// including the conditional-update primitives the auto-send pipeline relies
// on. The 'status' column is the single serialization point: claim, revert
// and mark-sent are all expressed as atomic conditional writes against it,
// never as read-modify-write in application code.
type Repository interface {
	Create(ctx context.Context, s *Submission) error
	GetByID(ctx context.Context, id int64) (*Submission, error)
	GetByReference(ctx context.Context, ref string) (*Submission, error)
	ListByTeacher(ctx context.Context, teacherID int64) ([]*Submission, error)

	// ListDueForAutoSend returns submissions matching the sweep eligibility
	// predicate (status pending or approved, not urgent, auto_send_time has
	// elapsed), oldest-due first.
	ListDueForAutoSend(ctx context.Context, now time.Time) ([]*Submission, error)

	// ListUrgent returns urgent-flagged submissions awaiting admin triage
	// (status pending or urgent_flagged).
	ListUrgent(ctx context.Context) ([]*Submission, error)

	// Claim atomically transitions an eligible submission to 'sending'. The
	// update succeeds only if the row still satisfies the eligibility
	// predicate at commit time, guaranteeing at most one claimant. A false
	// return with a nil error means "already claimed or no longer eligible";
	// callers move on without treating it as a failure.
	Claim(ctx context.Context, id int64, now time.Time) (bool, error)

	// ClaimForManualSend reserves a submission for an admin-initiated send.
	// Unlike Claim it accepts urgent-flagged and held submissions, but still
	// refuses rows that are mid-send or terminal.
	ClaimForManualSend(ctx context.Context, id int64) (bool, error)

	// RevertClaim is the compensating action for a failed send: 'sending'
	// back to 'pending', applied only if the row is still in 'sending' so a
	// concurrent admin decision is never overridden.
	RevertClaim(ctx context.Context, id int64) (bool, error)

	// MarkSent finalizes a claimed submission: records the delivered text and
	// timestamp, attaches the disclaimer marker and moves the row to
	// finalStatus ('auto_sent' for the sweep, 'completed' for manual sends).
	// Applies only if the row is still in 'sending'.
	MarkSent(ctx context.Context, id int64, finalStatus Status, sentText string, sentAt time.Time) error

	// SetReviewedText stores the admin-edited delivery text. Refused for rows
	// that are mid-send or terminal.
	SetReviewedText(ctx context.Context, id int64, reviewedText, reviewedBy string) (bool, error)

	// OverrideStatus applies an administrative transition (approved, hold,
	// cancelled). The update only lands if the row is still in an
	// overridable state (pending, approved, urgent_flagged, hold); a claim
	// that has already fired wins for that cycle.
	OverrideStatus(ctx context.Context, id int64, to Status, reviewedBy string) (bool, error)

	// ReclaimStale reverts submissions stuck in 'sending' since before the
	// cutoff back to 'pending'. Returns the number of rows reclaimed.
	ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error)
}
