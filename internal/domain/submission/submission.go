package submission

import (
	"database/sql"
	"time"
)

// Status represents the lifecycle state of a submission.
// Corresponds to the 'status' column of the 'submissions' table.
type Status string

const (
	StatusPending       Status = "pending"
	StatusApproved      Status = "approved"
	StatusUrgentFlagged Status = "urgent_flagged"
	StatusSending       Status = "sending"
	StatusAutoSent      Status = "auto_sent"
	StatusCompleted     Status = "completed"
	StatusHold          Status = "hold"
	StatusCancelled     Status = "cancelled"
)

// IsTerminal reports whether no further transitions are allowed from s.
func (s Status) IsTerminal() bool {
	return s == StatusAutoSent || s == StatusCompleted || s == StatusCancelled
}

// TaskType identifies the kind of guidance the teacher asked for.
type TaskType string

const (
	TaskDifferentiation   TaskType = "differentiation"
	TaskTier2Intervention TaskType = "tier2_intervention"
)

// Severity is the teacher's own classification of the concern.
type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeverityUrgent   Severity = "urgent"
)

// Submission is one anonymized concern report awaiting AI-assisted
// intervention text and eventual delivery back to the enrolled teacher.
type Submission struct {
	ID        int64
	Reference string // opaque token shared with the submitting teacher
	TeacherID int64

	// Anonymized student descriptors.
	StudentFirstName   string
	StudentLastInitial string
	StudentAge         sql.NullInt32
	GradeLevel         string

	TaskType           TaskType
	Severity           Severity
	ConcernTypes       []string
	ConcernDescription string
	ActionsTaken       []string

	AIDraft            sql.NullString
	ReviewedText       sql.NullString
	SentText           sql.NullString
	DisclaimerAttached bool

	// UrgentFlag marks the submission for mandatory human review. Urgent
	// submissions are never eligible for unattended auto-send.
	UrgentFlag bool

	Status          Status
	AutoSendTime    sql.NullTime
	SentAt          sql.NullTime
	AdminReviewedBy sql.NullString

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DeliveryText returns the text to dispatch: the admin-edited version when
// present, otherwise the AI draft.
func (s *Submission) DeliveryText() string {
	if s.ReviewedText.Valid && s.ReviewedText.String != "" {
		return s.ReviewedText.String
	}
	return s.AIDraft.String
}
