package notification

import (
	"database/sql"
	"time"
)

// Type classifies what an admin notification is about.
type Type string

const (
	TypeUrgent   Type = "urgent"
	TypeReminder Type = "reminder"
	TypeFollowup Type = "followup"
)

// Status tracks admin handling of a notification.
type Status string

const (
	StatusUnread   Status = "unread"
	StatusRead     Status = "read"
	StatusResolved Status = "resolved"
)

// Priority of an admin notification.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// AdminNotification is an alert tied to a submission that needs admin
// attention. It holds a weak reference: deleting a notification must never
// cascade to the submission, and notifications are kept as an audit trail
// rather than auto-deleted.
type AdminNotification struct {
	ID           int64
	SubmissionID int64
	Type         Type
	Title        string
	Message      sql.NullString
	Priority     Priority
	Status       Status
	AssignedTo   sql.NullString // admin identifier, unassigned when null
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
