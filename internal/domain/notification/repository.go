package notification

import "context"

// Repository defines persistence operations for AdminNotification entities.
type Repository interface {
	Create(ctx context.Context, n *AdminNotification) error
	GetByID(ctx context.Context, id int64) (*AdminNotification, error)
	ListOpen(ctx context.Context) ([]*AdminNotification, error) // unread + read, newest first
	ListBySubmission(ctx context.Context, submissionID int64) ([]*AdminNotification, error)
	MarkRead(ctx context.Context, id int64) error
	MarkResolved(ctx context.Context, id int64) error
}
