package teacher

import (
	"context"
	"time"
)

// Repository defines the operations for persisting and retrieving
// EnrolledTeacher entities.
type Repository interface {
	Create(ctx context.Context, t *EnrolledTeacher) error
	GetByID(ctx context.Context, id int64) (*EnrolledTeacher, error)
	GetByEmail(ctx context.Context, email string) (*EnrolledTeacher, error)
	Update(ctx context.Context, t *EnrolledTeacher) error // FirstName, LastName, Position, School, RequestsLimit, IsActive
	ListActive(ctx context.Context) ([]*EnrolledTeacher, error)
	ListAll(ctx context.Context) ([]*EnrolledTeacher, error) // For admin purposes

	// IncrementUsage applies requests_used+1 as a single conditional update:
	// it succeeds only if the teacher is active and still under the limit at
	// commit time. Callers must treat its outcome as authoritative even if an
	// earlier non-atomic check passed. Returns the updated teacher, or
	// ErrUsageLimitExceeded from the infra package when the condition fails.
	IncrementUsage(ctx context.Context, id int64) (*EnrolledTeacher, error)

	// ResetUsage zeroes requests_used and stamps last_usage_reset.
	ResetUsage(ctx context.Context, id int64, resetAt time.Time) error
}
