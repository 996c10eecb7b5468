package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"concern2care/internal/domain/submission"

	"github.com/lib/pq" // For pq.Array and driver registration
)

// Custom errors specific to the submission repository
var ErrSubmissionNotFound = fmt.Errorf("submission not found")
var ErrSubmissionNotClaimed = fmt.Errorf("submission is not in sending state")

const submissionColumns = `id, reference, teacher_id, student_first_name, student_last_initial,
               student_age, grade_level, task_type, severity, concern_types, concern_description,
               actions_taken, ai_draft, reviewed_text, sent_text, disclaimer_attached, urgent_flag,
               status, auto_send_time, sent_at, admin_reviewed_by, created_at, updated_at`

type PostgresSubmissionRepository struct {
	db *sql.DB
}

func NewPostgresSubmissionRepository(db *sql.DB) *PostgresSubmissionRepository {
	return &PostgresSubmissionRepository{db: db}
}

func (r *PostgresSubmissionRepository) Create(ctx context.Context, s *submission.Submission) error {
	query := `INSERT INTO submissions (reference, teacher_id, student_first_name, student_last_initial,
               student_age, grade_level, task_type, severity, concern_types, concern_description,
               actions_taken, ai_draft, urgent_flag, status, auto_send_time)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
               RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		s.Reference, s.TeacherID, s.StudentFirstName, s.StudentLastInitial,
		s.StudentAge, s.GradeLevel, s.TaskType, s.Severity, pq.Array(s.ConcernTypes), s.ConcernDescription,
		pq.Array(s.ActionsTaken), s.AIDraft, s.UrgentFlag, s.Status, s.AutoSendTime,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating submission: %w", err)
	}
	return nil
}

func scanSubmission(scan func(dest ...any) error) (*submission.Submission, error) {
	s := &submission.Submission{}
	err := scan(
		&s.ID, &s.Reference, &s.TeacherID, &s.StudentFirstName, &s.StudentLastInitial,
		&s.StudentAge, &s.GradeLevel, &s.TaskType, &s.Severity, pq.Array(&s.ConcernTypes), &s.ConcernDescription,
		pq.Array(&s.ActionsTaken), &s.AIDraft, &s.ReviewedText, &s.SentText, &s.DisclaimerAttached, &s.UrgentFlag,
		&s.Status, &s.AutoSendTime, &s.SentAt, &s.AdminReviewedBy, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *PostgresSubmissionRepository) GetByID(ctx context.Context, id int64) (*submission.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`
	s, err := scanSubmission(r.db.QueryRowContext(ctx, query, id).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("error getting submission by ID: %w", err)
	}
	return s, nil
}

func (r *PostgresSubmissionRepository) GetByReference(ctx context.Context, ref string) (*submission.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE reference = $1`
	s, err := scanSubmission(r.db.QueryRowContext(ctx, query, ref).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("error getting submission by reference: %w", err)
	}
	return s, nil
}

func (r *PostgresSubmissionRepository) querySubmissions(ctx context.Context, query string, args ...any) ([]*submission.Submission, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying submissions: %w", err)
	}
	defer rows.Close()

	submissions := make([]*submission.Submission, 0)
	for rows.Next() {
		s, err := scanSubmission(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("error scanning submission row: %w", err)
		}
		submissions = append(submissions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating submission rows: %w", err)
	}
	return submissions, nil
}

func (r *PostgresSubmissionRepository) ListByTeacher(ctx context.Context, teacherID int64) ([]*submission.Submission, error) {
	query := `SELECT ` + submissionColumns + `
               FROM submissions WHERE teacher_id = $1 ORDER BY created_at DESC`
	return r.querySubmissions(ctx, query, teacherID)
}

func (r *PostgresSubmissionRepository) ListDueForAutoSend(ctx context.Context, now time.Time) ([]*submission.Submission, error) {
	query := `SELECT ` + submissionColumns + `
               FROM submissions
               WHERE status IN ('pending', 'approved')
                 AND urgent_flag = FALSE
                 AND auto_send_time IS NOT NULL
                 AND auto_send_time <= $1
               ORDER BY auto_send_time ASC` // Process oldest-due first
	return r.querySubmissions(ctx, query, now)
}

func (r *PostgresSubmissionRepository) ListUrgent(ctx context.Context) ([]*submission.Submission, error) {
	query := `SELECT ` + submissionColumns + `
               FROM submissions
               WHERE urgent_flag = TRUE AND status IN ('pending', 'urgent_flagged')
               ORDER BY created_at ASC`
	return r.querySubmissions(ctx, query)
}

// Claim is the one hard concurrency invariant of the pipeline: the WHERE
// clause re-checks the full eligibility predicate, so even fully concurrent
// sweeps get at most one row-affected result per submission.
func (r *PostgresSubmissionRepository) Claim(ctx context.Context, id int64, now time.Time) (bool, error) {
	query := `UPDATE submissions
               SET status = 'sending', updated_at = NOW()
               WHERE id = $1
                 AND status IN ('pending', 'approved')
                 AND urgent_flag = FALSE
                 AND auto_send_time IS NOT NULL
                 AND auto_send_time <= $2`

	res, err := r.db.ExecContext(ctx, query, id, now)
	if err != nil {
		return false, fmt.Errorf("error claiming submission %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading claim result for submission %d: %w", id, err)
	}
	return affected == 1, nil
}

func (r *PostgresSubmissionRepository) ClaimForManualSend(ctx context.Context, id int64) (bool, error) {
	query := `UPDATE submissions
               SET status = 'sending', updated_at = NOW()
               WHERE id = $1 AND status IN ('pending', 'approved', 'urgent_flagged', 'hold')`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("error claiming submission %d for manual send: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading manual claim result for submission %d: %w", id, err)
	}
	return affected == 1, nil
}

func (r *PostgresSubmissionRepository) RevertClaim(ctx context.Context, id int64) (bool, error) {
	query := `UPDATE submissions
               SET status = 'pending', updated_at = NOW()
               WHERE id = $1 AND status = 'sending'`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("error reverting claim on submission %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading revert result for submission %d: %w", id, err)
	}
	return affected == 1, nil
}

func (r *PostgresSubmissionRepository) MarkSent(ctx context.Context, id int64, finalStatus submission.Status, sentText string, sentAt time.Time) error {
	query := `UPDATE submissions
               SET status = $1, sent_text = $2, sent_at = $3, disclaimer_attached = TRUE, updated_at = NOW()
               WHERE id = $4 AND status = 'sending'`

	res, err := r.db.ExecContext(ctx, query, finalStatus, sentText, sentAt, id)
	if err != nil {
		return fmt.Errorf("error marking submission %d sent: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading mark-sent result for submission %d: %w", id, err)
	}
	if affected == 0 {
		return ErrSubmissionNotClaimed
	}
	return nil
}

func (r *PostgresSubmissionRepository) SetReviewedText(ctx context.Context, id int64, reviewedText, reviewedBy string) (bool, error) {
	query := `UPDATE submissions
               SET reviewed_text = $1, admin_reviewed_by = $2, updated_at = NOW()
               WHERE id = $3 AND status NOT IN ('sending', 'auto_sent', 'completed', 'cancelled')`

	res, err := r.db.ExecContext(ctx, query, reviewedText, reviewedBy, id)
	if err != nil {
		return false, fmt.Errorf("error setting reviewed text on submission %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading review result for submission %d: %w", id, err)
	}
	return affected == 1, nil
}

func (r *PostgresSubmissionRepository) OverrideStatus(ctx context.Context, id int64, to submission.Status, reviewedBy string) (bool, error) {
	query := `UPDATE submissions
               SET status = $1, admin_reviewed_by = $2, updated_at = NOW()
               WHERE id = $3 AND status IN ('pending', 'approved', 'urgent_flagged', 'hold')`

	res, err := r.db.ExecContext(ctx, query, to, reviewedBy, id)
	if err != nil {
		return false, fmt.Errorf("error overriding status on submission %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading override result for submission %d: %w", id, err)
	}
	return affected == 1, nil
}

// ReclaimStale is the operational safeguard against rows stuck in 'sending'
// after a crash between claim and send completion.
func (r *PostgresSubmissionRepository) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `UPDATE submissions
               SET status = 'pending', updated_at = NOW()
               WHERE status = 'sending' AND updated_at < $1`

	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("error reclaiming stale submissions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error reading reclaim result: %w", err)
	}
	return affected, nil
}
