package database

import (
	"context"
	"database/sql"
	"fmt"

	"concern2care/internal/domain/notification"

	_ "github.com/lib/pq" // PostgreSQL driver
)

var ErrNotificationNotFound = fmt.Errorf("admin notification not found")

const notificationColumns = `id, submission_id, type, title, message, priority, status, assigned_to, created_at, updated_at`

type PostgresNotificationRepository struct {
	db *sql.DB
}

func NewPostgresNotificationRepository(db *sql.DB) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

func (r *PostgresNotificationRepository) Create(ctx context.Context, n *notification.AdminNotification) error {
	query := `INSERT INTO admin_notifications (submission_id, type, title, message, priority, status, assigned_to)
               VALUES ($1, $2, $3, $4, $5, $6, $7)
               RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, n.SubmissionID, n.Type, n.Title, n.Message, n.Priority, n.Status, n.AssignedTo).
		Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating admin notification: %w", err)
	}
	return nil
}

func (r *PostgresNotificationRepository) GetByID(ctx context.Context, id int64) (*notification.AdminNotification, error) {
	query := `SELECT ` + notificationColumns + ` FROM admin_notifications WHERE id = $1`
	n := &notification.AdminNotification{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&n.ID, &n.SubmissionID, &n.Type, &n.Title, &n.Message, &n.Priority, &n.Status, &n.AssignedTo, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("error getting admin notification by ID: %w", err)
	}
	return n, nil
}

func (r *PostgresNotificationRepository) queryNotifications(ctx context.Context, query string, args ...any) ([]*notification.AdminNotification, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying admin notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]*notification.AdminNotification, 0)
	for rows.Next() {
		n := &notification.AdminNotification{}
		if err := rows.Scan(&n.ID, &n.SubmissionID, &n.Type, &n.Title, &n.Message, &n.Priority,
			&n.Status, &n.AssignedTo, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning admin notification row: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating admin notification rows: %w", err)
	}
	return notifications, nil
}

func (r *PostgresNotificationRepository) ListOpen(ctx context.Context) ([]*notification.AdminNotification, error) {
	query := `SELECT ` + notificationColumns + `
               FROM admin_notifications
               WHERE status IN ('unread', 'read')
               ORDER BY created_at DESC`
	return r.queryNotifications(ctx, query)
}

func (r *PostgresNotificationRepository) ListBySubmission(ctx context.Context, submissionID int64) ([]*notification.AdminNotification, error) {
	query := `SELECT ` + notificationColumns + `
               FROM admin_notifications
               WHERE submission_id = $1
               ORDER BY created_at ASC`
	return r.queryNotifications(ctx, query, submissionID)
}

func (r *PostgresNotificationRepository) setStatus(ctx context.Context, id int64, status notification.Status) error {
	query := `UPDATE admin_notifications SET status = $1, updated_at = NOW() WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("error updating admin notification %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading update result for admin notification %d: %w", id, err)
	}
	if affected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *PostgresNotificationRepository) MarkRead(ctx context.Context, id int64) error {
	return r.setStatus(ctx, id, notification.StatusRead)
}

func (r *PostgresNotificationRepository) MarkResolved(ctx context.Context, id int64) error {
	return r.setStatus(ctx, id, notification.StatusResolved)
}
