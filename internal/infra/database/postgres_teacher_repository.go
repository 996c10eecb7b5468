package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"concern2care/internal/domain/teacher"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Custom errors
var ErrTeacherNotFound = fmt.Errorf("enrolled teacher not found")
var ErrDuplicateEmail = fmt.Errorf("enrolled teacher with this email already exists")
var ErrUsageLimitExceeded = fmt.Errorf("monthly request limit reached")

const teacherColumns = `id, first_name, last_name, email, position, school,
               requests_used, requests_limit, last_usage_reset, is_active, created_at, updated_at`

type PostgresTeacherRepository struct {
	db *sql.DB
}

func NewPostgresTeacherRepository(db *sql.DB) *PostgresTeacherRepository {
	return &PostgresTeacherRepository{db: db}
}

func scanTeacher(row *sql.Row) (*teacher.EnrolledTeacher, error) {
	t := &teacher.EnrolledTeacher{}
	err := row.Scan(&t.ID, &t.FirstName, &t.LastName, &t.Email, &t.Position, &t.School,
		&t.RequestsUsed, &t.RequestsLimit, &t.LastUsageReset, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *PostgresTeacherRepository) Create(ctx context.Context, t *teacher.EnrolledTeacher) error {
	query := `INSERT INTO enrolled_teachers (first_name, last_name, email, position, school, requests_limit, is_active)
               VALUES ($1, $2, $3, $4, $5, $6, $7)
               RETURNING id, requests_used, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, t.FirstName, t.LastName, t.Email, t.Position, t.School, t.RequestsLimit, t.IsActive).
		Scan(&t.ID, &t.RequestsUsed, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "enrolled_teachers_email_key") {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("error creating enrolled teacher: %w", err)
	}
	return nil
}

func (r *PostgresTeacherRepository) GetByID(ctx context.Context, id int64) (*teacher.EnrolledTeacher, error) {
	query := `SELECT ` + teacherColumns + ` FROM enrolled_teachers WHERE id = $1`
	t, err := scanTeacher(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrTeacherNotFound
		}
		return nil, fmt.Errorf("error getting enrolled teacher by ID: %w", err)
	}
	return t, nil
}

func (r *PostgresTeacherRepository) GetByEmail(ctx context.Context, email string) (*teacher.EnrolledTeacher, error) {
	query := `SELECT ` + teacherColumns + ` FROM enrolled_teachers WHERE email = $1`
	t, err := scanTeacher(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrTeacherNotFound
		}
		return nil, fmt.Errorf("error getting enrolled teacher by email: %w", err)
	}
	return t, nil
}

func (r *PostgresTeacherRepository) Update(ctx context.Context, t *teacher.EnrolledTeacher) error {
	query := `UPDATE enrolled_teachers
               SET first_name = $1, last_name = $2, position = $3, school = $4,
                   requests_limit = $5, is_active = $6, updated_at = NOW()
               WHERE id = $7
               RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query, t.FirstName, t.LastName, t.Position, t.School,
		t.RequestsLimit, t.IsActive, t.ID).Scan(&t.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrTeacherNotFound
		}
		return fmt.Errorf("error updating enrolled teacher: %w", err)
	}
	return nil
}

// IncrementUsage is the quota gate. The condition and the increment are a
// single UPDATE so two concurrent submissions can never both pass a stale
// check: at most one sees a row where requests_used is still under the limit.
func (r *PostgresTeacherRepository) IncrementUsage(ctx context.Context, id int64) (*teacher.EnrolledTeacher, error) {
	query := `UPDATE enrolled_teachers
               SET requests_used = requests_used + 1, updated_at = NOW()
               WHERE id = $1 AND is_active = TRUE AND requests_used < requests_limit
               RETURNING ` + teacherColumns

	t, err := scanTeacher(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			// Zero rows: either the teacher is unknown or the condition did
			// not hold. Distinguish with a follow-up read.
			if _, lookupErr := r.GetByID(ctx, id); lookupErr != nil {
				return nil, lookupErr
			}
			return nil, ErrUsageLimitExceeded
		}
		return nil, fmt.Errorf("error incrementing usage for teacher %d: %w", id, err)
	}
	return t, nil
}

func (r *PostgresTeacherRepository) ResetUsage(ctx context.Context, id int64, resetAt time.Time) error {
	query := `UPDATE enrolled_teachers
               SET requests_used = 0, last_usage_reset = $1, updated_at = NOW()
               WHERE id = $2
               RETURNING updated_at`

	var updatedAt time.Time
	err := r.db.QueryRowContext(ctx, query, resetAt, id).Scan(&updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrTeacherNotFound
		}
		return fmt.Errorf("error resetting usage for teacher %d: %w", id, err)
	}
	return nil
}

func (r *PostgresTeacherRepository) listTeachers(ctx context.Context, query string) ([]*teacher.EnrolledTeacher, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing enrolled teachers: %w", err)
	}
	defer rows.Close()

	teachers := make([]*teacher.EnrolledTeacher, 0)
	for rows.Next() {
		t := &teacher.EnrolledTeacher{}
		if err := rows.Scan(&t.ID, &t.FirstName, &t.LastName, &t.Email, &t.Position, &t.School,
			&t.RequestsUsed, &t.RequestsLimit, &t.LastUsageReset, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning enrolled teacher: %w", err)
		}
		teachers = append(teachers, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating enrolled teachers: %w", err)
	}
	return teachers, nil
}

func (r *PostgresTeacherRepository) ListActive(ctx context.Context) ([]*teacher.EnrolledTeacher, error) {
	return r.listTeachers(ctx, `SELECT `+teacherColumns+`
               FROM enrolled_teachers WHERE is_active = TRUE ORDER BY last_name, first_name`)
}

func (r *PostgresTeacherRepository) ListAll(ctx context.Context) ([]*teacher.EnrolledTeacher, error) {
	return r.listTeachers(ctx, `SELECT `+teacherColumns+`
               FROM enrolled_teachers ORDER BY id`)
}
