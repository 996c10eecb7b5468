package teacher

import (
	"database/sql"
	"time"
)

// EnrolledTeacher is a Classroom Solutions participant. Enrolled teachers are
// not full platform accounts; they are tracked separately and subject to a
// monthly submission quota.
type EnrolledTeacher struct {
	ID             int64
	FirstName      string
	LastName       string
	Email          string
	Position       sql.NullString // e.g. "3rd Grade Teacher"
	School         sql.NullString
	RequestsUsed   int
	RequestsLimit  int
	LastUsageReset sql.NullTime // calendar-month granularity
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FullName returns the teacher's display name.
func (t *EnrolledTeacher) FullName() string {
	if t.LastName == "" {
		return t.FirstName
	}
	return t.FirstName + " " + t.LastName
}

// UsageResetDue reports whether the current calendar year/month strictly
// exceeds the year/month of the last usage reset. CreatedAt is the reference
// point if the counter has never been reset. This is a calendar-month policy,
// not a rolling 30-day window.
func (t *EnrolledTeacher) UsageResetDue(now time.Time) bool {
	ref := t.CreatedAt
	if t.LastUsageReset.Valid {
		ref = t.LastUsageReset.Time
	}
	if now.Year() != ref.Year() {
		return now.Year() > ref.Year()
	}
	return now.Month() > ref.Month()
}
