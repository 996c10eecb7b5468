package teacher

import (
	"database/sql"
	"testing"
	"time"
)

func TestUsageResetDue(t *testing.T) {
	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		name      string
		lastReset time.Time // zero means never reset
		createdAt time.Time
		now       time.Time
		want      bool
	}{
		{
			name:      "same month not due",
			lastReset: day(2026, time.March, 1),
			now:       day(2026, time.March, 31),
			want:      false,
		},
		{
			name:      "next month due",
			lastReset: day(2026, time.February, 28),
			now:       day(2026, time.March, 1),
			want:      true,
		},
		{
			name:      "year boundary due",
			lastReset: day(2025, time.December, 31),
			now:       day(2026, time.January, 1),
			want:      true,
		},
		{
			name:      "later year earlier month still due",
			lastReset: day(2025, time.November, 15),
			now:       day(2026, time.March, 10),
			want:      true,
		},
		{
			name:      "never reset falls back to enrollment month",
			createdAt: day(2026, time.January, 5),
			now:       day(2026, time.March, 10),
			want:      true,
		},
		{
			name:      "never reset enrolled this month",
			createdAt: day(2026, time.March, 2),
			now:       day(2026, time.March, 10),
			want:      false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := EnrolledTeacher{CreatedAt: tt.createdAt}
			if !tt.lastReset.IsZero() {
				tc.LastUsageReset = sql.NullTime{Time: tt.lastReset, Valid: true}
			}
			if got := tc.UsageResetDue(tt.now); got != tt.want {
				t.Errorf("UsageResetDue(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestFullName(t *testing.T) {
	tc := EnrolledTeacher{FirstName: "Dana", LastName: "Reyes"}
	if got := tc.FullName(); got != "Dana Reyes" {
		t.Errorf("FullName() = %q", got)
	}
	tc.LastName = ""
	if got := tc.FullName(); got != "Dana" {
		t.Errorf("FullName() = %q", got)
	}
}
