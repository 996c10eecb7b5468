package app

import (
	"context"
	"fmt"

	"concern2care/internal/domain/teacher"

	"github.com/sirupsen/logrus"
)

// UsageStatus is the result of a quota check.
type UsageStatus struct {
	CanSubmit bool
	Used      int
	Limit     int
}

// UsageService tracks per-teacher monthly submission quotas. The counter
// itself only moves through the repository's conditional update; this service
// adds the calendar-month reset policy on top.
type UsageService struct {
	teacherRepo teacher.Repository
	clock       Clock
	logger      *logrus.Entry
}

func NewUsageService(tr teacher.Repository, clock Clock, logger *logrus.Entry) *UsageService {
	return &UsageService{
		teacherRepo: tr,
		clock:       clock,
		logger:      logger,
	}
}

// maybeReset applies the month-boundary reset before any quota evaluation. A
// reset is due when the current calendar year/month strictly exceeds that of
// the last reset (or enrollment, if never reset).
func (s *UsageService) maybeReset(ctx context.Context, t *teacher.EnrolledTeacher) (*teacher.EnrolledTeacher, error) {
	now := s.clock.Now()
	if !t.UsageResetDue(now) {
		return t, nil
	}

	s.logger.WithFields(logrus.Fields{
		"teacher_id": t.ID,
		"used":       t.RequestsUsed,
	}).Info("Month boundary crossed, resetting usage counter")

	if err := s.teacherRepo.ResetUsage(ctx, t.ID, now); err != nil {
		return nil, fmt.Errorf("failed to reset usage for teacher %d: %w", t.ID, err)
	}
	return s.teacherRepo.GetByID(ctx, t.ID)
}

// CheckUsageLimit performs a month-boundary check-and-reset, then reports
// whether the teacher may submit. This is advisory only: IncrementUsage is
// the authoritative gate.
func (s *UsageService) CheckUsageLimit(ctx context.Context, teacherID int64) (*UsageStatus, error) {
	t, err := s.teacherRepo.GetByID(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	t, err = s.maybeReset(ctx, t)
	if err != nil {
		return nil, err
	}

	return &UsageStatus{
		CanSubmit: t.IsActive && t.RequestsUsed < t.RequestsLimit,
		Used:      t.RequestsUsed,
		Limit:     t.RequestsLimit,
	}, nil
}

// IncrementUsage consumes one request from the teacher's monthly quota. The
// increment is a single conditional update in the store; callers must treat
// ErrUsageLimitExceeded as authoritative even if an earlier check passed.
func (s *UsageService) IncrementUsage(ctx context.Context, teacherID int64) (*teacher.EnrolledTeacher, error) {
	t, err := s.teacherRepo.GetByID(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if _, err = s.maybeReset(ctx, t); err != nil {
		return nil, err
	}
	return s.teacherRepo.IncrementUsage(ctx, teacherID)
}

// ResetUsage zeroes the counter immediately, regardless of the calendar.
func (s *UsageService) ResetUsage(ctx context.Context, teacherID int64) error {
	return s.teacherRepo.ResetUsage(ctx, teacherID, s.clock.Now())
}
