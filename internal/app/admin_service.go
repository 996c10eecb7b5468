package app

import (
	"context"
	"database/sql"
	"fmt"

	"concern2care/internal/domain/notification"
	"concern2care/internal/domain/submission"
	"concern2care/internal/domain/teacher"
	idb "concern2care/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// Custom application-level errors for the admin service
var ErrTeacherAlreadyExists = fmt.Errorf("enrolled teacher with this email already exists")
var ErrTeacherAlreadyInactive = fmt.Errorf("enrolled teacher is already inactive")
var ErrSubmissionConflict = fmt.Errorf("submission is no longer in a state that allows this action")

// AdminService covers the admin console operations on the Classroom Solutions
// module: enrollment management, submission review and triage, and the
// notification inbox.
type AdminService struct {
	teacherRepo teacher.Repository
	subRepo     submission.Repository
	notifRepo   notification.Repository
	usage       *UsageService
	autoSend    *AutoSendService
	logger      *logrus.Entry
}

func NewAdminService(
	tr teacher.Repository,
	sr submission.Repository,
	nr notification.Repository,
	usage *UsageService,
	autoSend *AutoSendService,
	logger *logrus.Entry,
) *AdminService {
	return &AdminService{
		teacherRepo: tr,
		subRepo:     sr,
		notifRepo:   nr,
		usage:       usage,
		autoSend:    autoSend,
		logger:      logger,
	}
}

// EnrollTeacher registers a new Classroom Solutions participant.
func (s *AdminService) EnrollTeacher(ctx context.Context, firstName, lastName, email, position, school string, requestsLimit int) (*teacher.EnrolledTeacher, error) {
	_, err := s.teacherRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil, ErrTeacherAlreadyExists
	}
	if err != idb.ErrTeacherNotFound {
		return nil, fmt.Errorf("failed to check existing teacher: %w", err)
	}

	t := &teacher.EnrolledTeacher{
		FirstName:     firstName,
		LastName:      lastName,
		Email:         email,
		RequestsLimit: requestsLimit,
		IsActive:      true, // New teachers are active by default
	}
	if position != "" {
		t.Position = sql.NullString{String: position, Valid: true}
	}
	if school != "" {
		t.School = sql.NullString{String: school, Valid: true}
	}

	if err := s.teacherRepo.Create(ctx, t); err != nil {
		if err == idb.ErrDuplicateEmail {
			return nil, ErrTeacherAlreadyExists
		}
		return nil, fmt.Errorf("failed to create enrolled teacher: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"teacher_id": t.ID,
		"email":      t.Email,
	}).Info("Teacher enrolled")
	return t, nil
}

// DeactivateTeacher soft-deletes an enrollment so submission history is
// preserved.
func (s *AdminService) DeactivateTeacher(ctx context.Context, teacherID int64) (*teacher.EnrolledTeacher, error) {
	t, err := s.teacherRepo.GetByID(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if !t.IsActive {
		return t, ErrTeacherAlreadyInactive
	}

	t.IsActive = false
	if err := s.teacherRepo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to deactivate teacher %d: %w", teacherID, err)
	}
	return t, nil
}

// ResetTeacherUsage zeroes a teacher's monthly counter on admin request.
func (s *AdminService) ResetTeacherUsage(ctx context.Context, teacherID int64) error {
	return s.usage.ResetUsage(ctx, teacherID)
}

// ListTeachers returns every enrollment, active or not.
func (s *AdminService) ListTeachers(ctx context.Context) ([]*teacher.EnrolledTeacher, error) {
	return s.teacherRepo.ListAll(ctx)
}

// ReviewSubmission stores admin-edited delivery text. ErrSubmissionConflict
// means the row is mid-send or terminal and the edit was not applied.
func (s *AdminService) ReviewSubmission(ctx context.Context, submissionID int64, reviewedText, reviewedBy string) (*submission.Submission, error) {
	applied, err := s.subRepo.SetReviewedText(ctx, submissionID, reviewedText, reviewedBy)
	if err != nil {
		return nil, err
	}
	if !applied {
		if _, lookupErr := s.subRepo.GetByID(ctx, submissionID); lookupErr != nil {
			return nil, lookupErr
		}
		return nil, ErrSubmissionConflict
	}
	return s.subRepo.GetByID(ctx, submissionID)
}

// overrideStatus applies an administrative transition. The conditional update
// refuses rows already claimed by the scheduler; for that cycle the claim
// wins and the admin sees ErrSubmissionConflict.
func (s *AdminService) overrideStatus(ctx context.Context, submissionID int64, to submission.Status, reviewedBy string) (*submission.Submission, error) {
	applied, err := s.subRepo.OverrideStatus(ctx, submissionID, to, reviewedBy)
	if err != nil {
		return nil, err
	}
	if !applied {
		if _, lookupErr := s.subRepo.GetByID(ctx, submissionID); lookupErr != nil {
			return nil, lookupErr
		}
		return nil, ErrSubmissionConflict
	}

	s.logger.WithFields(logrus.Fields{
		"submission_id": submissionID,
		"status":        to,
		"admin":         reviewedBy,
	}).Info("Submission status overridden")
	return s.subRepo.GetByID(ctx, submissionID)
}

// ApproveSubmission marks the draft as reviewed and good to send. The urgent
// flag still blocks unattended delivery; approval of an urgent submission
// only matters for a subsequent manual send.
func (s *AdminService) ApproveSubmission(ctx context.Context, submissionID int64, reviewedBy string) (*submission.Submission, error) {
	return s.overrideStatus(ctx, submissionID, submission.StatusApproved, reviewedBy)
}

// HoldSubmission takes a submission out of the scheduler's reach without
// discarding it.
func (s *AdminService) HoldSubmission(ctx context.Context, submissionID int64, reviewedBy string) (*submission.Submission, error) {
	return s.overrideStatus(ctx, submissionID, submission.StatusHold, reviewedBy)
}

// CancelSubmission terminates a submission; it will never be delivered.
func (s *AdminService) CancelSubmission(ctx context.Context, submissionID int64, reviewedBy string) (*submission.Submission, error) {
	return s.overrideStatus(ctx, submissionID, submission.StatusCancelled, reviewedBy)
}

// SendSubmissionNow performs a manual delivery, ending in 'completed'. This
// is the only delivery path for urgent-flagged submissions.
func (s *AdminService) SendSubmissionNow(ctx context.Context, submissionID int64, reviewedBy string) (*submission.Submission, error) {
	sub, err := s.autoSend.SendNow(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"submission_id": submissionID,
		"admin":         reviewedBy,
	}).Info("Submission sent manually")
	return sub, nil
}

// ListUrgentSubmissions returns the triage queue: urgent-flagged submissions
// the sweep will never touch.
func (s *AdminService) ListUrgentSubmissions(ctx context.Context) ([]*submission.Submission, error) {
	return s.subRepo.ListUrgent(ctx)
}

// GetSubmission fetches a single submission for the admin console.
func (s *AdminService) GetSubmission(ctx context.Context, submissionID int64) (*submission.Submission, error) {
	return s.subRepo.GetByID(ctx, submissionID)
}

// ListOpenNotifications returns unresolved admin notifications, newest first.
func (s *AdminService) ListOpenNotifications(ctx context.Context) ([]*notification.AdminNotification, error) {
	return s.notifRepo.ListOpen(ctx)
}

func (s *AdminService) MarkNotificationRead(ctx context.Context, id int64) error {
	return s.notifRepo.MarkRead(ctx, id)
}

func (s *AdminService) MarkNotificationResolved(ctx context.Context, id int64) error {
	return s.notifRepo.MarkResolved(ctx, id)
}
