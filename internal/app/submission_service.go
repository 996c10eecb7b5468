package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"concern2care/internal/domain/ai"
	"concern2care/internal/domain/notification"
	"concern2care/internal/domain/submission"
	"concern2care/internal/domain/teacher"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Alerter pushes out-of-band alerts to administrators (e.g. a Telegram
// message). Alerting is best effort: failures are logged, never propagated.
type Alerter interface {
	UrgentSubmission(ctx context.Context, sub *submission.Submission, t *teacher.EnrolledTeacher) error
}

// CreateSubmissionRequest carries a validated teacher form submission.
type CreateSubmissionRequest struct {
	TeacherID          int64
	StudentFirstName   string
	StudentLastInitial string
	StudentAge         int // 0 when not provided
	GradeLevel         string
	TaskType           submission.TaskType
	Severity           submission.Severity
	ConcernTypes       []string
	ConcernDescription string
	ActionsTaken       []string
	MarkedUrgent       bool // explicit teacher marking, in addition to the heuristic
}

// SubmissionService owns the submission intake path: quota consumption, AI
// draft generation, urgency triage and auto-send scheduling.
type SubmissionService struct {
	teacherRepo   teacher.Repository
	subRepo       submission.Repository
	notifRepo     notification.Repository
	usage         *UsageService
	generator     ai.Generator
	alerter       Alerter // may be nil when no alert channel is configured
	clock         Clock
	autoSendDelay time.Duration
	logger        *logrus.Entry
}

func NewSubmissionService(
	tr teacher.Repository,
	sr submission.Repository,
	nr notification.Repository,
	usage *UsageService,
	generator ai.Generator,
	alerter Alerter,
	clock Clock,
	autoSendDelay time.Duration,
	logger *logrus.Entry,
) *SubmissionService {
	return &SubmissionService{
		teacherRepo:   tr,
		subRepo:       sr,
		notifRepo:     nr,
		usage:         usage,
		generator:     generator,
		alerter:       alerter,
		clock:         clock,
		autoSendDelay: autoSendDelay,
		logger:        logger,
	}
}

// Create runs the full intake flow. The quota increment happens before the AI
// call so an exhausted teacher never triggers a generation; an AI failure
// aborts creation entirely (a submission is never stored without its draft).
func (s *SubmissionService) Create(ctx context.Context, req CreateSubmissionRequest) (*submission.Submission, error) {
	log := s.logger.WithField("teacher_id", req.TeacherID)

	enrolled, err := s.usage.IncrementUsage(ctx, req.TeacherID)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"used":  enrolled.RequestsUsed,
		"limit": enrolled.RequestsLimit,
	}).Info("Usage incremented for new submission")

	rec, err := s.generator.Generate(ctx, descriptorFor(req))
	if err != nil {
		log.WithError(err).Error("AI draft generation failed, rejecting submission")
		return nil, fmt.Errorf("failed to generate recommendations: %w", err)
	}

	now := s.clock.Now()
	urgent := req.MarkedUrgent || submission.IsUrgent(req.Severity, req.ConcernDescription)

	sub := &submission.Submission{
		Reference:          uuid.NewString(),
		TeacherID:          req.TeacherID,
		StudentFirstName:   req.StudentFirstName,
		StudentLastInitial: req.StudentLastInitial,
		GradeLevel:         req.GradeLevel,
		TaskType:           req.TaskType,
		Severity:           req.Severity,
		ConcernTypes:       req.ConcernTypes,
		ConcernDescription: req.ConcernDescription,
		ActionsTaken:       req.ActionsTaken,
		AIDraft:            sql.NullString{String: rec.Text + "\n\n" + rec.Disclaimer, Valid: true},
		UrgentFlag:         urgent,
	}
	if req.StudentAge > 0 {
		sub.StudentAge = sql.NullInt32{Int32: int32(req.StudentAge), Valid: true}
	}

	if urgent {
		// Urgent submissions get no auto-send time: they wait for a human.
		sub.Status = submission.StatusUrgentFlagged
	} else {
		sub.Status = submission.StatusPending
		sub.AutoSendTime = sql.NullTime{Time: now.Add(s.autoSendDelay), Valid: true}
	}

	if err := s.subRepo.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to store submission: %w", err)
	}

	log = log.WithFields(logrus.Fields{
		"submission_id": sub.ID,
		"reference":     sub.Reference,
		"urgent":        urgent,
	})
	log.Info("Submission created")

	if urgent {
		s.flagUrgent(ctx, sub, enrolled, log)
	}
	return sub, nil
}

// flagUrgent creates the admin notification that every urgent submission must
// carry, and pushes the best-effort admin alert.
func (s *SubmissionService) flagUrgent(ctx context.Context, sub *submission.Submission, enrolled *teacher.EnrolledTeacher, log *logrus.Entry) {
	n := &notification.AdminNotification{
		SubmissionID: sub.ID,
		Type:         notification.TypeUrgent,
		Title:        fmt.Sprintf("Urgent submission from %s requires review", enrolled.FullName()),
		Message:      sql.NullString{String: sub.ConcernDescription, Valid: true},
		Priority:     notification.PriorityHigh,
		Status:       notification.StatusUnread,
	}
	if err := s.notifRepo.Create(ctx, n); err != nil {
		// The urgent flag on the submission itself still blocks auto-send, so
		// a lost notification is recoverable through the triage list.
		log.WithError(err).Error("Failed to create urgent admin notification")
	}

	if s.alerter != nil {
		if err := s.alerter.UrgentSubmission(ctx, sub, enrolled); err != nil {
			log.WithError(err).Warn("Failed to push urgent admin alert")
		}
	}
}

// GetByReference fetches a submission by its public reference token.
func (s *SubmissionService) GetByReference(ctx context.Context, ref string) (*submission.Submission, error) {
	return s.subRepo.GetByReference(ctx, ref)
}

// ListByTeacher returns a teacher's submission history.
func (s *SubmissionService) ListByTeacher(ctx context.Context, teacherID int64) ([]*submission.Submission, error) {
	return s.subRepo.ListByTeacher(ctx, teacherID)
}

// FollowUp answers a teacher's follow-up question about an existing
// submission's guidance. A followup notification keeps admins aware of
// continued activity on the case.
func (s *SubmissionService) FollowUp(ctx context.Context, ref, question string) (*ai.Recommendation, error) {
	sub, err := s.subRepo.GetByReference(ctx, ref)
	if err != nil {
		return nil, err
	}

	rec, err := s.generator.FollowUp(ctx, descriptorForSubmission(sub), sub.DeliveryText(), question)
	if err != nil {
		return nil, fmt.Errorf("failed to generate follow-up assistance: %w", err)
	}

	n := &notification.AdminNotification{
		SubmissionID: sub.ID,
		Type:         notification.TypeFollowup,
		Title:        fmt.Sprintf("Follow-up question on submission %s", sub.Reference),
		Message:      sql.NullString{String: question, Valid: true},
		Priority:     notification.PriorityNormal,
		Status:       notification.StatusUnread,
	}
	if err := s.notifRepo.Create(ctx, n); err != nil {
		s.logger.WithError(err).WithField("submission_id", sub.ID).Error("Failed to create follow-up notification")
	}
	return rec, nil
}

func descriptorFor(req CreateSubmissionRequest) ai.ConcernDescriptor {
	return ai.ConcernDescriptor{
		StudentFirstName:   req.StudentFirstName,
		StudentLastInitial: req.StudentLastInitial,
		GradeLevel:         req.GradeLevel,
		TaskType:           string(req.TaskType),
		Severity:           string(req.Severity),
		ConcernTypes:       req.ConcernTypes,
		ConcernDescription: req.ConcernDescription,
		ActionsTaken:       req.ActionsTaken,
	}
}

func descriptorForSubmission(sub *submission.Submission) ai.ConcernDescriptor {
	return ai.ConcernDescriptor{
		StudentFirstName:   sub.StudentFirstName,
		StudentLastInitial: sub.StudentLastInitial,
		GradeLevel:         sub.GradeLevel,
		TaskType:           string(sub.TaskType),
		Severity:           string(sub.Severity),
		ConcernTypes:       sub.ConcernTypes,
		ConcernDescription: sub.ConcernDescription,
		ActionsTaken:       sub.ActionsTaken,
	}
}
