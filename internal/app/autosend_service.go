package app

import (
	"context"
	"fmt"
	"time"

	"concern2care/internal/domain/delivery"
	"concern2care/internal/domain/submission"
	"concern2care/internal/domain/teacher"

	"github.com/sirupsen/logrus"
)

// AutoSender is the surface the scheduler drives.
type AutoSender interface {
	RunSweep(ctx context.Context) error
	ReclaimStale(ctx context.Context) error
}

// AutoSendService delivers submissions whose scheduled send time has elapsed.
// Claim, send and mark-sent are deliberately not one transaction: the claim
// is a narrow conditional update that makes the row invisible to other
// claimants, and a failed send is compensated by reverting the claim.
type AutoSendService struct {
	subRepo           submission.Repository
	teacherRepo       teacher.Repository
	sender            delivery.Sender
	clock             Clock
	staleClaimTimeout time.Duration
	logger            *logrus.Entry
}

func NewAutoSendService(
	sr submission.Repository,
	tr teacher.Repository,
	sender delivery.Sender,
	clock Clock,
	staleClaimTimeout time.Duration,
	logger *logrus.Entry,
) *AutoSendService {
	return &AutoSendService{
		subRepo:           sr,
		teacherRepo:       tr,
		sender:            sender,
		clock:             clock,
		staleClaimTimeout: staleClaimTimeout,
		logger:            logger,
	}
}

// RunSweep claims and sends every due submission, oldest first. One
// submission's failure never aborts the rest of the batch; a claim that
// affects zero rows simply means another sweep got there first.
func (s *AutoSendService) RunSweep(ctx context.Context) error {
	now := s.clock.Now()
	due, err := s.subRepo.ListDueForAutoSend(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to list due submissions: %w", err)
	}
	if len(due) == 0 {
		return nil
	}
	s.logger.WithField("count", len(due)).Info("Auto-send sweep found due submissions")

	for _, sub := range due {
		log := s.logger.WithField("submission_id", sub.ID)

		claimed, err := s.subRepo.Claim(ctx, sub.ID, now)
		if err != nil {
			log.WithError(err).Error("Claim attempt failed")
			continue
		}
		if !claimed {
			// Already claimed or no longer eligible. Expected, move on.
			continue
		}

		if err := s.deliver(ctx, sub.ID, submission.StatusAutoSent); err != nil {
			log.WithError(err).Error("Auto-send delivery failed")
		}
	}
	return nil
}

// SendNow performs an admin-initiated send outside the sweep. It accepts
// urgent-flagged and held submissions and finishes in 'completed'.
func (s *AutoSendService) SendNow(ctx context.Context, id int64) (*submission.Submission, error) {
	if _, err := s.subRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	claimed, err := s.subRepo.ClaimForManualSend(ctx, id)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, ErrSubmissionConflict
	}

	if err := s.deliver(ctx, id, submission.StatusCompleted); err != nil {
		return nil, err
	}
	return s.subRepo.GetByID(ctx, id)
}

// deliver runs the send contract for an already-claimed submission: dispatch
// the reviewed text (or the AI draft), then finalize, reverting the claim on
// any failure so the submission re-enters the eligible pool. The row is
// re-read after the claim; an admin edit stored between listing and claiming
// must be what gets delivered, never a stale snapshot.
func (s *AutoSendService) deliver(ctx context.Context, id int64, finalStatus submission.Status) error {
	log := s.logger.WithField("submission_id", id)

	revert := func() {
		reverted, err := s.subRepo.RevertClaim(ctx, id)
		if err != nil {
			log.WithError(err).Error("Failed to revert claim")
			return
		}
		if reverted {
			log.Info("Claim reverted, submission back in eligible pool")
		}
	}

	sub, err := s.subRepo.GetByID(ctx, id)
	if err != nil {
		revert()
		return fmt.Errorf("failed to load submission %d for delivery: %w", id, err)
	}

	enrolled, err := s.teacherRepo.GetByID(ctx, sub.TeacherID)
	if err != nil {
		revert()
		return fmt.Errorf("failed to load teacher %d for delivery: %w", sub.TeacherID, err)
	}

	text := sub.DeliveryText()
	subject := fmt.Sprintf("Classroom Solutions guidance for %s %s.", sub.StudentFirstName, sub.StudentLastInitial)
	body := fmt.Sprintf("Hello %s,\n\nHere is the guidance you requested:\n\n%s\n", enrolled.FirstName, text)

	if err := s.sender.Send(ctx, enrolled.Email, subject, body); err != nil {
		revert()
		return fmt.Errorf("delivery to %s failed: %w", enrolled.Email, err)
	}

	if err := s.subRepo.MarkSent(ctx, sub.ID, finalStatus, text, s.clock.Now()); err != nil {
		// The send already happened; a lost finalization is logged loudly but
		// there is nothing safe left to compensate.
		log.WithError(err).Error("Send succeeded but finalization failed")
		return err
	}

	log.WithFields(logrus.Fields{
		"recipient": enrolled.Email,
		"status":    finalStatus,
	}).Info("Submission delivered")
	return nil
}

// ReclaimStale reverts submissions sitting in 'sending' past the configured
// timeout, so a crash mid-send never strands a row permanently.
func (s *AutoSendService) ReclaimStale(ctx context.Context) error {
	cutoff := s.clock.Now().Add(-s.staleClaimTimeout)
	n, err := s.subRepo.ReclaimStale(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("stale claim sweep failed: %w", err)
	}
	if n > 0 {
		s.logger.WithField("count", n).Warn("Reclaimed submissions stuck in sending state")
	}
	return nil
}
