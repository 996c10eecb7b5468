package scheduler

import (
	"context"
	"time"

	"concern2care/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// AutoSendScheduler drives the auto-send pipeline on fixed intervals: the
// delivery sweep and the stale-claim reclaim job. The sweep itself is safe to
// run concurrently with another instance; exclusivity lives in the store's
// claim operation, not here.
type AutoSendScheduler struct {
	cronEngine      *cron.Cron
	autoSender      app.AutoSender
	logger          *logrus.Entry
	cronSpecSweep   string
	cronSpecReclaim string
}

func NewAutoSendScheduler(
	autoSender app.AutoSender,
	logger *logrus.Entry,
	cronSpecSweep string, // e.g. "* * * * *" (every minute)
	cronSpecReclaim string, // e.g. "*/5 * * * *" (every 5 minutes)
) *AutoSendScheduler {
	return &AutoSendScheduler{
		cronEngine:      cron.New(cron.WithLocation(time.Local)), // Use server's local time for cron
		autoSender:      autoSender,
		logger:          logger,
		cronSpecSweep:   cronSpecSweep,
		cronSpecReclaim: cronSpecReclaim,
	}
}

func (s *AutoSendScheduler) Start() error {
	s.logger.Info("Starting auto-send scheduler")

	_, err := s.cronEngine.AddFunc(s.cronSpecSweep, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := s.autoSender.RunSweep(ctx); err != nil {
			s.logger.WithError(err).Error("Auto-send sweep failed")
		}
	})
	if err != nil {
		return err
	}

	_, err = s.cronEngine.AddFunc(s.cronSpecReclaim, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		if err := s.autoSender.ReclaimStale(ctx); err != nil {
			s.logger.WithError(err).Error("Stale claim reclaim failed")
		}
	})
	if err != nil {
		return err
	}

	s.cronEngine.Start()
	s.logger.WithFields(logrus.Fields{
		"sweep_spec":   s.cronSpecSweep,
		"reclaim_spec": s.cronSpecReclaim,
	}).Info("Auto-send scheduler started")
	return nil
}

func (s *AutoSendScheduler) Stop() {
	s.logger.Info("Stopping auto-send scheduler")
	ctx := s.cronEngine.Stop() // Stops new runs, waits for running jobs.
	<-ctx.Done()
	s.logger.Info("Auto-send scheduler gracefully stopped")
}
