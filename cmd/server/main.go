package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"concern2care/internal/app"
	"concern2care/internal/infra/ai"
	"concern2care/internal/infra/config"
	idb "concern2care/internal/infra/database"
	"concern2care/internal/infra/email"
	"concern2care/internal/infra/httpapi"
	"concern2care/internal/infra/logger"
	"concern2care/internal/infra/scheduler"
	"concern2care/internal/infra/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("FATAL: Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	log := logger.Get().WithField("component", "main")
	log.Infof("Configuration loaded. Environment: %s", cfg.Environment)

	// Database
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to database: %v", err)
	}
	defer db.Close()
	log.Info("Database connection established")

	// Repositories
	teacherRepo := idb.NewPostgresTeacherRepository(db)
	submissionRepo := idb.NewPostgresSubmissionRepository(db)
	notificationRepo := idb.NewPostgresNotificationRepository(db)

	// Collaborators
	generator := ai.NewClaudeGenerator(cfg.AIAPIKey, cfg.AIModel)
	sender := email.NewSMTPSender(cfg)

	var alerter app.Alerter
	if cfg.TelegramEnabled {
		tgAlerter, err := telegram.NewAdminAlerter(cfg.TelegramToken, cfg.AdminChatID)
		if err != nil {
			log.Fatalf("FATAL: Could not initialize Telegram alerter: %v", err)
		}
		alerter = tgAlerter
		log.Info("Telegram admin alerts enabled")
	}

	// Services
	clock := app.SystemClock()
	usageSvc := app.NewUsageService(teacherRepo, clock, logger.Get().WithField("component", "usage"))
	submissionSvc := app.NewSubmissionService(
		teacherRepo, submissionRepo, notificationRepo,
		usageSvc, generator, alerter, clock, cfg.AutoSendDelay,
		logger.Get().WithField("component", "submissions"),
	)
	autoSendSvc := app.NewAutoSendService(
		submissionRepo, teacherRepo, sender, clock, cfg.StaleClaimTimeout,
		logger.Get().WithField("component", "autosend"),
	)
	adminSvc := app.NewAdminService(
		teacherRepo, submissionRepo, notificationRepo, usageSvc, autoSendSvc,
		logger.Get().WithField("component", "admin"),
	)

	// Scheduler
	autoSendScheduler := scheduler.NewAutoSendScheduler(
		autoSendSvc,
		logger.Get().WithField("component", "scheduler"),
		cfg.CronSpecSweep,
		cfg.CronSpecReclaim,
	)
	if err := autoSendScheduler.Start(); err != nil {
		log.Fatalf("FATAL: Could not start auto-send scheduler: %v", err)
	}

	// HTTP server
	router := httpapi.NewRouter(submissionSvc, adminSvc, usageSvc, cfg.AdminAPIKey, cfg.Environment, logger.Get().WithField("component", "http"))
	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}
	go func() {
		log.Infof("HTTP server listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("FATAL: HTTP server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down application")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP server shutdown error: %v", err)
	}
	autoSendScheduler.Stop()
	log.Info("Application shut down gracefully")
}
