package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/atrium-realty/atrium/internal/app"
	jobmetrics "github.com/atrium-realty/atrium/internal/jobs"
	"github.com/atrium-realty/atrium/internal/notifications"
	"github.com/atrium-realty/atrium/internal/platform/cache"
	"github.com/atrium-realty/atrium/internal/platform/db"
	"github.com/atrium-realty/atrium/internal/requests"
	"github.com/atrium-realty/atrium/internal/shared"
	"github.com/atrium-realty/atrium/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	mailer := jobs.NewMailer(jobsClient, cfg.BaseURL, cfg.MailFrom)

	var emailSender jobs.EmailSender
	if cfg.SMTPHost != "" {
		emailSender = jobs.NewSMTPSender(jobs.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			From:     cfg.MailFrom,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			UseTLS:   cfg.SMTPTLS,
		})
	} else {
		logger.Warn("smtp relay not configured, queued mail will be logged only")
	}

	idempotencyStore := shared.NewIdempotencyStore(pool)

	notificationsRepo := notifications.NewRepository(pool)
	notificationsService := notifications.NewService(notificationsRepo, mailer, logger)

	requestsRepo := requests.NewRepository(pool)

	staleTask, err := jobs.NewStaleScanTask(cfg.RequestsStaleAfter)
	if err != nil {
		logger.Error("build stale scan task", slog.Any("error", err))
		os.Exit(1)
	}
	cleanupTask, err := jobs.NewMaintenanceCleanupTask(time.Now().UTC())
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Metrics:   jobmetrics.NewMetrics(nil),
		Mail:      jobs.NewSendEmailHandler(emailSender, logger),
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskRequestsStaleScan, Handler: jobs.NewStaleScanHandler(requestsRepo, notificationsService, logger)},
			{Type: jobs.TaskMaintenanceCleanup, Handler: jobs.NewMaintenanceCleanupHandler(idempotencyStore, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 */6 * * *", Task: staleTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 3 * * *", Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
