package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/atrium-realty/atrium/internal/app"
	"github.com/atrium-realty/atrium/internal/auth"
	"github.com/atrium-realty/atrium/internal/clients"
	"github.com/atrium-realty/atrium/internal/contact"
	"github.com/atrium-realty/atrium/internal/guard"
	"github.com/atrium-realty/atrium/internal/identity"
	"github.com/atrium-realty/atrium/internal/notifications"
	"github.com/atrium-realty/atrium/internal/observability"
	"github.com/atrium-realty/atrium/internal/platform/cache"
	"github.com/atrium-realty/atrium/internal/platform/db"
	"github.com/atrium-realty/atrium/internal/platform/storage"
	"github.com/atrium-realty/atrium/internal/properties"
	"github.com/atrium-realty/atrium/internal/requests"
	"github.com/atrium-realty/atrium/internal/shared"
	"github.com/atrium-realty/atrium/internal/users"
	"github.com/atrium-realty/atrium/internal/view"
	"github.com/atrium-realty/atrium/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	sessionManager := shared.NewSessionManager(redisClient, "atrium_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	legacyCodec := identity.NewLegacyCodec(cfg.LegacyCookieSecret)
	profileStore := identity.NewProfileStore(dbpool, db.ParseMissingRelationPolicy(cfg.MissingRelationPolicy), logger)
	resolver := identity.NewResolver(profileStore, legacyCodec, logger, cfg.ResolverTimeout)

	routeGuard := &guard.Guard{
		Resolver: resolver,
		Logger:   logger,
		RenderDenial: func(w http.ResponseWriter, r *http.Request, d guard.Denial) {
			if err := templates.Render(w, "pages/denied.html", view.TemplateData{
				Title:       "Access denied",
				CurrentPath: r.URL.Path,
				Data:        d,
			}); err != nil {
				logger.Error("render denial", slog.Any("error", err))
			}
		},
	}

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

	tokenIssuer := auth.NewTokenIssuer(cfg.TokenSecret)
	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, tokenIssuer, mailer, logger)
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager, routeGuard, resolver, cfg.IsProduction())

	notificationsRepo := notifications.NewRepository(dbpool)
	notificationsService := notifications.NewService(notificationsRepo, mailer, logger)
	alerts := notifications.NewAlerts(notificationsService, mailer, cfg.OfficeEmail, logger)
	notificationsHandler := notifications.NewHandler(logger, notificationsService, templates, csrfManager, routeGuard)

	requestsRepo := requests.NewRepository(dbpool)
	requestsService := requests.NewService(requestsRepo, idempotencyStore, alerts, auditLogger, logger)
	requestsHandler := requests.NewHandler(logger, requestsService, templates, csrfManager, routeGuard)

	mediaStore, err := storage.NewObjectStore(ctx, storage.Config{
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		PublicURL: cfg.S3PublicURL,
		Prefix:    cfg.S3Prefix,
	})
	if err != nil {
		logger.Error("init object store", slog.Any("error", err))
		os.Exit(1)
	}

	propertiesRepo := properties.NewRepository(dbpool)
	propertiesService := properties.NewService(propertiesRepo, mediaStore, auditLogger, logger)
	propertiesHandler := properties.NewHandler(logger, propertiesService, templates, csrfManager, routeGuard)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, auditLogger, resolver, logger)
	usersHandler := users.NewHandler(logger, usersService, templates, csrfManager, routeGuard)

	clientsRepo := clients.NewRepository(dbpool)
	clientsService := clients.NewService(clientsRepo)
	clientsHandler := clients.NewHandler(logger, clientsService, templates, csrfManager, routeGuard)

	contactRepo := contact.NewRepository(dbpool)
	contactService := contact.NewService(contactRepo, alerts)
	contactHandler := contact.NewHandler(logger, contactService, templates, csrfManager, routeGuard)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		Templates:            templates,
		SessionManager:       sessionManager,
		CSRFManager:          csrfManager,
		Guard:                routeGuard,
		Resolver:             resolver,
		AuthHandler:          authHandler,
		UsersHandler:         usersHandler,
		RequestsHandler:      requestsHandler,
		PropertiesHandler:    propertiesHandler,
		ClientsHandler:       clientsHandler,
		ContactHandler:       contactHandler,
		NotificationsHandler: notificationsHandler,
		JobHandler:           jobHandler,
		Metrics:              metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
