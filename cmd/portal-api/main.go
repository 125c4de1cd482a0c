package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/docrequest-portal/internal/handler"
	"github.com/noah-isme/docrequest-portal/internal/repository"
	"github.com/noah-isme/docrequest-portal/internal/scheduler"
	"github.com/noah-isme/docrequest-portal/internal/service"
	"github.com/noah-isme/docrequest-portal/pkg/cache"
	"github.com/noah-isme/docrequest-portal/pkg/config"
	"github.com/noah-isme/docrequest-portal/pkg/database"
	"github.com/noah-isme/docrequest-portal/pkg/export"
	"github.com/noah-isme/docrequest-portal/pkg/jobs"
	"github.com/noah-isme/docrequest-portal/pkg/logger"
	"github.com/noah-isme/docrequest-portal/pkg/mailer"
	"github.com/noah-isme/docrequest-portal/pkg/storage"
)

// @title Document Request Portal API
// @version 1.0.0
// @description Operators request documents from external parties who upload them through a tokenised portal.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("portal api stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	redisClient := connectRedis(ctx, cfg, logr)
	if redisClient != nil {
		defer redisClient.Close()
	}

	blobs, err := newArtifactStore(ctx, cfg.Artifacts)
	if err != nil {
		return fmt.Errorf("init artifact store: %w", err)
	}

	app := buildServices(cfg, db, redisClient, blobs, logr)

	var sched *scheduler.Scheduler
	if cfg.Sweep.Enabled {
		sched, err = scheduler.New(cfg.Sweep.Schedule, app.requests, logr.Named("scheduler"))
		if err != nil {
			return err
		}
	}

	app.queue.Start(ctx)
	if sched != nil {
		sched.Start()
	}

	router := newRouter(cfg, app, logr)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var serveFailure error
	select {
	case err := <-serveErr:
		if err != nil {
			serveFailure = fmt.Errorf("serve http: %w", err)
		}
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if sched != nil {
		sched.Stop(shutdownCtx)
	}
	shutdownErr := srv.Shutdown(shutdownCtx)
	app.queue.Stop(shutdownCtx)
	return errors.Join(serveFailure, shutdownErr)
}

// connectRedis returns nil when the shared cache tier is disabled or unreachable;
// the registry then serves from its local tier and the database.
func connectRedis(ctx context.Context, cfg *config.Config, logr *zap.Logger) *redis.Client {
	if !cfg.Registry.CacheEnabled {
		return nil
	}
	client, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, shared registry cache disabled", zap.Error(err))
		return nil
	}
	return client
}

func newArtifactStore(ctx context.Context, cfg config.ArtifactConfig) (storage.ArtifactStore, error) {
	switch cfg.Store {
	case config.ArtifactStoreS3:
		return storage.NewS3Store(ctx, cfg.S3Bucket, cfg.S3Prefix)
	case config.ArtifactStoreLocal, "":
		return storage.NewLocalStorage(cfg.LocalDir)
	default:
		return nil, fmt.Errorf("unknown artifact store %q", cfg.Store)
	}
}

func newSender(cfg config.MailConfig, logr *zap.Logger) mailer.Sender {
	if cfg.SendGridAPIKey == "" {
		logr.Warn("SENDGRID_API_KEY not set, notifications are logged instead of sent")
		return mailer.NewLogSender(logr.Named("mailer"))
	}
	return mailer.NewSendGridSender(cfg.SendGridAPIKey, cfg.FromAddress, cfg.FromName)
}

type services struct {
	metrics  *service.MetricsService
	auth     *service.AuthService
	registry *service.ConfigRegistry
	requests *service.RequestService
	sessions *service.TokenSessionService
	uploads  *service.UploadService
	review   *service.ReviewService
	activity *service.ActivityService
	queue    *jobs.Queue
	pingers  map[string]handler.Pinger
}

func buildServices(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, blobs storage.ArtifactStore, logr *zap.Logger) *services {
	validate := validator.New()
	metrics := service.NewMetricsService()

	requestRepo := repository.NewDocumentRequestRepository(db)
	configRepo := repository.NewEntityTypeConfigRepository(db)
	artifactRepo := repository.NewFileArtifactRepository(db)
	recordRepo := repository.NewRecordRepository(db)
	assignmentRepo := repository.NewReviewAssignmentRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	pingers := map[string]handler.Pinger{"postgres": db}
	var sharedCache *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr.Named("cache"))
		sharedCache = service.NewCacheService(cacheRepo, metrics, cfg.Registry.CacheTTL, logr.Named("cache"), true, service.WithCacheNamespace("docportal"))
		pingers["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	registry := service.NewConfigRegistry(configRepo, sharedCache, cfg.Registry.CacheTTL, validate, auditRepo, logr.Named("registry"))
	resolver := service.NewRecipientResolver(registry, recordRepo, logr.Named("resolver"))

	notifications := service.NewNotificationService(newSender(cfg.Mail, logr), metrics, logr.Named("notifications"))
	queue := jobs.NewQueue("notifications", notifications.HandleJob, jobs.QueueConfig{
		Workers:       cfg.Notifications.Workers,
		BufferSize:    256,
		MaxRetries:    cfg.Notifications.Retries,
		RetryDelay:    5 * time.Second,
		MaxRetryDelay: 2 * time.Minute,
		OnExhausted:   notifications.HandleExhausted,
		Logger:        logr.Named("jobs"),
	})
	notifications.SetQueue(queue)

	requests := service.NewRequestService(service.RequestServiceDeps{
		Requests:    requestRepo,
		Artifacts:   artifactRepo,
		Configs:     registry,
		Resolver:    resolver,
		Records:     recordRepo,
		Notifier:    notifications,
		Assignments: assignmentRepo,
		Audit:       auditRepo,
		Metrics:     metrics,
		Validator:   validate,
		Logger:      logr.Named("requests"),
	}, service.RequestServiceConfig{PortalBaseURL: cfg.Portal.BaseURL})

	sessions := service.NewTokenSessionService(requestRepo, registry, auditRepo, metrics, logr.Named("portal"))
	uploads := service.NewUploadService(sessions, requestRepo, blobs, assignmentRepo, auditRepo, metrics, logr.Named("uploads"),
		service.UploadServiceConfig{DefaultOwnerID: cfg.Portal.DefaultOwnerID})

	review := service.NewReviewService(service.ReviewServiceDeps{
		Requests:  requestRepo,
		Artifacts: artifactRepo,
		Blobs:     blobs,
		Signer:    storage.NewSignedURLSigner(cfg.Artifacts.SigningSecret, cfg.Artifacts.DownloadTTL),
		CSV:       export.NewCSVExporter(),
		PDF:       export.NewPDFExporter(),
		Audit:     auditRepo,
		Metrics:   metrics,
		Validator: validate,
		Logger:    logr.Named("review"),
	}, cfg.PublicBaseURL+cfg.APIPrefix+"/downloads")

	return &services{
		metrics:  metrics,
		auth:     service.NewAuthService(service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer, Audience: cfg.JWT.Audience}),
		registry: registry,
		requests: requests,
		sessions: sessions,
		uploads:  uploads,
		review:   review,
		activity: service.NewActivityService(requestRepo, assignmentRepo, auditRepo, logr.Named("activity")),
		queue:    queue,
		pingers:  pingers,
	}
}
