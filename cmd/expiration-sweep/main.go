// Command expiration-sweep runs one expiration pass and exits. It is meant for
// deployments that schedule the sweep externally (Kubernetes CronJob, systemd
// timer) with ENABLE_SWEEP=false on the API.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/docrequest-portal/internal/repository"
	"github.com/noah-isme/docrequest-portal/internal/service"
	"github.com/noah-isme/docrequest-portal/pkg/config"
	"github.com/noah-isme/docrequest-portal/pkg/database"
	"github.com/noah-isme/docrequest-portal/pkg/logger"
)

const sweepTimeout = 10 * time.Minute

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
		logr.Fatal("expiration sweep failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	requests := service.NewRequestService(service.RequestServiceDeps{
		Requests:    repository.NewDocumentRequestRepository(db),
		Assignments: repository.NewReviewAssignmentRepository(db),
		Audit:       repository.NewAuditRepository(db),
		Metrics:     service.NewMetricsService(),
		Logger:      logr.Named("sweep"),
	}, service.RequestServiceConfig{PortalBaseURL: cfg.Portal.BaseURL})

	start := time.Now()
	expired, err := requests.RunExpirationSweep(ctx)
	if err != nil {
		return err
	}
	logr.Info("one-shot sweep complete", zap.Int("expired", expired), zap.Duration("elapsed", time.Since(start)))
	return nil
}
