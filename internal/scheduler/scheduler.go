package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const defaultSweepTimeout = 10 * time.Minute

// Sweeper expires requests whose token window has closed.
type Sweeper interface {
	RunExpirationSweep(ctx context.Context) (int, error)
}

// Scheduler runs the periodic expiration sweep.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	logger  *zap.Logger
	timeout time.Duration
}

// New registers the sweep under the given six-field cron schedule (seconds first, UTC).
func New(schedule string, sweeper Sweeper, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	s := &Scheduler{cron: c, sweeper: sweeper, logger: logger, timeout: defaultSweepTimeout}
	if _, err := c.AddFunc(schedule, s.RunSweep); err != nil {
		return nil, fmt.Errorf("register expiration sweep %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins firing scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop prevents new runs and waits for a running sweep to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out; sweep still running")
	}
}

// RunSweep performs one sweep. Failures are logged; the next tick retries.
func (s *Scheduler) RunSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	expired, err := s.sweeper.RunExpirationSweep(ctx)
	if err != nil {
		s.logger.Error("expiration sweep failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return
	}
	s.logger.Info("expiration sweep finished", zap.Int("expired", expired), zap.Duration("elapsed", time.Since(start)))
}
