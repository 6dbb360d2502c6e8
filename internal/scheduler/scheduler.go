// Package scheduler runs the kiosk's periodic jobs: the button catalog
// synchronisation, the expiry of idle sessions and the pruning of the
// persisted log.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ndewijer/note-kfet-kiosk/internal/logging"
	"github.com/ndewijer/note-kfet-kiosk/internal/model"
)

const (
	// SweepSchedule is how often idle sessions are expired.
	SweepSchedule = "@every 5m"
	// PruneSchedule is when old log entries are deleted.
	PruneSchedule = "@daily"
)

// CatalogSyncer downloads the button catalog.
type CatalogSyncer interface {
	Sync(ctx context.Context) (model.CatalogSync, error)
}

// SessionSweeper expires idle sessions.
type SessionSweeper interface {
	Sweep(ctx context.Context) int
}

// LogPruner deletes persisted log entries past their retention.
type LogPruner interface {
	PruneLogs(ctx context.Context) int64
}

// Scheduler wraps a cron runner.
type Scheduler struct {
	cron    *cron.Cron
	logger  *logging.Logger
	timeout time.Duration
}

// New registers the catalog sync on syncSchedule and the session sweep. An
// empty syncSchedule disables the periodic sync.
func New(catalog CatalogSyncer, sessions SessionSweeper, syncSchedule string, timeout time.Duration) (*Scheduler, error) {
	logger := logging.L().Named("scheduler")
	adapter := cronLogger{logger.Sugar()}

	s := &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(adapter),
			cron.SkipIfStillRunning(adapter),
		)),
		logger:  logger,
		timeout: timeout,
	}

	if syncSchedule != "" {
		if _, err := s.cron.AddFunc(syncSchedule, func() { s.syncCatalog(catalog) }); err != nil {
			return nil, fmt.Errorf("invalid catalog sync schedule %q: %w", syncSchedule, err)
		}
	}
	if sessions != nil {
		if _, err := s.cron.AddFunc(SweepSchedule, func() { sessions.Sweep(context.Background()) }); err != nil {
			return nil, fmt.Errorf("invalid sweep schedule: %w", err)
		}
	}

	return s, nil
}

// AddLogPruning registers the daily log pruning. Call it before Start.
func (s *Scheduler) AddLogPruning(p LogPruner) error {
	_, err := s.cron.AddFunc(PruneSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		p.PruneLogs(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid prune schedule: %w", err)
	}
	return nil
}

func (s *Scheduler) syncCatalog(catalog CatalogSyncer) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	sync, err := catalog.Sync(ctx)
	if err != nil {
		s.logger.Error("scheduled catalog sync failed", zap.Error(err))
		return
	}
	s.logger.Info("scheduled catalog sync done", zap.Int("buttons", sync.Templates))
}

// Start runs the jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop stops scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger routes cron's own logs to zap.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
