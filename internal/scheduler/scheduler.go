// Package scheduler runs periodic fetch-and-discard syncs per provider.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/omniverse/omnimarket/internal/connector"
	"github.com/omniverse/omnimarket/internal/metrics"
)

type Scheduler struct {
	cron     *cron.Cron
	registry *connector.Registry
	timeout  time.Duration
	log      *zap.Logger
}

// New builds the scheduler. schedule is a six-field cron expression (seconds
// first); an empty schedule registers nothing, so Start becomes a no-op.
func New(registry *connector.Registry, schedule string, timeout time.Duration, log *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		registry: registry,
		timeout:  timeout,
		log:      log.With(zap.String("component", "scheduler")),
	}
	if schedule == "" {
		return s, nil
	}
	if _, err := s.cron.AddFunc(schedule, s.syncAll); err != nil {
		return nil, fmt.Errorf("couldn't register sync schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for a running pass to drain, up to the
// context deadline.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// RunNow triggers one sync pass outside the schedule.
func (s *Scheduler) RunNow() {
	s.syncAll()
}

func (s *Scheduler) syncAll() {
	for _, conn := range s.registry.All() {
		s.syncOne(conn)
	}
}

func (s *Scheduler) syncOne(conn connector.Connector) {
	provider := string(conn.Provider())

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	report, err := conn.Sync(ctx)
	if err != nil {
		metrics.SyncRuns.WithLabelValues(provider, "error").Inc()
		s.log.Error("scheduled sync failed", zap.String("provider", provider), zap.Error(err))
		return
	}

	metrics.SyncRuns.WithLabelValues(provider, "ok").Inc()
	s.log.Info("scheduled sync completed",
		zap.String("provider", provider),
		zap.Int("markets", report.MarketsSynced))
}
