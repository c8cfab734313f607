// Package scheduler runs the Canvas pull-then-upsert pipeline on a fixed
// interval. It is disabled by default and enabled via configuration.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taskflowhq/taskflow/internal/syncer"
)

type Scheduler struct {
	syncer   *syncer.Service
	logger   *zap.Logger
	interval time.Duration
	wg       sync.WaitGroup
	stop     chan struct{}
}

func New(svc *syncer.Service, logger *zap.Logger, interval time.Duration) *Scheduler {
	return &Scheduler{
		syncer:   svc,
		logger:   logger,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting sync scheduler", zap.Duration("interval", s.interval))

	s.wg.Add(1)
	go s.run(ctx)
}

func (s *Scheduler) Stop() {
	s.logger.Info("Stopping sync scheduler...")
	close(s.stop)
	s.wg.Wait()
	s.logger.Info("Sync scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce executes a single sync cycle. Every failure is logged and swallowed
// so the next tick always gets its chance.
func (s *Scheduler) runOnce(ctx context.Context) {
	stats, err := s.syncer.Sync(ctx, nil)
	if err != nil {
		s.logger.Error("scheduled sync failed", zap.Error(err))
		return
	}

	s.logger.Info("scheduled sync completed",
		zap.Int("created", stats.Created),
		zap.Int("updated", stats.Updated),
		zap.Int("total", stats.Total),
		zap.Int("prioritized", stats.Prioritized),
		zap.Int("skipped", stats.Skipped),
		zap.Int("ai_used", stats.AIUsed),
	)
}
