package scheduler

import (
	"context"
	"log/slog"
	"time"

	"news_webhook/internal/domain"
)

// Dispatcher runs one fetch-then-dispatch cycle.
type Dispatcher interface {
	RunCycle(ctx context.Context) *domain.CycleStats
}

type Scheduler struct {
	dispatcher Dispatcher
	interval   time.Duration
	logger     *slog.Logger
}

func NewScheduler(dispatcher Dispatcher, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		dispatcher: dispatcher,
		interval:   interval,
		logger:     logger,
	}
}

// Start runs one cycle immediately, then one per interval until ctx is
// cancelled. Cycles are not awaited past their synchronous part, so a slow
// delivery never delays the ticker.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	s.dispatcher.RunCycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.dispatcher.RunCycle(ctx)
		}
	}
}
