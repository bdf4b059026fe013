package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Runner is one ingestion cycle. Satisfied by *pipeline.Pipeline.
type Runner interface {
	Run(ctx context.Context) error
}

// Scheduler runs the ingestion pipeline on a fixed interval. Ticks are
// strictly sequential: a slow cycle delays the next one but never overlaps
// it. A failed cycle is logged and abandoned until the next tick.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	stop     chan struct{}
}

func New(r Runner, interval time.Duration) *Scheduler {
	return &Scheduler{
		runner:   r,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start begins the periodic cycles. Blocks until Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("scheduler started", "interval", s.interval)

	for {
		select {
		case <-ticker.C:
			slog.Info("scheduler: triggering ingestion cycle")
			if err := s.runner.Run(ctx); err != nil {
				slog.Error("scheduler: cycle failed", "error", err)
			}
		case <-s.stop:
			slog.Info("scheduler stopped")
			return
		case <-ctx.Done():
			slog.Info("scheduler context cancelled")
			return
		}
	}
}

// Stop signals the scheduler to stop.
func (s *Scheduler) Stop() {
	close(s.stop)
}
