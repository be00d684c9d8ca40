package report

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Scheduler re-runs the report on a fixed interval so the exported workbook
// and the in-memory sheets stay current as new records land. It is
// stateless: every tick is a full run against the live data.
type Scheduler struct {
	interval time.Duration
	engine   *Engine
}

func NewScheduler(interval time.Duration, engine *Engine) *Scheduler {
	return &Scheduler{interval: interval, engine: engine}
}

// Start runs an initial report immediately, then one per interval until the
// context is cancelled. Run failures are logged and the next tick retries.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("[Scheduler] Starting report scheduler", "interval", s.interval)
	s.runOnce(ctx)

	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx)
		case <-ctx.Done():
			slog.Info("[Scheduler] Stopping (context cancelled)")
			return nil
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.engine.Run(ctx); err != nil {
		if errors.Is(err, ErrRunInProgress) {
			slog.Warn("[Scheduler] Previous run still active, skipping tick")
			return
		}
		slog.Error("[Scheduler] Scheduled run failed", "error", err)
	}
}
