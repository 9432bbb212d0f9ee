package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/Priya8975/event-console/internal/clock"
	"github.com/Priya8975/event-console/internal/metrics"
)

type OverdueMarker interface {
	MarkOverdueInstallments(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper periodically flags installments whose due date has passed.
type Sweeper struct {
	store    OverdueMarker
	clock    clock.Clock
	interval time.Duration
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewSweeper(store OverdueMarker, clk clock.Clock, interval time.Duration, m *metrics.Metrics, logger *slog.Logger) *Sweeper {
	return &Sweeper{store: store, clock: clk, interval: interval, metrics: m, logger: logger}
}

// Start sweeps once immediately and then every interval until ctx is done.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

func (s *Sweeper) Sweep(ctx context.Context) {
	n, err := s.store.MarkOverdueInstallments(ctx, s.clock.Now())
	if err != nil {
		s.logger.Error("overdue sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("installments marked overdue", "count", n)
		s.metrics.OverdueFlagged(n)
	}
}
