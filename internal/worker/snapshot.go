package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/smokinadvd/crypto-portfolios/internal/domain"
	"github.com/smokinadvd/crypto-portfolios/internal/registry"
)

// PortfolioAdvancer brings one portfolio's histories up to the snapshot
// count due at now.
type PortfolioAdvancer interface {
	Advance(ctx context.Context, p *domain.Portfolio, now time.Time) (int, error)
}

// SnapshotWorker polls live portfolios at a fixed granularity and advances
// each one independently.
type SnapshotWorker struct {
	registry registry.Registry
	advancer PortfolioAdvancer
	interval time.Duration
}

// NewSnapshotWorker creates a new SnapshotWorker.
func NewSnapshotWorker(reg registry.Registry, advancer PortfolioAdvancer, interval time.Duration) *SnapshotWorker {
	return &SnapshotWorker{
		registry: reg,
		advancer: advancer,
		interval: interval,
	}
}

// Run starts the polling loop. It blocks until the context is cancelled.
func (w *SnapshotWorker) Run(ctx context.Context) {
	slog.Info("SnapshotWorker: starting")

	w.pollOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("SnapshotWorker: shutting down")
			return
		case <-ticker.C:
			w.pollOnce(ctx)
		}
	}
}

// pollOnce advances every live portfolio. One portfolio's failure never
// aborts processing of its siblings.
func (w *SnapshotWorker) pollOnce(ctx context.Context) {
	portfolios, err := w.registry.ListLive(ctx)
	if err != nil {
		slog.Error("SnapshotWorker: listing live portfolios failed", "error", err)
		return
	}

	now := time.Now().UTC()
	advanced := 0
	for _, p := range portfolios {
		if ctx.Err() != nil {
			return
		}
		n, err := w.advancer.Advance(ctx, p, now)
		advanced += n
		if err != nil {
			slog.Error("SnapshotWorker: advance failed", "portfolio", p.ID(), "appended", n, "error", err)
		}
	}

	if advanced > 0 {
		slog.Info("SnapshotWorker: poll completed", "portfolios", len(portfolios), "snapshots", advanced)
	}
}
