// Package worker runs the recurring loops that create portfolios and poll
// them for due snapshots.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/smokinadvd/crypto-portfolios/internal/builder"
	"github.com/smokinadvd/crypto-portfolios/internal/domain"
)

// PortfolioCreator runs one scheduled portfolio creation cycle.
type PortfolioCreator interface {
	CreateCycle(ctx context.Context) (*domain.Portfolio, error)
}

// CreationWorker periodically attempts to create a new portfolio.
type CreationWorker struct {
	creator  PortfolioCreator
	interval time.Duration
}

// NewCreationWorker creates a new CreationWorker.
func NewCreationWorker(creator PortfolioCreator, interval time.Duration) *CreationWorker {
	return &CreationWorker{
		creator:  creator,
		interval: interval,
	}
}

// Run starts the creation loop. It blocks until the context is cancelled.
func (w *CreationWorker) Run(ctx context.Context) {
	slog.Info("CreationWorker: starting")

	w.createOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("CreationWorker: shutting down")
			return
		case <-ticker.C:
			w.createOnce(ctx)
		}
	}
}

// createOnce runs a single creation cycle. InsufficientCandidates, the
// portfolio cap and a same-date rerun are expected skip conditions, not
// failures.
func (w *CreationWorker) createOnce(ctx context.Context) {
	p, err := w.creator.CreateCycle(ctx)
	switch {
	case err == nil:
		slog.Info("CreationWorker: portfolio created", "portfolio", p.ID())
	case errors.Is(err, builder.ErrInsufficientCandidates):
		slog.Warn("CreationWorker: cycle skipped", "reason", err)
	case errors.Is(err, builder.ErrPortfolioCapReached),
		errors.Is(err, builder.ErrAlreadyCreated):
		slog.Info("CreationWorker: cycle skipped", "reason", err)
	default:
		slog.Error("CreationWorker: creation failed", "error", err)
	}
}
