package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/smokinadvd/crypto-portfolios/internal/domain"
	"github.com/smokinadvd/crypto-portfolios/internal/perf"
	"github.com/smokinadvd/crypto-portfolios/internal/registry"
	"github.com/smokinadvd/crypto-portfolios/internal/report"
)

// QuoteSource provides live asset quotes and index prices.
type QuoteSource interface {
	GetQuotes(ctx context.Context, ids []string) (map[string]*domain.Asset, error)
	GetIndexPrice(ctx context.Context, id string) (*decimal.Decimal, error)
}

// Service advances live portfolios to the snapshot count due at poll time.
type Service struct {
	quotes   QuoteSource
	registry registry.Registry
	sink     report.Sink
	interval time.Duration
	horizon  int
}

// NewService creates a new scheduling Service with the given snapshot cadence.
func NewService(quotes QuoteSource, reg registry.Registry, sink report.Sink, interval time.Duration) *Service {
	return &Service{
		quotes:   quotes,
		registry: reg,
		sink:     sink,
		interval: interval,
		horizon:  domain.Horizon,
	}
}

// Advance catches the portfolio's histories up to the snapshot count due at
// now and returns how many snapshots it recorded. Each missed boundary gets
// its own fresh fetch; a fetch failure defers the remaining slots to the
// next poll while slots already appended stand. Repeating the call within
// the same boundary window appends nothing.
func (s *Service) Advance(ctx context.Context, p *domain.Portfolio, now time.Time) (int, error) {
	if p.Retired {
		return 0, nil
	}
	if p.Complete() {
		return 0, s.retire(ctx, p)
	}

	due := SnapshotsDue(p.CreatedAt, now, s.interval, s.horizon)

	appended := 0
	var deferred error
	for k := p.SnapshotCount() + 1; k <= due; k++ {
		if err := s.recordSnapshot(ctx, p, k, now); err != nil {
			deferred = fmt.Errorf("portfolio %s snapshot %d: %w", p.ID(), k, err)
			break
		}
		appended++
	}

	if appended > 0 {
		if p.Complete() {
			p.Retired = true
		}
		if err := s.registry.Save(ctx, p); err != nil {
			return appended, err
		}
		assets, indexes := report.BuildRows(p)
		if err := s.sink.UpsertPortfolioReport(ctx, p.ID(), assets, indexes); err != nil {
			return appended, fmt.Errorf("updating report for %s: %w", p.ID(), err)
		}
		if p.Retired {
			slog.Info("schedule: portfolio retired", "portfolio", p.ID(), "snapshots", p.SnapshotCount())
		}
	}

	return appended, deferred
}

// recordSnapshot performs one re-sampling pass for snapshot number k: a
// fresh quote fetch, return computation, and one aligned history append.
// It either appends a full slot or nothing.
func (s *Service) recordSnapshot(ctx context.Context, p *domain.Portfolio, k int, now time.Time) error {
	quotes, err := s.quotes.GetQuotes(ctx, p.AssetIDs())
	if err != nil {
		return err
	}

	indexPrices := make(map[string]*decimal.Decimal, len(p.Indexes))
	for _, ix := range p.Indexes {
		price, err := s.quotes.GetIndexPrice(ctx, ix.Symbol)
		if err != nil {
			return fmt.Errorf("index %s: %w", ix.Name, err)
		}
		indexPrices[ix.Name] = price
	}

	result := perf.ComputeSnapshot(p, k, quotes, indexPrices)

	// The slot is backfilled when its successor boundary has also passed:
	// the fetched quote then stands in for a price we never observed.
	backfilled := now.Sub(p.CreatedAt) >= time.Duration(k+1)*s.interval

	assetPoints := make(map[string]domain.PricePoint, len(result.Assets))
	for _, ar := range result.Assets {
		assetPoints[ar.AssetID] = domain.PricePoint{Price: ar.CurrentPrice, Backfilled: backfilled, ObservedAt: now}
	}
	indexPoints := make(map[string]domain.PricePoint, len(result.Indexes))
	for _, ir := range result.Indexes {
		indexPoints[ir.Name] = domain.PricePoint{Price: ir.CurrentPrice, Backfilled: backfilled, ObservedAt: now}
	}

	if err := p.AppendSnapshot(assetPoints, indexPoints); err != nil {
		return err
	}

	slog.Info("schedule: snapshot recorded",
		"portfolio", p.ID(),
		"month", k,
		"aggregate", aggregateString(result.Aggregate),
		"backfilled", backfilled)
	return nil
}

func (s *Service) retire(ctx context.Context, p *domain.Portfolio) error {
	p.Retired = true
	if err := s.registry.Save(ctx, p); err != nil {
		return err
	}
	slog.Info("schedule: portfolio retired", "portfolio", p.ID(), "snapshots", p.SnapshotCount())
	return nil
}

func aggregateString(d *decimal.Decimal) string {
	if d == nil {
		return "undefined"
	}
	return d.StringFixed(2)
}
