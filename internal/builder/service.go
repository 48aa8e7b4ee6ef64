// Package builder forms new portfolios from ranked candidate lists and
// records their initial market data.
package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/smokinadvd/crypto-portfolios/internal/domain"
	"github.com/smokinadvd/crypto-portfolios/internal/registry"
	"github.com/smokinadvd/crypto-portfolios/internal/report"
)

// ErrInsufficientCandidates indicates that the candidate pool was too small
// for a creation cycle. The cycle produces no portfolio; the next scheduled
// cycle retries independently.
var ErrInsufficientCandidates = errors.New("insufficient candidates")

// ErrPortfolioCapReached indicates that the configured total portfolio
// count has been reached and no new portfolios are created.
var ErrPortfolioCapReached = errors.New("portfolio cap reached")

// ErrAlreadyCreated indicates that a portfolio already exists for the
// current creation date.
var ErrAlreadyCreated = errors.New("portfolio already created for this date")

// CandidateSource lists ranked candidate assets for a new portfolio.
type CandidateSource interface {
	ListCandidates(ctx context.Context, category string, minMarketCap decimal.Decimal, limit int) ([]domain.Asset, error)
}

// IndexSource fetches the current price of a reference index coin.
type IndexSource interface {
	GetIndexPrice(ctx context.Context, id string) (*decimal.Decimal, error)
}

// IndexSpec names a reference index tracked alongside every portfolio.
// Symbol is the provider identifier ("bitcoin"), Name the display label.
type IndexSpec struct {
	Name   string
	Symbol string
}

// Config holds the portfolio creation policy.
type Config struct {
	Category       string
	MinMarketCap   decimal.Decimal
	CandidateLimit int
	MinPoolSize    int
	PortfolioSize  decimal.Decimal
	MaxPortfolios  int
	Indexes        []IndexSpec
}

// Service creates portfolios and persists their initial state.
type Service struct {
	candidates CandidateSource
	indexes    IndexSource
	registry   registry.Registry
	sink       report.Sink
	cfg        Config
}

// NewService creates a new builder Service.
func NewService(candidates CandidateSource, indexes IndexSource, reg registry.Registry, sink report.Sink, cfg Config) *Service {
	return &Service{
		candidates: candidates,
		indexes:    indexes,
		registry:   reg,
		sink:       sink,
		cfg:        cfg,
	}
}

// Build forms a portfolio from the given candidates dated at now. The whole
// candidate list becomes the basket with an even capital allocation. Index
// initial prices are fetched here; a failed index fetch is recorded as an
// explicit unavailable marker so report rows and histories stay aligned.
func (s *Service) Build(ctx context.Context, candidates []domain.Asset, now time.Time) (*domain.Portfolio, error) {
	if len(candidates) < s.cfg.MinPoolSize {
		return nil, fmt.Errorf("%w: %d of %d required", ErrInsufficientCandidates, len(candidates), s.cfg.MinPoolSize)
	}

	investment := domain.EvenAllocation(s.cfg.PortfolioSize, len(candidates))

	holdings := lo.Map(candidates, func(a domain.Asset, _ int) domain.Holding {
		return domain.Holding{Initial: a, Investment: investment}
	})

	indexes := make([]domain.IndexTrack, 0, len(s.cfg.Indexes))
	for _, spec := range s.cfg.Indexes {
		price, err := s.indexes.GetIndexPrice(ctx, spec.Symbol)
		if err != nil {
			slog.Warn("builder: initial index price unavailable", "index", spec.Name, "error", err)
			price = nil
		}
		indexes = append(indexes, domain.IndexTrack{Name: spec.Name, Symbol: spec.Symbol, Initial: price})
	}

	return &domain.Portfolio{
		CreatedAt: now.UTC(),
		Size:      s.cfg.PortfolioSize,
		Holdings:  holdings,
		Indexes:   indexes,
	}, nil
}

// CreateCycle runs one scheduled creation pass: it checks the portfolio
// cap, lists candidates, builds the portfolio and persists both the
// registry entry and the initial report.
func (s *Service) CreateCycle(ctx context.Context) (*domain.Portfolio, error) {
	count, err := s.registry.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting portfolios: %w", err)
	}
	if count >= s.cfg.MaxPortfolios {
		return nil, ErrPortfolioCapReached
	}

	now := time.Now().UTC()
	id := now.Format("2006-01-02")
	if _, err := s.registry.Get(ctx, id); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyCreated, id)
	} else if !errors.Is(err, registry.ErrNotFound) {
		return nil, fmt.Errorf("checking existing portfolio: %w", err)
	}

	candidates, err := s.candidates.ListCandidates(ctx, s.cfg.Category, s.cfg.MinMarketCap, s.cfg.CandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("listing candidates: %w", err)
	}

	p, err := s.Build(ctx, candidates, now)
	if err != nil {
		return nil, err
	}

	if err := s.registry.Save(ctx, p); err != nil {
		return nil, err
	}

	assets, indexRows := report.BuildRows(p)
	if err := s.sink.UpsertPortfolioReport(ctx, p.ID(), assets, indexRows); err != nil {
		return nil, fmt.Errorf("writing initial report for %s: %w", p.ID(), err)
	}

	slog.Info("builder: portfolio created", "id", p.ID(), "assets", len(p.Holdings), "investment", domain.EvenAllocation(s.cfg.PortfolioSize, len(p.Holdings)))
	return p, nil
}
