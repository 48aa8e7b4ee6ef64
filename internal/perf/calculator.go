// Package perf computes per-asset and aggregate return metrics for one
// snapshot of a portfolio.
package perf

import (
	"errors"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/smokinadvd/crypto-portfolios/internal/domain"
)

// AssetReturn is the computed performance of one holding at one snapshot.
// CurrentPrice is nil when the quote was unavailable; ReturnPct is nil when
// the quote was unavailable or the initial price was zero.
type AssetReturn struct {
	AssetID      string
	InitialPrice decimal.Decimal
	CurrentPrice *decimal.Decimal
	ReturnPct    *decimal.Decimal
}

// IndexReturn is the computed performance of one tracked index.
type IndexReturn struct {
	Name         string
	InitialPrice *decimal.Decimal
	CurrentPrice *decimal.Decimal
	ReturnPct    *decimal.Decimal
}

// SnapshotResult holds the outcome of one re-sampling pass. Assets follow
// basket order; Aggregate is the simple mean over defined per-asset
// returns, nil when none are defined.
type SnapshotResult struct {
	Month     int
	Assets    []AssetReturn
	Aggregate *decimal.Decimal
	Indexes   []IndexReturn
}

// ComputeSnapshot derives return metrics for snapshot number month from a
// fresh set of quotes. Unavailable quotes and zero initial prices are
// contained per asset: they produce nil entries and are excluded from the
// aggregate without affecting siblings.
func ComputeSnapshot(p *domain.Portfolio, month int, quotes map[string]*domain.Asset, indexPrices map[string]*decimal.Decimal) SnapshotResult {
	result := SnapshotResult{
		Month:  month,
		Assets: make([]AssetReturn, 0, len(p.Holdings)),
	}

	for _, h := range p.Holdings {
		ar := AssetReturn{
			AssetID:      h.Initial.ID,
			InitialPrice: h.Initial.Price,
		}
		if quote := quotes[h.Initial.ID]; quote != nil {
			price := quote.Price
			ar.CurrentPrice = &price
			pct, err := domain.ReturnPct(h.Initial.Price, price)
			if err == nil {
				ar.ReturnPct = &pct
			} else if !errors.Is(err, domain.ErrDivisionUndefined) {
				// ReturnPct only fails on zero initial price.
				panic(err)
			}
		}
		result.Assets = append(result.Assets, ar)
	}

	defined := lo.FilterMap(result.Assets, func(ar AssetReturn, _ int) (decimal.Decimal, bool) {
		if ar.ReturnPct == nil {
			return decimal.Decimal{}, false
		}
		return *ar.ReturnPct, true
	})
	result.Aggregate = domain.Mean(defined)

	for _, ix := range p.Indexes {
		ir := IndexReturn{
			Name:         ix.Name,
			InitialPrice: ix.Initial,
			CurrentPrice: indexPrices[ix.Name],
		}
		if ix.Initial != nil && ir.CurrentPrice != nil {
			pct, err := domain.ReturnPct(*ix.Initial, *ir.CurrentPrice)
			if err == nil {
				ir.ReturnPct = &pct
			}
		}
		result.Indexes = append(result.Indexes, ir)
	}

	return result
}
