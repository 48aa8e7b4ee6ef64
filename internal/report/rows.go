// Package report builds the tabular representation of a portfolio and
// writes it to a spreadsheet destination.
//
// Layout per portfolio: one sheet named "Portfolio <creation date>". Columns
// 1..7 are fixed (Coin Name, Symbol, ID, Initial Price, 24h Change,
// 7d Change, Market Cap); columns 8..19 hold "Month 1".."Month 12" prices
// and fill in as snapshots elapse. Index rows trail the asset block after a
// blank row, with their initial price in the Initial Price column and month
// prices aligned with the asset month columns.
package report

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/smokinadvd/crypto-portfolios/internal/domain"
)

// FixedColumns is the number of fixed header columns before the month block.
const FixedColumns = 7

// AssetRow is one asset line of the report table.
type AssetRow struct {
	Name         string
	Symbol       string
	ID           string
	InitialPrice decimal.Decimal
	Change24h    decimal.Decimal
	Change7d     decimal.Decimal
	MarketCap    decimal.Decimal
	Monthly      []*decimal.Decimal
}

// IndexRow is one reference-index line of the report table. Initial is nil
// when the creation-time fetch failed; the row is still emitted.
type IndexRow struct {
	Name    string
	Initial *decimal.Decimal
	Monthly []*decimal.Decimal
}

// BuildRows converts a portfolio into report rows, preserving basket order.
// Monthly slices carry exactly one entry per recorded snapshot; unavailable
// quotes stay nil so the sink renders an explicit gap, never a zero.
func BuildRows(p *domain.Portfolio) ([]AssetRow, []IndexRow) {
	assets := lo.Map(p.Holdings, func(h domain.Holding, _ int) AssetRow {
		return AssetRow{
			Name:         h.Initial.Name,
			Symbol:       h.Initial.Symbol,
			ID:           h.Initial.ID,
			InitialPrice: h.Initial.Price,
			Change24h:    h.Initial.Change24h,
			Change7d:     h.Initial.Change7d,
			MarketCap:    h.Initial.MarketCap,
			Monthly:      monthlyPrices(h.History),
		}
	})

	indexes := lo.Map(p.Indexes, func(ix domain.IndexTrack, _ int) IndexRow {
		return IndexRow{
			Name:    ix.Name,
			Initial: ix.Initial,
			Monthly: monthlyPrices(ix.History),
		}
	})

	return assets, indexes
}

func monthlyPrices(history []domain.PricePoint) []*decimal.Decimal {
	return lo.Map(history, func(pt domain.PricePoint, _ int) *decimal.Decimal {
		return pt.Price
	})
}
