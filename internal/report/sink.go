package report

import (
	"context"
	"fmt"
)

// Sink persists a portfolio report. Implementations must tolerate one call
// at creation and one per due snapshot, appending new month columns without
// rewriting historical ones.
type Sink interface {
	UpsertPortfolioReport(ctx context.Context, portfolioID string, assets []AssetRow, indexes []IndexRow) error
}

// NullSink discards reports. Used when no export destination is configured.
type NullSink struct{}

func (NullSink) UpsertPortfolioReport(context.Context, string, []AssetRow, []IndexRow) error {
	return nil
}

// SheetName returns the report grouping name for a portfolio id.
func SheetName(portfolioID string) string {
	return fmt.Sprintf("Portfolio %s", portfolioID)
}

// headerRow is the fixed part of the table header plus the 12 month columns.
func headerRow() []any {
	header := []any{"Coin Name", "Symbol", "ID", "Initial Price", "24h Change", "7d Change", "Market Cap"}
	for i := 1; i <= 12; i++ {
		header = append(header, fmt.Sprintf("Month %d Price", i))
	}
	return header
}

// columnLetter converts a 1-based column number to its A1-notation letters.
func columnLetter(n int) string {
	s := ""
	for n > 0 {
		n--
		s = string(rune('A'+n%26)) + s
		n /= 26
	}
	return s
}
