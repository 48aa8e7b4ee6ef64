package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testPortfolio(createdAt time.Time, assetIDs []string, indexes []string) *Portfolio {
	size := decimal.NewFromInt(10000)
	p := &Portfolio{
		CreatedAt: createdAt,
		Size:      size,
	}
	for _, id := range assetIDs {
		p.Holdings = append(p.Holdings, Holding{
			Initial: Asset{
				ID:        id,
				Symbol:    strings.ToUpper(id[:3]),
				Name:      id,
				Price:     decimal.NewFromInt(100),
				FetchedAt: createdAt,
			},
			Investment: EvenAllocation(size, len(assetIDs)),
		})
	}
	for _, name := range indexes {
		initial := decimal.NewFromInt(50000)
		p.Indexes = append(p.Indexes, IndexTrack{Name: name, Initial: &initial})
	}
	return p
}

func pricePoints(ids []string, price int64, at time.Time) map[string]PricePoint {
	v := decimal.NewFromInt(price)
	points := make(map[string]PricePoint, len(ids))
	for _, id := range ids {
		points[id] = ObservedPoint(&v, at)
	}
	return points
}

func TestPortfolioID(t *testing.T) {
	created := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	p := testPortfolio(created, []string{"bitcoin"}, nil)
	if got := p.ID(); got != "2026-03-15" {
		t.Errorf("ID() = %q, want 2026-03-15", got)
	}
}

func TestAppendSnapshotKeepsAlignment(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assets := []string{"bitcoin", "ethereum", "dogecoin"}
	p := testPortfolio(created, assets, []string{"BTC", "ETH"})

	now := created.AddDate(0, 1, 0)
	if err := p.AppendSnapshot(pricePoints(assets, 120, now), pricePoints([]string{"BTC", "ETH"}, 55000, now)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := p.SnapshotCount(); got != 1 {
		t.Fatalf("SnapshotCount = %d, want 1", got)
	}
	for _, h := range p.Holdings {
		if len(h.History) != 1 {
			t.Errorf("holding %s history length = %d, want 1", h.Initial.ID, len(h.History))
		}
	}
	for _, ix := range p.Indexes {
		if len(ix.History) != 1 {
			t.Errorf("index %s history length = %d, want 1", ix.Name, len(ix.History))
		}
	}
}

func TestAppendSnapshotRejectsMissingAsset(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p := testPortfolio(created, []string{"bitcoin", "ethereum"}, nil)

	points := pricePoints([]string{"bitcoin"}, 120, created.AddDate(0, 1, 0))
	if err := p.AppendSnapshot(points, nil); err == nil {
		t.Fatal("expected error for missing asset entry")
	}
	if p.SnapshotCount() != 0 {
		t.Errorf("SnapshotCount = %d, want 0 after rejected append", p.SnapshotCount())
	}
}

func TestAppendSnapshotRejectsBeyondHorizon(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assets := []string{"bitcoin"}
	p := testPortfolio(created, assets, nil)

	for i := 0; i < Horizon; i++ {
		at := created.AddDate(0, i+1, 0)
		if err := p.AppendSnapshot(pricePoints(assets, 100+int64(i), at), nil); err != nil {
			t.Fatalf("append %d: unexpected error: %v", i+1, err)
		}
	}

	if !p.Complete() {
		t.Error("portfolio should be complete at horizon")
	}
	if err := p.AppendSnapshot(pricePoints(assets, 999, created.AddDate(2, 0, 0)), nil); err == nil {
		t.Fatal("expected error appending beyond horizon")
	}
	if got := p.SnapshotCount(); got != Horizon {
		t.Errorf("SnapshotCount = %d, want %d", got, Horizon)
	}
}

func TestInvestmentEvenAcrossHoldings(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assets := []string{"bitcoin", "ethereum", "solana", "cardano"}
	p := testPortfolio(created, assets, nil)

	want := p.Size.Div(decimal.NewFromInt(int64(len(assets))))
	for _, h := range p.Holdings {
		if !h.Investment.Equal(want) {
			t.Errorf("holding %s investment = %s, want %s", h.Initial.ID, h.Investment, want)
		}
	}
}
