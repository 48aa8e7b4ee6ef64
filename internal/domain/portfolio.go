package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Horizon is the number of snapshots after which a portfolio is retired
// from active tracking.
const Horizon = 12

// Holding tracks one asset inside a portfolio: the market data captured at
// creation, the capital allocated to it, and one price observation per
// elapsed snapshot.
type Holding struct {
	Initial    Asset           `json:"initial"`
	Investment decimal.Decimal `json:"investment"`
	History    []PricePoint    `json:"history"`
}

// IndexTrack follows a reference index (e.g. BTC) alongside the portfolio.
// Initial is nil when the creation-time fetch failed; the marker is kept so
// the index still occupies its report row and its history stays aligned.
type IndexTrack struct {
	Name    string           `json:"name"`
	Symbol  string           `json:"symbol"`
	Initial *decimal.Decimal `json:"initial"`
	History []PricePoint     `json:"history"`
}

// Portfolio is a basket of assets created at one point in time with even
// capital allocation, re-sampled over a fixed horizon. It is built once by
// the builder and mutated only by appending aligned snapshot entries.
type Portfolio struct {
	CreatedAt time.Time       `json:"createdAt"`
	Size      decimal.Decimal `json:"size"`
	Holdings  []Holding       `json:"holdings"`
	Indexes   []IndexTrack    `json:"indexes"`
	Retired   bool            `json:"retired"`
}

// ID derives the portfolio identifier from the creation date, which also
// names the report sheet ("Portfolio 2026-01-31").
func (p *Portfolio) ID() string {
	return p.CreatedAt.UTC().Format("2006-01-02")
}

// SnapshotCount returns the number of snapshots recorded so far. Histories
// advance in lock-step, so any holding's length is the portfolio's count.
func (p *Portfolio) SnapshotCount() int {
	if len(p.Holdings) == 0 {
		return 0
	}
	return len(p.Holdings[0].History)
}

// Complete reports whether the portfolio has reached the tracking horizon.
func (p *Portfolio) Complete() bool {
	return p.SnapshotCount() >= Horizon
}

// AssetIDs returns the holding asset identifiers in basket order.
func (p *Portfolio) AssetIDs() []string {
	ids := make([]string, len(p.Holdings))
	for i, h := range p.Holdings {
		ids[i] = h.Initial.ID
	}
	return ids
}

// AppendSnapshot appends exactly one price point per holding and per index.
// It enforces the alignment invariant: the entry sets must cover every
// holding and every index, and the horizon must not be exceeded.
func (p *Portfolio) AppendSnapshot(assetPoints map[string]PricePoint, indexPoints map[string]PricePoint) error {
	if p.SnapshotCount() >= Horizon {
		return fmt.Errorf("portfolio %s: horizon reached", p.ID())
	}
	for _, h := range p.Holdings {
		if _, ok := assetPoints[h.Initial.ID]; !ok {
			return fmt.Errorf("portfolio %s: missing snapshot entry for asset %s", p.ID(), h.Initial.ID)
		}
	}
	for _, ix := range p.Indexes {
		if _, ok := indexPoints[ix.Name]; !ok {
			return fmt.Errorf("portfolio %s: missing snapshot entry for index %s", p.ID(), ix.Name)
		}
	}

	for i := range p.Holdings {
		p.Holdings[i].History = append(p.Holdings[i].History, assetPoints[p.Holdings[i].Initial.ID])
	}
	for i := range p.Indexes {
		p.Indexes[i].History = append(p.Indexes[i].History, indexPoints[p.Indexes[i].Name])
	}
	return nil
}
