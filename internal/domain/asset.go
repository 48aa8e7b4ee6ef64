package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Asset is an immutable market observation of a single tradable coin.
// A later fetch produces a new Asset value, never an update of an old one.
type Asset struct {
	ID        string          `json:"id"`
	Symbol    string          `json:"symbol"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Change24h decimal.Decimal `json:"change24h"`
	Change7d  decimal.Decimal `json:"change7d"`
	MarketCap decimal.Decimal `json:"marketCap"`
	ListedAt  time.Time       `json:"listedAt"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

// PricePoint is one entry in a holding's or index's snapshot history.
// A nil Price means the quote was unavailable for that slot; the slot is
// still recorded so histories stay aligned across assets and indexes.
type PricePoint struct {
	Price      *decimal.Decimal `json:"price"`
	Backfilled bool             `json:"backfilled,omitempty"`
	ObservedAt time.Time        `json:"observedAt"`
}

// ObservedPoint builds a PricePoint for a live observation.
func ObservedPoint(price *decimal.Decimal, at time.Time) PricePoint {
	return PricePoint{Price: price, ObservedAt: at}
}

// BackfilledPoint builds a PricePoint for a catch-up slot whose nominal
// snapshot time has long passed; the price is the freshest available quote.
func BackfilledPoint(price *decimal.Decimal, at time.Time) PricePoint {
	return PricePoint{Price: price, Backfilled: true, ObservedAt: at}
}
