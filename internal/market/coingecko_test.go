package market

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

const marketsPage = `[
	{"id": "bitcoin", "symbol": "btc", "name": "Bitcoin",
	 "current_price": 55000.12, "market_cap": 1100000000000,
	 "price_change_percentage_24h_in_currency": 1.5,
	 "price_change_percentage_7d_in_currency": -2.25},
	{"id": "ethereum", "symbol": "eth", "name": "Ethereum",
	 "current_price": 2500, "market_cap": 300000000000,
	 "price_change_percentage_24h_in_currency": null,
	 "price_change_percentage_7d_in_currency": 4.0},
	{"id": "newcoin", "symbol": "new", "name": "New Coin",
	 "current_price": 0.002, "market_cap": 900000}
]`

func TestListCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("order"); got != "market_cap_desc" {
			t.Errorf("order = %q, want market_cap_desc", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(marketsPage))
	}))
	defer server.Close()

	client := NewCoinGeckoClient(server.URL, 0, 0, 1)
	assets, err := client.ListCandidates(context.Background(), "", decimal.Zero, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(assets) != 3 {
		t.Fatalf("got %d assets, want 3", len(assets))
	}
	btc := assets[0]
	if btc.ID != "bitcoin" || btc.Symbol != "BTC" {
		t.Errorf("first asset = %s/%s, want bitcoin/BTC", btc.ID, btc.Symbol)
	}
	if want, _ := decimal.NewFromString("55000.12"); !btc.Price.Equal(want) {
		t.Errorf("BTC price = %s, want 55000.12", btc.Price)
	}
	if !assets[1].Change24h.IsZero() {
		t.Errorf("null 24h change should parse as zero, got %s", assets[1].Change24h)
	}
}

func TestListCandidatesMinMarketCapFilter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(marketsPage))
	}))
	defer server.Close()

	client := NewCoinGeckoClient(server.URL, 0, 0, 1)
	assets, err := client.ListCandidates(context.Background(), "", decimal.NewFromInt(1_000_000), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, a := range assets {
		if a.ID == "newcoin" {
			t.Error("newcoin is below the market-cap floor and should be filtered out")
		}
	}
	if len(assets) != 2 {
		t.Errorf("got %d assets, want 2", len(assets))
	}
}

func TestGetQuotesMarksMissingIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id": "bitcoin", "symbol": "btc", "name": "Bitcoin", "current_price": 60000, "market_cap": 1200000000000}]`))
	}))
	defer server.Close()

	client := NewCoinGeckoClient(server.URL, 0, 0, 1)
	quotes, err := client.GetQuotes(context.Background(), []string{"bitcoin", "delisted-coin"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if quotes["bitcoin"] == nil {
		t.Fatal("bitcoin quote missing")
	}
	if !quotes["bitcoin"].Price.Equal(decimal.NewFromInt(60000)) {
		t.Errorf("bitcoin price = %s, want 60000", quotes["bitcoin"].Price)
	}
	got, ok := quotes["delisted-coin"]
	if !ok {
		t.Fatal("delisted-coin should still have an entry")
	}
	if got != nil {
		t.Errorf("delisted-coin quote = %v, want nil", got)
	}
}

func TestGetIndexPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"bitcoin": {"usd": 61234.5}}`))
	}))
	defer server.Close()

	client := NewCoinGeckoClient(server.URL, 0, 0, 1)

	price, err := client.GetIndexPrice(context.Background(), "bitcoin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price == nil {
		t.Fatal("price = nil, want value")
	}
	if want, _ := decimal.NewFromString("61234.5"); !price.Equal(want) {
		t.Errorf("price = %s, want 61234.5", price)
	}

	missing, err := client.GetIndexPrice(context.Background(), "unknown-index")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing != nil {
		t.Errorf("unknown index price = %s, want nil", missing)
	}
}

func TestRetryOn429(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"bitcoin": {"usd": 61000}}`))
	}))
	defer server.Close()

	client := NewCoinGeckoClient(server.URL, 0, 10*time.Millisecond, 2)
	price, err := client.GetIndexPrice(context.Background(), "bitcoin")
	if err != nil {
		t.Fatalf("unexpected error after retry: %v", err)
	}
	if price == nil || !price.Equal(decimal.NewFromInt(61000)) {
		t.Errorf("price = %v, want 61000", price)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestServerErrorIsProviderUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewCoinGeckoClient(server.URL, 0, 0, 1)
	_, err := client.GetQuotes(context.Background(), []string{"bitcoin"})
	if !errors.Is(err, ErrProviderUnreachable) {
		t.Errorf("error = %v, want ErrProviderUnreachable", err)
	}
}

func TestMinSpacingBetweenRequests(t *testing.T) {
	var stamps []time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stamps = append(stamps, time.Now())
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"bitcoin": {"usd": 61000}}`))
	}))
	defer server.Close()

	spacing := 50 * time.Millisecond
	client := NewCoinGeckoClient(server.URL, spacing, 0, 1)

	for range 3 {
		if _, err := client.GetIndexPrice(context.Background(), "bitcoin"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if len(stamps) != 3 {
		t.Fatalf("got %d requests, want 3", len(stamps))
	}
	for i := 1; i < len(stamps); i++ {
		if gap := stamps[i].Sub(stamps[i-1]); gap < spacing-5*time.Millisecond {
			t.Errorf("request gap %d = %v, want >= %v", i, gap, spacing)
		}
	}
}
