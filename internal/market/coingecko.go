package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/smokinadvd/crypto-portfolios/internal/domain"
)

// ErrProviderUnreachable wraps transport-level failures of a whole batch
// call. Callers defer the affected snapshot to the next poll instead of
// appending partial history.
var ErrProviderUnreachable = errors.New("quote provider unreachable")

// maxPerPage is the CoinGecko /coins/markets page size limit.
const maxPerPage = 250

// CoinGeckoClient fetches candidate lists, quotes and index prices from the
// CoinGecko API. All requests through one client share a rate limiter so
// consecutive calls keep the configured minimum spacing.
type CoinGeckoClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retryDelay time.Duration
	maxRetries int
}

// NewCoinGeckoClient creates a new CoinGecko API client. minSpacing is the
// minimum gap between consecutive requests; retryDelay is the base delay
// for exponential backoff on rate-limit responses.
func NewCoinGeckoClient(baseURL string, minSpacing, retryDelay time.Duration, maxRetries int) *CoinGeckoClient {
	limit := rate.Inf
	if minSpacing > 0 {
		limit = rate.Every(minSpacing)
	}
	return &CoinGeckoClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(limit, 1),
		retryDelay: retryDelay,
		maxRetries: maxRetries,
	}
}

// marketRow is the subset of a /coins/markets entry we consume. Change
// percentages are pointers because CoinGecko reports null for new coins.
type marketRow struct {
	ID           string           `json:"id"`
	Symbol       string           `json:"symbol"`
	Name         string           `json:"name"`
	CurrentPrice *decimal.Decimal `json:"current_price"`
	MarketCap    *decimal.Decimal `json:"market_cap"`
	Change24h    *decimal.Decimal `json:"price_change_percentage_24h_in_currency"`
	Change7d     *decimal.Decimal `json:"price_change_percentage_7d_in_currency"`
	LastUpdated  time.Time        `json:"last_updated"`
}

func (r marketRow) toAsset(fetchedAt time.Time) domain.Asset {
	asset := domain.Asset{
		ID:        r.ID,
		Symbol:    strings.ToUpper(r.Symbol),
		Name:      r.Name,
		FetchedAt: fetchedAt,
	}
	if !r.LastUpdated.IsZero() {
		asset.FetchedAt = r.LastUpdated
	}
	if r.CurrentPrice != nil {
		asset.Price = *r.CurrentPrice
	}
	if r.MarketCap != nil {
		asset.MarketCap = *r.MarketCap
	}
	if r.Change24h != nil {
		asset.Change24h = *r.Change24h
	}
	if r.Change7d != nil {
		asset.Change7d = *r.Change7d
	}
	return asset
}

// ListCandidates returns up to limit assets ranked by market cap descending,
// optionally restricted to a CoinGecko category and a minimum market cap.
func (c *CoinGeckoClient) ListCandidates(ctx context.Context, category string, minMarketCap decimal.Decimal, limit int) ([]domain.Asset, error) {
	var assets []domain.Asset
	now := time.Now().UTC()

	for page := 1; len(assets) < limit; page++ {
		perPage := min(limit-len(assets), maxPerPage)

		params := url.Values{}
		params.Set("vs_currency", "usd")
		params.Set("order", "market_cap_desc")
		params.Set("per_page", strconv.Itoa(perPage))
		params.Set("page", strconv.Itoa(page))
		params.Set("price_change_percentage", "24h,7d")
		if category != "" {
			params.Set("category", category)
		}

		body, err := c.fetchWithRetry(ctx, fmt.Sprintf("%s/coins/markets?%s", c.baseURL, params.Encode()))
		if err != nil {
			return nil, err
		}

		var rows []marketRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, fmt.Errorf("parsing CoinGecko markets response: %w", err)
		}
		if len(rows) == 0 {
			break
		}

		for _, row := range rows {
			asset := row.toAsset(now)
			if !minMarketCap.IsZero() && asset.MarketCap.LessThan(minMarketCap) {
				continue
			}
			assets = append(assets, asset)
		}

		if len(rows) < perPage {
			break
		}
	}

	if len(assets) > limit {
		assets = assets[:limit]
	}
	return assets, nil
}

// GetQuotes fetches current market data for the given asset ids. The result
// has one entry per requested id; ids the provider no longer quotes map to
// nil. A transport or HTTP-level failure fails the whole call.
func (c *CoinGeckoClient) GetQuotes(ctx context.Context, ids []string) (map[string]*domain.Asset, error) {
	quotes := make(map[string]*domain.Asset, len(ids))
	for _, id := range ids {
		quotes[id] = nil
	}

	now := time.Now().UTC()
	for start := 0; start < len(ids); start += maxPerPage {
		batch := ids[start:min(start+maxPerPage, len(ids))]

		params := url.Values{}
		params.Set("vs_currency", "usd")
		params.Set("ids", strings.Join(batch, ","))
		params.Set("per_page", strconv.Itoa(maxPerPage))
		params.Set("price_change_percentage", "24h,7d")

		body, err := c.fetchWithRetry(ctx, fmt.Sprintf("%s/coins/markets?%s", c.baseURL, params.Encode()))
		if err != nil {
			return nil, err
		}

		var rows []marketRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, fmt.Errorf("parsing CoinGecko markets response: %w", err)
		}

		for _, row := range rows {
			asset := row.toAsset(now)
			quotes[row.ID] = &asset
		}
	}

	return quotes, nil
}

// GetIndexPrice fetches the current USD price of a single reference coin.
// A nil price with nil error means the provider does not quote the id.
func (c *CoinGeckoClient) GetIndexPrice(ctx context.Context, id string) (*decimal.Decimal, error) {
	params := url.Values{}
	params.Set("ids", id)
	params.Set("vs_currencies", "usd")

	body, err := c.fetchWithRetry(ctx, fmt.Sprintf("%s/simple/price?%s", c.baseURL, params.Encode()))
	if err != nil {
		return nil, err
	}

	var raw map[string]map[string]decimal.Decimal
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing CoinGecko price response: %w", err)
	}

	prices, ok := raw[id]
	if !ok {
		return nil, nil
	}
	price, ok := prices["usd"]
	if !ok {
		return nil, nil
	}
	return &price, nil
}

func (c *CoinGeckoClient) fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := range c.maxRetries + 1 {
		if attempt > 0 {
			baseDelay := c.retryDelay
			if baseDelay == 0 {
				baseDelay = 10 * time.Second
			}
			delay := baseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("creating CoinGecko request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProviderUnreachable, err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: reading response: %v", ErrProviderUnreachable, err)
		}

		if resp.StatusCode == http.StatusOK {
			return body, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("%w: rate limited (attempt %d/%d)", ErrProviderUnreachable, attempt+1, c.maxRetries+1)
			continue
		}

		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrProviderUnreachable, resp.StatusCode, string(body))
	}

	return nil, lastErr
}
