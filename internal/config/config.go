package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DatabaseURL string

	CoinGeckoURL        string
	CoinGeckoMinSpacing time.Duration
	CoinGeckoRetryDelay time.Duration
	CoinGeckoRetryMax   int

	Category       string
	MinMarketCap   decimal.Decimal
	CandidateLimit int
	MinPoolSize    int
	PortfolioSize  decimal.Decimal
	MaxPortfolios  int
	Indexes        []IndexConfig

	SnapshotInterval time.Duration
	PollInterval     time.Duration
	CreateInterval   time.Duration

	SpreadsheetID   string
	CredentialsJSON string
	XLSXPath        string
}

// IndexConfig names one tracked reference index.
type IndexConfig struct {
	Name   string
	Symbol string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		DatabaseURL: envOrDefaultWarn("DATABASE_URL", ""),

		CoinGeckoURL:        envOrDefault("COINGECKO_URL", "https://api.coingecko.com/api/v3"),
		CoinGeckoMinSpacing: envOrDefaultDuration("COINGECKO_MIN_SPACING", 2*time.Second),
		CoinGeckoRetryDelay: envOrDefaultDuration("COINGECKO_RETRY_DELAY", 6*time.Second),
		CoinGeckoRetryMax:   envOrDefaultInt("COINGECKO_RETRY_MAX", 5),

		Category:       envOrDefault("CANDIDATE_CATEGORY", ""),
		MinMarketCap:   envOrDefaultDecimal("MIN_MARKET_CAP", decimal.Zero),
		CandidateLimit: envOrDefaultInt("CANDIDATE_LIMIT", 250),
		MinPoolSize:    envOrDefaultInt("MIN_POOL_SIZE", 100),
		PortfolioSize:  envOrDefaultDecimal("PORTFOLIO_SIZE", decimal.NewFromInt(10000)),
		MaxPortfolios:  envOrDefaultInt("MAX_PORTFOLIOS", 12),
		Indexes:        parseIndexes(envOrDefault("TRACKED_INDEXES", "BTC:bitcoin,ETH:ethereum")),

		SnapshotInterval: envOrDefaultDuration("SNAPSHOT_INTERVAL", 720*time.Hour),
		PollInterval:     envOrDefaultDuration("POLL_INTERVAL", 24*time.Hour),
		CreateInterval:   envOrDefaultDuration("CREATE_INTERVAL", 720*time.Hour),

		SpreadsheetID:   envOrDefault("SPREADSHEET_ID", ""),
		CredentialsJSON: envOrDefault("GOOGLE_CREDENTIALS_JSON", ""),
		XLSXPath:        envOrDefault("XLSX_PATH", ""),
	}
}

// parseIndexes parses "NAME:symbol,NAME:symbol" pairs. An entry without a
// colon uses the same value for both.
func parseIndexes(raw string) []IndexConfig {
	var out []IndexConfig
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, symbol, found := strings.Cut(part, ":")
		if !found {
			symbol = name
		}
		out = append(out, IndexConfig{Name: name, Symbol: symbol})
	}
	return out
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultWarn(key, defaultVal string) string {
	v := envOrDefault(key, defaultVal)
	if v == "" {
		slog.Warn("required env var not set", "key", key)
	}
	return v
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}

func envOrDefaultDecimal(key string, defaultVal decimal.Decimal) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			slog.Warn("invalid decimal env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}
