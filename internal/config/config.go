// Package config defines the top-level configuration for the P2P market
// intelligence service and provides validation helpers.
package config

import (
	"fmt"
	"strings"

	"github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by P2PBOT_* environment
// variables.
type Config struct {
	Market      MarketConfig      `toml:"market"`
	Marketplace MarketplaceConfig `toml:"marketplace"`
	Gate        GateConfig        `toml:"gate"`
	Fetch       FetchConfig       `toml:"fetch"`
	Analytics   AnalyticsConfig   `toml:"analytics"`
	Pricing     PricingConfig     `toml:"pricing"`
	Database    DatabaseConfig    `toml:"database"`
	Redis       RedisConfig       `toml:"redis"`
	S3          S3Config          `toml:"s3"`
	Archive     ArchiveConfig     `toml:"archive"`
	Server      ServerConfig      `toml:"server"`
	Mode        string            `toml:"mode"`
	LogLevel    string            `toml:"log_level"`
}

// MarketConfig defines the pair universe and the cadence of the refresh
// cycle.
type MarketConfig struct {
	// Pairs lists the tracked markets as "ASSET/FIAT" strings.
	Pairs []string `toml:"pairs"`
	// CycleIntervalS is the period between refresh cycles in seconds.
	CycleIntervalS int `toml:"cycle_interval_s"`
	// BatchSize is the number of pairs fetched concurrently per batch.
	BatchSize int `toml:"batch_size"`
	// BatchGapMs is the pause between batches in milliseconds.
	BatchGapMs int `toml:"batch_gap_ms"`
	// CacheTTLS is the snapshot freshness TTL in seconds; older
	// snapshots are served flagged as stale.
	CacheTTLS int `toml:"cache_ttl_s"`
	// RowsPerPage is the page size requested from the marketplace.
	RowsPerPage int `toml:"rows_per_page"`
}

// ParsedPairs converts the configured pair strings into domain pairs.
func (m MarketConfig) ParsedPairs() ([]domain.Pair, error) {
	pairs := make([]domain.Pair, 0, len(m.Pairs))
	for _, s := range m.Pairs {
		p, err := domain.ParsePair(s)
		if err != nil {
			return nil, fmt.Errorf("market.pairs: %w", err)
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}

// MarketplaceConfig holds the upstream P2P marketplace endpoint.
type MarketplaceConfig struct {
	BaseURL   string `toml:"base_url"`
	UserAgent string `toml:"user_agent"`
}

// GateConfig tunes the pacing gate shared by all fetch attempts.
type GateConfig struct {
	// MaxInflight is the maximum number of outstanding permits.
	MaxInflight int `toml:"max_inflight"`
	// MinIntervalMs is the minimum time between two permit grants.
	MinIntervalMs int `toml:"min_interval_ms"`
}

// FetchConfig tunes the retrying fetcher.
type FetchConfig struct {
	MaxRetries      int `toml:"max_retries"`
	BackoffBaseMs   int `toml:"backoff_base_ms"`
	RequestTimeoutS int `toml:"request_timeout_s"`
}

// AnalyticsConfig holds the tunable coefficients of the depth report.
// The weights control the liquidity score blend; the norms are the
// values at which each component saturates.
type AnalyticsConfig struct {
	ImbalanceThreshold float64 `toml:"imbalance_threshold"`
	WeightVolume       float64 `toml:"weight_volume"`
	WeightOrders       float64 `toml:"weight_orders"`
	WeightSpread       float64 `toml:"weight_spread"`
	VolumeNorm         float64 `toml:"volume_norm"`
	OrdersNorm         float64 `toml:"orders_norm"`
	SpreadNormPct      float64 `toml:"spread_norm_pct"`
}

// PricingConfig holds the pricing strategy engine parameters. All
// percentage fields are in percent, not fractions.
type PricingConfig struct {
	// UndercutBuyPct is how far above the bid-side VWAP we bid.
	UndercutBuyPct float64 `toml:"undercut_buy_pct"`
	// UndercutSellPct is how far below the ask-side VWAP we offer.
	UndercutSellPct float64 `toml:"undercut_sell_pct"`
	// MaxUndercutPct caps both undercuts.
	MaxUndercutPct float64 `toml:"max_undercut_pct"`
	// FeesPct is the round-trip marketplace fee.
	FeesPct float64 `toml:"fees_pct"`
	// MinMarginPct is the minimum acceptable net margin; it floors the
	// overall score mapping.
	MinMarginPct float64 `toml:"min_margin_pct"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for snapshot
// archival.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig controls the cold-storage archiver.
type ArchiveConfig struct {
	Enabled       bool   `toml:"enabled"`
	Cron          string `toml:"cron"`
	RetentionDays int    `toml:"retention_days"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	// RateLimitPerMin caps API requests per client IP per minute.
	// Zero disables the limiter.
	RateLimitPerMin int `toml:"rate_limit_per_min"`
}

// Defaults returns the built-in configuration defaults. Load merges the
// TOML file on top of these.
func Defaults() Config {
	return Config{
		Market: MarketConfig{
			Pairs:          []string{"USDT/VES"},
			CycleIntervalS: 30,
			BatchSize:      8,
			BatchGapMs:     500,
			CacheTTLS:      30,
			RowsPerPage:    20,
		},
		Marketplace: MarketplaceConfig{
			BaseURL:   "https://p2p.binance.com",
			UserAgent: "p2pbot/1.0",
		},
		Gate: GateConfig{
			MaxInflight:   3,
			MinIntervalMs: 250,
		},
		Fetch: FetchConfig{
			MaxRetries:      3,
			BackoffBaseMs:   1000,
			RequestTimeoutS: 30,
		},
		Analytics: AnalyticsConfig{
			ImbalanceThreshold: 0.2,
			WeightVolume:       0.4,
			WeightOrders:       0.3,
			WeightSpread:       0.3,
			VolumeNorm:         50000,
			OrdersNorm:         40,
			SpreadNormPct:      5,
		},
		Pricing: PricingConfig{
			UndercutBuyPct:  0.5,
			UndercutSellPct: 0.5,
			MaxUndercutPct:  2.0,
			FeesPct:         0.35,
			MinMarginPct:    0.2,
		},
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "p2pbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "p2pbot-archive",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			Cron:          "0 3 * * *",
			RetentionDays: 7,
		},
		Server: ServerConfig{
			Port:            8080,
			CORSOrigins:     []string{"*"},
			RateLimitPerMin: 120,
		},
		Mode:     "run",
		LogLevel: "info",
	}
}

var validModes = map[string]bool{
	"run":      true,
	"pipeline": true,
	"once":     true,
	"server":   true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and
// returns a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: run, pipeline, once, server)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Market
	if len(c.Market.Pairs) == 0 {
		errs = append(errs, "market: pairs must not be empty")
	}
	if _, err := c.Market.ParsedPairs(); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Market.CycleIntervalS <= 0 {
		errs = append(errs, "market: cycle_interval_s must be positive")
	}
	if c.Market.BatchSize <= 0 {
		errs = append(errs, "market: batch_size must be positive")
	}
	if c.Market.BatchGapMs < 0 {
		errs = append(errs, "market: batch_gap_ms must not be negative")
	}
	if c.Market.CacheTTLS <= 0 {
		errs = append(errs, "market: cache_ttl_s must be positive")
	}
	if c.Market.RowsPerPage <= 0 {
		errs = append(errs, "market: rows_per_page must be positive")
	}

	// Marketplace
	if c.Marketplace.BaseURL == "" {
		errs = append(errs, "marketplace: base_url must not be empty")
	}

	// Gate
	if c.Gate.MaxInflight <= 0 {
		errs = append(errs, "gate: max_inflight must be positive")
	}
	if c.Gate.MinIntervalMs < 0 {
		errs = append(errs, "gate: min_interval_ms must not be negative")
	}

	// Fetch
	if c.Fetch.MaxRetries < 0 {
		errs = append(errs, "fetch: max_retries must not be negative")
	}
	if c.Fetch.BackoffBaseMs <= 0 {
		errs = append(errs, "fetch: backoff_base_ms must be positive")
	}
	if c.Fetch.RequestTimeoutS <= 0 {
		errs = append(errs, "fetch: request_timeout_s must be positive")
	}

	// Analytics — weights must be non-negative and sum to something.
	if c.Analytics.WeightVolume < 0 || c.Analytics.WeightOrders < 0 || c.Analytics.WeightSpread < 0 {
		errs = append(errs, "analytics: liquidity score weights must not be negative")
	}
	if c.Analytics.WeightVolume+c.Analytics.WeightOrders+c.Analytics.WeightSpread <= 0 {
		errs = append(errs, "analytics: liquidity score weights must not all be zero")
	}
	if c.Analytics.ImbalanceThreshold < 0 || c.Analytics.ImbalanceThreshold > 1 {
		errs = append(errs, fmt.Sprintf("analytics: imbalance_threshold must be in [0,1], got %g", c.Analytics.ImbalanceThreshold))
	}
	if c.Analytics.VolumeNorm <= 0 || c.Analytics.OrdersNorm <= 0 || c.Analytics.SpreadNormPct <= 0 {
		errs = append(errs, "analytics: volume_norm, orders_norm, and spread_norm_pct must be positive")
	}

	// Pricing
	if c.Pricing.UndercutBuyPct < 0 || c.Pricing.UndercutSellPct < 0 {
		errs = append(errs, "pricing: undercut percentages must not be negative")
	}
	if c.Pricing.MaxUndercutPct < c.Pricing.UndercutBuyPct || c.Pricing.MaxUndercutPct < c.Pricing.UndercutSellPct {
		errs = append(errs, "pricing: max_undercut_pct must not be below the configured undercuts")
	}
	if c.Pricing.FeesPct < 0 {
		errs = append(errs, "pricing: fees_pct must not be negative")
	}
	if c.Pricing.MinMarginPct < 0 {
		errs = append(errs, "pricing: min_margin_pct must not be negative")
	}

	// Database
	if strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host must not be empty (or set database.dsn)")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database: port must be in 1..65535, got %d", c.Database.Port))
		}
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}

	// S3 is only required when archival is enabled.
	if c.Archive.Enabled {
		if !c.S3.Enabled {
			errs = append(errs, "archive: s3 must be enabled when archive is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archive is enabled")
		}
		if c.Archive.RetentionDays <= 0 {
			errs = append(errs, "archive: retention_days must be positive")
		}
		if c.Archive.Cron == "" {
			errs = append(errs, "archive: cron must not be empty")
		}
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be in 1..65535, got %d", c.Server.Port))
	}
	if c.Server.RateLimitPerMin < 0 {
		errs = append(errs, "server: rate_limit_per_min must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
