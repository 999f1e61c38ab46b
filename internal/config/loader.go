package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies P2PBOT_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been
// validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known P2PBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set.
// This lets operators inject secrets at deploy time without touching the
// TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Market ──
	setStringSlice(&cfg.Market.Pairs, "P2PBOT_MARKET_PAIRS")
	setInt(&cfg.Market.CycleIntervalS, "P2PBOT_MARKET_CYCLE_INTERVAL_S")
	setInt(&cfg.Market.BatchSize, "P2PBOT_MARKET_BATCH_SIZE")
	setInt(&cfg.Market.BatchGapMs, "P2PBOT_MARKET_BATCH_GAP_MS")
	setInt(&cfg.Market.CacheTTLS, "P2PBOT_MARKET_CACHE_TTL_S")
	setInt(&cfg.Market.RowsPerPage, "P2PBOT_MARKET_ROWS_PER_PAGE")

	// ── Marketplace ──
	setStr(&cfg.Marketplace.BaseURL, "P2PBOT_MARKETPLACE_BASE_URL")
	setStr(&cfg.Marketplace.UserAgent, "P2PBOT_MARKETPLACE_USER_AGENT")

	// ── Gate / Fetch ──
	setInt(&cfg.Gate.MaxInflight, "P2PBOT_GATE_MAX_INFLIGHT")
	setInt(&cfg.Gate.MinIntervalMs, "P2PBOT_GATE_MIN_INTERVAL_MS")
	setInt(&cfg.Fetch.MaxRetries, "P2PBOT_FETCH_MAX_RETRIES")
	setInt(&cfg.Fetch.BackoffBaseMs, "P2PBOT_FETCH_BACKOFF_BASE_MS")
	setInt(&cfg.Fetch.RequestTimeoutS, "P2PBOT_FETCH_REQUEST_TIMEOUT_S")

	// ── Pricing ──
	setFloat64(&cfg.Pricing.UndercutBuyPct, "P2PBOT_PRICING_UNDERCUT_BUY_PCT")
	setFloat64(&cfg.Pricing.UndercutSellPct, "P2PBOT_PRICING_UNDERCUT_SELL_PCT")
	setFloat64(&cfg.Pricing.MaxUndercutPct, "P2PBOT_PRICING_MAX_UNDERCUT_PCT")
	setFloat64(&cfg.Pricing.FeesPct, "P2PBOT_PRICING_FEES_PCT")
	setFloat64(&cfg.Pricing.MinMarginPct, "P2PBOT_PRICING_MIN_MARGIN_PCT")

	// ── Database ──
	setStr(&cfg.Database.DSN, "P2PBOT_DATABASE_DSN")
	setStr(&cfg.Database.Host, "P2PBOT_DATABASE_HOST")
	setInt(&cfg.Database.Port, "P2PBOT_DATABASE_PORT")
	setStr(&cfg.Database.Database, "P2PBOT_DATABASE_NAME")
	setStr(&cfg.Database.User, "P2PBOT_DATABASE_USER")
	setStr(&cfg.Database.Password, "P2PBOT_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "P2PBOT_DATABASE_SSL_MODE")
	setInt(&cfg.Database.PoolMaxConns, "P2PBOT_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "P2PBOT_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "P2PBOT_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "P2PBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "P2PBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "P2PBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "P2PBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "P2PBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "P2PBOT_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "P2PBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "P2PBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "P2PBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "P2PBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "P2PBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "P2PBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "P2PBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "P2PBOT_S3_FORCE_PATH_STYLE")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "P2PBOT_ARCHIVE_ENABLED")
	setStr(&cfg.Archive.Cron, "P2PBOT_ARCHIVE_CRON")
	setInt(&cfg.Archive.RetentionDays, "P2PBOT_ARCHIVE_RETENTION_DAYS")

	// ── Server ──
	setInt(&cfg.Server.Port, "P2PBOT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "P2PBOT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "P2PBOT_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimitPerMin, "P2PBOT_SERVER_RATE_LIMIT_PER_MIN")

	// ── Top level ──
	setStr(&cfg.Mode, "P2PBOT_MODE")
	setStr(&cfg.LogLevel, "P2PBOT_LOG_LEVEL")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
