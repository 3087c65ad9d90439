// Package config defines the top-level configuration for the cross-platform
// arbitrage scanner and provides validation helpers.
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by CROSSARB_* environment variables.
type Config struct {
	Polymarket PolymarketConfig `toml:"polymarket"`
	PredictFun PredictFunConfig `toml:"predictfun"`
	Opinion    OpinionConfig    `toml:"opinion"`
	Markets    map[string]int   `toml:"markets"`
	Scan       ScanConfig       `toml:"scan"`
	Redis      RedisConfig      `toml:"redis"`
	Postgres   PostgresConfig   `toml:"postgres"`
	S3         S3Config         `toml:"s3"`
	Report     ReportConfig     `toml:"report"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// PolymarketConfig holds Polymarket API endpoints.
type PolymarketConfig struct {
	GammaHost   string `toml:"gamma_host"`
	ClobHost    string `toml:"clob_host"`
	BookWorkers int    `toml:"book_workers"`
}

// PredictFunConfig holds predict.fun API parameters.
type PredictFunConfig struct {
	BaseURL      string            `toml:"base_url"`
	APIKey       string            `toml:"api_key"`
	Workers      int               `toml:"workers"`
	RequestDelay duration          `toml:"request_delay"`
	RetryCount   int               `toml:"retry_count"`
	SlugAliases  map[string]string `toml:"slug_aliases"`
}

// OpinionConfig holds Opinion.trade API parameters.
type OpinionConfig struct {
	BaseURL       string   `toml:"base_url"`
	APIKey        string   `toml:"api_key"`
	MarketWorkers int      `toml:"market_workers"`
	PriceWorkers  int      `toml:"price_workers"`
	RequestDelay  duration `toml:"request_delay"`
	RetryCount    int      `toml:"retry_count"`
}

// ScanConfig holds scan and ranking parameters.
type ScanConfig struct {
	TopK        int      `toml:"top_k"`
	Interval    duration `toml:"interval"`
	Capital     float64  `toml:"capital"`
	MinBet      float64  `toml:"min_bet"`
	HTTPTimeout duration `toml:"http_timeout"`
	LockTTL     duration `toml:"lock_ttl"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool     `toml:"enabled"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	DepthTTL   duration `toml:"depth_ttl"`
	RateLimit  int      `toml:"rate_limit"`
}

// PostgresConfig holds PostgreSQL connection parameters for the market
// mapping table.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
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

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	Prefix         string `toml:"prefix"`
}

// ReportConfig controls the local JSON report.
type ReportConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKey guards POST endpoints when set.
	APIKey string `toml:"api_key"`
	// RateLimit is requests per minute per client IP; needs Redis. 0 disables.
	RateLimit int `toml:"rate_limit"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
	MinROI            float64  `toml:"min_roi"`
	DedupTTL          duration `toml:"dedup_ttl"`
}

// DefaultMarkets maps each tracked Polymarket event slug to its Opinion
// categorical market id. Zero means Opinion has no such market.
func DefaultMarkets() map[string]int {
	return map[string]int{
		"metamask-fdv-above-one-day-after-launch":     189,
		"edgex-fdv-above-one-day-after-launch":        98,
		"opensea-fdv-above-one-day-after-launch":      173,
		"will-metamask-launch-a-token-in-2025":        118,
		"megaeth-market-cap-fdv-one-day-after-launch": 67,
		"opinion-fdv-above-one-day-after-launch":      0,
		"based-fdv-above-one-day-after-launch":        97,
		"will-base-launch-a-token-in-2025-341":        119,
		"infinex-fdv-above-one-day-after-launch":      184,
		"rainbow-fdv-above-one-day-after-launch-676":  244,
		"backpack-fdv-above-one-day-after-launch":     95,
		"gensyn-fdv-above-one-day-after-launch":       194,
		"usdai-fdv-above-one-day-after-launch":        183,
		"standx-fdv-above-one-day-after-launch":       96,
	}
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			GammaHost:   "https://gamma-api.polymarket.com",
			ClobHost:    "https://clob.polymarket.com",
			BookWorkers: 10,
		},
		PredictFun: PredictFunConfig{
			BaseURL:      "https://api.predict.fun/v1",
			Workers:      10,
			RequestDelay: duration{100 * time.Millisecond},
			RetryCount:   2,
			SlugAliases: map[string]string{
				"will-base-launch-a-token-in-2025-341": "will-base-launch-a-token-in-2026",
			},
		},
		Opinion: OpinionConfig{
			BaseURL:       "https://openapi.opinion.trade/openapi",
			MarketWorkers: 10,
			PriceWorkers:  20,
			RequestDelay:  duration{100 * time.Millisecond},
			RetryCount:    2,
		},
		Markets: DefaultMarkets(),
		Scan: ScanConfig{
			TopK:        5,
			Interval:    duration{5 * time.Minute},
			Capital:     1000,
			MinBet:      5.0,
			HTTPTimeout: duration{30 * time.Second},
			LockTTL:     duration{4 * time.Minute},
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
			DepthTTL:   duration{30 * time.Second},
			RateLimit:  20,
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  5,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "crossarb-reports",
			UseSSL:         false,
			ForcePathStyle: true,
			Prefix:         "reports",
		},
		Report: ReportConfig{
			Enabled: true,
			Dir:     "reports",
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events:   []string{"arb_detected", "scan_failed"},
			MinROI:   2.0,
			DedupTTL: duration{time.Hour},
		},
		Mode:     "once",
		LogLevel: "info",
	}
}

// MarketSlugs returns the tracked Polymarket event slugs in sorted order.
func (c *Config) MarketSlugs() []string {
	slugs := make([]string, 0, len(c.Markets))
	for s := range c.Markets {
		slugs = append(slugs, s)
	}
	sort.Strings(slugs)
	return slugs
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"once":  true,
	"serve": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: once, serve)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Platform endpoints
	if c.Polymarket.GammaHost == "" {
		errs = append(errs, "polymarket: gamma_host must not be empty")
	}
	if c.Polymarket.ClobHost == "" {
		errs = append(errs, "polymarket: clob_host must not be empty")
	}
	if c.Polymarket.BookWorkers < 1 {
		errs = append(errs, "polymarket: book_workers must be >= 1")
	}
	if c.PredictFun.BaseURL == "" {
		errs = append(errs, "predictfun: base_url must not be empty")
	}
	if c.PredictFun.Workers < 1 {
		errs = append(errs, "predictfun: workers must be >= 1")
	}
	if c.Opinion.BaseURL == "" {
		errs = append(errs, "opinion: base_url must not be empty")
	}
	if c.Opinion.MarketWorkers < 1 || c.Opinion.PriceWorkers < 1 {
		errs = append(errs, "opinion: market_workers and price_workers must be >= 1")
	}

	// Markets
	if len(c.Markets) == 0 && !c.Postgres.Enabled {
		errs = append(errs, "markets: at least one market must be configured (or enable postgres)")
	}
	for slug, id := range c.Markets {
		if id < 0 {
			errs = append(errs, fmt.Sprintf("markets: opinion id for %q must be >= 0, got %d", slug, id))
		}
	}

	// Scan
	if c.Scan.TopK < 0 {
		errs = append(errs, "scan: top_k must be >= 0")
	}
	if c.Scan.Capital < 0 {
		errs = append(errs, "scan: capital must be >= 0")
	}
	if c.Scan.MinBet <= 0 {
		errs = append(errs, "scan: min_bet must be > 0")
	}
	if strings.ToLower(c.Mode) == "serve" && c.Scan.Interval.Duration <= 0 {
		errs = append(errs, "scan: interval must be > 0 in serve mode")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
	}

	// Report
	if c.Report.Enabled && c.Report.Dir == "" {
		errs = append(errs, "report: dir must not be empty when enabled")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, fmt.Sprintf("server: rate_limit must be >= 0, got %d", c.Server.RateLimit))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
