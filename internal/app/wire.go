package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/crossarb/internal/arbitrage"
	s3blob "github.com/alanyoungcy/crossarb/internal/blob/s3"
	"github.com/alanyoungcy/crossarb/internal/cache/redis"
	"github.com/alanyoungcy/crossarb/internal/config"
	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/match"
	"github.com/alanyoungcy/crossarb/internal/notify"
	"github.com/alanyoungcy/crossarb/internal/pipeline"
	"github.com/alanyoungcy/crossarb/internal/platform/opinion"
	"github.com/alanyoungcy/crossarb/internal/platform/polymarket"
	"github.com/alanyoungcy/crossarb/internal/platform/predictfun"
	"github.com/alanyoungcy/crossarb/internal/report"
	"github.com/alanyoungcy/crossarb/internal/store/postgres"
)

// Dependencies bundles everything the modes need. Redis-backed members are
// nil when Redis is disabled.
type Dependencies struct {
	Scanner  *pipeline.Scanner
	Notifier *notify.Notifier

	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	SignalBus   domain.SignalBus
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	deps := &Dependencies{}
	timeout := cfg.Scan.HTTPTimeout.Duration

	// --- Redis (optional): rate limiting, depth cache, scan lock, bus ---
	var bookCache domain.OrderbookCache
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: redis: %w", err))
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
		bookCache = redis.NewOrderbookCache(redisClient, cfg.Redis.DepthTTL.Duration)
	}

	// --- Market list: Postgres table when enabled, else config ---
	var markets pipeline.MarketSource = pipeline.StaticMarkets(cfg.Markets)
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: postgres: %w", err))
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				return fail(fmt.Errorf("wire: postgres migrations: %w", err))
			}
		}
		markets = postgres.NewMarketConfigStore(pgClient.Pool())
	}

	// --- Platform clients ---
	gamma := polymarket.NewGammaClient(cfg.Polymarket.GammaHost, timeout)
	clob := polymarket.NewClobClient(cfg.Polymarket.ClobHost, cfg.Polymarket.BookWorkers, timeout, logger)
	pf := predictfun.NewClient(predictfun.Config{
		BaseURL:      cfg.PredictFun.BaseURL,
		APIKey:       cfg.PredictFun.APIKey,
		Workers:      cfg.PredictFun.Workers,
		RequestDelay: cfg.PredictFun.RequestDelay.Duration,
		Timeout:      timeout,
		RetryCount:   cfg.PredictFun.RetryCount,
		RateLimit:    cfg.Redis.RateLimit,
	}, deps.RateLimiter, logger)
	op := opinion.NewClient(opinion.Config{
		BaseURL:       cfg.Opinion.BaseURL,
		APIKey:        cfg.Opinion.APIKey,
		MarketWorkers: cfg.Opinion.MarketWorkers,
		PriceWorkers:  cfg.Opinion.PriceWorkers,
		RequestDelay:  cfg.Opinion.RequestDelay.Duration,
		Timeout:       timeout,
		RetryCount:    cfg.Opinion.RetryCount,
		RateLimit:     cfg.Redis.RateLimit,
	}, deps.RateLimiter, logger)

	var polyDepth arbitrage.DepthFetcher = clob
	if bookCache != nil {
		polyDepth = arbitrage.NewCachedDepthFetcher(clob, bookCache, logger)
	}

	// --- Report sinks ---
	var sinks []report.Sink
	if cfg.Report.Enabled {
		sinks = append(sinks, report.NewFileSink(cfg.Report.Dir))
	}
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: s3: %w", err))
		}
		if err := s3Client.Health(ctx); err != nil {
			logger.WarnContext(ctx, "s3 bucket not reachable; uploads may fail",
				slog.String("bucket", cfg.S3.Bucket),
				slog.String("error", err.Error()),
			)
		}
		sinks = append(sinks, report.NewBlobSink(s3blob.NewWriter(s3Client), cfg.S3.Prefix))
	}

	// --- Notifications ---
	deps.Notifier = newNotifier(cfg.Notify, logger)

	opts := []pipeline.ScannerOption{
		pipeline.WithDepth(domain.PlatformPolymarket, polyDepth),
		pipeline.WithSinks(sinks...),
		pipeline.WithNotifier(deps.Notifier),
	}
	if deps.SignalBus != nil {
		opts = append(opts, pipeline.WithBus(deps.SignalBus))
	}

	deps.Scanner = pipeline.NewScanner(
		pipeline.ScannerConfig{
			TopK:    cfg.Scan.TopK,
			Capital: decimal.NewFromFloat(cfg.Scan.Capital),
			MinBet:  decimal.NewFromFloat(cfg.Scan.MinBet),
		},
		pipeline.NewFetcher(gamma, pf, op, markets, logger, pipeline.WithSlugAliases(cfg.PredictFun.SlugAliases)),
		pipeline.NewEngine(match.DefaultComparisons(), logger),
		logger,
		opts...,
	)

	return deps, cleanup, nil
}

func newNotifier(cfg config.NotifyConfig, logger *slog.Logger) *notify.Notifier {
	var senders []notify.Sender
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.TelegramToken, cfg.TelegramChatID))
	}
	if cfg.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.DiscordWebhookURL))
	}
	return notify.NewNotifier(senders, cfg.Events, cfg.MinROI, notify.NewDedup(cfg.DedupTTL.Duration), logger)
}
