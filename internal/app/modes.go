package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/metrics"
	"github.com/alanyoungcy/crossarb/internal/scan"
	"github.com/alanyoungcy/crossarb/internal/server"
	"github.com/alanyoungcy/crossarb/internal/server/handler"
	"github.com/alanyoungcy/crossarb/internal/server/ws"
)

// scanLockKey guards scans across serve-mode replicas.
const scanLockKey = "scan"

// scanRunner runs one scan and remembers the latest result.
type scanRunner interface {
	Scan(ctx context.Context) (*scan.Result, error)
	Latest() *scan.Result
}

// OnceMode runs a single scan, logs the best opportunity of every comparison
// type and returns.
func (a *App) OnceMode(ctx context.Context, deps *Dependencies) error {
	res, err := deps.Scanner.Scan(ctx)
	if err != nil {
		return fmt.Errorf("app: scan: %w", err)
	}
	for _, c := range res.Comparisons {
		o, ok := c.Best()
		if !ok {
			a.logger.InfoContext(ctx, "no opportunities",
				slog.String("type", string(c.Type)),
				slog.Int("pairs", c.Pairs),
			)
			continue
		}
		a.logger.InfoContext(ctx, "best opportunity",
			slog.String("type", string(c.Type)),
			slog.String("title", o.Title()),
			slog.String("strategy", o.Strategy.Describe(o.Pair.First.Platform, o.Pair.Second.Platform)),
			slog.Float64("cost", o.Cost),
			slog.Float64("roi_pct", o.ROIPct),
			slog.Int("total", len(c.Opportunities)),
		)
	}
	for _, p := range res.FailedPlatforms() {
		a.logger.WarnContext(ctx, "platform unavailable",
			slog.String("platform", string(p)),
			slog.String("error", res.Failed[p]),
		)
	}
	return nil
}

// ServeMode scans on the configured interval and on manual trigger, and
// serves the HTTP API when enabled. It blocks until ctx is cancelled.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode",
		slog.Duration("interval", a.cfg.Scan.Interval.Duration),
		slog.Bool("redis", deps.SignalBus != nil),
	)

	g, ctx := errgroup.WithContext(ctx)
	trigger := make(chan struct{}, 1)

	g.Go(func() error {
		return scanLoop(ctx, deps.Scanner, deps.LockManager,
			a.cfg.Scan.LockTTL.Duration, a.cfg.Scan.Interval.Duration, trigger, a.logger)
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, trigger)
	}

	return g.Wait()
}

// scanLoop scans once immediately, then on every tick and trigger until ctx
// is cancelled. Scan failures are logged and do not stop the loop.
func scanLoop(
	ctx context.Context,
	s scanRunner,
	lock domain.LockManager,
	lockTTL, interval time.Duration,
	trigger <-chan struct{},
	logger *slog.Logger,
) error {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	run := func() {
		if err := guardedScan(ctx, s, lock, lockTTL, logger); err != nil && ctx.Err() == nil {
			logger.ErrorContext(ctx, "scan failed", slog.String("error", err.Error()))
		}
	}

	run()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			run()
		case <-trigger:
			run()
		}
	}
}

// guardedScan runs one scan under the distributed scan lock when a lock
// manager is configured. A scan already running on another replica is
// skipped. If the lock backend itself fails the scan runs unguarded.
func guardedScan(ctx context.Context, s scanRunner, lock domain.LockManager, ttl time.Duration, logger *slog.Logger) error {
	if lock != nil {
		unlock, err := lock.Acquire(ctx, scanLockKey, ttl)
		switch {
		case errors.Is(err, domain.ErrLockHeld):
			logger.InfoContext(ctx, "scan skipped: another replica holds the lock")
			metrics.ScansTotal.WithLabelValues("locked").Inc()
			return nil
		case err != nil:
			logger.WarnContext(ctx, "scan lock unavailable; scanning unguarded",
				slog.String("error", err.Error()),
			)
		default:
			defer unlock()
		}
	}
	_, err := s.Scan(ctx)
	return err
}

// startHTTPServer adds the HTTP server and, with Redis, the WebSocket hub to
// the errgroup. The server is shut down gracefully when ctx is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, trigger chan<- struct{}) {
	startedAt := time.Now().UTC()

	var hub *ws.Hub
	if deps.SignalBus != nil {
		hub = ws.NewHub(deps.SignalBus, a.logger, ws.Config{
			Mode:      a.cfg.Mode,
			StartedAt: startedAt,
		})
		g.Go(func() error {
			err := hub.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		a.logger.InfoContext(ctx, "redis disabled; /ws endpoint not served")
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		Limiter:     deps.RateLimiter,
	}, server.Handlers{
		Health: handler.NewHealthHandler(deps.Scanner, a.cfg.Mode, startedAt),
		Scan:   handler.NewScanHandler(deps.Scanner, a.logger).WithTriggerChannel(trigger),
	}, hub, a.logger)

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
