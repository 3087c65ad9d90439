package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/crossarb/internal/arbitrage"
	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/metrics"
	"github.com/alanyoungcy/crossarb/internal/report"
	"github.com/alanyoungcy/crossarb/internal/scan"
)

// SnapshotFetcher produces the raw snapshot of one scan.
type SnapshotFetcher interface {
	FetchAll(ctx context.Context) (Snapshot, error)
}

// Notifier is told about every finished or failed scan.
type Notifier interface {
	NotifyScan(ctx context.Context, res *scan.Result)
	NotifyScanFailed(ctx context.Context, err error)
}

// ScannerConfig holds the scan parameters.
type ScannerConfig struct {
	TopK    int
	Capital decimal.Decimal
	MinBet  decimal.Decimal
}

// Scanner runs complete scans: fetch, core, depth enrichment, sizing and
// allocation, then hands the result to the sinks, the notifier and the bus.
type Scanner struct {
	cfg      ScannerConfig
	fetcher  SnapshotFetcher
	engine   *Engine
	depth    map[domain.Platform]arbitrage.DepthFetcher
	sinks    []report.Sink
	notifier Notifier
	bus      domain.SignalBus
	logger   *slog.Logger

	mu     sync.Mutex
	latest atomic.Pointer[scan.Result]
}

// ScannerOption configures optional Scanner collaborators.
type ScannerOption func(*Scanner)

// WithDepth registers a depth source for a platform. predict.fun depth is
// always served from the books fetched with the snapshot.
func WithDepth(p domain.Platform, f arbitrage.DepthFetcher) ScannerOption {
	return func(s *Scanner) { s.depth[p] = f }
}

// WithSinks adds report sinks.
func WithSinks(sinks ...report.Sink) ScannerOption {
	return func(s *Scanner) { s.sinks = append(s.sinks, sinks...) }
}

// WithNotifier sets the scan notifier.
func WithNotifier(n Notifier) ScannerOption {
	return func(s *Scanner) { s.notifier = n }
}

// WithBus publishes a summary of every scan on scan.Channel.
func WithBus(bus domain.SignalBus) ScannerOption {
	return func(s *Scanner) { s.bus = bus }
}

// NewScanner creates a Scanner.
func NewScanner(cfg ScannerConfig, fetcher SnapshotFetcher, engine *Engine, logger *slog.Logger, opts ...ScannerOption) *Scanner {
	if cfg.TopK <= 0 {
		cfg.TopK = arbitrage.DefaultTopK
	}
	if !cfg.MinBet.IsPositive() {
		cfg.MinBet = arbitrage.DefaultMinBet
	}
	s := &Scanner{
		cfg:     cfg,
		fetcher: fetcher,
		engine:  engine,
		depth:   make(map[domain.Platform]arbitrage.DepthFetcher),
		logger:  logger.With(slog.String("component", "scanner")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Latest returns the most recent successful result, or nil.
func (s *Scanner) Latest() *scan.Result {
	return s.latest.Load()
}

// Scan runs one scan. Concurrent calls are serialized. Platform failures make
// the result partial; only a failure to fetch at all is returned as an error.
func (s *Scanner) Scan(ctx context.Context) (*scan.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	res := &scan.Result{
		RunID:     uuid.NewString(),
		StartedAt: start.UTC(),
		Failed:    make(map[domain.Platform]string),
	}
	logger := s.logger.With(slog.String("run_id", res.RunID))
	logger.InfoContext(ctx, "scan started")

	snap, err := s.fetcher.FetchAll(ctx)
	if err != nil {
		metrics.ObserveScan("error", start)
		if s.notifier != nil {
			s.notifier.NotifyScanFailed(ctx, err)
		}
		return nil, fmt.Errorf("pipeline: scan: %w", err)
	}
	for p, ferr := range snap.Failed {
		res.Failed[p] = ferr.Error()
	}

	out := s.engine.Run(snap)
	res.Diagnostics = out.Diagnostics
	res.Skipped = out.Skipped
	res.Comparisons = out.Comparisons

	top := s.enrich(ctx, res, snap)
	plan := arbitrage.Allocate(top, s.cfg.Capital, s.cfg.MinBet)
	res.Plan = &plan
	res.FinishedAt = time.Now().UTC()

	s.record(res, start)
	s.latest.Store(res)

	for _, sink := range s.sinks {
		if err := sink.Write(ctx, res); err != nil {
			logger.WarnContext(ctx, "report sink failed", slog.String("error", err.Error()))
		}
	}
	if s.notifier != nil {
		s.notifier.NotifyScan(ctx, res)
	}
	s.publish(ctx, res)

	logger.InfoContext(ctx, "scan finished",
		slog.String("status", res.Status()),
		slog.Int("markets", out.Markets),
		slog.Int("opportunities", res.TotalOpportunities()),
		slog.Int("funded", len(plan.Allocations)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// enrich attaches depth and sizing to the top K of every comparison in place
// and returns those opportunities in comparison order. Books are fetched once
// per platform for all comparisons together.
func (s *Scanner) enrich(ctx context.Context, res *scan.Result, snap Snapshot) []domain.ArbitrageOpportunity {
	fetchers := make(map[domain.Platform]arbitrage.DepthFetcher, len(s.depth)+1)
	for p, f := range s.depth {
		fetchers[p] = f
	}
	if len(snap.Books) > 0 {
		fetchers[domain.PlatformPredictFun] = snap.Books
	}

	var heads []domain.ArbitrageOpportunity
	for i := range res.Comparisons {
		c := &res.Comparisons[i]
		head := arbitrage.SelectTopK(c.Opportunities, s.cfg.TopK)
		c.Enriched = len(head)
		heads = append(heads, head...)
	}
	if len(heads) == 0 {
		return nil
	}

	enriched := arbitrage.NewEnricher(fetchers, s.logger).Enrich(ctx, heads)
	for i := range enriched {
		enriched[i].Sizing = arbitrage.Size(enriched[i], s.cfg.Capital)
	}

	off := 0
	for i := range res.Comparisons {
		c := &res.Comparisons[i]
		copy(c.Opportunities[:c.Enriched], enriched[off:off+c.Enriched])
		off += c.Enriched
	}
	return enriched
}

func (s *Scanner) record(res *scan.Result, start time.Time) {
	for p, n := range res.Diagnostics.Accepted {
		metrics.AddNormalized(string(p), n)
	}
	for p, byReason := range res.Diagnostics.Skipped {
		for r, n := range byReason {
			metrics.AddSkipped(string(p), string(r), n)
		}
	}
	for _, c := range res.Comparisons {
		best := 0.0
		if o, ok := c.Best(); ok {
			best = o.ROIPct
		}
		metrics.SetComparison(string(c.Type), c.Pairs, len(c.Opportunities), best)
	}
	metrics.ObserveScan(res.Status(), start)
}

func (s *Scanner) publish(ctx context.Context, res *scan.Result) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(report.NewSummary(res))
	if err != nil {
		s.logger.WarnContext(ctx, "encode scan summary", slog.String("error", err.Error()))
		return
	}
	if err := s.bus.Publish(ctx, scan.Channel, payload); err != nil {
		s.logger.WarnContext(ctx, "publish scan summary", slog.String("error", err.Error()))
	}
}
