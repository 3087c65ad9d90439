// Package pipeline fetches platform snapshots and runs them through the
// matching and arbitrage core.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/metrics"
	"github.com/alanyoungcy/crossarb/internal/normalize"
	"github.com/alanyoungcy/crossarb/internal/platform/polymarket"
	"github.com/alanyoungcy/crossarb/internal/platform/predictfun"
)

// PolymarketSource loads Gamma events by slug.
type PolymarketSource interface {
	GetEventsBySlugs(ctx context.Context, slugs []string) ([]polymarket.APIEvent, error)
}

// PredictFunSource loads predict.fun categories and their books.
type PredictFunSource interface {
	Fetch(ctx context.Context, slugs []string) (predictfun.FetchResult, error)
}

// OpinionSource loads Opinion categorical markets keyed by Polymarket slug.
type OpinionSource interface {
	Fetch(ctx context.Context, markets map[string]int) ([]normalize.Record, error)
}

// MarketSource lists the markets to scan.
type MarketSource interface {
	ListEnabled(ctx context.Context) ([]domain.MarketConfig, error)
}

// StaticMarkets serves a fixed slug to Opinion id mapping.
type StaticMarkets map[string]int

// ListEnabled implements MarketSource in slug order.
func (s StaticMarkets) ListEnabled(context.Context) ([]domain.MarketConfig, error) {
	out := make([]domain.MarketConfig, 0, len(s))
	for slug, id := range s {
		out = append(out, domain.MarketConfig{PolymarketSlug: slug, OpinionMarketID: id})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PolymarketSlug < out[j].PolymarketSlug })
	return out, nil
}

// Snapshot is the raw material of one scan.
type Snapshot struct {
	Records []normalize.Record
	// Fetched lists the platforms whose fetch succeeded, even with zero
	// records.
	Fetched []domain.Platform
	Failed  map[domain.Platform]error
	Books   predictfun.Books
}

// Fetcher gathers one Snapshot across all platforms.
type Fetcher struct {
	polymarket PolymarketSource
	predictfun PredictFunSource
	opinion    OpinionSource
	markets    MarketSource
	aliases    map[string]string
	logger     *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithSlugAliases sets the default Polymarket slug to predict.fun category
// slug aliases. A market's own PredictFunSlug takes precedence.
func WithSlugAliases(aliases map[string]string) FetcherOption {
	return func(f *Fetcher) { f.aliases = aliases }
}

// NewFetcher creates a Fetcher.
func NewFetcher(pm PolymarketSource, pf PredictFunSource, op OpinionSource, markets MarketSource, logger *slog.Logger, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		polymarket: pm,
		predictfun: pf,
		opinion:    op,
		markets:    markets,
		logger:     logger.With(slog.String("component", "fetcher")),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchAll runs the platform fetches concurrently and waits for all of them.
// predict.fun is asked for the Polymarket event slugs that actually came back
// (the configured slugs when Polymarket failed), so it starts after
// Polymarket; Opinion runs alongside both. A failed platform is recorded in
// Snapshot.Failed and does not fail the others. FetchAll returns an error only
// when the market list cannot be loaded or ctx ends.
func (f *Fetcher) FetchAll(ctx context.Context) (Snapshot, error) {
	cfgs, err := f.markets.ListEnabled(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("pipeline: list markets: %w", err)
	}

	slugs := make([]string, 0, len(cfgs))
	opinionIDs := make(map[string]int, len(cfgs))
	aliases := make(map[string]string, len(f.aliases))
	for from, to := range f.aliases {
		if to != "" {
			aliases[from] = to
		}
	}
	for _, c := range cfgs {
		slugs = append(slugs, c.PolymarketSlug)
		opinionIDs[c.PolymarketSlug] = c.OpinionMarketID
		if c.PredictFunSlug != "" {
			aliases[c.PolymarketSlug] = c.PredictFunSlug
		}
	}

	var (
		mu   sync.Mutex
		snap = Snapshot{Failed: make(map[domain.Platform]error)}
	)
	record := func(p domain.Platform, start time.Time, recs []normalize.Record, err error) {
		metrics.ObserveFetch(string(p), start, err)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			snap.Failed[p] = err
			f.logger.WarnContext(ctx, "platform fetch failed",
				slog.String("platform", string(p)),
				slog.String("error", err.Error()),
			)
			return
		}
		snap.Fetched = append(snap.Fetched, p)
		snap.Records = append(snap.Records, recs...)
		f.logger.InfoContext(ctx, "platform fetched",
			slog.String("platform", string(p)),
			slog.Int("records", len(recs)),
			slog.Duration("elapsed", time.Since(start)),
		)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		start := time.Now()
		events, err := f.polymarket.GetEventsBySlugs(gctx, slugs)
		var recs []normalize.Record
		pfSlugs := slugs
		if err == nil {
			recs = polymarket.ToRecords(events)
			pfSlugs = make([]string, 0, len(events))
			for _, e := range events {
				pfSlugs = append(pfSlugs, e.Slug)
			}
		}
		record(domain.PlatformPolymarket, start, recs, err)

		start = time.Now()
		res, err := f.predictfun.Fetch(gctx, applyAliases(pfSlugs, aliases))
		record(domain.PlatformPredictFun, start, res.Records, err)
		if err == nil {
			mu.Lock()
			snap.Books = res.Books
			mu.Unlock()
		}
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		recs, err := f.opinion.Fetch(gctx, opinionIDs)
		record(domain.PlatformOpinion, start, recs, err)
		return nil
	})

	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("pipeline: fetch: %w", err)
	}

	// Record order must not depend on which goroutine finished first.
	sortByPlatform(snap.Records)
	sort.Slice(snap.Fetched, func(i, j int) bool { return snap.Fetched[i] < snap.Fetched[j] })
	return snap, nil
}

// applyAliases maps each slug through aliases exactly once; aliases do not
// chain.
func applyAliases(slugs []string, aliases map[string]string) []string {
	if len(aliases) == 0 {
		return slugs
	}
	out := make([]string, len(slugs))
	for i, s := range slugs {
		if a, ok := aliases[s]; ok {
			out[i] = a
		} else {
			out[i] = s
		}
	}
	return out
}

func sortByPlatform(recs []normalize.Record) {
	rank := map[domain.Platform]int{
		domain.PlatformPolymarket: 0,
		domain.PlatformPredictFun: 1,
		domain.PlatformOpinion:    2,
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return rank[recs[i].Platform()] < rank[recs[j].Platform()]
	})
}
