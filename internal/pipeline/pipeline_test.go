package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/crossarb/internal/arbitrage"
	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/match"
	"github.com/alanyoungcy/crossarb/internal/normalize"
	"github.com/alanyoungcy/crossarb/internal/platform/polymarket"
	"github.com/alanyoungcy/crossarb/internal/platform/predictfun"
	"github.com/alanyoungcy/crossarb/internal/scan"
)

var (
	condA = "0x" + strings.Repeat("a", 64)
	condB = "0x" + strings.Repeat("b", 64)
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func f(v float64) *float64 { return &v }

const btcTitle = "Will BTC reach $100k?"

func sampleRecords() []normalize.Record {
	return []normalize.Record{
		normalize.PolymarketRecord{
			MarketID: "pm1", ConditionID: condA, CategorySlug: "btc-2026", Title: btcTitle,
			YesPrice: f(0.40), NoPrice: f(0.60), Active: true, TokenIDs: [2]string{"t-yes", "t-no"},
		},
		normalize.PredictFunRecord{
			MarketID: "pf1", ConditionID: condA, CategorySlug: "btc-2026", Title: btcTitle,
			YesPrice: f(0.45), NoPrice: f(0.40),
			TokenIDs: [2]string{predictfun.YesToken("pf1"), predictfun.NoToken("pf1")},
		},
		normalize.OpinionRecord{
			MarketID: "op1", ConditionID: condB, CategorySlug: "btc-2026", Title: btcTitle,
			YesPrice: f(0.50), NoPrice: f(0.45), Status: normalize.OpinionStatusActive,
		},
		// Discarded: no price.
		normalize.PolymarketRecord{MarketID: "pm2", CategorySlug: "btc-2026", Title: "x", Active: true},
	}
}

func allFetched() []domain.Platform {
	return []domain.Platform{domain.PlatformOpinion, domain.PlatformPolymarket, domain.PlatformPredictFun}
}

func TestEngine_RunFindsAllComparisons(t *testing.T) {
	e := NewEngine(match.DefaultComparisons(), testLogger())
	out := e.Run(Snapshot{Records: sampleRecords(), Fetched: allFetched()})

	assert.Equal(t, 3, out.Markets)
	assert.Empty(t, out.Skipped)
	assert.Equal(t, 1, out.Diagnostics.SkippedTotal())
	require.Len(t, out.Comparisons, 3)

	wantTypes := []domain.ComparisonType{
		domain.ComparisonPolymarketPredictFun,
		domain.ComparisonPolymarketOpinion,
		domain.ComparisonOpinionPredictFun,
	}
	for i, c := range out.Comparisons {
		assert.Equal(t, wantTypes[i], c.Type)
		assert.Equal(t, 1, c.Pairs)
		require.Len(t, c.Opportunities, 1, c.Type)
	}

	direct := out.Comparisons[0].Opportunities[0]
	assert.Equal(t, domain.StrategyYesFirstNoSecond, direct.Strategy)
	assert.InDelta(t, 25.0, direct.ROIPct, 1e-9)

	transitive := out.Comparisons[2].Opportunities[0]
	require.NotNil(t, transitive.Pair.Hub)
	assert.Equal(t, "pm1", transitive.Pair.Hub.NativeID)
	assert.Equal(t, "op1", transitive.Pair.First.NativeID)
	assert.Equal(t, "pf1", transitive.Pair.Second.NativeID)
}

func TestEngine_Idempotent(t *testing.T) {
	e := NewEngine(match.DefaultComparisons(), testLogger())
	snap := Snapshot{Records: sampleRecords(), Fetched: allFetched()}

	first := e.Run(snap)
	second := e.Run(snap)
	assert.Equal(t, first, second)

	// A fresh engine over the same input agrees too.
	third := NewEngine(match.DefaultComparisons(), testLogger()).Run(snap)
	assert.Equal(t, first.Comparisons, third.Comparisons)
}

func TestEngine_BadOpinionConditionIDStillMatchesByComposite(t *testing.T) {
	e := NewEngine(match.DefaultComparisons(), testLogger())
	recs := sampleRecords()
	op := recs[2].(normalize.OpinionRecord)
	op.ConditionID = "0x1234"
	recs[2] = op

	out := e.Run(Snapshot{Records: recs, Fetched: allFetched()})
	assert.Equal(t, 1, out.Diagnostics.Warnings[domain.PlatformOpinion][normalize.ReasonInvalidConditionKey])

	c := out.Comparisons[1]
	require.Equal(t, domain.ComparisonPolymarketOpinion, c.Type)
	require.Len(t, c.Opportunities, 1)
	assert.Equal(t, "op1", c.Opportunities[0].Pair.Second.NativeID)
}

func TestEngine_FailedPlatformSkipsComparisons(t *testing.T) {
	e := NewEngine(match.DefaultComparisons(), testLogger())
	recs := sampleRecords()[:2]

	out := e.Run(Snapshot{
		Records: recs,
		Fetched: []domain.Platform{domain.PlatformPolymarket, domain.PlatformPredictFun},
	})
	require.Len(t, out.Comparisons, 1)
	assert.Equal(t, domain.ComparisonPolymarketPredictFun, out.Comparisons[0].Type)
	require.Len(t, out.Skipped, 2)
	for _, s := range out.Skipped {
		assert.Equal(t, []domain.Platform{domain.PlatformOpinion}, s.Missing)
	}

	// Opinion fetched but empty: comparisons run and find nothing.
	out = e.Run(Snapshot{Records: recs, Fetched: allFetched()})
	assert.Empty(t, out.Skipped)
	require.Len(t, out.Comparisons, 3)
	assert.Empty(t, out.Comparisons[1].Opportunities)
}

// --- fetcher ---

type fakePolymarket struct {
	events []polymarket.APIEvent
	err    error
}

func (p *fakePolymarket) GetEventsBySlugs(context.Context, []string) ([]polymarket.APIEvent, error) {
	return p.events, p.err
}

type fakePredictFun struct {
	mu    sync.Mutex
	slugs []string
	res   predictfun.FetchResult
	err   error
}

func (p *fakePredictFun) Fetch(_ context.Context, slugs []string) (predictfun.FetchResult, error) {
	p.mu.Lock()
	p.slugs = slugs
	p.mu.Unlock()
	return p.res, p.err
}

type fakeOpinion struct {
	markets map[string]int
	recs    []normalize.Record
	err     error
}

func (o *fakeOpinion) Fetch(_ context.Context, markets map[string]int) ([]normalize.Record, error) {
	o.markets = markets
	return o.recs, o.err
}

type fakeMarkets []domain.MarketConfig

func (m fakeMarkets) ListEnabled(context.Context) ([]domain.MarketConfig, error) { return m, nil }

func TestFetcher_FetchAll(t *testing.T) {
	pm := &fakePolymarket{events: []polymarket.APIEvent{{
		Slug: "btc-2026",
		Markets: []polymarket.APIMarket{{
			ID: "pm1", ConditionID: condA, GroupItemTitle: btcTitle,
			Active: true, OutcomePrices: `["0.40","0.60"]`, ClobTokenIDs: `["t-yes","t-no"]`,
		}},
	}}}
	pf := &fakePredictFun{res: predictfun.FetchResult{
		Records: []normalize.Record{sampleRecords()[1]},
		Books:   predictfun.Books{"x": domain.OrderbookSnapshot{AssetID: "x"}},
	}}
	op := &fakeOpinion{err: errors.New("opinion down")}
	markets := fakeMarkets{
		{PolymarketSlug: "btc-2026", OpinionMarketID: 7, PredictFunSlug: "btc-2026-pf"},
		{PolymarketSlug: "eth-2026"},
	}

	snap, err := NewFetcher(pm, pf, op, markets, testLogger()).FetchAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"btc-2026-pf"}, pf.slugs, "only returned events, aliased")
	assert.Equal(t, map[string]int{"btc-2026": 7, "eth-2026": 0}, op.markets)
	assert.Equal(t, []domain.Platform{domain.PlatformPolymarket, domain.PlatformPredictFun}, snap.Fetched)
	require.Contains(t, snap.Failed, domain.PlatformOpinion)
	require.Len(t, snap.Records, 2)
	assert.Equal(t, domain.PlatformPolymarket, snap.Records[0].Platform())
	assert.Equal(t, domain.PlatformPredictFun, snap.Records[1].Platform())
	assert.Len(t, snap.Books, 1)
}

func TestFetcher_PolymarketFailureFallsBackToConfiguredSlugs(t *testing.T) {
	pm := &fakePolymarket{err: errors.New("gamma down")}
	pf := &fakePredictFun{}
	op := &fakeOpinion{}

	snap, err := NewFetcher(pm, pf, op, StaticMarkets{"b": 0, "a": 1}, testLogger()).FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, pf.slugs)
	assert.Contains(t, snap.Failed, domain.PlatformPolymarket)
	assert.Equal(t, []domain.Platform{domain.PlatformOpinion, domain.PlatformPredictFun}, snap.Fetched)
}

func TestFetcher_SlugAliasesApplyOnce(t *testing.T) {
	pm := &fakePolymarket{err: errors.New("gamma down")}
	pf := &fakePredictFun{}
	markets := fakeMarkets{
		{PolymarketSlug: "a", PredictFunSlug: "c"},
		{PolymarketSlug: "b"},
	}
	aliases := map[string]string{"a": "x", "b": "e", "c": "d"}

	_, err := NewFetcher(pm, pf, &fakeOpinion{}, markets, testLogger(), WithSlugAliases(aliases)).
		FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "e"}, pf.slugs)
}

// --- scanner ---

type staticFetcher struct {
	snap Snapshot
	err  error
}

func (s staticFetcher) FetchAll(context.Context) (Snapshot, error) { return s.snap, s.err }

type captureSink struct{ results []*scan.Result }

func (c *captureSink) Write(_ context.Context, res *scan.Result) error {
	c.results = append(c.results, res)
	return nil
}

type captureNotifier struct {
	scans    int
	failures []error
}

func (c *captureNotifier) NotifyScan(context.Context, *scan.Result) { c.scans++ }
func (c *captureNotifier) NotifyScanFailed(_ context.Context, err error) {
	c.failures = append(c.failures, err)
}

type captureBus struct {
	channel string
	payload []byte
}

func (b *captureBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.channel, b.payload = channel, payload
	return nil
}

func (b *captureBus) Subscribe(context.Context, string) (<-chan []byte, error) { return nil, nil }

func TestScanner_Scan(t *testing.T) {
	yesBook, noBook := predictfun.APIOrderbook{
		Bids: [][]float64{{0.55, 100}},
		Asks: [][]float64{{0.45, 200}},
	}.Snapshots("pf1")

	snap := Snapshot{
		Records: sampleRecords(),
		Fetched: allFetched(),
		Books:   predictfun.Books{yesBook.AssetID: yesBook, noBook.AssetID: noBook},
	}

	var polyCalls [][]string
	poly := arbitrage.DepthFetcherFunc(func(_ context.Context, ids []string) (map[string]domain.OrderbookSnapshot, error) {
		polyCalls = append(polyCalls, ids)
		return map[string]domain.OrderbookSnapshot{
			"t-yes": {AssetID: "t-yes", Asks: []domain.PriceLevel{{Price: 0.41, Size: 50}}},
		}, nil
	})

	sink := &captureSink{}
	notifier := &captureNotifier{}
	bus := &captureBus{}
	s := NewScanner(
		ScannerConfig{TopK: 5, Capital: decimal.NewFromInt(1000), MinBet: decimal.NewFromInt(5)},
		staticFetcher{snap: snap},
		NewEngine(match.DefaultComparisons(), testLogger()),
		testLogger(),
		WithDepth(domain.PlatformPolymarket, poly),
		WithSinks(sink),
		WithNotifier(notifier),
		WithBus(bus),
	)

	res, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Same(t, res, s.Latest())
	assert.Equal(t, scan.StatusOK, res.Status())
	assert.Len(t, polyCalls, 1, "one depth fetch per platform across comparisons")

	direct, ok := res.Comparison(domain.ComparisonPolymarketPredictFun)
	require.True(t, ok)
	assert.Equal(t, 1, direct.Enriched)
	top := direct.Top()[0]
	require.NotNil(t, top.FirstDepth)
	require.NotNil(t, top.SecondDepth)
	require.NotNil(t, top.BookROI)
	require.NotNil(t, top.Sizing)
	assert.True(t, top.Sizing.Capital.Equal(decimal.NewFromInt(1000)))

	require.NotNil(t, res.Plan)
	assert.Len(t, res.Plan.Allocations, 3)

	assert.Len(t, sink.results, 1)
	assert.Equal(t, 1, notifier.scans)
	assert.Equal(t, scan.Channel, bus.channel)
	var summary map[string]any
	require.NoError(t, json.Unmarshal(bus.payload, &summary))
	assert.Equal(t, res.RunID, summary["run_id"])
}

func TestScanner_FetchFailure(t *testing.T) {
	notifier := &captureNotifier{}
	s := NewScanner(ScannerConfig{}, staticFetcher{err: errors.New("no markets")},
		NewEngine(match.DefaultComparisons(), testLogger()), testLogger(), WithNotifier(notifier))

	_, err := s.Scan(context.Background())
	require.Error(t, err)
	assert.Len(t, notifier.failures, 1)
	assert.Nil(t, s.Latest())
}
