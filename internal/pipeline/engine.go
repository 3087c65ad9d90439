package pipeline

import (
	"log/slog"

	"github.com/alanyoungcy/crossarb/internal/arbitrage"
	"github.com/alanyoungcy/crossarb/internal/index"
	"github.com/alanyoungcy/crossarb/internal/match"
	"github.com/alanyoungcy/crossarb/internal/normalize"
	"github.com/alanyoungcy/crossarb/internal/scan"
)

// Output is what the core produces from one snapshot, before enrichment.
type Output struct {
	Markets     int
	Diagnostics normalize.Diagnostics
	Comparisons []scan.ComparisonResult
	Skipped     []match.Skipped
}

// Engine is the single-threaded core: normalize, index, match, evaluate and
// rank. It performs no I/O, so identical snapshots give identical output.
type Engine struct {
	normalizer  *normalize.Normalizer
	builder     *index.Builder
	matcher     *match.Matcher
	comparisons []match.Comparison
}

// NewEngine creates an Engine for the given comparisons, in report order.
func NewEngine(comparisons []match.Comparison, logger *slog.Logger) *Engine {
	return &Engine{
		normalizer:  normalize.New(logger),
		builder:     index.NewBuilder(logger),
		matcher:     match.NewMatcher(logger),
		comparisons: comparisons,
	}
}

// Run processes snap. A platform that was fetched but yielded no usable
// market still gets an empty index, so its comparisons run and find nothing
// rather than being reported as skipped.
func (e *Engine) Run(snap Snapshot) Output {
	markets, diag := e.normalizer.Normalize(snap.Records)

	indexes := e.builder.Build(markets)
	for _, p := range snap.Fetched {
		indexes.Ensure(p)
	}

	pairs, skipped := e.matcher.Match(indexes, e.comparisons)

	out := Output{
		Markets:     len(markets),
		Diagnostics: diag,
		Skipped:     skipped,
	}
	for _, c := range e.comparisons {
		ps, ok := pairs[c.Type]
		if !ok {
			continue
		}
		opps, discarded := arbitrage.EvaluateAll(ps)
		out.Comparisons = append(out.Comparisons, scan.ComparisonResult{
			Type:          c.Type,
			Pairs:         len(ps),
			Opportunities: arbitrage.Rank(opps),
			Discarded:     discarded,
		})
	}
	return out
}
