package arbitrage

import (
	"context"
	"log/slog"
	"sort"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// DepthFetcher fetches order books for a batch of token ids. Tokens without
// a book are omitted from the result.
type DepthFetcher interface {
	FetchDepth(ctx context.Context, tokenIDs []string) (map[string]domain.OrderbookSnapshot, error)
}

// DepthFetcherFunc adapts a function to DepthFetcher.
type DepthFetcherFunc func(ctx context.Context, tokenIDs []string) (map[string]domain.OrderbookSnapshot, error)

func (f DepthFetcherFunc) FetchDepth(ctx context.Context, tokenIDs []string) (map[string]domain.OrderbookSnapshot, error) {
	return f(ctx, tokenIDs)
}

// Enricher attaches order-book depth to selected opportunities.
type Enricher struct {
	fetchers map[domain.Platform]DepthFetcher
	logger   *slog.Logger
}

// NewEnricher creates an Enricher. Platforms without a fetcher are never
// enriched.
func NewEnricher(fetchers map[domain.Platform]DepthFetcher, logger *slog.Logger) *Enricher {
	return &Enricher{
		fetchers: fetchers,
		logger:   logger.With(slog.String("component", "depth_enricher")),
	}
}

// Enrich returns a copy of opps with depth and book ROI attached where the
// books could be fetched. Books are fetched once per platform. A failed fetch
// leaves the affected opportunities without depth.
func (e *Enricher) Enrich(ctx context.Context, opps []domain.ArbitrageOpportunity) []domain.ArbitrageOpportunity {
	out := make([]domain.ArbitrageOpportunity, len(opps))
	copy(out, opps)
	if len(out) == 0 {
		return out
	}

	wanted := make(map[domain.Platform][]string)
	seen := make(map[string]bool)
	for _, o := range out {
		for _, m := range []domain.Market{o.Pair.First, o.Pair.Second} {
			if _, ok := e.fetchers[m.Platform]; !ok {
				continue
			}
			for _, tok := range m.TokenIDs {
				k := string(m.Platform) + "/" + tok
				if tok == "" || seen[k] {
					continue
				}
				seen[k] = true
				wanted[m.Platform] = append(wanted[m.Platform], tok)
			}
		}
	}

	books := make(map[domain.Platform]map[string]domain.OrderbookSnapshot, len(wanted))
	for p, tokens := range wanted {
		got, err := e.fetchers[p].FetchDepth(ctx, tokens)
		if err != nil {
			e.logger.WarnContext(ctx, "depth fetch failed",
				slog.String("platform", string(p)),
				slog.Int("tokens", len(tokens)),
				slog.String("error", err.Error()),
			)
			continue
		}
		books[p] = got
	}

	for i := range out {
		out[i].FirstDepth = depthRecord(out[i].Pair.First, books)
		out[i].SecondDepth = depthRecord(out[i].Pair.Second, books)
		if out[i].FirstDepth != nil || out[i].SecondDepth != nil {
			out[i].BookROI = ComputeBookROI(out[i])
		}
	}
	return out
}

func depthRecord(m domain.Market, books map[domain.Platform]map[string]domain.OrderbookSnapshot) *domain.DepthRecord {
	pb, ok := books[m.Platform]
	if !ok {
		return nil
	}
	var rec domain.DepthRecord
	if snap, ok := pb[m.TokenIDs[0]]; ok && m.TokenIDs[0] != "" {
		rec.Yes = BuildBookDepth(snap)
	}
	if snap, ok := pb[m.TokenIDs[1]]; ok && m.TokenIDs[1] != "" {
		rec.No = BuildBookDepth(snap)
	}
	if rec.Yes == nil && rec.No == nil {
		return nil
	}
	return &rec
}

// BuildBookDepth picks the two best bid and ask levels of a snapshot by
// comparing prices, never by array position. Sizes at equal prices are
// summed. It returns nil for an empty book.
func BuildBookDepth(snap domain.OrderbookSnapshot) *domain.BookDepth {
	bids := aggregate(snap.Bids)
	asks := aggregate(snap.Asks)
	sort.Slice(bids, func(i, j int) bool { return bids[i].Price > bids[j].Price })
	sort.Slice(asks, func(i, j int) bool { return asks[i].Price < asks[j].Price })

	d := domain.BookDepth{
		Bid1: levelAt(bids, 0),
		Bid2: levelAt(bids, 1),
		Ask1: levelAt(asks, 0),
		Ask2: levelAt(asks, 1),
	}
	if d.Empty() {
		return nil
	}
	return &d
}

func aggregate(levels []domain.PriceLevel) []domain.PriceLevel {
	idx := make(map[float64]int, len(levels))
	var out []domain.PriceLevel
	for _, l := range levels {
		if l.Price <= 0 || l.Size <= 0 {
			continue
		}
		if i, ok := idx[l.Price]; ok {
			out[i].Size += l.Size
			continue
		}
		idx[l.Price] = len(out)
		out = append(out, l)
	}
	return out
}

func levelAt(levels []domain.PriceLevel, i int) *domain.Level {
	if i >= len(levels) {
		return nil
	}
	l := levels[i]
	return &domain.Level{Price: l.Price, Size: l.Size, SizeUSD: l.Price * l.Size}
}
