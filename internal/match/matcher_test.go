package match

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/index"
	"github.com/alanyoungcy/crossarb/internal/normalize"
)

func condKey(n int) string { return fmt.Sprintf("0x%064x", n) }

func market(p domain.Platform, id, cond, slug, title string) domain.Market {
	m := domain.Market{Platform: p, NativeID: id, ConditionKey: cond, Title: title, CategorySlug: slug,
		YesPrice: 0.5, NoPrice: 0.5, Status: domain.MarketStatusActive}
	if slug != "" && title != "" {
		m.CompositeKey = normalize.CompositeKey(slug, title)
	}
	return m
}

type pairIDs struct{ first, second string }

func ids(pairs []domain.MatchedPair) []pairIDs {
	out := make([]pairIDs, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, pairIDs{p.First.NativeID, p.Second.NativeID})
	}
	return out
}

func TestDirect(t *testing.T) {
	poly := index.Build(domain.PlatformPolymarket, []domain.Market{
		market(domain.PlatformPolymarket, "p1", condKey(1), "", ""),
		market(domain.PlatformPolymarket, "p2", condKey(2), "", ""),
		market(domain.PlatformPolymarket, "p3", "", "s", "t"),
	})
	pf := index.Build(domain.PlatformPredictFun, []domain.Market{
		market(domain.PlatformPredictFun, "f2", condKey(2), "", ""),
		market(domain.PlatformPredictFun, "f9", condKey(9), "", ""),
	})

	pairs := Direct(domain.ComparisonPolymarketPredictFun, poly, pf)
	assert.Equal(t, []pairIDs{{"p2", "f2"}}, ids(pairs))
	assert.Equal(t, domain.ComparisonPolymarketPredictFun, pairs[0].Type)
	assert.Nil(t, pairs[0].Hub)
}

func TestComposite_ExactTitleOnly(t *testing.T) {
	poly := index.Build(domain.PlatformPolymarket, []domain.Market{
		market(domain.PlatformPolymarket, "100", "", "btc-2026", "Will BTC reach $100k?"),
	})
	op := index.Build(domain.PlatformOpinion, []domain.Market{
		market(domain.PlatformOpinion, "7", "", "btc-2026", "Will BTC reach $100k?"),
		market(domain.PlatformOpinion, "8", "", "btc-2026", "Will BTC reach $90k?"),
	})

	pairs := Composite(domain.ComparisonPolymarketOpinion, poly, op)
	assert.Equal(t, []pairIDs{{"100", "7"}}, ids(pairs))
}

func TestDirectAndComposite_Symmetric(t *testing.T) {
	var xs, ys []domain.Market
	for i := 0; i < 6; i++ {
		xs = append(xs, market(domain.PlatformPolymarket, fmt.Sprintf("x%d", i), condKey(i), "s", fmt.Sprintf("t%d", i)))
	}
	for i := 3; i < 12; i++ {
		ys = append(ys, market(domain.PlatformOpinion, fmt.Sprintf("y%d", i), condKey(i), "s", fmt.Sprintf("t%d", i)))
	}
	x := index.Build(domain.PlatformPolymarket, xs)
	y := index.Build(domain.PlatformOpinion, ys)

	for name, fn := range map[string]func(domain.ComparisonType, *index.Index, *index.Index) []domain.MatchedPair{
		"direct":    Direct,
		"composite": Composite,
	} {
		t.Run(name, func(t *testing.T) {
			forward := fn("xy", x, y)
			backward := fn("yx", y, x)
			require.Len(t, forward, 3)
			require.Len(t, backward, len(forward))

			fwd := make(map[pairIDs]bool)
			for _, p := range ids(forward) {
				fwd[p] = true
			}
			for _, p := range ids(backward) {
				assert.True(t, fwd[pairIDs{p.second, p.first}], "missing swapped pair %v", p)
			}
		})
	}
}

func transitiveFixture() (hub, op, pf []domain.Market) {
	hub = []domain.Market{
		market(domain.PlatformPolymarket, "h1", condKey(1), "fdv", "above 1b"),
		market(domain.PlatformPolymarket, "h2", condKey(2), "fdv", "above 2b"),
		market(domain.PlatformPolymarket, "h3", condKey(3), "fdv", "above 3b"),
	}
	op = []domain.Market{
		market(domain.PlatformOpinion, "o1", "", "fdv", "Above 1B"),
		market(domain.PlatformOpinion, "o2", "", "fdv", "Above 2B"),
	}
	pf = []domain.Market{
		market(domain.PlatformPredictFun, "f1", condKey(1), "", ""),
		market(domain.PlatformPredictFun, "f2", condKey(2), "", ""),
		market(domain.PlatformPredictFun, "f3", condKey(3), "", ""),
	}
	return hub, op, pf
}

func TestTransitive(t *testing.T) {
	hub, op, pf := transitiveFixture()
	pairs := Transitive(domain.ComparisonOpinionPredictFun,
		index.Build(domain.PlatformPolymarket, hub),
		index.Build(domain.PlatformOpinion, op),
		index.Build(domain.PlatformPredictFun, pf))

	assert.Equal(t, []pairIDs{{"o1", "f1"}, {"o2", "f2"}}, ids(pairs))
	for _, p := range pairs {
		require.NotNil(t, p.Hub)
		assert.Equal(t, domain.PlatformPolymarket, p.Hub.Platform)
		assert.Equal(t, domain.PlatformOpinion, p.First.Platform)
		assert.Equal(t, domain.PlatformPredictFun, p.Second.Platform)
	}
}

func TestTransitive_RemovingEitherHopRemovesPair(t *testing.T) {
	hub, op, pf := transitiveFixture()

	t.Run("composite hop", func(t *testing.T) {
		pairs := Transitive(domain.ComparisonOpinionPredictFun,
			index.Build(domain.PlatformPolymarket, hub),
			index.Build(domain.PlatformOpinion, op[1:]),
			index.Build(domain.PlatformPredictFun, pf))
		assert.Equal(t, []pairIDs{{"o2", "f2"}}, ids(pairs))
	})

	t.Run("condition hop", func(t *testing.T) {
		pairs := Transitive(domain.ComparisonOpinionPredictFun,
			index.Build(domain.PlatformPolymarket, hub),
			index.Build(domain.PlatformOpinion, op),
			index.Build(domain.PlatformPredictFun, pf[1:]))
		assert.Equal(t, []pairIDs{{"o2", "f2"}}, ids(pairs))
	})

	t.Run("hub market", func(t *testing.T) {
		pairs := Transitive(domain.ComparisonOpinionPredictFun,
			index.Build(domain.PlatformPolymarket, hub[1:]),
			index.Build(domain.PlatformOpinion, op),
			index.Build(domain.PlatformPredictFun, pf))
		assert.Equal(t, []pairIDs{{"o2", "f2"}}, ids(pairs))
	})

	t.Run("hub without condition key", func(t *testing.T) {
		keyless := append([]domain.Market(nil), hub...)
		keyless[0].ConditionKey = ""
		pairs := Transitive(domain.ComparisonOpinionPredictFun,
			index.Build(domain.PlatformPolymarket, keyless),
			index.Build(domain.PlatformOpinion, op),
			index.Build(domain.PlatformPredictFun, pf))
		assert.Equal(t, []pairIDs{{"o2", "f2"}}, ids(pairs))
	})
}

func TestMatch_SkipsUnavailablePlatforms(t *testing.T) {
	hub, op, _ := transitiveFixture()
	b := index.NewBuilder(slog.New(slog.NewTextHandler(io.Discard, nil)))
	indexes := b.Build(append(hub, op...))

	m := NewMatcher(slog.New(slog.NewTextHandler(io.Discard, nil)))
	pairs, skipped := m.Match(indexes, DefaultComparisons())

	assert.Len(t, pairs[domain.ComparisonPolymarketOpinion], 2)
	require.Len(t, skipped, 2)
	assert.Equal(t, domain.ComparisonPolymarketPredictFun, skipped[0].Type)
	assert.Equal(t, []domain.Platform{domain.PlatformPredictFun}, skipped[0].Missing)
	assert.Equal(t, domain.ComparisonOpinionPredictFun, skipped[1].Type)

	indexes.Ensure(domain.PlatformPredictFun)
	pairs, skipped = m.Match(indexes, DefaultComparisons())
	assert.Empty(t, skipped)
	assert.Empty(t, pairs[domain.ComparisonPolymarketPredictFun])
}
