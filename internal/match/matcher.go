// Package match pairs markets that represent the same real-world question on
// two platforms.
package match

import (
	"log/slog"
	"sort"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/index"
)

// Skipped records a comparison that could not run because a platform it
// depends on supplied no data.
type Skipped struct {
	Type    domain.ComparisonType
	Missing []domain.Platform
}

// Matcher applies comparisons to a set of platform indexes.
type Matcher struct {
	logger *slog.Logger
}

// NewMatcher creates a Matcher.
func NewMatcher(logger *slog.Logger) *Matcher {
	return &Matcher{logger: logger.With(slog.String("component", "matcher"))}
}

// Match runs every comparison. A comparison whose platforms are not all
// present in indexes is reported in the skipped list instead of failing.
func (m *Matcher) Match(indexes index.Indexes, comparisons []Comparison) (map[domain.ComparisonType][]domain.MatchedPair, []Skipped) {
	out := make(map[domain.ComparisonType][]domain.MatchedPair, len(comparisons))
	var skipped []Skipped
	for _, c := range comparisons {
		var missing []domain.Platform
		for _, p := range c.Platforms() {
			if _, ok := indexes[p]; !ok {
				missing = append(missing, p)
			}
		}
		if len(missing) > 0 {
			skipped = append(skipped, Skipped{Type: c.Type, Missing: missing})
			m.logger.Warn("comparison skipped",
				slog.String("comparison", string(c.Type)),
				slog.Any("missing", missing),
			)
			continue
		}

		var pairs []domain.MatchedPair
		switch c.Method {
		case MethodDirect:
			pairs = Direct(c.Type, indexes[c.First], indexes[c.Second])
		case MethodComposite:
			pairs = Composite(c.Type, indexes[c.First], indexes[c.Second])
		case MethodTransitive:
			pairs = Transitive(c.Type, indexes[c.Hub], indexes[c.First], indexes[c.Second])
		default:
			m.logger.Warn("unknown match method",
				slog.String("comparison", string(c.Type)),
				slog.String("method", string(c.Method)),
			)
			continue
		}
		out[c.Type] = pairs
		m.logger.Debug("comparison matched",
			slog.String("comparison", string(c.Type)),
			slog.Int("pairs", len(pairs)),
		)
	}
	return out, skipped
}

// Direct pairs markets of x and y whose condition keys are equal. The smaller
// index is iterated.
func Direct(t domain.ComparisonType, x, y *index.Index) []domain.MatchedPair {
	return byKey(t, x, y, func(idx *index.Index) map[string]domain.Market { return idx.ByCondition })
}

// Composite pairs markets of x and y whose composite keys are exactly equal.
func Composite(t domain.ComparisonType, x, y *index.Index) []domain.MatchedPair {
	return byKey(t, x, y, func(idx *index.Index) map[string]domain.Market { return idx.ByComposite })
}

func byKey(t domain.ComparisonType, x, y *index.Index, table func(*index.Index) map[string]domain.Market) []domain.MatchedPair {
	xt, yt := table(x), table(y)
	small, other := xt, yt
	swapped := false
	if len(yt) < len(xt) {
		small, other = yt, xt
		swapped = true
	}

	var pairs []domain.MatchedPair
	for k, pm := range small {
		om, ok := other[k]
		if !ok {
			continue
		}
		first, second := pm, om
		if swapped {
			first, second = om, pm
		}
		pairs = append(pairs, domain.MatchedPair{Type: t, First: first, Second: second})
	}
	sortPairs(pairs)
	return pairs
}

// Transitive iterates the hub's markets in index order and, for each, looks
// up x by the hub's composite key and y by the hub's condition key. A pair is
// emitted only when both lookups succeed. Each x and y market is paired at
// most once; the first hub market to reach it wins.
func Transitive(t domain.ComparisonType, hub, x, y *index.Index) []domain.MatchedPair {
	usedX := make(map[string]bool)
	usedY := make(map[string]bool)
	var pairs []domain.MatchedPair
	for _, h := range hub.Markets {
		if h.CompositeKey == "" || !h.HasConditionKey() {
			continue
		}
		xm, ok := x.ByComposite[h.CompositeKey]
		if !ok {
			continue
		}
		ym, ok := y.ByCondition[h.ConditionKey]
		if !ok {
			continue
		}
		if usedX[xm.NativeID] || usedY[ym.NativeID] {
			continue
		}
		usedX[xm.NativeID] = true
		usedY[ym.NativeID] = true
		hubMarket := h
		pairs = append(pairs, domain.MatchedPair{Type: t, First: xm, Second: ym, Hub: &hubMarket})
	}
	sortPairs(pairs)
	return pairs
}

func sortPairs(pairs []domain.MatchedPair) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].First.NativeID != pairs[j].First.NativeID {
			return pairs[i].First.NativeID < pairs[j].First.NativeID
		}
		return pairs[i].Second.NativeID < pairs[j].Second.NativeID
	})
}
