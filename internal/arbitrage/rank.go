package arbitrage

import (
	"sort"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// DefaultTopK is the number of opportunities per comparison type selected for
// depth enrichment.
const DefaultTopK = 5

// Rank returns a copy of opps ordered by descending ROI. Ties are broken by
// ascending title, then by first and second native id.
func Rank(opps []domain.ArbitrageOpportunity) []domain.ArbitrageOpportunity {
	out := make([]domain.ArbitrageOpportunity, len(opps))
	copy(out, opps)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ROIPct != b.ROIPct {
			return a.ROIPct > b.ROIPct
		}
		if a.Title() != b.Title() {
			return a.Title() < b.Title()
		}
		if a.Pair.First.NativeID != b.Pair.First.NativeID {
			return a.Pair.First.NativeID < b.Pair.First.NativeID
		}
		return a.Pair.Second.NativeID < b.Pair.Second.NativeID
	})
	return out
}

// SelectTopK returns the first min(k, len(ranked)) opportunities. A
// non-positive k selects nothing.
func SelectTopK(ranked []domain.ArbitrageOpportunity, k int) []domain.ArbitrageOpportunity {
	if k <= 0 {
		return nil
	}
	if k > len(ranked) {
		k = len(ranked)
	}
	return ranked[:k]
}
