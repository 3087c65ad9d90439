package arbitrage

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

func pair(yesA, noA, yesB, noB float64) domain.MatchedPair {
	return domain.MatchedPair{
		Type:   domain.ComparisonPolymarketPredictFun,
		First:  domain.Market{Platform: domain.PlatformPolymarket, NativeID: "a", Title: "A", YesPrice: yesA, NoPrice: noA},
		Second: domain.Market{Platform: domain.PlatformPredictFun, NativeID: "b", Title: "B", YesPrice: yesB, NoPrice: noB},
	}
}

func TestEvaluate_Examples(t *testing.T) {
	tests := []struct {
		name     string
		pair     domain.MatchedPair
		strategy domain.Strategy
		cost     float64
		profit   float64
		roi      float64
		reason   Reason
	}{
		{
			name:     "yes first no second",
			pair:     pair(0.40, 0.60, 0.45, 0.40),
			strategy: domain.StrategyYesFirstNoSecond,
			cost:     0.80, profit: 0.20, roi: 25.0,
		},
		{
			name:     "cost 0.90",
			pair:     pair(0.50, 0.50, 0.60, 0.40),
			strategy: domain.StrategyYesFirstNoSecond,
			cost:     0.90, profit: 0.10, roi: 11.111111111111,
		},
		{
			name:     "no first yes second",
			pair:     pair(0.70, 0.30, 0.55, 0.45),
			strategy: domain.StrategyNoFirstYesSecond,
			cost:     0.85, profit: 0.15, roi: 17.647058823529,
		},
		{
			name:   "no strategy profitable",
			pair:   pair(0.55, 0.45, 0.60, 0.55),
			reason: ReasonNoProfit,
		},
		{
			name:   "break even is not profit",
			pair:   pair(0.50, 0.50, 0.50, 0.50),
			reason: ReasonNoProfit,
		},
		{
			name:   "zero cost",
			pair:   pair(0, 0, 0, 0),
			reason: ReasonDegenerateCost,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opp, reason := Evaluate(tt.pair)
			require.Equal(t, tt.reason, reason)
			if reason != "" {
				return
			}
			assert.Equal(t, tt.strategy, opp.Strategy)
			assert.InDelta(t, tt.cost, opp.Cost, 1e-9)
			assert.InDelta(t, tt.profit, opp.Profit, 1e-9)
			assert.InDelta(t, tt.roi, opp.ROIPct, 1e-9)
			assert.NotEmpty(t, opp.ID)
		})
	}
}

func TestEvaluate_EqualProfitPrefersYesFirst(t *testing.T) {
	opp, reason := Evaluate(pair(0.40, 0.40, 0.40, 0.40))
	require.Empty(t, reason)
	assert.Equal(t, domain.StrategyYesFirstNoSecond, opp.Strategy)
}

func TestEvaluate_Exactness(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		opp, reason := Evaluate(pair(rng.Float64(), rng.Float64(), rng.Float64(), rng.Float64()))
		if reason != "" {
			continue
		}
		assert.InDelta(t, 1.0-opp.Cost, opp.Profit, 1e-9)
		assert.InDelta(t, opp.Profit/opp.Cost*100, opp.ROIPct, 1e-9)
		assert.Greater(t, opp.Profit, 0.0)

		first, second := opp.LegPrices()
		assert.InDelta(t, first+second, opp.Cost, 1e-9)
	}
}

func TestEvaluate_StableID(t *testing.T) {
	a, _ := Evaluate(pair(0.40, 0.60, 0.45, 0.40))
	b, _ := Evaluate(pair(0.41, 0.59, 0.45, 0.40))
	assert.Equal(t, a.ID, b.ID)

	c, _ := Evaluate(pair(0.70, 0.30, 0.55, 0.45))
	assert.NotEqual(t, a.ID, c.ID)
}

func TestEvaluateAll(t *testing.T) {
	opps, discarded := EvaluateAll([]domain.MatchedPair{
		pair(0.40, 0.60, 0.45, 0.40),
		pair(0.55, 0.45, 0.60, 0.55),
		pair(0, 0, 0, 0),
	})
	assert.Len(t, opps, 1)
	assert.Equal(t, map[Reason]int{ReasonNoProfit: 1, ReasonDegenerateCost: 1}, discarded)
}
