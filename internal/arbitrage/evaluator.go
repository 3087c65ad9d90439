// Package arbitrage computes, ranks and enriches cross-platform arbitrage
// opportunities from matched market pairs.
package arbitrage

import (
	"github.com/google/uuid"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// Reason explains why a matched pair produced no opportunity.
type Reason string

const (
	ReasonNoProfit       Reason = "no_profit"
	ReasonDegenerateCost Reason = "degenerate_cost"
)

// opportunityNamespace seeds the name-based opportunity ids so the same pair
// and strategy always yields the same id.
var opportunityNamespace = uuid.MustParse("6f0b5c1e-3d5a-4c8e-9a51-0f4b2f6c7d10")

// Evaluate computes both strategies for a pair and keeps the more profitable
// one. Equal profit is broken by lower cost, then by the yes-first strategy.
func Evaluate(pair domain.MatchedPair) (domain.ArbitrageOpportunity, Reason) {
	f, s := pair.First, pair.Second

	cost1 := f.YesPrice + s.NoPrice
	cost2 := f.NoPrice + s.YesPrice
	profit1 := 1.0 - cost1
	profit2 := 1.0 - cost2

	if profit1 <= 0 && profit2 <= 0 {
		return domain.ArbitrageOpportunity{}, ReasonNoProfit
	}

	strategy, cost, profit := domain.StrategyYesFirstNoSecond, cost1, profit1
	if profit2 > profit1 || (profit2 == profit1 && cost2 < cost1) {
		strategy, cost, profit = domain.StrategyNoFirstYesSecond, cost2, profit2
	}
	if cost <= 0 {
		return domain.ArbitrageOpportunity{}, ReasonDegenerateCost
	}

	opp := domain.ArbitrageOpportunity{
		Pair:     pair,
		Strategy: strategy,
		Cost:     cost,
		Profit:   profit,
		ROIPct:   profit / cost * 100,
	}
	opp.ID = uuid.NewSHA1(opportunityNamespace, []byte(opp.Key())).String()
	return opp, ""
}

// EvaluateAll evaluates every pair in order and counts the discards.
func EvaluateAll(pairs []domain.MatchedPair) ([]domain.ArbitrageOpportunity, map[Reason]int) {
	discarded := make(map[Reason]int)
	opps := make([]domain.ArbitrageOpportunity, 0, len(pairs))
	for _, p := range pairs {
		opp, reason := Evaluate(p)
		if reason != "" {
			discarded[reason]++
			continue
		}
		opps = append(opps, opp)
	}
	return opps, discarded
}
