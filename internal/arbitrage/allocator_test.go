package arbitrage

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestSize_EqualizesPayout(t *testing.T) {
	tests := []struct {
		name               string
		yesA, noA, yesB, noB float64
		capital            string
		betFirst, betSecond string
		shares             string
	}{
		{name: "even prices", yesA: 0.40, noA: 0.60, yesB: 0.45, noB: 0.40, capital: "100",
			betFirst: "50", betSecond: "50", shares: "125"},
		{name: "uneven prices", yesA: 0.30, noA: 0.70, yesB: 0.45, noB: 0.60, capital: "90",
			betFirst: "30", betSecond: "60", shares: "100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, reason := Evaluate(pair(tt.yesA, tt.noA, tt.yesB, tt.noB))
			require.Empty(t, reason)
			s := Size(o, dec(tt.capital))
			require.NotNil(t, s)
			assert.True(t, dec(tt.betFirst).Equal(s.BetFirst), "bet first %s", s.BetFirst)
			assert.True(t, dec(tt.betSecond).Equal(s.BetSecond), "bet second %s", s.BetSecond)
			assert.True(t, dec(tt.shares).Equal(s.SharesFirst), "shares %s", s.SharesFirst)
			assert.True(t, s.SharesFirst.Equal(s.SharesSecond))
		})
	}
}

func TestAllocate(t *testing.T) {
	good, _ := Evaluate(pair(0.40, 0.60, 0.45, 0.40))
	lopsided, _ := Evaluate(pair(0.05, 0.95, 0.95, 0.90))

	plan := Allocate([]domain.ArbitrageOpportunity{good, lopsided}, dec("100"), DefaultMinBet)
	require.Len(t, plan.Allocations, 1)
	assert.True(t, dec("50").Equal(plan.TotalDeployed))
	assert.True(t, dec("12.5").Equal(plan.ExpectedProfit), "profit %s", plan.ExpectedProfit)
	assert.True(t, dec("25").Equal(plan.ROIPct), "roi %s", plan.ROIPct)
}

func TestAllocate_BelowMinimum(t *testing.T) {
	good, _ := Evaluate(pair(0.40, 0.60, 0.45, 0.40))
	plan := Allocate([]domain.ArbitrageOpportunity{good, good}, dec("15"), DefaultMinBet)
	assert.Empty(t, plan.Allocations)
	assert.True(t, plan.TotalDeployed.IsZero())

	assert.Empty(t, Allocate(nil, dec("100"), DefaultMinBet).Allocations)
}
