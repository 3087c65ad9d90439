package arbitrage

import (
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// DefaultMinBet is the smallest bet accepted by any platform.
var DefaultMinBet = decimal.NewFromFloat(5.0)

// Allocation is the capital assigned to one opportunity.
type Allocation struct {
	Opportunity    domain.ArbitrageOpportunity
	Capital        decimal.Decimal
	Sizing         domain.Sizing
	ExpectedProfit decimal.Decimal
}

// Plan is the result of allocating capital across opportunities.
type Plan struct {
	Allocations    []Allocation
	TotalCapital   decimal.Decimal
	TotalDeployed  decimal.Decimal
	ExpectedProfit decimal.Decimal
	ROIPct         decimal.Decimal
}

// Allocate spreads capital equally across opps. An opportunity is funded only
// when its share is at least twice minBet and both of its legs are at least
// minBet.
func Allocate(opps []domain.ArbitrageOpportunity, capital, minBet decimal.Decimal) Plan {
	plan := Plan{
		TotalCapital:   capital,
		TotalDeployed:  decimal.Zero,
		ExpectedProfit: decimal.Zero,
		ROIPct:         decimal.Zero,
	}
	if len(opps) == 0 || !capital.IsPositive() {
		return plan
	}

	per := capital.Div(decimal.NewFromInt(int64(len(opps))))
	if per.LessThan(minBet.Mul(decimal.NewFromInt(2))) {
		return plan
	}

	for _, opp := range opps {
		sz := Size(opp, per)
		if sz == nil || sz.BetFirst.LessThan(minBet) || sz.BetSecond.LessThan(minBet) {
			continue
		}
		profit := sz.SharesFirst.Sub(per)
		plan.Allocations = append(plan.Allocations, Allocation{
			Opportunity:    opp,
			Capital:        per,
			Sizing:         *sz,
			ExpectedProfit: profit,
		})
		plan.TotalDeployed = plan.TotalDeployed.Add(per)
		plan.ExpectedProfit = plan.ExpectedProfit.Add(profit)
	}
	if plan.TotalDeployed.IsPositive() {
		plan.ROIPct = plan.ExpectedProfit.Div(plan.TotalDeployed).Mul(decimal.NewFromInt(100)).Round(4)
	}
	return plan
}
