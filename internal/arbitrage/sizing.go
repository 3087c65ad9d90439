package arbitrage

import (
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// Size splits capital across the two legs of opp in proportion to their
// prices so that both legs buy the same number of shares and the payout is
// identical whichever outcome resolves. Bets are rounded to cents and shares
// to four decimals. It returns nil when the leg prices sum to zero.
func Size(opp domain.ArbitrageOpportunity, capital decimal.Decimal) *domain.Sizing {
	pf, ps := opp.LegPrices()
	priceFirst := decimal.NewFromFloat(pf)
	priceSecond := decimal.NewFromFloat(ps)
	total := priceFirst.Add(priceSecond)
	if !total.IsPositive() {
		return nil
	}

	s := &domain.Sizing{
		Capital:   capital,
		BetFirst:  capital.Mul(priceFirst).Div(total).Round(2),
		BetSecond: capital.Mul(priceSecond).Div(total).Round(2),
	}
	shares := capital.Div(total).Round(4)
	if priceFirst.IsPositive() {
		s.SharesFirst = shares
	}
	if priceSecond.IsPositive() {
		s.SharesSecond = shares
	}
	return s
}
