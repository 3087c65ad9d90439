package domain

import "github.com/shopspring/decimal"

// Strategy is the pair of opposite-outcome bets that makes up an arbitrage.
type Strategy string

const (
	StrategyYesFirstNoSecond Strategy = "yes_first_no_second"
	StrategyNoFirstYesSecond Strategy = "no_first_yes_second"
)

// Describe renders the strategy with concrete platform names.
func (s Strategy) Describe(first, second Platform) string {
	if s == StrategyYesFirstNoSecond {
		return "YES on " + first.DisplayName() + ", NO on " + second.DisplayName()
	}
	return "NO on " + first.DisplayName() + ", YES on " + second.DisplayName()
}

// ArbitrageOpportunity is a profitable strategy derived from a MatchedPair.
type ArbitrageOpportunity struct {
	ID       string
	Pair     MatchedPair
	Strategy Strategy

	Cost   float64
	Profit float64
	ROIPct float64

	// Optional enrichment. Nil means "not computed", not "zero".
	Sizing      *Sizing
	FirstDepth  *DepthRecord
	SecondDepth *DepthRecord
	BookROI     *BookROI
}

// Type returns the comparison type of the underlying pair.
func (o ArbitrageOpportunity) Type() ComparisonType { return o.Pair.Type }

// Title returns the pair title.
func (o ArbitrageOpportunity) Title() string { return o.Pair.Title() }

// LegPrices returns the prices paid on the first and second platform for the
// chosen strategy.
func (o ArbitrageOpportunity) LegPrices() (first, second float64) {
	if o.Strategy == StrategyYesFirstNoSecond {
		return o.Pair.First.YesPrice, o.Pair.Second.NoPrice
	}
	return o.Pair.First.NoPrice, o.Pair.Second.YesPrice
}

// Key identifies the opportunity independently of the run that found it.
func (o ArbitrageOpportunity) Key() string {
	return string(o.Pair.Type) + "|" + o.Pair.First.Ref().String() + "|" +
		o.Pair.Second.Ref().String() + "|" + string(o.Strategy)
}

// Sizing is the payout-equalizing bet split for a given amount of capital.
type Sizing struct {
	Capital      decimal.Decimal
	BetFirst     decimal.Decimal
	BetSecond    decimal.Decimal
	SharesFirst  decimal.Decimal
	SharesSecond decimal.Decimal
}

// Level is one order-book level with its currency-denominated size.
type Level struct {
	Price   float64
	Size    float64
	SizeUSD float64
}

// BookDepth holds the best two bid and ask levels of one token's book.
type BookDepth struct {
	Bid1 *Level
	Bid2 *Level
	Ask1 *Level
	Ask2 *Level
}

// Empty reports whether no level is present.
func (d BookDepth) Empty() bool {
	return d.Bid1 == nil && d.Bid2 == nil && d.Ask1 == nil && d.Ask2 == nil
}

// DepthRecord is the depth of both outcome tokens of one market.
type DepthRecord struct {
	Yes *BookDepth
	No  *BookDepth
}

// BookROI is the ROI recomputed at executable ask prices. A nil field means
// the cost at that level was degenerate.
type BookROI struct {
	Ask1 *float64
	Ask2 *float64
}
