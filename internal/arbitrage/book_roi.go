package arbitrage

import "github.com/alanyoungcy/crossarb/internal/domain"

// ComputeBookROI recomputes the ROI of the chosen strategy at the best and
// second-best ask of each leg actually bought. A leg without a book level at
// that depth falls back to its quoted price.
func ComputeBookROI(opp domain.ArbitrageOpportunity) *domain.BookROI {
	firstYes := opp.Strategy == domain.StrategyYesFirstNoSecond
	qFirst, qSecond := opp.LegPrices()

	firstBook := side(opp.FirstDepth, firstYes)
	secondBook := side(opp.SecondDepth, !firstYes)

	ask1 := roiAt(
		askPrice(firstBook, func(d *domain.BookDepth) *domain.Level { return d.Ask1 }, qFirst),
		askPrice(secondBook, func(d *domain.BookDepth) *domain.Level { return d.Ask1 }, qSecond),
	)
	ask2 := roiAt(
		askPrice(firstBook, func(d *domain.BookDepth) *domain.Level { return d.Ask2 }, qFirst),
		askPrice(secondBook, func(d *domain.BookDepth) *domain.Level { return d.Ask2 }, qSecond),
	)
	return &domain.BookROI{Ask1: ask1, Ask2: ask2}
}

// side returns the yes or no book of a depth record.
func side(rec *domain.DepthRecord, yes bool) *domain.BookDepth {
	if rec == nil {
		return nil
	}
	if yes {
		return rec.Yes
	}
	return rec.No
}

func askPrice(d *domain.BookDepth, pick func(*domain.BookDepth) *domain.Level, quoted float64) float64 {
	if d == nil {
		return quoted
	}
	if l := pick(d); l != nil {
		return l.Price
	}
	return quoted
}

func roiAt(p1, p2 float64) *float64 {
	cost := p1 + p2
	if cost <= 0 {
		return nil
	}
	roi := (1.0 - cost) / cost * 100
	return &roi
}
