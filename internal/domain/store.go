package domain

import "context"

// MarketConfig links a Polymarket event slug to the matching listings on the
// other platforms. OpinionMarketID is zero when Opinion has no such market and
// PredictFunSlug is empty when predict.fun uses the same slug.
type MarketConfig struct {
	PolymarketSlug  string
	OpinionMarketID int
	PredictFunSlug  string
}

// MarketConfigStore loads the cross-platform market mapping.
type MarketConfigStore interface {
	ListEnabled(ctx context.Context) ([]MarketConfig, error)
}
