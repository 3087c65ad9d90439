package domain

// Platform identifies a prediction-market venue.
type Platform string

const (
	PlatformPolymarket Platform = "polymarket"
	PlatformPredictFun Platform = "predictfun"
	PlatformOpinion    Platform = "opinion"
)

// DisplayName returns the human-readable venue name used in reports.
func (p Platform) DisplayName() string {
	switch p {
	case PlatformPolymarket:
		return "Polymarket"
	case PlatformPredictFun:
		return "predict.fun"
	case PlatformOpinion:
		return "Opinion.trade"
	default:
		return string(p)
	}
}

// ComparisonType names an ordered pair of platforms. The first platform of
// the pair is the "first side" of every MatchedPair of that type.
type ComparisonType string

const (
	ComparisonPolymarketPredictFun ComparisonType = "polymarket_predictfun"
	ComparisonPolymarketOpinion    ComparisonType = "polymarket_opinion"
	ComparisonOpinionPredictFun    ComparisonType = "opinion_predictfun"
)
