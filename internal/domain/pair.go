package domain

// MatchedPair is a correspondence between two markets on two distinct
// platforms. First and Second follow the order of the comparison type.
type MatchedPair struct {
	Type   ComparisonType
	First  Market
	Second Market

	// Hub is the market that joined a transitive pair. It is informational
	// only and never part of the arbitrage computation.
	Hub *Market
}

// Title returns the display title of the pair, preferring the first side.
func (p MatchedPair) Title() string {
	if p.First.Title != "" {
		return p.First.Title
	}
	return p.Second.Title
}
