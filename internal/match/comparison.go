package match

import "github.com/alanyoungcy/crossarb/internal/domain"

// Method selects how two platforms are matched.
type Method string

const (
	// MethodDirect pairs markets with equal condition keys.
	MethodDirect Method = "direct"
	// MethodComposite pairs markets with equal composite keys.
	MethodComposite Method = "composite"
	// MethodTransitive joins First and Second through a hub platform: First
	// by the hub's composite key and Second by the hub's condition key.
	MethodTransitive Method = "transitive"
)

// Comparison describes one ordered platform pair and how to match it.
type Comparison struct {
	Type   domain.ComparisonType
	First  domain.Platform
	Second domain.Platform
	Method Method
	Hub    domain.Platform
}

// Platforms returns every platform the comparison depends on.
func (c Comparison) Platforms() []domain.Platform {
	if c.Method == MethodTransitive {
		return []domain.Platform{c.First, c.Second, c.Hub}
	}
	return []domain.Platform{c.First, c.Second}
}

// DefaultComparisons returns the three comparison types scanned by default.
func DefaultComparisons() []Comparison {
	return []Comparison{
		{
			Type:   domain.ComparisonPolymarketPredictFun,
			First:  domain.PlatformPolymarket,
			Second: domain.PlatformPredictFun,
			Method: MethodDirect,
		},
		{
			Type:   domain.ComparisonPolymarketOpinion,
			First:  domain.PlatformPolymarket,
			Second: domain.PlatformOpinion,
			Method: MethodComposite,
		},
		{
			Type:   domain.ComparisonOpinionPredictFun,
			First:  domain.PlatformOpinion,
			Second: domain.PlatformPredictFun,
			Method: MethodTransitive,
			Hub:    domain.PlatformPolymarket,
		},
	}
}
