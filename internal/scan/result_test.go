package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/match"
)

func TestResultStatus(t *testing.T) {
	r := &Result{}
	assert.Equal(t, StatusOK, r.Status())

	r.Skipped = []match.Skipped{{Type: domain.ComparisonPolymarketOpinion}}
	assert.Equal(t, StatusPartial, r.Status())

	r = &Result{Failed: map[domain.Platform]string{domain.PlatformOpinion: "down"}}
	assert.Equal(t, StatusPartial, r.Status())
}

func TestResultAccessors(t *testing.T) {
	r := &Result{
		Comparisons: []ComparisonResult{
			{
				Type: domain.ComparisonPolymarketPredictFun,
				Opportunities: []domain.ArbitrageOpportunity{
					{ID: "a", ROIPct: 9}, {ID: "b", ROIPct: 3},
				},
				Enriched: 1,
			},
			{Type: domain.ComparisonOpinionPredictFun},
		},
		Failed: map[domain.Platform]string{
			domain.PlatformPredictFun: "x",
			domain.PlatformOpinion:    "y",
		},
	}

	assert.Equal(t, 2, r.TotalOpportunities())
	assert.Equal(t, []domain.Platform{domain.PlatformOpinion, domain.PlatformPredictFun}, r.FailedPlatforms())

	c, ok := r.Comparison(domain.ComparisonPolymarketPredictFun)
	assert.True(t, ok)
	assert.Len(t, c.Top(), 1)
	best, ok := c.Best()
	assert.True(t, ok)
	assert.Equal(t, "a", best.ID)

	empty, ok := r.Comparison(domain.ComparisonOpinionPredictFun)
	assert.True(t, ok)
	_, ok = empty.Best()
	assert.False(t, ok)

	_, ok = r.Comparison(domain.ComparisonPolymarketOpinion)
	assert.False(t, ok)
}
