// Package scan holds the outcome of one scan run.
package scan

import (
	"sort"
	"time"

	"github.com/alanyoungcy/crossarb/internal/arbitrage"
	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/match"
	"github.com/alanyoungcy/crossarb/internal/normalize"
)

// Status values of a Result.
const (
	StatusOK      = "ok"
	StatusPartial = "partial"
)

// ComparisonResult is the ranked outcome of one comparison type. The first
// Enriched opportunities carry depth; the rest are valid but unenriched.
type ComparisonResult struct {
	Type          domain.ComparisonType
	Pairs         int
	Opportunities []domain.ArbitrageOpportunity
	Enriched      int
	Discarded     map[arbitrage.Reason]int
}

// Top returns the enriched head of the ranking.
func (c ComparisonResult) Top() []domain.ArbitrageOpportunity {
	return c.Opportunities[:c.Enriched]
}

// Best returns the highest-ranked opportunity, if any.
func (c ComparisonResult) Best() (domain.ArbitrageOpportunity, bool) {
	if len(c.Opportunities) == 0 {
		return domain.ArbitrageOpportunity{}, false
	}
	return c.Opportunities[0], true
}

// Result is everything one scan produced.
type Result struct {
	RunID       string
	StartedAt   time.Time
	FinishedAt  time.Time
	Comparisons []ComparisonResult
	Diagnostics normalize.Diagnostics
	Skipped     []match.Skipped
	// Failed holds the error text of every platform whose fetch failed.
	Failed map[domain.Platform]string
	Plan   *arbitrage.Plan
}

// Status is StatusPartial when any platform failed or any comparison was
// skipped.
func (r *Result) Status() string {
	if len(r.Failed) > 0 || len(r.Skipped) > 0 {
		return StatusPartial
	}
	return StatusOK
}

// Comparison returns the result of one comparison type.
func (r *Result) Comparison(t domain.ComparisonType) (ComparisonResult, bool) {
	for _, c := range r.Comparisons {
		if c.Type == t {
			return c, true
		}
	}
	return ComparisonResult{}, false
}

// TotalOpportunities counts opportunities across comparison types.
func (r *Result) TotalOpportunities() int {
	n := 0
	for _, c := range r.Comparisons {
		n += len(c.Opportunities)
	}
	return n
}

// FailedPlatforms returns the failed platforms in name order.
func (r *Result) FailedPlatforms() []domain.Platform {
	out := make([]domain.Platform, 0, len(r.Failed))
	for p := range r.Failed {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Channel is the bus channel scan summaries are published on.
const Channel = "ch:scan"
