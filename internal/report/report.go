// Package report renders scan results as JSON documents and writes them to
// local files or object storage.
package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/normalize"
	"github.com/alanyoungcy/crossarb/internal/scan"
)

// Document is the full JSON report of one scan.
type Document struct {
	RunID       string              `json:"run_id"`
	GeneratedAt time.Time           `json:"generated_at"`
	DurationMS  int64               `json:"duration_ms"`
	Status      string              `json:"status"`
	Comparisons []ComparisonDoc     `json:"comparisons"`
	Diagnostics DiagnosticsDoc      `json:"diagnostics"`
	Skipped     []SkippedComparison `json:"skipped_comparisons,omitempty"`
	Failed      map[string]string   `json:"failed_platforms,omitempty"`
	Plan        *PlanDoc            `json:"allocation,omitempty"`
}

// ComparisonDoc is one comparison type's ranked opportunities.
type ComparisonDoc struct {
	Type          string           `json:"type"`
	Pairs         int              `json:"pairs"`
	Enriched      int              `json:"enriched"`
	Discarded     map[string]int   `json:"discarded,omitempty"`
	Opportunities []OpportunityDoc `json:"opportunities"`
}

// MarketDoc is one side of an opportunity.
type MarketDoc struct {
	Platform     string    `json:"platform"`
	NativeID     string    `json:"id"`
	Title        string    `json:"title"`
	CategorySlug string    `json:"category_slug,omitempty"`
	ConditionKey string    `json:"condition_key,omitempty"`
	YesPrice     float64   `json:"yes_price"`
	NoPrice      float64   `json:"no_price"`
	Volume       float64   `json:"volume,omitempty"`
	Depth        *DepthDoc `json:"depth,omitempty"`
}

// OpportunityDoc is one opportunity.
type OpportunityDoc struct {
	ID       string      `json:"id"`
	Rank     int         `json:"rank"`
	Title    string      `json:"title"`
	Strategy string      `json:"strategy"`
	Action   string      `json:"action"`
	Cost     float64     `json:"cost"`
	Profit   float64     `json:"profit"`
	ROIPct   float64     `json:"roi_pct"`
	First    MarketDoc   `json:"first"`
	Second   MarketDoc   `json:"second"`
	Via      *MarketDoc  `json:"via,omitempty"`
	Sizing   *SizingDoc  `json:"sizing,omitempty"`
	BookROI  *BookROIDoc `json:"book_roi,omitempty"`
}

// LevelDoc is one book level.
type LevelDoc struct {
	Price   float64 `json:"price"`
	Size    float64 `json:"size"`
	SizeUSD float64 `json:"size_usd"`
}

// BookDoc is the best two levels on each side of one token.
type BookDoc struct {
	Bid1 *LevelDoc `json:"bid1,omitempty"`
	Bid2 *LevelDoc `json:"bid2,omitempty"`
	Ask1 *LevelDoc `json:"ask1,omitempty"`
	Ask2 *LevelDoc `json:"ask2,omitempty"`
}

// DepthDoc is the depth of both outcome tokens.
type DepthDoc struct {
	Yes *BookDoc `json:"yes,omitempty"`
	No  *BookDoc `json:"no,omitempty"`
}

// SizingDoc is the payout-equalizing bet split.
type SizingDoc struct {
	Capital      decimal.Decimal `json:"capital"`
	BetFirst     decimal.Decimal `json:"bet_first"`
	BetSecond    decimal.Decimal `json:"bet_second"`
	SharesFirst  decimal.Decimal `json:"shares_first"`
	SharesSecond decimal.Decimal `json:"shares_second"`
}

// BookROIDoc is the ROI at executable ask prices.
type BookROIDoc struct {
	Ask1 *float64 `json:"ask1,omitempty"`
	Ask2 *float64 `json:"ask2,omitempty"`
}

// DiagnosticsDoc counts normalized and discarded records.
type DiagnosticsDoc struct {
	Accepted map[string]int            `json:"accepted"`
	Skipped  map[string]map[string]int `json:"skipped,omitempty"`
	Warnings map[string]map[string]int `json:"warnings,omitempty"`
}

// SkippedComparison names a comparison that could not run.
type SkippedComparison struct {
	Type    string   `json:"type"`
	Missing []string `json:"missing"`
}

// PlanDoc is the capital allocation.
type PlanDoc struct {
	TotalCapital   decimal.Decimal `json:"total_capital"`
	TotalDeployed  decimal.Decimal `json:"total_deployed"`
	ExpectedProfit decimal.Decimal `json:"expected_profit"`
	ROIPct         decimal.Decimal `json:"roi_pct"`
	Allocations    []AllocationDoc `json:"allocations"`
}

// AllocationDoc is the capital assigned to one opportunity.
type AllocationDoc struct {
	OpportunityID  string          `json:"opportunity_id"`
	Type           string          `json:"type"`
	Title          string          `json:"title"`
	Capital        decimal.Decimal `json:"capital"`
	BetFirst       decimal.Decimal `json:"bet_first"`
	BetSecond      decimal.Decimal `json:"bet_second"`
	ExpectedProfit decimal.Decimal `json:"expected_profit"`
}

// NewDocument renders res.
func NewDocument(res *scan.Result) Document {
	doc := Document{
		RunID:       res.RunID,
		GeneratedAt: res.FinishedAt,
		DurationMS:  res.FinishedAt.Sub(res.StartedAt).Milliseconds(),
		Status:      res.Status(),
		Comparisons: make([]ComparisonDoc, 0, len(res.Comparisons)),
		Diagnostics: DiagnosticsDoc{Accepted: make(map[string]int)},
	}

	for _, c := range res.Comparisons {
		cd := ComparisonDoc{
			Type:          string(c.Type),
			Pairs:         c.Pairs,
			Enriched:      c.Enriched,
			Opportunities: make([]OpportunityDoc, 0, len(c.Opportunities)),
		}
		if len(c.Discarded) > 0 {
			cd.Discarded = make(map[string]int, len(c.Discarded))
			for r, n := range c.Discarded {
				cd.Discarded[string(r)] = n
			}
		}
		for i, o := range c.Opportunities {
			cd.Opportunities = append(cd.Opportunities, newOpportunityDoc(i+1, o))
		}
		doc.Comparisons = append(doc.Comparisons, cd)
	}

	for p, n := range res.Diagnostics.Accepted {
		doc.Diagnostics.Accepted[string(p)] = n
	}
	doc.Diagnostics.Skipped = reasonCounts(res.Diagnostics.Skipped)
	doc.Diagnostics.Warnings = reasonCounts(res.Diagnostics.Warnings)

	for _, s := range res.Skipped {
		sc := SkippedComparison{Type: string(s.Type)}
		for _, p := range s.Missing {
			sc.Missing = append(sc.Missing, string(p))
		}
		doc.Skipped = append(doc.Skipped, sc)
	}

	if len(res.Failed) > 0 {
		doc.Failed = make(map[string]string, len(res.Failed))
		for p, msg := range res.Failed {
			doc.Failed[string(p)] = msg
		}
	}

	if res.Plan != nil {
		pd := &PlanDoc{
			TotalCapital:   res.Plan.TotalCapital,
			TotalDeployed:  res.Plan.TotalDeployed,
			ExpectedProfit: res.Plan.ExpectedProfit,
			ROIPct:         res.Plan.ROIPct,
			Allocations:    make([]AllocationDoc, 0, len(res.Plan.Allocations)),
		}
		for _, a := range res.Plan.Allocations {
			pd.Allocations = append(pd.Allocations, AllocationDoc{
				OpportunityID:  a.Opportunity.ID,
				Type:           string(a.Opportunity.Type()),
				Title:          a.Opportunity.Title(),
				Capital:        a.Capital,
				BetFirst:       a.Sizing.BetFirst,
				BetSecond:      a.Sizing.BetSecond,
				ExpectedProfit: a.ExpectedProfit,
			})
		}
		doc.Plan = pd
	}
	return doc
}

func reasonCounts(in map[domain.Platform]map[normalize.Reason]int) map[string]map[string]int {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]map[string]int, len(in))
	for p, byReason := range in {
		m := make(map[string]int, len(byReason))
		for r, n := range byReason {
			m[string(r)] = n
		}
		out[string(p)] = m
	}
	return out
}

func newOpportunityDoc(rank int, o domain.ArbitrageOpportunity) OpportunityDoc {
	od := OpportunityDoc{
		ID:       o.ID,
		Rank:     rank,
		Title:    o.Title(),
		Strategy: string(o.Strategy),
		Action:   o.Strategy.Describe(o.Pair.First.Platform, o.Pair.Second.Platform),
		Cost:     o.Cost,
		Profit:   o.Profit,
		ROIPct:   o.ROIPct,
		First:    newMarketDoc(o.Pair.First, o.FirstDepth),
		Second:   newMarketDoc(o.Pair.Second, o.SecondDepth),
	}
	if o.Pair.Hub != nil {
		hub := newMarketDoc(*o.Pair.Hub, nil)
		od.Via = &hub
	}
	if o.Sizing != nil {
		od.Sizing = &SizingDoc{
			Capital:      o.Sizing.Capital,
			BetFirst:     o.Sizing.BetFirst,
			BetSecond:    o.Sizing.BetSecond,
			SharesFirst:  o.Sizing.SharesFirst,
			SharesSecond: o.Sizing.SharesSecond,
		}
	}
	if o.BookROI != nil {
		od.BookROI = &BookROIDoc{Ask1: o.BookROI.Ask1, Ask2: o.BookROI.Ask2}
	}
	return od
}

func newMarketDoc(m domain.Market, depth *domain.DepthRecord) MarketDoc {
	md := MarketDoc{
		Platform:     string(m.Platform),
		NativeID:     m.NativeID,
		Title:        m.Title,
		CategorySlug: m.CategorySlug,
		ConditionKey: m.ConditionKey,
		YesPrice:     m.YesPrice,
		NoPrice:      m.NoPrice,
		Volume:       m.Volume,
	}
	if depth != nil {
		md.Depth = &DepthDoc{Yes: newBookDoc(depth.Yes), No: newBookDoc(depth.No)}
	}
	return md
}

func newBookDoc(d *domain.BookDepth) *BookDoc {
	if d == nil {
		return nil
	}
	return &BookDoc{
		Bid1: newLevelDoc(d.Bid1),
		Bid2: newLevelDoc(d.Bid2),
		Ask1: newLevelDoc(d.Ask1),
		Ask2: newLevelDoc(d.Ask2),
	}
}

func newLevelDoc(l *domain.Level) *LevelDoc {
	if l == nil {
		return nil
	}
	return &LevelDoc{Price: l.Price, Size: l.Size, SizeUSD: l.SizeUSD}
}

// Summary is the compact form of a scan pushed to dashboards and the bus.
type Summary struct {
	RunID         string         `json:"run_id"`
	GeneratedAt   time.Time      `json:"generated_at"`
	Status        string         `json:"status"`
	Opportunities map[string]int `json:"opportunities"`
	Best          []BestDoc      `json:"best"`
	Failed        []string       `json:"failed_platforms,omitempty"`
}

// BestDoc is the best opportunity of one comparison type.
type BestDoc struct {
	Type   string  `json:"type"`
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Action string  `json:"action"`
	ROIPct float64 `json:"roi_pct"`
}

// NewSummary renders the compact summary of res.
func NewSummary(res *scan.Result) Summary {
	s := Summary{
		RunID:         res.RunID,
		GeneratedAt:   res.FinishedAt,
		Status:        res.Status(),
		Opportunities: make(map[string]int, len(res.Comparisons)),
		Best:          []BestDoc{},
	}
	for _, c := range res.Comparisons {
		s.Opportunities[string(c.Type)] = len(c.Opportunities)
		if o, ok := c.Best(); ok {
			s.Best = append(s.Best, BestDoc{
				Type:   string(c.Type),
				ID:     o.ID,
				Title:  o.Title(),
				Action: o.Strategy.Describe(o.Pair.First.Platform, o.Pair.Second.Platform),
				ROIPct: o.ROIPct,
			})
		}
	}
	for _, p := range res.FailedPlatforms() {
		s.Failed = append(s.Failed, string(p))
	}
	sort.Slice(s.Best, func(i, j int) bool { return s.Best[i].ROIPct > s.Best[j].ROIPct })
	return s
}
