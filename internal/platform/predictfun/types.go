package predictfun

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// flexID unmarshals a JSON number or string id into a string.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// APICategoryResponse is the envelope of GET /categories/{slug}.
type APICategoryResponse struct {
	Success bool        `json:"success"`
	Data    APICategory `json:"data"`
}

// APICategory groups the markets of one predict.fun category.
type APICategory struct {
	ID      flexID      `json:"id"`
	Slug    string      `json:"slug"`
	Title   string      `json:"title"`
	Markets []APIMarket `json:"markets"`
}

// APIMarket is one predict.fun market inside a category.
type APIMarket struct {
	ID                     flexID   `json:"id"`
	Title                  string   `json:"title"`
	Question               string   `json:"question"`
	Status                 string   `json:"status"`
	CategorySlug           string   `json:"categorySlug"`
	PolymarketConditionIDs []string `json:"polymarketConditionIds"`
}

// APIOrderbookResponse is the envelope of GET /markets/{id}/orderbook.
type APIOrderbookResponse struct {
	Success bool         `json:"success"`
	Data    APIOrderbook `json:"data"`
}

// APIOrderbook is the yes-outcome book of a market. Levels are
// [price, size] pairs.
type APIOrderbook struct {
	MarketID          flexID      `json:"marketId"`
	Bids              [][]float64 `json:"bids"`
	Asks              [][]float64 `json:"asks"`
	UpdateTimestampMs int64       `json:"updateTimestampMs"`
}

// Token ids are synthetic: predict.fun books are keyed by market, and the
// no-side book is mirrored from the yes book.
func YesToken(marketID string) string { return "predictfun:" + marketID + ":yes" }
func NoToken(marketID string) string  { return "predictfun:" + marketID + ":no" }

func toLevels(raw [][]float64) []domain.PriceLevel {
	out := make([]domain.PriceLevel, 0, len(raw))
	for _, l := range raw {
		if len(l) < 2 {
			continue
		}
		out = append(out, domain.PriceLevel{Price: l[0], Size: l[1]})
	}
	return out
}

// mirror converts yes-side levels into no-side levels at 1 - price.
func mirror(levels []domain.PriceLevel) []domain.PriceLevel {
	out := make([]domain.PriceLevel, 0, len(levels))
	for _, l := range levels {
		out = append(out, domain.PriceLevel{Price: round4(1 - l.Price), Size: l.Size})
	}
	return out
}

// Prices returns the price to buy yes (lowest ask) and to buy no (one minus
// the highest bid, rounded to four decimals). Either is nil when that side of
// the book is empty.
func (b APIOrderbook) Prices() (yes, no *float64) {
	snap := b.yesSnapshot("")
	if len(snap.Asks) > 0 {
		v := snap.BestAsk
		yes = &v
	}
	if len(snap.Bids) > 0 {
		v := round4(1 - snap.BestBid)
		no = &v
	}
	return yes, no
}

func (b APIOrderbook) yesSnapshot(token string) domain.OrderbookSnapshot {
	snap := domain.OrderbookSnapshot{
		AssetID: token,
		Bids:    toLevels(b.Bids),
		Asks:    toLevels(b.Asks),
	}
	snap.ComputeBBO()
	return snap
}

// Snapshots returns the yes book and the mirrored no book of a market.
func (b APIOrderbook) Snapshots(marketID string) (yes, no domain.OrderbookSnapshot) {
	yes = b.yesSnapshot(YesToken(marketID))
	no = domain.OrderbookSnapshot{
		AssetID: NoToken(marketID),
		Bids:    mirror(yes.Asks),
		Asks:    mirror(yes.Bids),
	}
	no.ComputeBBO()
	return yes, no
}

func round4(v float64) float64 { return math.Round(v*1e4) / 1e4 }

func firstNonEmpty(vals []string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
