package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/normalize"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APIEvent represents an event as returned by the Polymarket Gamma API.
// An event groups one or more related markets.
type APIEvent struct {
	ID      string      `json:"id"`
	Title   string      `json:"title"`
	Slug    string      `json:"slug"`
	Active  flexBool    `json:"active"`
	Closed  bool        `json:"closed"`
	Markets []APIMarket `json:"markets"`
}

// APIMarket represents a market as returned by the Polymarket Gamma API.
type APIMarket struct {
	ID             string   `json:"id"`
	Question       string   `json:"question"`
	GroupItemTitle string   `json:"groupItemTitle"`
	ConditionID    string   `json:"conditionId"`
	Slug           string   `json:"slug"`
	Active         flexBool `json:"active"`
	Closed         bool     `json:"closed"`
	Outcomes       string   `json:"outcomes"`      // JSON-encoded: e.g. "[\"Yes\",\"No\"]"
	OutcomePrices  string   `json:"outcomePrices"` // JSON-encoded: e.g. "[\"0.5\",\"0.5\"]"
	ClobTokenIDs   string   `json:"clobTokenIds"`  // JSON-encoded: e.g. "[\"123\",\"456\"]"
	Volume         string   `json:"volume"`
}

// decodeStringList decodes a JSON-encoded string array. Malformed input
// yields nil.
func decodeStringList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

// prices returns the yes and no outcome prices. A side that is absent or
// unparseable is nil.
func (m *APIMarket) prices() (yes, no *float64) {
	raw := decodeStringList(m.OutcomePrices)
	parse := func(i int) *float64 {
		if i >= len(raw) {
			return nil
		}
		v, err := strconv.ParseFloat(raw[i], 64)
		if err != nil {
			return nil
		}
		return &v
	}
	return parse(0), parse(1)
}

// ToRecord converts a Gamma market of the given event into a normalizer record.
func (m *APIMarket) ToRecord(eventSlug string) normalize.PolymarketRecord {
	rec := normalize.PolymarketRecord{
		MarketID:     m.ID,
		ConditionID:  m.ConditionID,
		CategorySlug: eventSlug,
		Title:        m.GroupItemTitle,
		Question:     m.Question,
		Active:       bool(m.Active),
		Closed:       m.Closed,
	}
	rec.YesPrice, rec.NoPrice = m.prices()
	for i, id := range decodeStringList(m.ClobTokenIDs) {
		if i >= 2 {
			break
		}
		rec.TokenIDs[i] = id
	}
	if v, err := strconv.ParseFloat(m.Volume, 64); err == nil {
		rec.Volume = v
	}
	return rec
}

// ToRecords flattens events into normalizer records, one per market.
func ToRecords(events []APIEvent) []normalize.Record {
	var out []normalize.Record
	for i := range events {
		for j := range events[i].Markets {
			out = append(out, events[i].Markets[j].ToRecord(events[i].Slug))
		}
	}
	return out
}

// --------------------------------------------------------------------------
// CLOB API DTOs
// --------------------------------------------------------------------------

// bookRequest is one entry of the POST /books request body.
type bookRequest struct {
	TokenID string `json:"token_id"`
}

// APIBook is one order book as returned by POST /books.
type APIBook struct {
	Market    string          `json:"market"`
	AssetID   string          `json:"asset_id"`
	Timestamp string          `json:"timestamp"`
	Hash      string          `json:"hash"`
	Bids      []APIPriceLevel `json:"bids"`
	Asks      []APIPriceLevel `json:"asks"`
}

// APIPriceLevel is a single bid/ask level in the CLOB book data.
type APIPriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// BookToDomainSnapshot converts an APIBook to a domain.OrderbookSnapshot.
// Unparseable levels are dropped.
func BookToDomainSnapshot(b *APIBook) domain.OrderbookSnapshot {
	snap := domain.OrderbookSnapshot{AssetID: b.AssetID}
	snap.Bids = toLevels(b.Bids)
	snap.Asks = toLevels(b.Asks)
	snap.ComputeBBO()

	if ts, err := strconv.ParseInt(b.Timestamp, 10, 64); err == nil {
		snap.Timestamp = time.UnixMilli(ts)
	} else if t, err := time.Parse(time.RFC3339, b.Timestamp); err == nil {
		snap.Timestamp = t
	} else {
		snap.Timestamp = time.Now()
	}
	return snap
}

func toLevels(levels []APIPriceLevel) []domain.PriceLevel {
	out := make([]domain.PriceLevel, 0, len(levels))
	for _, lvl := range levels {
		p, err := strconv.ParseFloat(lvl.Price, 64)
		if err != nil {
			continue
		}
		s, err := strconv.ParseFloat(lvl.Size, 64)
		if err != nil {
			continue
		}
		out = append(out, domain.PriceLevel{Price: p, Size: s})
	}
	return out
}
