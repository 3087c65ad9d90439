package normalize

import (
	"strings"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// Record is one raw market record as supplied by a platform client. The set
// of implementations is closed: PolymarketRecord, PredictFunRecord and
// OpinionRecord.
type Record interface {
	Platform() domain.Platform
	convert() Result
}

// Reason explains why a record was discarded.
type Reason string

const (
	ReasonMissingPrice        Reason = "missing_price"
	ReasonPriceOutOfRange     Reason = "price_out_of_range"
	ReasonInactive            Reason = "inactive"
	ReasonMissingIdentifier   Reason = "missing_identifier"
	ReasonInvalidConditionKey Reason = "invalid_condition_key"
)

// Result is either a valid Market or the Reason the record was discarded.
// Warning is set on a kept market whose optional condition id was unusable
// and therefore dropped.
type Result struct {
	Market  domain.Market
	Reason  Reason
	Warning Reason
}

// OK reports whether the record produced a market.
func (r Result) OK() bool { return r.Reason == "" }

func discard(reason Reason) Result { return Result{Reason: reason} }

// PolymarketRecord is one market of a Polymarket event. CategorySlug is the
// event slug and Title the market's group item title.
type PolymarketRecord struct {
	MarketID     string
	ConditionID  string
	CategorySlug string
	Title        string
	Question     string
	YesPrice     *float64
	NoPrice      *float64
	Active       bool
	Closed       bool
	TokenIDs     [2]string
	Volume       float64
}

func (PolymarketRecord) Platform() domain.Platform { return domain.PlatformPolymarket }

func (r PolymarketRecord) convert() Result {
	if r.MarketID == "" || r.CategorySlug == "" {
		return discard(ReasonMissingIdentifier)
	}
	if r.Closed || !r.Active {
		return discard(ReasonInactive)
	}
	title := r.Title
	if title == "" {
		title = r.Question
	}
	if title == "" {
		return discard(ReasonMissingIdentifier)
	}
	yes, no, reason := checkPrices(r.YesPrice, r.NoPrice, false)
	if reason != "" {
		return discard(reason)
	}
	key, warning := optionalConditionKey(r.ConditionID)
	return Result{Warning: warning, Market: domain.Market{
		Platform:     domain.PlatformPolymarket,
		NativeID:     r.MarketID,
		ConditionKey: key,
		CompositeKey: CompositeKey(r.CategorySlug, title),
		CategorySlug: r.CategorySlug,
		Title:        title,
		Question:     r.Question,
		YesPrice:     yes,
		NoPrice:      no,
		Status:       domain.MarketStatusActive,
		TokenIDs:     r.TokenIDs,
		Volume:       r.Volume,
	}}
}

// PredictFunRecord is one predict.fun market priced from its order book. The
// no side is derived from the yes book, so a missing NoPrice is replaced by
// 1 - YesPrice.
type PredictFunRecord struct {
	MarketID     string
	ConditionID  string
	CategorySlug string
	Title        string
	Question     string
	YesPrice     *float64
	NoPrice      *float64
	Status       string
	TokenIDs     [2]string
	Volume       float64
}

func (PredictFunRecord) Platform() domain.Platform { return domain.PlatformPredictFun }

func (r PredictFunRecord) convert() Result {
	if r.MarketID == "" {
		return discard(ReasonMissingIdentifier)
	}
	if !statusActive(r.Status) {
		return discard(ReasonInactive)
	}
	if r.ConditionID == "" {
		return discard(ReasonMissingIdentifier)
	}
	key, ok := CanonicalConditionKey(r.ConditionID)
	if !ok {
		return discard(ReasonInvalidConditionKey)
	}
	yes, no, reason := checkPrices(r.YesPrice, r.NoPrice, true)
	if reason != "" {
		return discard(reason)
	}
	var composite string
	if r.CategorySlug != "" && r.Title != "" {
		composite = CompositeKey(r.CategorySlug, r.Title)
	}
	return Result{Market: domain.Market{
		Platform:     domain.PlatformPredictFun,
		NativeID:     r.MarketID,
		ConditionKey: key,
		CompositeKey: composite,
		CategorySlug: r.CategorySlug,
		Title:        r.Title,
		Question:     r.Question,
		YesPrice:     yes,
		NoPrice:      no,
		Status:       domain.MarketStatusActive,
		TokenIDs:     r.TokenIDs,
		Volume:       r.Volume,
	}}
}

// OpinionRecord is one child market of an Opinion categorical market.
// CategorySlug is the Polymarket event slug the categorical market maps to.
type OpinionRecord struct {
	MarketID     string
	ConditionID  string
	CategorySlug string
	Title        string
	YesPrice     *float64
	NoPrice      *float64
	Status       int
	TokenIDs     [2]string
	Volume       float64
}

// OpinionStatusActive is the Opinion status code of a tradable market.
const OpinionStatusActive = 2

func (OpinionRecord) Platform() domain.Platform { return domain.PlatformOpinion }

func (r OpinionRecord) convert() Result {
	if r.MarketID == "" || r.CategorySlug == "" || r.Title == "" {
		return discard(ReasonMissingIdentifier)
	}
	if r.Status != OpinionStatusActive {
		return discard(ReasonInactive)
	}
	yes, no, reason := checkPrices(r.YesPrice, r.NoPrice, false)
	if reason != "" {
		return discard(reason)
	}
	key, warning := optionalConditionKey(r.ConditionID)
	return Result{Warning: warning, Market: domain.Market{
		Platform:     domain.PlatformOpinion,
		NativeID:     r.MarketID,
		ConditionKey: key,
		CompositeKey: CompositeKey(r.CategorySlug, r.Title),
		CategorySlug: r.CategorySlug,
		Title:        r.Title,
		YesPrice:     yes,
		NoPrice:      no,
		Status:       domain.MarketStatusActive,
		TokenIDs:     r.TokenIDs,
		Volume:       r.Volume,
	}}
}

// optionalConditionKey canonicalizes the condition id of a platform that also
// matches by composite key. An unusable id is dropped with a warning instead
// of discarding the market.
func optionalConditionKey(id string) (string, Reason) {
	if id == "" {
		return "", ""
	}
	key, ok := CanonicalConditionKey(id)
	if !ok {
		return "", ReasonInvalidConditionKey
	}
	return key, ""
}

// CompositeKey builds the lower-cased "{slug}||{title}" matching key.
func CompositeKey(slug, title string) string {
	return strings.ToLower(strings.TrimSpace(slug)) + domain.CompositeKeySep +
		strings.ToLower(strings.TrimSpace(title))
}

// checkPrices validates both sides. When derivedNo is set a missing no price
// is taken as the complement of the yes price.
func checkPrices(yes, no *float64, derivedNo bool) (float64, float64, Reason) {
	if yes == nil {
		return 0, 0, ReasonMissingPrice
	}
	if no == nil {
		if !derivedNo {
			return 0, 0, ReasonMissingPrice
		}
		if !inUnit(*yes) {
			return 0, 0, ReasonPriceOutOfRange
		}
		d := 1 - *yes
		no = &d
	}
	if !inUnit(*yes) || !inUnit(*no) {
		return 0, 0, ReasonPriceOutOfRange
	}
	return *yes, *no, ""
}

// inUnit reports whether p lies in [0,1]. NaN fails every comparison.
func inUnit(p float64) bool { return p >= 0 && p <= 1 }

func statusActive(s string) bool {
	switch strings.ToLower(s) {
	case "", "active", "registered", "open":
		return true
	}
	return false
}
