package opinion

import (
	"encoding/json"
	"strconv"
	"strings"
)

// flexFloat unmarshals a JSON number or numeric string. Empty strings and
// null leave it unset.
type flexFloat struct {
	Value float64
	Valid bool
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = flexFloat{}
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat{Value: v, Valid: true}
	return nil
}

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

// APIEnvelope wraps every Opinion response.
type APIEnvelope[T any] struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Result T      `json:"result"`
}

// APICategoricalResult is the result of GET /market/categorical/{id}.
type APICategoricalResult struct {
	Data APICategorical `json:"data"`
}

// APICategorical is a parent market with its binary child markets.
type APICategorical struct {
	MarketID     flexID           `json:"marketId"`
	MarketTitle  string           `json:"marketTitle"`
	ChildMarkets []APIChildMarket `json:"childMarkets"`
}

// APIChildMarket is one binary market of a categorical market.
type APIChildMarket struct {
	MarketID    flexID    `json:"marketId"`
	MarketTitle string    `json:"marketTitle"`
	Status      int       `json:"status"`
	StatusEnum  string    `json:"statusEnum"`
	ConditionID string    `json:"conditionId"`
	YesTokenID  string    `json:"yesTokenId"`
	NoTokenID   string    `json:"noTokenId"`
	Volume      flexFloat `json:"volume"`
}

// APILatestPrice is the result of GET /token/latest-price.
type APILatestPrice struct {
	TokenID string    `json:"tokenId"`
	Price   flexFloat `json:"price"`
}
