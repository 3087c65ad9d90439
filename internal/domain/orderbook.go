package domain

import "time"

// PriceLevel is a single price+size entry in an orderbook.
type PriceLevel struct {
	Price float64
	Size  float64
}

// OrderbookSnapshot is a full snapshot of bids and asks for one token. Level
// order is whatever the venue returned; callers must not rely on it.
type OrderbookSnapshot struct {
	AssetID   string
	Bids      []PriceLevel
	Asks      []PriceLevel
	BestBid   float64
	BestAsk   float64
	MidPrice  float64
	Timestamp time.Time
}

// ComputeBBO fills BestBid, BestAsk and MidPrice by scanning every level.
func (s *OrderbookSnapshot) ComputeBBO() {
	s.BestBid, s.BestAsk, s.MidPrice = 0, 0, 0
	for _, lvl := range s.Bids {
		if lvl.Price > s.BestBid {
			s.BestBid = lvl.Price
		}
	}
	for _, lvl := range s.Asks {
		if s.BestAsk == 0 || lvl.Price < s.BestAsk {
			s.BestAsk = lvl.Price
		}
	}
	if s.BestBid > 0 && s.BestAsk > 0 {
		s.MidPrice = (s.BestBid + s.BestAsk) / 2
	}
}
