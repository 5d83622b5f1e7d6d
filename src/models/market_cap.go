package models

import (
	"strings"
	"time"
)

// MCoinMarket is one row of the aggregator's /coins/markets listing.
// MarketCap is nil when the aggregator has no figure for the coin.
type MCoinMarket struct {
	ID        string   `json:"id"`
	Symbol    string   `json:"symbol"`
	Name      string   `json:"name"`
	MarketCap *float64 `json:"market_cap"`
}

// MMarketCapSnapshot maps upper-case base tickers to USD market cap.
// A ticker missing from Caps is unknown, not zero.
type MMarketCapSnapshot struct {
	Caps       map[string]float64 `json:"data"`
	CapturedAt time.Time          `json:"captured_at"`
}

// NewMarketCapSnapshot builds a snapshot, dropping blank symbols and
// non-positive caps so that every stored value is > 0.
func NewMarketCapSnapshot(caps map[string]float64, capturedAt time.Time) MMarketCapSnapshot {
	clean := make(map[string]float64, len(caps))
	for sym, mc := range caps {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" || mc <= 0 {
			continue
		}
		clean[sym] = mc
	}
	return MMarketCapSnapshot{Caps: clean, CapturedAt: capturedAt}
}

func (s MMarketCapSnapshot) Len() int {
	return len(s.Caps)
}

func (s MMarketCapSnapshot) IsEmpty() bool {
	return len(s.Caps) == 0
}

// Lookup returns the market cap for a base ticker and whether it is known.
func (s MMarketCapSnapshot) Lookup(base string) (float64, bool) {
	mc, ok := s.Caps[strings.ToUpper(base)]
	if !ok || mc <= 0 {
		return 0, false
	}
	return mc, true
}
