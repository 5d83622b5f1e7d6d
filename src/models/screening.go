package models

import "time"

const (
	ModeHistorical = "historical"
	ModeLive       = "live"
)

// MScreeningRequest is built by the caller and passed by value.
type MScreeningRequest struct {
	Mode         string          `json:"mode"`
	Date         time.Time       `json:"date"`
	LookbackDays int             `json:"lookback_days"`
	Threshold    float64         `json:"threshold"`
	MaxMarketCap float64         `json:"max_market_cap,omitempty"` // 0 disables the ceiling
	Limit        int             `json:"limit"`
	Excluded     map[string]bool `json:"excluded"`
}

// DefaultExcluded are the two dominant assets left out of every screen.
func DefaultExcluded() map[string]bool {
	return map[string]bool{"BTC": true, "ETH": true}
}

// IsExcluded reports whether a base ticker is in the exclusion set.
func (r MScreeningRequest) IsExcluded(base string) bool {
	return r.Excluded[base]
}

// WindowStart is the oldest day scanned by the request.
func (r MScreeningRequest) WindowStart() time.Time {
	days := r.LookbackDays
	if days < 1 {
		days = 1
	}
	return r.Date.AddDate(0, 0, -(days - 1))
}

// MScreeningResult is produced once per qualifying symbol.
type MScreeningResult struct {
	Symbol        MContractSymbol `json:"symbol"`
	Base          string          `json:"base"`
	MatchedDate   time.Time       `json:"matched_date"`
	VolumeUSDT    float64         `json:"volume_usdt"`
	MarketCap     float64         `json:"market_cap"`
	Ratio         float64         `json:"ratio"`
	Price         float64         `json:"price"`
	ChangePercent float64         `json:"change"`
	Tag           string          `json:"tag"`
}

// MScreeningRun is one complete invocation of the screener.
type MScreeningRun struct {
	ID        int64              `json:"id,omitempty"`
	Request   MScreeningRequest  `json:"request"`
	StartedAt time.Time          `json:"started_at"`
	Metrics   MScreeningMetrics  `json:"metrics"`
	Results   []MScreeningResult `json:"results"`
}

// MPairsOutput is the artifact consumed by the downstream bot.
type MPairsOutput struct {
	Pairs         []string `json:"pairs"`
	RefreshPeriod int      `json:"refresh_period"`
}
