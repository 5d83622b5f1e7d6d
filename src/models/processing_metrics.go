package models

// MScreeningMetrics summarises one screening run.
type MScreeningMetrics struct {
	DurationSeconds   float64 `json:"duration_seconds"`
	MarketCapSymbols  int     `json:"market_cap_symbols"`
	CatalogSymbols    int     `json:"catalog_symbols"`
	EligibleSymbols   int     `json:"eligible_symbols"`
	QualifiedSymbols  int     `json:"qualified_symbols"`
	ReturnedSymbols   int     `json:"returned_symbols"`
	VolumeFetchErrors int     `json:"volume_fetch_errors"`
	TickerFetchErrors int     `json:"ticker_fetch_errors"`
	RatioMean         float64 `json:"ratio_mean"`
	RatioStd          float64 `json:"ratio_std"`
	RatioMax          float64 `json:"ratio_max"`
}
