package models

import "time"

// MDailyVolumeSample is the notional volume (close x base volume) of one
// daily candle. Zero means no trading or no candle.
type MDailyVolumeSample struct {
	Symbol     MContractSymbol `json:"symbol"`
	Date       time.Time       `json:"date"`
	VolumeUSDT float64         `json:"volume_usdt"`
}

// MTicker is the exchange's rolling 24h statistics for one symbol.
type MTicker struct {
	Symbol             MContractSymbol `json:"symbol"`
	LastPrice          float64         `json:"last_price"`
	PriceChangePercent float64         `json:"price_change_percent"`
	QuoteVolume        float64         `json:"quote_volume"`
}
