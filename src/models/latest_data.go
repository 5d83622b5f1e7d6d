package models

// -----------------------------------------------------------------------------
// Server State Structure
// -----------------------------------------------------------------------------

type MLatestData struct {
	Type      string             `json:"type"` // "INITIAL" or "UPDATE"
	Request   MScreeningRequest  `json:"request"`
	Results   []MScreeningResult `json:"results"`
	Pairs     []string           `json:"pairs"`
	Timestamp int64              `json:"timestamp"`
	Metrics   MScreeningMetrics  `json:"processing_metrics"`
}

// -----------------------------------------------------------------------------
// SubscribeCommand for client messages
// -----------------------------------------------------------------------------

type MSubscribeCommand struct {
	Command string   `json:"command"`
	Symbols []string `json:"symbols"` // base tickers or contract symbols; empty = all
}

// -----------------------------------------------------------------------------
// MRunSummary is one entry of the in-memory run history
// -----------------------------------------------------------------------------

type MRunSummary struct {
	Timestamp int64             `json:"timestamp"`
	Mode      string            `json:"mode"`
	Date      string            `json:"date"` // YYYYMMDD
	Pairs     []string          `json:"pairs"`
	Metrics   MScreeningMetrics `json:"processing_metrics"`
}
