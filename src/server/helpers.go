package server

import (
	"strings"

	"volume-screener/src/models"
)

// -----------------------------------------------------------------------------

func latestDataFromRun(run *models.MScreeningRun, kind string) *models.MLatestData {
	results := run.Results
	if results == nil {
		results = []models.MScreeningResult{}
	}
	pairs := make([]string, 0, len(results))
	for _, r := range results {
		pairs = append(pairs, r.Tag)
	}
	return &models.MLatestData{
		Type:      kind,
		Request:   run.Request,
		Results:   results,
		Pairs:     pairs,
		Timestamp: run.StartedAt.Unix(),
		Metrics:   run.Metrics,
	}
}

// -----------------------------------------------------------------------------

func summaryFromState(state *models.MLatestData) models.MRunSummary {
	return models.MRunSummary{
		Timestamp: state.Timestamp,
		Mode:      state.Request.Mode,
		Date:      state.Request.Date.Format("20060102"),
		Pairs:     state.Pairs,
		Metrics:   state.Metrics,
	}
}

// -----------------------------------------------------------------------------

// filteredState copies state keeping only results matching symbols. An empty
// filter keeps everything.
func filteredState(state *models.MLatestData, symbols []string) *models.MLatestData {
	out := *state
	if len(symbols) == 0 {
		return &out
	}
	out.Results = filterResults(state.Results, symbols)
	out.Pairs = make([]string, 0, len(out.Results))
	for _, r := range out.Results {
		out.Pairs = append(out.Pairs, r.Tag)
	}
	return &out
}

// -----------------------------------------------------------------------------

func filterResults(results []models.MScreeningResult, symbols []string) []models.MScreeningResult {
	if len(symbols) == 0 {
		return results
	}
	out := make([]models.MScreeningResult, 0, len(results))
	for _, r := range results {
		if matchesAny(r, symbols) {
			out = append(out, r)
		}
	}
	return out
}

// -----------------------------------------------------------------------------

// matchesAny accepts a base ticker (SOL), a contract symbol (SOLUSDT) or a
// tag (SOL/USDT:USDT), case-insensitively.
func matchesAny(r models.MScreeningResult, symbols []string) bool {
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if s == r.Base || s == string(r.Symbol) || s == r.Tag {
			return true
		}
	}
	return false
}
