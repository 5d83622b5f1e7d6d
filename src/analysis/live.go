package analysis

import (
	"context"
	"fmt"

	"volume-screener/src/analysis/core"
	"volume-screener/src/models"
)

// -----------------------------------------------------------------------------

// ScreenLive uses one all-symbols 24h ticker snapshot instead of per-day
// candles. Volume is the ticker's quote volume; eligibility, threshold and
// ranking are the same as Screen.
func (s *Screener) ScreenLive(ctx context.Context, req models.MScreeningRequest) ([]models.MScreeningResult, error) {
	results, _, err := s.screenLive(ctx, req)
	return results, err
}

// -----------------------------------------------------------------------------

func (s *Screener) screenLive(ctx context.Context, req models.MScreeningRequest) ([]models.MScreeningResult, models.MScreeningMetrics, error) {
	var metrics models.MScreeningMetrics

	if s.Tickers == nil {
		return nil, metrics, fmt.Errorf("live screening requires a ticker source")
	}

	caps, symbols, err := s.loadInputs(ctx)
	if err != nil {
		return nil, metrics, err
	}
	metrics.MarketCapSymbols = caps.Len()
	metrics.CatalogSymbols = len(symbols)

	tickers, err := s.Tickers.AllTickers24h(ctx)
	if err != nil {
		return nil, metrics, fmt.Errorf("load 24h tickers: %w", err)
	}
	bySymbol := make(map[models.MContractSymbol]models.MTicker, len(tickers))
	for _, t := range tickers {
		bySymbol[t.Symbol] = t
	}

	eligible := eligibleSymbols(symbols, caps, req)
	metrics.EligibleSymbols = len(eligible)
	s.Logger.Info("Live screening %d/%d symbols against %d tickers, threshold %.4f",
		len(eligible), len(symbols), len(tickers), req.Threshold)

	found := make([]models.MScreeningResult, 0)
	for _, c := range eligible {
		t, ok := bySymbol[c.symbol]
		if !ok || c.marketCap <= 0 {
			continue
		}
		ratio := core.TurnoverRatio(t.QuoteVolume, c.marketCap)
		if !core.AboveThreshold(ratio, req.Threshold) {
			continue
		}
		r := s.newResult(c, req.Date, t.QuoteVolume, ratio)
		r.Price = t.LastPrice
		r.ChangePercent = t.PriceChangePercent
		found = append(found, r)
	}
	metrics.QualifiedSymbols = len(found)

	return RankResults(found, req.Limit), metrics, nil
}
