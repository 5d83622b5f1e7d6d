package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"volume-screener/src/analysis/core"
	"volume-screener/src/interfaces"
	"volume-screener/src/logger"
	"volume-screener/src/models"

	"golang.org/x/sync/errgroup"
)

// ErrNoMarketCaps means neither the aggregator nor the cache produced any
// market caps, so no ratio can be computed.
var ErrNoMarketCaps = errors.New("no market cap data available")

const DefaultWorkers = 10

// Screener joins exchange volume with aggregator market caps. It holds no
// per-run state and can be reused across runs.
type Screener struct {
	MarketCaps interfaces.IMarketCapProvider
	Catalog    interfaces.ISymbolCatalog
	Volumes    interfaces.IVolumeSampler
	Tickers    interfaces.ITickerSource
	Workers    int
	Logger     *logger.Logger
}

// -----------------------------------------------------------------------------

func NewScreener(
	caps interfaces.IMarketCapProvider,
	catalog interfaces.ISymbolCatalog,
	volumes interfaces.IVolumeSampler,
	tickers interfaces.ITickerSource,
	workers int,
	log *logger.Logger,
) *Screener {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Screener{
		MarketCaps: caps,
		Catalog:    catalog,
		Volumes:    volumes,
		Tickers:    tickers,
		Workers:    workers,
		Logger:     log,
	}
}

// -----------------------------------------------------------------------------

// candidate is a catalog symbol that passed the eligibility filter.
type candidate struct {
	symbol    models.MContractSymbol
	base      string
	marketCap float64
}

// counters are shared by workers; every field is updated atomically.
type counters struct {
	volumeErrors atomic.Int64
	tickerErrors atomic.Int64
}

// -----------------------------------------------------------------------------

// Screen scans each eligible symbol's trailing window and returns the ranked
// qualifying results.
func (s *Screener) Screen(ctx context.Context, req models.MScreeningRequest) ([]models.MScreeningResult, error) {
	results, _, err := s.screen(ctx, req)
	return results, err
}

// -----------------------------------------------------------------------------

// Run executes the request's mode and records timing and counters.
func (s *Screener) Run(ctx context.Context, req models.MScreeningRequest) (*models.MScreeningRun, error) {
	started := time.Now()

	var (
		results []models.MScreeningResult
		metrics models.MScreeningMetrics
		err     error
	)
	if req.Mode == models.ModeLive {
		results, metrics, err = s.screenLive(ctx, req)
	} else {
		results, metrics, err = s.screen(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	ratios := make([]float64, len(results))
	for i, r := range results {
		ratios[i] = r.Ratio
	}
	metrics.RatioMean, metrics.RatioStd = core.CalculateMeanStd(ratios)
	metrics.RatioMax = core.Max(ratios)
	metrics.DurationSeconds = time.Since(started).Seconds()
	metrics.ReturnedSymbols = len(results)

	return &models.MScreeningRun{
		Request:   req,
		StartedAt: started.UTC(),
		Metrics:   metrics,
		Results:   results,
	}, nil
}

// -----------------------------------------------------------------------------

func (s *Screener) screen(ctx context.Context, req models.MScreeningRequest) ([]models.MScreeningResult, models.MScreeningMetrics, error) {
	var metrics models.MScreeningMetrics

	caps, symbols, err := s.loadInputs(ctx)
	if err != nil {
		return nil, metrics, err
	}
	metrics.MarketCapSymbols = caps.Len()
	metrics.CatalogSymbols = len(symbols)

	eligible := eligibleSymbols(symbols, caps, req)
	metrics.EligibleSymbols = len(eligible)
	s.Logger.Info("Screening %d/%d symbols from %s back %d day(s), threshold %.4f",
		len(eligible), len(symbols), req.Date.Format("20060102"), req.LookbackDays, req.Threshold)

	// one slot per candidate: workers never share a write target
	slots := make([]*models.MScreeningResult, len(eligible))
	var cnt counters

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Workers)
	for i, c := range eligible {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			slots[i] = s.checkSymbol(gctx, c, req, &cnt)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, metrics, err
	}

	found := make([]models.MScreeningResult, 0, len(slots))
	for _, r := range slots {
		if r != nil {
			found = append(found, *r)
		}
	}
	metrics.QualifiedSymbols = len(found)
	metrics.VolumeFetchErrors = int(cnt.volumeErrors.Load())
	metrics.TickerFetchErrors = int(cnt.tickerErrors.Load())

	return RankResults(found, req.Limit), metrics, nil
}

// -----------------------------------------------------------------------------

func (s *Screener) loadInputs(ctx context.Context) (models.MMarketCapSnapshot, []models.MContractSymbol, error) {
	caps := s.MarketCaps.GetMarketCaps(ctx)
	if caps.IsEmpty() {
		return caps, nil, ErrNoMarketCaps
	}

	symbols, err := s.Catalog.PerpetualUSDTSymbols(ctx)
	if err != nil {
		return caps, nil, fmt.Errorf("load symbol catalog: %w", err)
	}
	return caps, symbols, nil
}

// -----------------------------------------------------------------------------

// eligibleSymbols drops excluded bases, unknown or zero market caps and caps
// above the ceiling. Order follows the catalog; duplicates are dropped.
func eligibleSymbols(symbols []models.MContractSymbol, caps models.MMarketCapSnapshot, req models.MScreeningRequest) []candidate {
	seen := make(map[models.MContractSymbol]bool, len(symbols))
	out := make([]candidate, 0, len(symbols))

	for _, sym := range symbols {
		if !sym.IsUSDT() || seen[sym] {
			continue
		}
		seen[sym] = true

		base := sym.Base()
		if req.IsExcluded(base) {
			continue
		}
		mc, ok := caps.Lookup(base)
		if !ok {
			continue
		}
		if req.MaxMarketCap > 0 && mc > req.MaxMarketCap {
			continue
		}
		out = append(out, candidate{symbol: sym, base: base, marketCap: mc})
	}
	return out
}

// -----------------------------------------------------------------------------

// checkSymbol walks the window from the target date backwards and stops at
// the first day whose ratio is strictly above the threshold.
func (s *Screener) checkSymbol(ctx context.Context, c candidate, req models.MScreeningRequest, cnt *counters) *models.MScreeningResult {
	if c.marketCap <= 0 {
		return nil
	}
	s.Logger.Debug("check %s market_cap=%.0f date=%s", c.symbol, c.marketCap, req.Date.Format("20060102"))

	for i := 0; i < req.LookbackDays; i++ {
		if ctx.Err() != nil {
			return nil
		}
		day := req.Date.AddDate(0, 0, -i)

		volume, err := s.Volumes.DailyVolume(ctx, c.symbol, day)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			cnt.volumeErrors.Add(1)
			s.Logger.Warning("Error fetching daily volume for %s on %s: %v", c.symbol, day.Format("20060102"), err)
			volume = 0
		}

		ratio := core.TurnoverRatio(volume, c.marketCap)
		if !core.AboveThreshold(ratio, req.Threshold) {
			continue
		}

		result := s.newResult(c, day, volume, ratio)
		s.enrich(ctx, &result, cnt)
		return &result
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *Screener) newResult(c candidate, day time.Time, volume, ratio float64) models.MScreeningResult {
	return models.MScreeningResult{
		Symbol:      c.symbol,
		Base:        c.base,
		MatchedDate: day,
		VolumeUSDT:  volume,
		MarketCap:   c.marketCap,
		Ratio:       ratio,
		Tag:         c.symbol.Tag(),
	}
}

// -----------------------------------------------------------------------------

// enrich fills price and 24h change; on failure both stay zero.
func (s *Screener) enrich(ctx context.Context, r *models.MScreeningResult, cnt *counters) {
	if s.Tickers == nil {
		return
	}
	t, err := s.Tickers.Ticker24h(ctx, r.Symbol)
	if err != nil {
		cnt.tickerErrors.Add(1)
		s.Logger.Warning("Error fetching ticker for %s: %v", r.Symbol, err)
		return
	}
	r.Price = t.LastPrice
	r.ChangePercent = t.PriceChangePercent
}

