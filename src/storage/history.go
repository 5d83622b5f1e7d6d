package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"volume-screener/src/helpers"
	"volume-screener/src/logger"
	"volume-screener/src/models"
)

const (
	dayLayout = "20060102"

	openRetries = 3
	openBackoff = 500 * time.Millisecond
)

// Column order shared by the INSERT and SELECT statements of both backends.
const runColumns = `mode, target_date, lookback_days, threshold, max_market_cap, result_limit, excluded,
	started_at, duration_seconds, market_cap_symbols, catalog_symbols, eligible, qualified, returned,
	volume_errors, ticker_errors, ratio_mean, ratio_std, ratio_max`

const resultColumns = `run_id, result_rank, symbol, base, matched_date, volume_usdt, market_cap, ratio, price, change_percent, tag`

// -----------------------------------------------------------------------------

// openDB opens and pings a database, retrying while the server comes up.
func openDB(driver, dsn string, log *logger.Logger) (*sql.DB, error) {
	return helpers.RetryWithBackoff(context.Background(), log, driver+" connect", openRetries, openBackoff,
		func() (*sql.DB, error) {
			db, err := sql.Open(driver, dsn)
			if err != nil {
				return nil, helpers.NewDatabaseError("open "+driver, err)
			}
			if err := db.Ping(); err != nil {
				db.Close()
				return nil, helpers.NewDatabaseError("ping "+driver, err)
			}
			return db, nil
		})
}

// -----------------------------------------------------------------------------

func runArgs(run *models.MScreeningRun) []interface{} {
	req, m := run.Request, run.Metrics
	return []interface{}{
		req.Mode, req.Date.Format(dayLayout), req.LookbackDays, req.Threshold, req.MaxMarketCap, req.Limit, joinExcluded(req.Excluded),
		run.StartedAt.Unix(), m.DurationSeconds, m.MarketCapSymbols, m.CatalogSymbols, m.EligibleSymbols, m.QualifiedSymbols, m.ReturnedSymbols,
		m.VolumeFetchErrors, m.TickerFetchErrors, m.RatioMean, m.RatioStd, m.RatioMax,
	}
}

func resultArgs(runID int64, rank int, r models.MScreeningResult) []interface{} {
	return []interface{}{
		runID, rank, string(r.Symbol), r.Base, r.MatchedDate.Format(dayLayout),
		r.VolumeUSDT, r.MarketCap, r.Ratio, r.Price, r.ChangePercent, r.Tag,
	}
}

// -----------------------------------------------------------------------------

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanRun reads "id, <runColumns>" into a run without results.
func scanRun(row rowScanner) (*models.MScreeningRun, error) {
	var (
		run        models.MScreeningRun
		targetDate string
		excluded   string
		startedAt  int64
	)
	req, m := &run.Request, &run.Metrics
	err := row.Scan(&run.ID,
		&req.Mode, &targetDate, &req.LookbackDays, &req.Threshold, &req.MaxMarketCap, &req.Limit, &excluded,
		&startedAt, &m.DurationSeconds, &m.MarketCapSymbols, &m.CatalogSymbols, &m.EligibleSymbols, &m.QualifiedSymbols, &m.ReturnedSymbols,
		&m.VolumeFetchErrors, &m.TickerFetchErrors, &m.RatioMean, &m.RatioStd, &m.RatioMax)
	if err != nil {
		return nil, err
	}

	if req.Date, err = time.Parse(dayLayout, targetDate); err != nil {
		return nil, fmt.Errorf("bad target_date %q: %w", targetDate, err)
	}
	req.Excluded = splitExcluded(excluded)
	run.StartedAt = time.Unix(startedAt, 0).UTC()
	return &run, nil
}

// -----------------------------------------------------------------------------

func queryResults(db *sql.DB, query string, runID int64) ([]models.MScreeningResult, error) {
	rows, err := db.Query(query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]models.MScreeningResult, 0)
	for rows.Next() {
		var (
			r       models.MScreeningResult
			ignored int64
			rank    int
			symbol  string
			matched string
		)
		if err := rows.Scan(&ignored, &rank, &symbol, &r.Base, &matched,
			&r.VolumeUSDT, &r.MarketCap, &r.Ratio, &r.Price, &r.ChangePercent, &r.Tag); err != nil {
			return nil, err
		}
		r.Symbol = models.MContractSymbol(symbol)
		if r.MatchedDate, err = time.Parse(dayLayout, matched); err != nil {
			return nil, fmt.Errorf("bad matched_date %q: %w", matched, err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// -----------------------------------------------------------------------------

func joinExcluded(excluded map[string]bool) string {
	bases := make([]string, 0, len(excluded))
	for b, ok := range excluded {
		if ok {
			bases = append(bases, b)
		}
	}
	sort.Strings(bases)
	return strings.Join(bases, ",")
}

func splitExcluded(s string) map[string]bool {
	out := make(map[string]bool)
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out[b] = true
		}
	}
	return out
}

// retentionCutoff is the unix time before which runs are deleted.
func retentionCutoff(now time.Time, retentionDays int) int64 {
	return now.UTC().AddDate(0, 0, -retentionDays).Unix()
}
