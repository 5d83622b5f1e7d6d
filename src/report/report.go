// Package report turns ranked screening results into the pairs artifact read
// by the trading bot and a human-readable console summary.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"volume-screener/src/helpers"
	"volume-screener/src/logger"
	"volume-screener/src/models"

	json "github.com/goccy/go-json"
)

const dayLayout = "20060102"

type Reporter struct {
	Path          string
	RefreshPeriod int
	Logger        *logger.Logger
}

// -----------------------------------------------------------------------------

func NewReporter(cfg models.MOutputConfig, log *logger.Logger) *Reporter {
	return &Reporter{
		Path:          cfg.Path,
		RefreshPeriod: cfg.RefreshPeriod,
		Logger:        log,
	}
}

// -----------------------------------------------------------------------------

// Publish prints the console report and writes the pairs artifact.
func (r *Reporter) Publish(run *models.MScreeningRun) (models.MPairsOutput, error) {
	r.PrintReport(run)

	out := BuildPairsOutput(run.Results, r.RefreshPeriod)
	if r.Path == "" {
		return out, nil
	}
	if err := WritePairsFile(r.Path, out); err != nil {
		return out, err
	}
	r.Logger.Info("Successfully generated JSON file: %s (%d pairs)", r.Path, len(out.Pairs))
	return out, nil
}

// -----------------------------------------------------------------------------

// PrintReport logs one line per result, the tag list and the scanned range.
func (r *Reporter) PrintReport(run *models.MScreeningRun) {
	for i, res := range run.Results {
		r.Logger.Info("%s", FormatResultLine(i+1, res))
		r.Logger.Info("%s", res.Tag)
	}

	tags, err := json.MarshalIndent(Tags(run.Results), "", "  ")
	if err == nil {
		r.Logger.Info("JSON Result:\n%s", tags)
	}

	req := run.Request
	r.Logger.Info("Date Range: %s-%s", req.WindowStart().Format(dayLayout), req.Date.Format(dayLayout))
	m := run.Metrics
	r.Logger.Info("Screened %d eligible of %d catalog symbols in %.1fs: %d qualified, %d returned (ratio mean %.2f, max %.2f)",
		m.EligibleSymbols, m.CatalogSymbols, m.DurationSeconds, m.QualifiedSymbols, m.ReturnedSymbols, m.RatioMean, m.RatioMax)
}

// -----------------------------------------------------------------------------

// FormatResultLine renders "idx. SYMBOL | Volume | Price | Change | Ratio".
func FormatResultLine(idx int, r models.MScreeningResult) string {
	return fmt.Sprintf("%d. %s | Volume: %.2f USDT | Price: %s | Change: %s%% | Ratio: %.2f",
		idx, r.Symbol, r.VolumeUSDT,
		strconv.FormatFloat(r.Price, 'f', -1, 64),
		strconv.FormatFloat(r.ChangePercent, 'f', -1, 64),
		r.Ratio)
}

// -----------------------------------------------------------------------------

// Tags lists the pair identifiers in ranked order. Never nil.
func Tags(results []models.MScreeningResult) []string {
	tags := make([]string, 0, len(results))
	for _, r := range results {
		tag := r.Tag
		if tag == "" {
			tag = r.Symbol.Tag()
		}
		tags = append(tags, tag)
	}
	return tags
}

// -----------------------------------------------------------------------------

func BuildPairsOutput(results []models.MScreeningResult, refreshPeriod int) models.MPairsOutput {
	return models.MPairsOutput{
		Pairs:         Tags(results),
		RefreshPeriod: refreshPeriod,
	}
}

// -----------------------------------------------------------------------------

// WritePairsFile writes the artifact with 4-space indentation, creating the
// parent directory. Readers never observe a partial file.
func WritePairsFile(path string, out models.MPairsOutput) error {
	if out.Pairs == nil {
		out.Pairs = []string{}
	}
	data, err := json.MarshalIndent(out, "", strings.Repeat(" ", 4))
	if err != nil {
		return helpers.NewScreenerError("encode pairs output", err)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return helpers.NewScreenerError("create output dir "+dir, err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return helpers.NewScreenerError("write "+tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return helpers.NewScreenerError("rename "+tmp, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// ReadPairsFile loads a previously written artifact.
func ReadPairsFile(path string) (models.MPairsOutput, error) {
	var out models.MPairsOutput
	data, err := os.ReadFile(path)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, helpers.NewScreenerError("decode "+path, err)
	}
	return out, nil
}
