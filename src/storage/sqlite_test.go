package storage

import (
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"volume-screener/src/helpers"
	"volume-screener/src/logger"
	"volume-screener/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T, path string) *AsyncSQLiteDB {
	t.Helper()
	cfg := &models.MConfig{Storage: models.MStorageConfig{DBType: "sqlite", DBPath: path, RetentionDays: 30}}
	db, err := NewAsyncSQLiteDB(cfg, logger.NewWithWriter("SQLiteDB", logger.LevelError, io.Discard))
	require.NoError(t, err)
	require.NoError(t, db.Initialize())
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleRun(started time.Time, bases ...string) *models.MScreeningRun {
	date := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	run := &models.MScreeningRun{
		Request: models.MScreeningRequest{
			Mode:         models.ModeHistorical,
			Date:         date,
			LookbackDays: 3,
			Threshold:    0.7,
			MaxMarketCap: 5e9,
			Limit:        200,
			Excluded:     map[string]bool{"BTC": true, "ETH": true},
		},
		StartedAt: started,
		Metrics:   models.MScreeningMetrics{DurationSeconds: 12.5, EligibleSymbols: 180, QualifiedSymbols: len(bases), ReturnedSymbols: len(bases), RatioMax: 2.5},
	}
	for i, b := range bases {
		sym := models.MContractSymbol(b + "USDT")
		run.Results = append(run.Results, models.MScreeningResult{
			Symbol:        sym,
			Base:          b,
			MatchedDate:   date.AddDate(0, 0, -i),
			VolumeUSDT:    1e6 * float64(i+1),
			MarketCap:     1e6,
			Ratio:         2.5 - float64(i),
			Price:         1.5,
			ChangePercent: -3.25,
			Tag:           sym.Tag(),
		})
	}
	return run
}

func TestLatestScreeningRunEmpty(t *testing.T) {
	db := newTestDB(t, filepath.Join(t.TempDir(), "history.db"))
	run, err := db.LatestScreeningRun()
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestSaveAndLoadScreeningRun(t *testing.T) {
	db := newTestDB(t, filepath.Join(t.TempDir(), "history.db"))
	started := time.Date(2025, 6, 4, 8, 0, 0, 0, time.UTC)

	first := sampleRun(started, "SOL")
	_, err := db.SaveScreeningRun(first)
	require.NoError(t, err)

	second := sampleRun(started.Add(time.Hour), "ARB", "OP")
	id, err := db.SaveScreeningRun(second)
	require.NoError(t, err)
	assert.Equal(t, id, second.ID)
	assert.Greater(t, second.ID, first.ID)

	got, err := db.LatestScreeningRun()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, second.Request, got.Request)
	assert.Equal(t, second.Metrics, got.Metrics)
	assert.True(t, second.StartedAt.Equal(got.StartedAt))
	assert.Equal(t, second.Results, got.Results)
}

func TestSaveRunWithoutResults(t *testing.T) {
	db := newTestDB(t, filepath.Join(t.TempDir(), "history.db"))
	_, err := db.SaveScreeningRun(sampleRun(time.Now()))
	require.NoError(t, err)

	got, err := db.LatestScreeningRun()
	require.NoError(t, err)
	assert.NotNil(t, got.Results)
	assert.Empty(t, got.Results)
}

func TestHistorySurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	db := newTestDB(t, path)
	_, err := db.SaveScreeningRun(sampleRun(time.Now(), "SOL"))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	reopened := newTestDB(t, path)
	got, err := reopened.LatestScreeningRun()
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Results, 1)
	assert.Equal(t, "SOL", got.Results[0].Base)
}

func TestCleanupOldData(t *testing.T) {
	db := newTestDB(t, filepath.Join(t.TempDir(), "history.db"))
	now := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	db.Now = func() time.Time { return now }

	_, err := db.SaveScreeningRun(sampleRun(now.AddDate(0, 0, -45), "OLD"))
	require.NoError(t, err)
	recent := sampleRun(now.AddDate(0, 0, -1), "NEW")
	_, err = db.SaveScreeningRun(recent)
	require.NoError(t, err)

	require.NoError(t, db.CleanupOldData())

	var runs, results int
	require.NoError(t, db.DB.QueryRow(`SELECT COUNT(*) FROM screening_runs`).Scan(&runs))
	require.NoError(t, db.DB.QueryRow(`SELECT COUNT(*) FROM screening_results`).Scan(&results))
	assert.Equal(t, 1, runs)
	assert.Equal(t, 1, results)

	got, err := db.LatestScreeningRun()
	require.NoError(t, err)
	assert.Equal(t, recent.ID, got.ID)
}

func TestNewSelectsBackend(t *testing.T) {
	log := logger.NewWithWriter("Storage", logger.LevelError, io.Discard)

	db, err := New(&models.MConfig{Storage: models.MStorageConfig{DBType: "sqlite", DBPath: filepath.Join(t.TempDir(), "x.db")}}, log)
	require.NoError(t, err)
	assert.IsType(t, &AsyncSQLiteDB{}, db)

	_, err = New(&models.MConfig{Storage: models.MStorageConfig{DBType: "postgres"}}, log)
	var cfgErr *helpers.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))

	_, err = New(&models.MConfig{Storage: models.MStorageConfig{DBType: "mysql"}}, log)
	assert.True(t, errors.As(err, &cfgErr))
}
