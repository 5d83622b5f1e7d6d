package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"volume-screener/src/helpers"
	"volume-screener/src/logger"
	"volume-screener/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type AsyncSQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
	Now    func() time.Time
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	if cfg.Storage.DBPath == "" {
		return nil, helpers.NewConfigurationError("sqlite db_path is empty", nil)
	}
	return &AsyncSQLiteDB{
		Config: cfg,
		Logger: log,
		Now:    time.Now,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	db, err := openDB("sqlite", d.Config.Storage.DBPath, d.Logger)
	if err != nil {
		return err
	}
	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) createTables() error {
	// SQLite types: INTEGER for int64, REAL for float64, TEXT for string
	query := `
		CREATE TABLE IF NOT EXISTS screening_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			mode TEXT,
			target_date TEXT,
			lookback_days INTEGER,
			threshold REAL,
			max_market_cap REAL,
			result_limit INTEGER,
			excluded TEXT,
			started_at INTEGER,
			duration_seconds REAL,
			market_cap_symbols INTEGER,
			catalog_symbols INTEGER,
			eligible INTEGER,
			qualified INTEGER,
			returned INTEGER,
			volume_errors INTEGER,
			ticker_errors INTEGER,
			ratio_mean REAL,
			ratio_std REAL,
			ratio_max REAL
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewDatabaseError("failed to create screening_runs", err)
	}

	query = `
		CREATE TABLE IF NOT EXISTS screening_results (
			run_id INTEGER,
			result_rank INTEGER,
			symbol TEXT,
			base TEXT,
			matched_date TEXT,
			volume_usdt REAL,
			market_cap REAL,
			ratio REAL,
			price REAL,
			change_percent REAL,
			tag TEXT,
			PRIMARY KEY (run_id, result_rank)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewDatabaseError("failed to create screening_results", err)
	}

	if _, err := d.DB.Exec(`CREATE INDEX IF NOT EXISTS idx_screening_runs_started ON screening_runs (started_at)`); err != nil {
		d.Logger.Warning("Failed to create started_at index: %v", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SaveScreeningRun(run *models.MScreeningRun) (int64, error) {
	tx, err := d.DB.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(fmt.Sprintf(`
		INSERT INTO screening_runs (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runColumns), runArgs(run)...)
	if err != nil {
		return 0, helpers.NewDatabaseError("insert screening run", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.Prepare(fmt.Sprintf(`
		INSERT INTO screening_results (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, resultColumns))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for i, r := range run.Results {
		if _, err := stmt.Exec(resultArgs(id, i+1, r)...); err != nil {
			return 0, helpers.NewDatabaseError("insert screening result "+string(r.Symbol), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	run.ID = id
	return id, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) LatestScreeningRun() (*models.MScreeningRun, error) {
	row := d.DB.QueryRow(fmt.Sprintf(`SELECT id, %s FROM screening_runs ORDER BY id DESC LIMIT 1`, runColumns))
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, helpers.NewDatabaseError("read latest screening run", err)
	}

	run.Results, err = queryResults(d.DB,
		fmt.Sprintf(`SELECT %s FROM screening_results WHERE run_id = ? ORDER BY result_rank`, resultColumns), run.ID)
	if err != nil {
		return nil, helpers.NewDatabaseError("read screening results", err)
	}
	return run, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) CleanupOldData() error {
	retentionDays := d.Config.Storage.RetentionDays
	if retentionDays <= 0 {
		return nil
	}
	cutoff := retentionCutoff(d.Now(), retentionDays)

	d.Logger.Info("Cleaning up runs older than %d days (started_at < %d)...", retentionDays, cutoff)

	if _, err := d.DB.Exec(`DELETE FROM screening_results WHERE run_id IN (SELECT id FROM screening_runs WHERE started_at < ?)`, cutoff); err != nil {
		d.Logger.Error("Cleanup screening_results error: %v", err)
		return helpers.NewDatabaseError("cleanup screening_results", err)
	}
	res, err := d.DB.Exec(`DELETE FROM screening_runs WHERE started_at < ?`, cutoff)
	if err != nil {
		d.Logger.Error("Cleanup screening_runs error: %v", err)
		return helpers.NewDatabaseError("cleanup screening_runs", err)
	}

	n, _ := res.RowsAffected()
	d.Logger.Info("Cleanup completed (%d runs removed)", n)
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
