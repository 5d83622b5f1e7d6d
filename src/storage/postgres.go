package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"volume-screener/src/helpers"
	"volume-screener/src/logger"
	"volume-screener/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
	Now    func() time.Time
}

// -----------------------------------------------------------------------------

// NewPostgresDB stores history in a schema named after the executable.
func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	if cfg.Storage.DBConnectionString == "" {
		return nil, helpers.NewConfigurationError("postgres db_connection_string is empty", nil)
	}
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	return &PostgresDB{
		Config: cfg,
		Schema: name,
		Logger: log,
		Now:    time.Now,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	db, err := openDB("postgres", d.Config.Storage.DBConnectionString, d.Logger)
	if err != nil {
		return err
	}
	d.DB = db

	// Create Schema
	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return helpers.NewDatabaseError(fmt.Sprintf("failed to create schema %s", d.Schema), err)
	}

	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) table(name string) string {
	return fmt.Sprintf(`"%s"."%s"`, d.Schema, name)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) createTables() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			mode TEXT,
			target_date TEXT,
			lookback_days INTEGER,
			threshold DOUBLE PRECISION,
			max_market_cap DOUBLE PRECISION,
			result_limit INTEGER,
			excluded TEXT,
			started_at BIGINT,
			duration_seconds DOUBLE PRECISION,
			market_cap_symbols INTEGER,
			catalog_symbols INTEGER,
			eligible INTEGER,
			qualified INTEGER,
			returned INTEGER,
			volume_errors INTEGER,
			ticker_errors INTEGER,
			ratio_mean DOUBLE PRECISION,
			ratio_std DOUBLE PRECISION,
			ratio_max DOUBLE PRECISION
		);
	`, d.table("screening_runs"))
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewDatabaseError("failed to create screening_runs", err)
	}

	query = fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			run_id BIGINT REFERENCES %s (id) ON DELETE CASCADE,
			result_rank INTEGER,
			symbol TEXT,
			base TEXT,
			matched_date TEXT,
			volume_usdt DOUBLE PRECISION,
			market_cap DOUBLE PRECISION,
			ratio DOUBLE PRECISION,
			price DOUBLE PRECISION,
			change_percent DOUBLE PRECISION,
			tag TEXT,
			PRIMARY KEY (run_id, result_rank)
		);
	`, d.table("screening_results"), d.table("screening_runs"))
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewDatabaseError("failed to create screening_results", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveScreeningRun(run *models.MScreeningRun) (int64, error) {
	tx, err := d.DB.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRow(fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id
	`, d.table("screening_runs"), runColumns), runArgs(run)...).Scan(&id)
	if err != nil {
		return 0, helpers.NewDatabaseError("insert screening run", err)
	}

	stmt, err := tx.Prepare(fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, d.table("screening_results"), resultColumns))
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

func (d *PostgresDB) LatestScreeningRun() (*models.MScreeningRun, error) {
	row := d.DB.QueryRow(fmt.Sprintf(`SELECT id, %s FROM %s ORDER BY id DESC LIMIT 1`, runColumns, d.table("screening_runs")))
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, helpers.NewDatabaseError("read latest screening run", err)
	}

	run.Results, err = queryResults(d.DB,
		fmt.Sprintf(`SELECT %s FROM %s WHERE run_id = $1 ORDER BY result_rank`, resultColumns, d.table("screening_results")), run.ID)
	if err != nil {
		return nil, helpers.NewDatabaseError("read screening results", err)
	}
	return run, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) CleanupOldData() error {
	retentionDays := d.Config.Storage.RetentionDays
	if retentionDays <= 0 {
		return nil
	}
	cutoff := retentionCutoff(d.Now(), retentionDays)

	d.Logger.Info("Cleaning up runs older than %d days (started_at < %d)...", retentionDays, cutoff)

	// results follow through ON DELETE CASCADE
	res, err := d.DB.Exec(fmt.Sprintf(`DELETE FROM %s WHERE started_at < $1`, d.table("screening_runs")), cutoff)
	if err != nil {
		d.Logger.Error("Cleanup screening_runs error: %v", err)
		return helpers.NewDatabaseError("cleanup screening_runs", err)
	}

	n, _ := res.RowsAffected()
	d.Logger.Info("Cleanup completed (%d runs removed)", n)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
