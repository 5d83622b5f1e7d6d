package storage

import (
	"fmt"

	"volume-screener/src/helpers"
	"volume-screener/src/interfaces"
	"volume-screener/src/logger"
	"volume-screener/src/models"
)

// New returns the history backend selected by storage.db_type.
func New(cfg *models.MConfig, log *logger.Logger) (interfaces.IDatabase, error) {
	switch cfg.Storage.DBType {
	case "postgres":
		db, err := NewPostgresDB(cfg, log.Named("PostgresDB"))
		if err != nil {
			return nil, err
		}
		return db, nil
	case "sqlite", "":
		db, err := NewAsyncSQLiteDB(cfg, log.Named("SQLiteDB"))
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, helpers.NewConfigurationError(fmt.Sprintf("unsupported database type: %s", cfg.Storage.DBType), nil)
	}
}
