package interfaces

import "volume-screener/src/models"

// -----------------------------------------------------------------------------
// IDatabase defines the contract for screening history storage.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveScreeningRun stores a run with its results and returns its id.
	SaveScreeningRun(run *models.MScreeningRun) (int64, error)

	// -----------------------------------------------------------------------------

	// LatestScreeningRun returns the most recent run, or nil if none exists.
	LatestScreeningRun() (*models.MScreeningRun, error)

	// -----------------------------------------------------------------------------

	// CleanupOldData removes runs older than the retention policy.
	CleanupOldData() error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
