package interfaces

import "volume-screener/src/models"

// -----------------------------------------------------------------------------
// IDataExchanger shares screening runs with external systems (Server/Push).
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	// -----------------------------------------------------------------------------
	// Broadcast stores the run as the latest state and pushes it to listeners.
	Broadcast(run *models.MScreeningRun)

	// -----------------------------------------------------------------------------
	// UpdateAllDatas replaces the latest state without broadcasting.
	UpdateAllDatas(run *models.MScreeningRun)

	// -----------------------------------------------------------------------------
	// Start the server
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop() error
}
