package main

import (
	"context"
	"time"

	"volume-screener/src/models"
)

// -----------------------------------------------------------------------------

// screenAndPublish performs one complete run: screen, print the report, write
// the pairs artifact and store the run when history is enabled. A storage
// failure is logged but does not fail the run.
func (app *application) screenAndPublish(ctx context.Context) (*models.MScreeningRun, error) {
	req, err := app.config.BuildRequest(time.Now())
	if err != nil {
		return nil, err
	}

	run, err := app.screener.Run(ctx, req)
	if err != nil {
		return nil, err
	}

	if _, err := app.reporter.Publish(run); err != nil {
		return run, err
	}

	if app.db != nil {
		if _, err := app.db.SaveScreeningRun(run); err != nil {
			app.logger.Error("Failed to save run: %v", err)
		} else if err := app.db.CleanupOldData(); err != nil {
			app.logger.Warning("History cleanup failed: %v", err)
		}
	}

	app.logger.Info("Run finished in %.2fs: %d/%d symbols qualified",
		run.Metrics.DurationSeconds, run.Metrics.QualifiedSymbols, run.Metrics.EligibleSymbols)
	return run, nil
}
