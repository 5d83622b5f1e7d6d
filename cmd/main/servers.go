package main

import (
	"context"
	"time"

	"volume-screener/src/interfaces"
	"volume-screener/src/logger"
	"volume-screener/src/server"
	"volume-screener/src/utils"
)

// -----------------------------------------------------------------------------

// serve runs the HTTP/WebSocket server and screens every refresh period until
// ctx is cancelled.
func serve(ctx context.Context, app *application) {
	api := server.NewFastAPIServer(app.config.MConfig, logger.NewLogger("Server"))
	scheduler := utils.NewRunScheduler(
		time.Duration(app.config.Output.RefreshPeriod)*time.Second,
		logger.NewLogger("Scheduler"),
	)
	api.SetTrigger(scheduler.Trigger)

	var srv interfaces.IDataExchanger = api
	restoreLatest(app, srv)
	startServers(srv, app.logger)

	app.logger.Info("Screening every %ds", app.config.Output.RefreshPeriod)
	scheduler.Run(ctx, func(ctx context.Context) {
		run, err := app.screenAndPublish(ctx)
		if err != nil {
			if ctx.Err() == nil {
				app.logger.Error("Screening failed: %v", err)
			}
			return
		}
		srv.UpdateAllDatas(run)
		srv.Broadcast(run)
	})

	app.logger.Info("Shutting down...")
	if err := srv.Stop(); err != nil {
		app.logger.Warning("Server shutdown: %v", err)
	}
	app.logger.Info("Shutdown complete.")
}

// -----------------------------------------------------------------------------

// startServers orchestrates the startup of all server components
func startServers(srv interfaces.IDataExchanger, appLogger *logger.Logger) {
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Critical("Server failed: %v", err)
		}
	}()
}

// -----------------------------------------------------------------------------

// restoreLatest serves the last stored run until the first screening ends.
func restoreLatest(app *application, srv interfaces.IDataExchanger) {
	if app.db == nil {
		return
	}
	run, err := app.db.LatestScreeningRun()
	if err != nil {
		app.logger.Warning("Could not load previous run: %v", err)
		return
	}
	if run == nil {
		return
	}
	app.logger.Info("Restored run %d from %s", run.ID, run.StartedAt.Format(time.RFC3339))
	srv.UpdateAllDatas(run)
}
