package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"volume-screener/src/analysis"
	"volume-screener/src/config"
	"volume-screener/src/logger"
	"volume-screener/src/models"
)

// -----------------------------------------------------------------------------

func main() {
	// 1. Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	runMode := flag.String("run", "once", "run mode: once | serve")
	date := flag.String("date", "", "target date YYYYMMDD (overrides screening.date)")
	days := flag.Int("days", 0, "lookback window in days (overrides screening.lookback_days)")
	threshold := flag.Float64("threshold", 0, "volume / market cap threshold (overrides screening.threshold)")
	mode := flag.String("mode", "", "screening mode: historical | live (overrides screening.mode)")
	flag.Parse()

	if *runMode != "once" && *runMode != "serve" {
		fmt.Printf("Unknown run mode %q (expected once or serve)\n", *runMode)
		os.Exit(2)
	}

	// 2. Load config, then let flags win
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	applyFlags(conf.MConfig, *date, *days, *threshold, *mode)
	if err := conf.Validate(); err != nil {
		fmt.Printf("Invalid command line: %v\n", err)
		os.Exit(1)
	}

	// 3. Setup Logger
	logger.SetDefaults(logger.ParseLevel(conf.LogLevel), os.Stdout)
	appLogger := logger.NewLogger(conf.Name)

	// 4. Setup Components
	app, err := setupApplication(conf, appLogger)
	if err != nil {
		appLogger.Critical("Setup failed: %v", err)
	}
	defer app.close()

	// Lifecycle Management
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Run
	if *runMode == "serve" {
		serve(ctx, app)
		return
	}

	if _, err := app.screenAndPublish(ctx); err != nil {
		if errors.Is(err, analysis.ErrNoMarketCaps) {
			appLogger.Error("No market cap data. Exiting.")
		} else {
			appLogger.Error("Screening failed: %v", err)
		}
		app.close()
		os.Exit(1)
	}
}

// -----------------------------------------------------------------------------

// applyFlags copies non-zero command line values over the screening section.
func applyFlags(cfg *models.MConfig, date string, days int, threshold float64, mode string) {
	if date != "" {
		cfg.Screening.Date = date
	}
	if days > 0 {
		cfg.Screening.LookbackDays = days
	}
	if threshold > 0 {
		cfg.Screening.Threshold = threshold
	}
	if mode != "" {
		cfg.Screening.Mode = mode
	}
}
