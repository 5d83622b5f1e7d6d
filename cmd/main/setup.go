package main

import (
	"sync"

	"volume-screener/src/analysis"
	"volume-screener/src/cache"
	"volume-screener/src/config"
	"volume-screener/src/data_source/binance"
	"volume-screener/src/data_source/coingecko"
	"volume-screener/src/interfaces"
	"volume-screener/src/logger"
	"volume-screener/src/models"
	"volume-screener/src/network"
	"volume-screener/src/report"
	"volume-screener/src/storage"
)

// -----------------------------------------------------------------------------

// application holds the components shared by both run modes.
type application struct {
	config   *config.Config
	logger   *logger.Logger
	screener *analysis.Screener
	reporter *report.Reporter
	db       interfaces.IDatabase // nil when storage is disabled

	closeOnce sync.Once
}

// -----------------------------------------------------------------------------

func setupApplication(conf *config.Config, appLogger *logger.Logger) (*application, error) {
	db, err := setupDatabase(conf.MConfig, appLogger)
	if err != nil {
		return nil, err
	}

	return &application{
		config:   conf,
		logger:   appLogger,
		screener: setupScreener(conf.MConfig),
		reporter: report.NewReporter(conf.Output, logger.NewLogger("Report")),
		db:       db,
	}, nil
}

// -----------------------------------------------------------------------------

func (app *application) close() {
	app.closeOnce.Do(func() {
		if app.db == nil {
			return
		}
		if err := app.db.Close(); err != nil {
			app.logger.Warning("Failed to close database: %v", err)
		}
	})
}

// -----------------------------------------------------------------------------

// setupDatabase initializes the run history store based on config
func setupDatabase(config *models.MConfig, appLogger *logger.Logger) (interfaces.IDatabase, error) {
	if !config.Storage.Enabled {
		appLogger.Info("Run history disabled")
		return nil, nil
	}

	db, err := storage.New(config, logger.NewLogger("Storage-"+config.Storage.DBType))
	if err != nil {
		appLogger.Error("Failed to init db: %v", err)
		return nil, err
	}
	if err := db.Initialize(); err != nil {
		appLogger.Error("Failed to migrate db: %v", err)
		return nil, err
	}
	return db, nil
}

// -----------------------------------------------------------------------------

// setupNetwork initializes one network manager per upstream
func setupNetwork(name string, cfg models.MNetworkConfig) interfaces.INetworkManager {
	return network.NewAsyncNetworkManager(cfg, logger.NewLogger("NetworkManager-"+name))
}

// -----------------------------------------------------------------------------

// setupScreener wires the aggregator, the market cap cache and the exchange
// client into a Screener. The futures client serves as catalog, volume
// sampler and ticker source.
func setupScreener(config *models.MConfig) *analysis.Screener {
	exchange := setupNetwork("exchange", config.Exchange.Network)
	aggregator := setupNetwork("aggregator", config.Aggregator.Network)

	markets := coingecko.NewMarketsClient(config.Aggregator.BaseURL, aggregator, logger.NewLogger("CoinGecko"))
	caps := cache.NewMarketCapCache(config.Cache, markets, logger.NewLogger("MarketCapCache"))
	futures := binance.NewFuturesClient(config.Exchange.BaseURL, exchange, logger.NewLogger("BinanceFutures"))

	return analysis.NewScreener(caps, futures, futures, futures, config.Screening.Workers, logger.NewLogger("Screener"))
}
