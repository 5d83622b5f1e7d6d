package interfaces

import (
	"context"
	"time"

	"volume-screener/src/models"
)

// -----------------------------------------------------------------------------
// IMarketCapPageFetcher reads one page of the aggregator's market listing.
// -----------------------------------------------------------------------------

type IMarketCapPageFetcher interface {
	FetchPage(ctx context.Context, page, perPage int) ([]models.MCoinMarket, error)
}

// -----------------------------------------------------------------------------
// IMarketCapProvider yields the market-cap snapshot for one run. It never
// fails: an empty snapshot means screening cannot proceed.
// -----------------------------------------------------------------------------

type IMarketCapProvider interface {
	GetMarketCaps(ctx context.Context) models.MMarketCapSnapshot
}

// -----------------------------------------------------------------------------
// ISymbolCatalog lists the tradable USDT perpetual contracts.
// -----------------------------------------------------------------------------

type ISymbolCatalog interface {
	PerpetualUSDTSymbols(ctx context.Context) ([]models.MContractSymbol, error)
}

// -----------------------------------------------------------------------------
// IVolumeSampler returns one day's notional volume for a symbol.
// -----------------------------------------------------------------------------

type IVolumeSampler interface {
	DailyVolume(ctx context.Context, symbol models.MContractSymbol, date time.Time) (float64, error)
}

// -----------------------------------------------------------------------------
// ITickerSource returns rolling 24h statistics.
// -----------------------------------------------------------------------------

type ITickerSource interface {
	Ticker24h(ctx context.Context, symbol models.MContractSymbol) (models.MTicker, error)
	AllTickers24h(ctx context.Context) ([]models.MTicker, error)
}
