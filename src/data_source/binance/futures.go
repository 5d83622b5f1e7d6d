// Package binance reads USDT-margined futures market data from the exchange
// REST API: the contract catalog, daily candles and 24h tickers.
package binance

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"volume-screener/src/helpers"
	"volume-screener/src/interfaces"
	"volume-screener/src/logger"
	"volume-screener/src/models"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

const DefaultBaseURL = "https://fapi.binance.com/fapi/v1"

// kline row layout: [openTime, open, high, low, close, volume, closeTime, quoteVolume, ...]
const (
	klineCloseIdx  = 4
	klineVolumeIdx = 5
)

type FuturesClient struct {
	BaseURL string
	Network interfaces.INetworkManager
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewFuturesClient(baseURL string, netMgr interfaces.INetworkManager, log *logger.Logger) *FuturesClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &FuturesClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Network: netMgr,
		Logger:  log,
	}
}

// -----------------------------------------------------------------------------

type exchangeInfoResponse struct {
	Symbols []struct {
		Symbol       string `json:"symbol"`
		ContractType string `json:"contractType"`
		QuoteAsset   string `json:"quoteAsset"`
		Status       string `json:"status"`
	} `json:"symbols"`
}

// PerpetualUSDTSymbols lists every perpetual contract quoted in USDT.
// Any failure is returned: there is no fallback for the catalog.
func (c *FuturesClient) PerpetualUSDTSymbols(ctx context.Context) ([]models.MContractSymbol, error) {
	body, err := c.Network.Get(ctx, c.BaseURL+"/exchangeInfo", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch exchange info: %w", err)
	}

	var info exchangeInfoResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, helpers.NewDataSourceError("decode exchange info", err)
	}
	if info.Symbols == nil {
		return nil, helpers.NewDataSourceError("exchange info has no symbols field", nil)
	}

	symbols := make([]models.MContractSymbol, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		sym := models.MContractSymbol(s.Symbol)
		if !sym.IsUSDT() || s.ContractType != models.ContractPerpetual {
			continue
		}
		if s.QuoteAsset != "" && s.QuoteAsset != models.QuoteAsset {
			continue
		}
		symbols = append(symbols, sym)
	}

	c.Logger.Info("Catalog: %d USDT perpetual contracts out of %d listed", len(symbols), len(info.Symbols))
	return symbols, nil
}

// -----------------------------------------------------------------------------

// DailyVolume returns close x base volume of the 1d candle that opens at
// date 00:00 UTC. A missing candle (not yet listed) yields 0.
func (c *FuturesClient) DailyVolume(ctx context.Context, symbol models.MContractSymbol, date time.Time) (float64, error) {
	sample, err := c.DailyVolumeSample(ctx, symbol, date)
	if err != nil {
		return 0, err
	}
	return sample.VolumeUSDT, nil
}

// -----------------------------------------------------------------------------

// DailyVolumeSample fetches the single 1d candle opening at the UTC start of
// date. A missing candle is a zero sample, not an error.
func (c *FuturesClient) DailyVolumeSample(ctx context.Context, symbol models.MContractSymbol, date time.Time) (models.MDailyVolumeSample, error) {
	start := DayStart(date)
	end := start.AddDate(0, 0, 1)
	sample := models.MDailyVolumeSample{Symbol: symbol, Date: start}

	params := map[string]string{
		"symbol":    symbol.String(),
		"interval":  "1d",
		"startTime": strconv.FormatInt(start.UnixMilli(), 10),
		"endTime":   strconv.FormatInt(end.UnixMilli(), 10),
		"limit":     "1",
	}

	body, err := c.Network.Get(ctx, c.BaseURL+"/klines", params)
	if err != nil {
		return sample, fmt.Errorf("klines %s %s: %w", symbol, start.Format("20060102"), err)
	}

	sample.VolumeUSDT, err = parseKlineVolume(body)
	return sample, err
}

// -----------------------------------------------------------------------------

func parseKlineVolume(body []byte) (float64, error) {
	var rows [][]json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return 0, helpers.NewDataSourceError("decode klines", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	row := rows[0]
	if len(row) <= klineVolumeIdx {
		return 0, helpers.NewDataSourceError(fmt.Sprintf("kline row has %d fields", len(row)), nil)
	}

	closePrice, err := rawDecimal(row[klineCloseIdx])
	if err != nil {
		return 0, helpers.NewDataSourceError("kline close price", err)
	}
	baseVolume, err := rawDecimal(row[klineVolumeIdx])
	if err != nil {
		return 0, helpers.NewDataSourceError("kline volume", err)
	}

	notional := closePrice.Mul(baseVolume)
	if notional.IsNegative() {
		return 0, nil
	}
	return notional.InexactFloat64(), nil
}

// -----------------------------------------------------------------------------

type tickerResponse struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
	QuoteVolume        string `json:"quoteVolume"`
}

func (t tickerResponse) toModel() models.MTicker {
	return models.MTicker{
		Symbol:             models.MContractSymbol(t.Symbol),
		LastPrice:          decimalOrZero(t.LastPrice),
		PriceChangePercent: decimalOrZero(t.PriceChangePercent),
		QuoteVolume:        decimalOrZero(t.QuoteVolume),
	}
}

// Ticker24h returns the latest rolling 24h statistics of one symbol.
func (c *FuturesClient) Ticker24h(ctx context.Context, symbol models.MContractSymbol) (models.MTicker, error) {
	body, err := c.Network.Get(ctx, c.BaseURL+"/ticker/24hr", map[string]string{"symbol": symbol.String()})
	if err != nil {
		return models.MTicker{}, fmt.Errorf("ticker %s: %w", symbol, err)
	}

	var t tickerResponse
	if err := json.Unmarshal(body, &t); err != nil {
		return models.MTicker{}, helpers.NewDataSourceError("decode ticker "+symbol.String(), err)
	}
	return t.toModel(), nil
}

// -----------------------------------------------------------------------------

// AllTickers24h returns the 24h snapshot of every USDT-quoted symbol.
func (c *FuturesClient) AllTickers24h(ctx context.Context) ([]models.MTicker, error) {
	body, err := c.Network.Get(ctx, c.BaseURL+"/ticker/24hr", nil)
	if err != nil {
		return nil, fmt.Errorf("all tickers: %w", err)
	}

	var raw []tickerResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, helpers.NewDataSourceError("decode tickers", err)
	}

	tickers := make([]models.MTicker, 0, len(raw))
	for _, t := range raw {
		if !models.MContractSymbol(t.Symbol).IsUSDT() {
			continue
		}
		tickers = append(tickers, t.toModel())
	}
	return tickers, nil
}

// -----------------------------------------------------------------------------

// DayStart truncates t to 00:00 UTC of its calendar day.
func DayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// rawDecimal accepts both quoted ("1.23") and bare (1.23) JSON numbers.
func rawDecimal(raw json.RawMessage) (decimal.Decimal, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return decimal.NewFromString(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(n.String())
}

func decimalOrZero(s string) float64 {
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}
