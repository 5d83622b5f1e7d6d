package binance

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"volume-screener/src/helpers"
	"volume-screener/src/logger"
	"volume-screener/src/models"
	"volume-screener/src/network"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *FuturesClient {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	quiet := logger.NewWithWriter("binance-test", logger.LevelError, io.Discard)
	nm := network.NewAsyncNetworkManager(models.MNetworkConfig{RequestTimeout: 5, BackoffMillis: 1}, quiet)
	return NewFuturesClient(srv.URL, nm, quiet)
}

func TestPerpetualUSDTSymbols(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/exchangeInfo", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"symbols":[
			{"symbol":"BTCUSDT","contractType":"PERPETUAL","quoteAsset":"USDT","status":"TRADING"},
			{"symbol":"SOLUSDT","contractType":"PERPETUAL","quoteAsset":"USDT","status":"TRADING"},
			{"symbol":"BTCUSDT_250926","contractType":"CURRENT_QUARTER","quoteAsset":"USDT"},
			{"symbol":"ETHBTC","contractType":"PERPETUAL","quoteAsset":"BTC"},
			{"symbol":"ETHUSDC","contractType":"PERPETUAL","quoteAsset":"USDC"},
			{"symbol":"XRPUSDT","contractType":"CURRENT_QUARTER","quoteAsset":"USDT"}
		]}`))
	})

	symbols, err := newTestClient(t, mux).PerpetualUSDTSymbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.MContractSymbol{"BTCUSDT", "SOLUSDT"}, symbols)
}

func TestPerpetualUSDTSymbolsFailsLoudly(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/exchangeInfo", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := newTestClient(t, mux).PerpetualUSDTSymbols(context.Background())
	require.Error(t, err)
	var netErr *helpers.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, http.StatusNotFound, netErr.StatusCode)
}

func TestPerpetualUSDTSymbolsMalformed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/exchangeInfo", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"rateLimits":[]}`))
	})

	_, err := newTestClient(t, mux).PerpetualUSDTSymbols(context.Background())
	var dsErr *helpers.DataSourceError
	require.True(t, errors.As(err, &dsErr))
}

func TestDailyVolumeRequestsSingleUTCDay(t *testing.T) {
	date := time.Date(2025, 6, 3, 15, 30, 0, 0, time.UTC)
	wantStart := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC).UnixMilli()
	wantEnd := time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC).UnixMilli()

	mux := http.NewServeMux()
	mux.HandleFunc("/klines", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "SOLUSDT", q.Get("symbol"))
		assert.Equal(t, "1d", q.Get("interval"))
		assert.Equal(t, "1", q.Get("limit"))
		assert.Equal(t, strconv.FormatInt(wantStart, 10), q.Get("startTime"))
		assert.Equal(t, strconv.FormatInt(wantEnd, 10), q.Get("endTime"))
		_, _ = w.Write([]byte(`[[1748908800000,"150.0","160.0","140.0","155.5","1000.0",1748995199999,"999999.0",12345,"500.0","77000.0","0"]]`))
	})

	vol, err := newTestClient(t, mux).DailyVolume(context.Background(), "SOLUSDT", date)
	require.NoError(t, err)
	// close x base volume, not the quote volume field
	assert.InDelta(t, 155500.0, vol, 1e-9)
}

func TestDailyVolumeNoCandle(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/klines", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	vol, err := newTestClient(t, mux).DailyVolume(context.Background(), "NEWUSDT", time.Now())
	require.NoError(t, err)
	assert.Zero(t, vol)
}

func TestDailyVolumeSample(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/klines", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[[1748908800000,"1","1","1","2.5","40",1748995199999,"0",1,"0","0","0"]]`))
	})

	sample, err := newTestClient(t, mux).DailyVolumeSample(context.Background(), "ARBUSDT", time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, models.MContractSymbol("ARBUSDT"), sample.Symbol)
	assert.Equal(t, time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), sample.Date)
	assert.InDelta(t, 100.0, sample.VolumeUSDT, 1e-9)
}

func TestParseKlineVolumeNumericFields(t *testing.T) {
	vol, err := parseKlineVolume([]byte(`[[0, 1, 2, 3, 0.5, 40]]`))
	require.NoError(t, err)
	assert.InDelta(t, 20.0, vol, 1e-12)

	_, err = parseKlineVolume([]byte(`[[0, "1"]]`))
	assert.Error(t, err)

	_, err = parseKlineVolume([]byte(`{"code":-1}`))
	assert.Error(t, err)
}

func TestTicker24h(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ticker/24hr", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbol") == "" {
			_, _ = w.Write([]byte(`[
				{"symbol":"SOLUSDT","lastPrice":"155.5","priceChangePercent":"-2.10","quoteVolume":"5000000"},
				{"symbol":"BTCUSDT_250926","lastPrice":"1","priceChangePercent":"0","quoteVolume":"1"},
				{"symbol":"DOGEUSDT","lastPrice":"0.2","priceChangePercent":"12.5","quoteVolume":"800000"}
			]`))
			return
		}
		assert.Equal(t, "SOLUSDT", r.URL.Query().Get("symbol"))
		_, _ = w.Write([]byte(`{"symbol":"SOLUSDT","lastPrice":"155.5","priceChangePercent":"-2.10","quoteVolume":"5000000"}`))
	})
	c := newTestClient(t, mux)

	tk, err := c.Ticker24h(context.Background(), "SOLUSDT")
	require.NoError(t, err)
	assert.Equal(t, models.MContractSymbol("SOLUSDT"), tk.Symbol)
	assert.InDelta(t, 155.5, tk.LastPrice, 1e-9)
	assert.InDelta(t, -2.10, tk.PriceChangePercent, 1e-9)

	all, err := c.AllTickers24h(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, models.MContractSymbol("DOGEUSDT"), all[1].Symbol)
	assert.InDelta(t, 800000.0, all[1].QuoteVolume, 1e-9)
}

func TestDayStart(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	in := time.Date(2025, 6, 4, 2, 0, 0, 0, loc) // 2025-06-03 18:00 UTC
	assert.Equal(t, time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), DayStart(in))
}
