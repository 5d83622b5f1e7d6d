package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"volume-screener/src/helpers"
	"volume-screener/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestNewConfigAppliesDefaults(t *testing.T) {
	t.Setenv("HTTPS_PROXY", "")
	cfg, err := NewConfig(writeConfig(t, "name: screener\n"))
	require.NoError(t, err)

	assert.Equal(t, "screener", cfg.Name)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "https://fapi.binance.com/fapi/v1", cfg.Exchange.BaseURL)
	assert.Equal(t, "https://api.coingecko.com/api/v3", cfg.Aggregator.BaseURL)
	assert.Equal(t, 15, cfg.Exchange.Network.RequestTimeout)
	assert.Equal(t, 3, cfg.Aggregator.Network.MaxRetries)
	assert.Equal(t, 604800, cfg.Cache.TTLSeconds)
	assert.Equal(t, 7, cfg.Cache.Pages)
	assert.Equal(t, "timestamp", cfg.Cache.Mode)
	assert.Equal(t, models.ModeHistorical, cfg.Screening.Mode)
	assert.Equal(t, 0.7, cfg.Screening.Threshold)
	assert.Equal(t, 200, cfg.Screening.Limit)
	assert.Equal(t, 10, cfg.Screening.Workers)
	assert.Equal(t, []string{"BTC", "ETH"}, cfg.Screening.Excluded)
	assert.Equal(t, 3600, cfg.Output.RefreshPeriod)
	assert.False(t, cfg.Exchange.Network.Enabled)
}

func TestSampleConfigLoads(t *testing.T) {
	t.Setenv("HTTPS_PROXY", "")
	cfg, err := NewConfig(filepath.Join("..", "..", "config", "default.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "gen_pairs/50bili.json", cfg.Output.Path)
	assert.Equal(t, 10.0, cfg.Exchange.Network.RequestsPerSecond)
}

func TestHTTPSProxyIsAppliedToExchangeOnly(t *testing.T) {
	t.Setenv("HTTPS_PROXY", "http://user:pw@proxy.local:3128")
	cfg, err := NewConfig(writeConfig(t, "name: screener\n"))
	require.NoError(t, err)

	assert.True(t, cfg.Exchange.Network.Enabled)
	assert.Equal(t, []string{"http://user:pw@proxy.local:3128"}, cfg.Exchange.Network.Proxies)
	assert.Empty(t, cfg.Aggregator.Network.Proxies)
	assert.False(t, cfg.Aggregator.Network.Enabled)
}

func TestConfiguredProxiesWinOverEnvironment(t *testing.T) {
	t.Setenv("HTTPS_PROXY", "http://env.local:3128")
	cfg, err := NewConfig(writeConfig(t, `
exchange:
  network:
    enabled: true
    proxies: ["socks5://file.local:1080"]
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"socks5://file.local:1080"}, cfg.Exchange.Network.Proxies)
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Setenv("HTTPS_PROXY", "")
	cases := map[string]string{
		"cache mode":   "market_cap_cache:\n  mode: weekly\n",
		"run mode":     "screening:\n  mode: replay\n",
		"workers":      "screening:\n  workers: 500\n",
		"date":         "screening:\n  date: 2025-06-03\n",
		"port":         "port: 80\n",
		"log level":    "log_level: verbose\n",
		"base url":     "exchange:\n  base_url: not a url\n",
		"storage type": "storage:\n  enabled: true\n  db_type: mysql\n",
		"postgres dsn": "storage:\n  enabled: true\n  db_type: postgres\n",
		"proxy":        "exchange:\n  network:\n    proxies: [\"ftp://proxy.local:21\"]\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewConfig(writeConfig(t, body))
			require.Error(t, err)
			var cfgErr *helpers.ConfigurationError
			assert.True(t, errors.As(err, &cfgErr), "got %T: %v", err, err)
		})
	}
}

func TestNewConfigMissingFile(t *testing.T) {
	_, err := NewConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	var cfgErr *helpers.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestBuildRequest(t *testing.T) {
	now := time.Date(2025, 6, 7, 18, 45, 0, 0, time.FixedZone("UTC-5", -5*3600)) // 2025-06-07 23:45 UTC

	cfg := Default()
	cfg.Screening.DateOffsetDays = 4
	cfg.Screening.LookbackDays = 3
	cfg.Screening.Excluded = []string{"btc", " eth ", ""}

	req, err := cfg.BuildRequest(now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), req.Date)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), req.WindowStart())
	assert.Equal(t, map[string]bool{"BTC": true, "ETH": true}, req.Excluded)
	assert.Equal(t, 0.7, req.Threshold)
	assert.Equal(t, 200, req.Limit)

	cfg.Screening.Date = "20250520"
	req, err = cfg.BuildRequest(now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC), req.Date)

	cfg.Screening.Date = "May 20"
	_, err = cfg.BuildRequest(now)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("HTTPS_PROXY", "")
	cfg := Default()
	cfg.Screening.Threshold = 1.25
	cfg.Screening.Date = "20250603"

	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := NewConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 1.25, loaded.Screening.Threshold)
	assert.Equal(t, "20250603", loaded.Screening.Date)
	assert.Equal(t, cfg.Cache, loaded.Cache)
}
