package models

// MConfig Structure
type MConfig struct {
	Name       string           `yaml:"name" validate:"required"`
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	LogLevel   string           `yaml:"log_level" validate:"omitempty,oneof=DEBUG INFO WARNING ERROR"`
	Exchange   MEndpointConfig  `yaml:"exchange"`
	Aggregator MEndpointConfig  `yaml:"aggregator"`
	Cache      MCacheConfig     `yaml:"market_cap_cache"`
	Screening  MScreeningConfig `yaml:"screening"`
	Output     MOutputConfig    `yaml:"output"`
	Storage    MStorageConfig   `yaml:"storage"`
}

// MEndpointConfig describes one upstream REST API.
type MEndpointConfig struct {
	BaseURL string         `yaml:"base_url" validate:"required,url"`
	Network MNetworkConfig `yaml:"network"`
}

type MNetworkConfig struct {
	Enabled           bool     `yaml:"enabled"` // route through Proxies
	Proxies           []string `yaml:"proxies"`
	RequestTimeout    int      `yaml:"timeout" validate:"gt=0"`
	MaxRetries        int      `yaml:"retries" validate:"gte=0"`
	BackoffMillis     int      `yaml:"backoff_ms" validate:"gte=0"`
	RequestsPerSecond float64  `yaml:"requests_per_second" validate:"gte=0"`
	UserAgent         string   `yaml:"user_agent"`
}

type MCacheConfig struct {
	Path        string `yaml:"path" validate:"required"`
	TTLSeconds  int    `yaml:"ttl_seconds" validate:"gt=0"`
	Pages       int    `yaml:"pages" validate:"gt=0"`
	PageDelayMs int    `yaml:"page_delay_ms" validate:"gte=0"`
	Mode        string `yaml:"mode" validate:"oneof=timestamp mtime"`
}

type MScreeningConfig struct {
	Mode           string   `yaml:"mode" validate:"oneof=historical live"`
	Date           string   `yaml:"date"` // YYYYMMDD, empty = today minus DateOffsetDays
	DateOffsetDays int      `yaml:"date_offset_days" validate:"gte=0"`
	LookbackDays   int      `yaml:"lookback_days" validate:"gt=0"`
	Threshold      float64  `yaml:"threshold" validate:"gt=0"`
	MaxMarketCap   float64  `yaml:"max_market_cap" validate:"gte=0"`
	Limit          int      `yaml:"limit" validate:"gt=0"`
	Excluded       []string `yaml:"excluded"`
	Workers        int      `yaml:"workers" validate:"gte=1,lte=64"`
}

type MOutputConfig struct {
	Path          string `yaml:"path"`
	RefreshPeriod int    `yaml:"refresh_period" validate:"gt=0"`
}

type MStorageConfig struct {
	Enabled            bool   `yaml:"enabled"`
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	RetentionDays      int    `yaml:"retention_days"`
}
