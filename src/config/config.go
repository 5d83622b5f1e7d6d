package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"volume-screener/src/data_source/binance"
	"volume-screener/src/data_source/coingecko"
	"volume-screener/src/helpers"
	"volume-screener/src/models"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DateLayout is the YYYYMMDD form used by screening.date and the -date flag.
const DateLayout = "20060102"

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// Default returns a configuration that runs without a config file.
func Default() *Config {
	cfg := &Config{MConfig: &models.MConfig{}}
	cfg.applyDefaults()
	return cfg
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, helpers.NewConfigurationError(fmt.Sprintf("failed to read config file '%s'", configPath), err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, helpers.NewConfigurationError("failed to parse config from YAML", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyDefaults()
	config.ResolveProxy(os.Getenv("HTTPS_PROXY"))

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "volume-screener"
	}
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	c.LogLevel = strings.ToUpper(c.LogLevel)

	if c.Exchange.BaseURL == "" {
		c.Exchange.BaseURL = binance.DefaultBaseURL
	}
	if c.Aggregator.BaseURL == "" {
		c.Aggregator.BaseURL = coingecko.DefaultBaseURL
	}
	applyNetworkDefaults(&c.Exchange.Network)
	applyNetworkDefaults(&c.Aggregator.Network)

	if c.Cache.Path == "" {
		c.Cache.Path = "coingecko_cache.json"
	}
	if c.Cache.TTLSeconds == 0 {
		c.Cache.TTLSeconds = 7 * 24 * 3600
	}
	if c.Cache.Pages == 0 {
		c.Cache.Pages = 7
	}
	if c.Cache.PageDelayMs == 0 {
		c.Cache.PageDelayMs = 2000
	}
	if c.Cache.Mode == "" {
		c.Cache.Mode = "timestamp"
	}

	s := &c.Screening
	if s.Mode == "" {
		s.Mode = models.ModeHistorical
	}
	if s.LookbackDays == 0 {
		s.LookbackDays = 1
	}
	if s.Threshold == 0 {
		s.Threshold = 0.7
	}
	if s.Limit == 0 {
		s.Limit = 200
	}
	if s.Excluded == nil {
		s.Excluded = []string{"BTC", "ETH"}
	}
	if s.Workers == 0 {
		s.Workers = 10
	}

	if c.Output.Path == "" {
		c.Output.Path = "gen_pairs/50bili.json"
	}
	if c.Output.RefreshPeriod == 0 {
		c.Output.RefreshPeriod = 3600
	}

	if c.Storage.DBType == "" {
		c.Storage.DBType = "sqlite"
	}
	if c.Storage.DBPath == "" {
		c.Storage.DBPath = "screener.db"
	}
	if c.Storage.RetentionDays == 0 {
		c.Storage.RetentionDays = 30
	}
}

func applyNetworkDefaults(n *models.MNetworkConfig) {
	if n.RequestTimeout == 0 {
		n.RequestTimeout = 15
	}
	if n.MaxRetries == 0 {
		n.MaxRetries = 3
	}
	if n.BackoffMillis == 0 {
		n.BackoffMillis = 1000
	}
}

// -----------------------------------------------------------------------------

// ResolveProxy routes exchange traffic through proxy when no proxy list is
// configured. The aggregator is never proxied.
func (c *Config) ResolveProxy(proxy string) {
	proxy = strings.TrimSpace(proxy)
	if proxy == "" || len(c.Exchange.Network.Proxies) > 0 {
		return
	}
	c.Exchange.Network.Proxies = []string{proxy}
	c.Exchange.Network.Enabled = true
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if err := validator.New().Struct(c.MConfig); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return helpers.NewConfigurationError(
				fmt.Sprintf("invalid %s: failed '%s' (value %v)", f.Namespace(), f.Tag(), f.Value()), err)
		}
		return helpers.NewConfigurationError("invalid configuration", err)
	}

	// Validate Server configuration (Flattened)
	if c.Host == "" {
		return helpers.NewConfigurationError("server host cannot be empty", nil)
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return helpers.NewConfigurationError(fmt.Sprintf("invalid server port number: %d (must be between 1025 and 65535)", c.Port), nil)
	}

	// Validate Storage configuration
	if c.Storage.Enabled {
		switch c.Storage.DBType {
		case "sqlite":
			if c.Storage.DBPath == "" {
				return helpers.NewConfigurationError("database path cannot be empty for sqlite", nil)
			}
		case "postgres":
			if c.Storage.DBConnectionString == "" {
				return helpers.NewConfigurationError("connection string cannot be empty for postgres", nil)
			}
		default:
			return helpers.NewConfigurationError(fmt.Sprintf("unsupported database type: %s", c.Storage.DBType), nil)
		}
	}

	// Validate Network configuration
	for _, p := range c.Exchange.Network.Proxies {
		if !helpers.ValidateProxy(helpers.FormatProxy(p)) {
			return helpers.NewConfigurationError(fmt.Sprintf("invalid proxy: %s", helpers.RedactProxy(p)), nil)
		}
	}

	// Validate Screening configuration
	if c.Screening.Date != "" {
		if _, err := time.Parse(DateLayout, c.Screening.Date); err != nil {
			return helpers.NewConfigurationError(fmt.Sprintf("screening date must be YYYYMMDD, got %q", c.Screening.Date), err)
		}
	}
	if c.Output.Path == "" {
		return helpers.NewConfigurationError("output path cannot be empty", nil)
	}

	return nil
}

// -----------------------------------------------------------------------------

// TargetDate is the configured date, or today (UTC) minus the offset.
func (c *Config) TargetDate(now time.Time) (time.Time, error) {
	if c.Screening.Date != "" {
		d, err := time.Parse(DateLayout, c.Screening.Date)
		if err != nil {
			return time.Time{}, helpers.NewConfigurationError(fmt.Sprintf("screening date must be YYYYMMDD, got %q", c.Screening.Date), err)
		}
		return d.UTC(), nil
	}
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return today.AddDate(0, 0, -c.Screening.DateOffsetDays), nil
}

// -----------------------------------------------------------------------------

// BuildRequest turns the screening section into a request for one run.
func (c *Config) BuildRequest(now time.Time) (models.MScreeningRequest, error) {
	date, err := c.TargetDate(now)
	if err != nil {
		return models.MScreeningRequest{}, err
	}

	excluded := make(map[string]bool, len(c.Screening.Excluded))
	for _, base := range c.Screening.Excluded {
		if base = strings.ToUpper(strings.TrimSpace(base)); base != "" {
			excluded[base] = true
		}
	}

	return models.MScreeningRequest{
		Mode:         c.Screening.Mode,
		Date:         date,
		LookbackDays: c.Screening.LookbackDays,
		Threshold:    c.Screening.Threshold,
		MaxMarketCap: c.Screening.MaxMarketCap,
		Limit:        c.Screening.Limit,
		Excluded:     excluded,
	}, nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
