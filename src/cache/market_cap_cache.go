// Package cache keeps the aggregator's market caps on disk so that repeated
// runs inside the TTL do not hit the rate-limited API.
//
// Two file layouts are supported and selected by Mode:
//
//	timestamp: {"timestamp": <unix seconds>, "data": {"SOL": 8.1e10, ...}}
//	mtime:     {"SOL": 8.1e10, ...}   (age taken from the file's mtime)
package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"volume-screener/src/helpers"
	"volume-screener/src/interfaces"
	"volume-screener/src/logger"
	"volume-screener/src/models"

	json "github.com/goccy/go-json"
)

const (
	ModeTimestamp = "timestamp"
	ModeMtime     = "mtime"

	PerPage = 250
)

type MarketCapCache struct {
	Fetcher   interfaces.IMarketCapPageFetcher
	Path      string
	TTL       time.Duration
	Pages     int
	PageDelay time.Duration
	Mode      string
	Now       func() time.Time
	Logger    *logger.Logger
}

// -----------------------------------------------------------------------------

func NewMarketCapCache(cfg models.MCacheConfig, fetcher interfaces.IMarketCapPageFetcher, log *logger.Logger) *MarketCapCache {
	mode := cfg.Mode
	if mode == "" {
		mode = ModeTimestamp
	}
	return &MarketCapCache{
		Fetcher:   fetcher,
		Path:      cfg.Path,
		TTL:       time.Duration(cfg.TTLSeconds) * time.Second,
		Pages:     cfg.Pages,
		PageDelay: time.Duration(cfg.PageDelayMs) * time.Millisecond,
		Mode:      mode,
		Now:       time.Now,
		Logger:    log,
	}
}

// -----------------------------------------------------------------------------

// GetMarketCaps returns a fresh cached snapshot, or refetches, or falls back
// to a stale cache. It returns an empty snapshot when nothing is available.
func (c *MarketCapCache) GetMarketCaps(ctx context.Context) models.MMarketCapSnapshot {
	cached, err := c.Load()
	switch {
	case err == nil:
		age := c.Now().Sub(cached.CapturedAt)
		if age < c.TTL {
			c.Logger.Info("Using cached market caps: %s (%d symbols, age %s)", c.Path, cached.Len(), age.Round(time.Second))
			return cached
		}
		c.Logger.Info("Market cap cache expired: %s (age %s >= ttl %s)", c.Path, age.Round(time.Second), c.TTL)
	case errors.Is(err, os.ErrNotExist):
		c.Logger.Debug("No market cap cache at %s", c.Path)
	default:
		c.Logger.Warning("Failed to read market cap cache: %v", err)
	}

	fetched := c.Refresh(ctx)
	if !fetched.IsEmpty() {
		if err := c.Store(fetched); err != nil {
			c.Logger.Warning("Failed to save market cap cache: %v", err)
		} else {
			c.Logger.Info("Market cap cache saved to: %s (%d symbols)", c.Path, fetched.Len())
		}
		return fetched
	}

	stale, err := c.Load()
	if err == nil {
		c.Logger.Warning("Refetch failed, using stale market cap cache: %s (captured %s)", c.Path, stale.CapturedAt.UTC().Format(time.RFC3339))
		return stale
	}
	c.Logger.Error("No market caps available: refetch returned nothing and cache unusable: %v", err)
	return models.NewMarketCapSnapshot(nil, time.Time{})
}

// -----------------------------------------------------------------------------

// Refresh fetches up to Pages pages in order, stopping at the first empty or
// failed page. Later duplicates of a symbol overwrite earlier ones.
func (c *MarketCapCache) Refresh(ctx context.Context) models.MMarketCapSnapshot {
	merged := make(map[string]float64)
	duplicates := 0

	for page := 1; page <= c.Pages; page++ {
		coins, err := c.Fetcher.FetchPage(ctx, page, PerPage)
		if err != nil {
			c.Logger.Warning("[Page %d] Failed to fetch market caps: %v", page, err)
			break
		}
		if len(coins) == 0 {
			c.Logger.Debug("[Page %d] empty, stopping", page)
			break
		}

		for _, coin := range coins {
			sym := strings.ToUpper(strings.TrimSpace(coin.Symbol))
			if sym == "" || coin.MarketCap == nil || *coin.MarketCap <= 0 {
				continue
			}
			if _, seen := merged[sym]; seen {
				duplicates++
			}
			merged[sym] = *coin.MarketCap
		}

		if page < c.Pages {
			if err := helpers.Sleep(ctx, c.PageDelay); err != nil {
				c.Logger.Warning("Market cap refresh interrupted after page %d: %v", page, err)
				break
			}
		}
	}

	if duplicates > 0 {
		c.Logger.Debug("Market cap refresh: %d duplicate symbols overwritten", duplicates)
	}
	return models.NewMarketCapSnapshot(merged, c.Now())
}

// -----------------------------------------------------------------------------

type timestampFile struct {
	Timestamp float64             `json:"timestamp"`
	Data      map[string]*float64 `json:"data"`
}

// Load reads the cache file in the configured layout. An empty mapping is
// reported as an error so that it never shadows a refetch.
func (c *MarketCapCache) Load() (models.MMarketCapSnapshot, error) {
	raw, err := os.ReadFile(c.Path)
	if err != nil {
		return models.MMarketCapSnapshot{}, err
	}

	var data map[string]*float64
	var captured time.Time

	switch c.Mode {
	case ModeMtime:
		info, err := os.Stat(c.Path)
		if err != nil {
			return models.MMarketCapSnapshot{}, err
		}
		if err := json.Unmarshal(raw, &data); err != nil {
			return models.MMarketCapSnapshot{}, helpers.NewCacheError("decode "+c.Path, err)
		}
		captured = info.ModTime()
	default:
		var f timestampFile
		if err := json.Unmarshal(raw, &f); err != nil {
			return models.MMarketCapSnapshot{}, helpers.NewCacheError("decode "+c.Path, err)
		}
		data = f.Data
		sec := int64(f.Timestamp)
		nsec := int64((f.Timestamp - float64(sec)) * 1e9)
		captured = time.Unix(sec, nsec)
	}

	caps := make(map[string]float64, len(data))
	for sym, mc := range data {
		if mc != nil {
			caps[sym] = *mc
		}
	}
	snap := models.NewMarketCapSnapshot(caps, captured)
	if snap.IsEmpty() {
		return models.MMarketCapSnapshot{}, helpers.NewCacheError("cache "+c.Path+" holds no market caps", nil)
	}
	return snap, nil
}

// -----------------------------------------------------------------------------

// Store writes the snapshot atomically (temp file + rename).
func (c *MarketCapCache) Store(snap models.MMarketCapSnapshot) error {
	var payload interface{}
	switch c.Mode {
	case ModeMtime:
		payload = snap.Caps
	default:
		payload = struct {
			Timestamp int64              `json:"timestamp"`
			Data      map[string]float64 `json:"data"`
		}{Timestamp: snap.CapturedAt.Unix(), Data: snap.Caps}
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return helpers.NewCacheError("encode cache", err)
	}

	if dir := filepath.Dir(c.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return helpers.NewCacheError("create cache dir", err)
		}
	}

	tmp := c.Path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return helpers.NewCacheError("write "+tmp, err)
	}
	if err := os.Rename(tmp, c.Path); err != nil {
		_ = os.Remove(tmp)
		return helpers.NewCacheError(fmt.Sprintf("rename %s", tmp), err)
	}

	if c.Mode == ModeMtime {
		// expiry is read back from the mtime, so pin it to the capture time
		if err := os.Chtimes(c.Path, snap.CapturedAt, snap.CapturedAt); err != nil {
			return helpers.NewCacheError("set cache mtime", err)
		}
	}
	return nil
}
