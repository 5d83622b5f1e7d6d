// Package coingecko reads market capitalizations from the aggregator's
// /coins/markets listing.
package coingecko

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"volume-screener/src/helpers"
	"volume-screener/src/interfaces"
	"volume-screener/src/logger"
	"volume-screener/src/models"

	json "github.com/goccy/go-json"
)

const (
	DefaultBaseURL = "https://api.coingecko.com/api/v3"
	PageSize       = 250 // largest page the API serves
)

type MarketsClient struct {
	BaseURL string
	Network interfaces.INetworkManager
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewMarketsClient(baseURL string, netMgr interfaces.INetworkManager, log *logger.Logger) *MarketsClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &MarketsClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Network: netMgr,
		Logger:  log,
	}
}

// -----------------------------------------------------------------------------

// FetchPage returns one page of coins ordered by market cap, 1-based.
func (c *MarketsClient) FetchPage(ctx context.Context, page, perPage int) ([]models.MCoinMarket, error) {
	if perPage <= 0 || perPage > PageSize {
		perPage = PageSize
	}
	params := map[string]string{
		"vs_currency": "usd",
		"order":       "market_cap_desc",
		"per_page":    strconv.Itoa(perPage),
		"page":        strconv.Itoa(page),
		"sparkline":   "false",
	}

	body, err := c.Network.Get(ctx, c.BaseURL+"/coins/markets", params)
	if err != nil {
		return nil, fmt.Errorf("coins/markets page %d: %w", page, err)
	}

	var coins []models.MCoinMarket
	if err := json.Unmarshal(body, &coins); err != nil {
		return nil, helpers.NewDataSourceError(fmt.Sprintf("decode coins/markets page %d", page), err)
	}

	c.Logger.Debug("coins/markets page %d: %d coins", page, len(coins))
	return coins, nil
}
