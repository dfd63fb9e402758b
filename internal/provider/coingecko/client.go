package coingecko

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rickgao/crypto-data/internal/provider"
)

// REST API paths, relative to the /api/v3 base URL.
const (
	pathMarkets     = "/coins/markets"
	pathMarketChart = "/coins/%s/market_chart"
)

// Client calls the CoinGecko REST API.
type Client struct {
	rest *provider.Client
}

// NewClient wraps a provider REST client.
func NewClient(rest *provider.Client) *Client {
	return &Client{rest: rest}
}

// Markets fetches one row of current market data per coin id.
func (c *Client) Markets(ctx context.Context, ids []string) ([]CoinMarket, error) {
	query := url.Values{
		"vs_currency": {"usd"},
		"ids":         {strings.Join(ids, ",")},
		"per_page":    {strconv.Itoa(len(ids))},
	}

	var rows []CoinMarket
	if err := c.rest.Get(ctx, pathMarkets, query, &rows); err != nil {
		return nil, fmt.Errorf("coins markets: %w", err)
	}
	return rows, nil
}

// MarketChart fetches the daily historical series for one coin over the
// given number of days.
func (c *Client) MarketChart(ctx context.Context, id string, days int) (MarketChart, error) {
	query := url.Values{
		"vs_currency": {"usd"},
		"days":        {strconv.Itoa(days)},
		"interval":    {"daily"},
	}

	var chart MarketChart
	if err := c.rest.Get(ctx, fmt.Sprintf(pathMarketChart, id), query, &chart); err != nil {
		return MarketChart{}, fmt.Errorf("market chart %s: %w", id, err)
	}
	return chart, nil
}
