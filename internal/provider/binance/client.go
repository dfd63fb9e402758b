package binance

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rickgao/crypto-data/internal/model"
	"github.com/rickgao/crypto-data/internal/provider"
)

// Spot REST API paths.
const (
	pathTicker24h = "/api/v3/ticker/24hr"
	pathDepth     = "/api/v3/depth"
	pathKlines    = "/api/v3/klines"
	pathTrades    = "/api/v3/trades"
)

// Client calls the Binance spot REST API and converts responses to
// model types.
type Client struct {
	rest *provider.Client
}

// NewClient wraps a provider REST client.
func NewClient(rest *provider.Client) *Client {
	return &Client{rest: rest}
}

// Ticker24h fetches the rolling 24h ticker for one symbol.
func (c *Client) Ticker24h(ctx context.Context, symbol string) (model.Ticker, error) {
	query := url.Values{"symbol": {symbol}}

	var raw ticker24h
	if err := c.rest.Get(ctx, pathTicker24h, query, &raw); err != nil {
		return model.Ticker{}, fmt.Errorf("ticker 24h %s: %w", symbol, err)
	}
	return raw.toModel(time.Now().UnixMilli()), nil
}

// Depth fetches an order book snapshot with up to limit levels per side.
func (c *Client) Depth(ctx context.Context, symbol string, limit int) (model.OrderBook, error) {
	query := url.Values{
		"symbol": {symbol},
		"limit":  {strconv.Itoa(limit)},
	}

	var raw depthResponse
	if err := c.rest.Get(ctx, pathDepth, query, &raw); err != nil {
		return model.OrderBook{}, fmt.Errorf("depth %s: %w", symbol, err)
	}
	return model.OrderBook{
		Symbol:       symbol,
		LastUpdateID: raw.LastUpdateID,
		Bids:         toLevels(raw.Bids),
		Asks:         toLevels(raw.Asks),
		CapturedAt:   time.Now().UnixMilli(),
	}, nil
}

// Klines fetches up to limit bars of the given interval. A start of zero
// means the most recent bars; otherwise bars from start (ms since epoch)
// forward.
func (c *Client) Klines(ctx context.Context, symbol, interval string, limit int, start int64) ([]model.Candle, error) {
	query := url.Values{
		"symbol":   {symbol},
		"interval": {interval},
		"limit":    {strconv.Itoa(limit)},
	}
	if start > 0 {
		query.Set("startTime", strconv.FormatInt(start, 10))
	}

	var rows [][]any
	if err := c.rest.Get(ctx, pathKlines, query, &rows); err != nil {
		return nil, fmt.Errorf("klines %s %s: %w", symbol, interval, err)
	}

	candles := make([]model.Candle, 0, len(rows))
	for _, row := range rows {
		candle, ok := parseKline(symbol, interval, row)
		if !ok {
			continue
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

// RecentTrades fetches the most recent public trades for one symbol.
func (c *Client) RecentTrades(ctx context.Context, symbol string, limit int) ([]model.Trade, error) {
	query := url.Values{
		"symbol": {symbol},
		"limit":  {strconv.Itoa(limit)},
	}

	var raw []apiTrade
	if err := c.rest.Get(ctx, pathTrades, query, &raw); err != nil {
		return nil, fmt.Errorf("recent trades %s: %w", symbol, err)
	}

	trades := make([]model.Trade, 0, len(raw))
	for _, t := range raw {
		trades = append(trades, t.toModel(symbol))
	}
	return trades, nil
}
