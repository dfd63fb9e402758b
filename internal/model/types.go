package model

import "github.com/shopspring/decimal"

// -----------------------------------------------------------------------------
// Spot Market Types
// -----------------------------------------------------------------------------

// Ticker represents a 24h rolling price/volume snapshot for one symbol.
type Ticker struct {
	Symbol         string          `json:"symbol"`           // Trading pair (e.g., "BTCUSDT")
	LastPrice      decimal.Decimal `json:"last_price"`       // Last traded price
	BidPrice       decimal.Decimal `json:"bid_price"`        // Best bid
	AskPrice       decimal.Decimal `json:"ask_price"`        // Best ask
	OpenPrice      decimal.Decimal `json:"open_price"`       // Price 24h ago
	HighPrice      decimal.Decimal `json:"high_price"`       // 24h high
	LowPrice       decimal.Decimal `json:"low_price"`        // 24h low
	Volume         decimal.Decimal `json:"volume"`           // 24h base asset volume
	QuoteVolume    decimal.Decimal `json:"quote_volume"`     // 24h quote asset volume
	PriceChangePct decimal.Decimal `json:"price_change_pct"` // 24h change in percent
	Trades         int64           `json:"trades"`           // 24h trade count
	ExchangeTS     int64           `json:"exchange_ts"`      // Exchange close time (ms since epoch)
	ReceivedAt     int64           `json:"received_at"`      // Local receive time (ms since epoch)
}

// PriceLevel represents a single price level in an order book.
type PriceLevel struct {
	Price decimal.Decimal `json:"price"`
	Qty   decimal.Decimal `json:"qty"`
}

// OrderBook represents a depth snapshot for one symbol.
type OrderBook struct {
	Symbol       string       `json:"symbol"`
	LastUpdateID int64        `json:"last_update_id"` // Exchange book sequence
	Bids         []PriceLevel `json:"bids"`           // Sorted best-first
	Asks         []PriceLevel `json:"asks"`           // Sorted best-first
	CapturedAt   int64        `json:"captured_at"`    // Local capture time (ms since epoch)
}

// BestBid returns the top bid level, or a zero level when the book is empty.
func (b OrderBook) BestBid() PriceLevel {
	if len(b.Bids) == 0 {
		return PriceLevel{}
	}
	return b.Bids[0]
}

// BestAsk returns the top ask level, or a zero level when the book is empty.
func (b OrderBook) BestAsk() PriceLevel {
	if len(b.Asks) == 0 {
		return PriceLevel{}
	}
	return b.Asks[0]
}

// Spread returns ask minus bid for the top of book, zero when either side is empty.
func (b OrderBook) Spread() decimal.Decimal {
	if len(b.Bids) == 0 || len(b.Asks) == 0 {
		return decimal.Zero
	}
	return b.Asks[0].Price.Sub(b.Bids[0].Price)
}

// Candle represents one OHLCV bar.
type Candle struct {
	Symbol      string          `json:"symbol"`
	Interval    string          `json:"interval"`  // Bar size (e.g., "1m", "1h", "1d")
	OpenTime    int64           `json:"open_time"` // Bar open (ms since epoch)
	CloseTime   int64           `json:"close_time"`
	Open        decimal.Decimal `json:"open"`
	High        decimal.Decimal `json:"high"`
	Low         decimal.Decimal `json:"low"`
	Close       decimal.Decimal `json:"close"`
	Volume      decimal.Decimal `json:"volume"`
	QuoteVolume decimal.Decimal `json:"quote_volume"`
	Trades      int64           `json:"trades"`
}

// Trade represents a single executed trade.
type Trade struct {
	Symbol     string          `json:"symbol"`
	TradeID    int64           `json:"trade_id"` // Exchange-assigned, unique per symbol
	Price      decimal.Decimal `json:"price"`
	Qty        decimal.Decimal `json:"qty"`
	QuoteQty   decimal.Decimal `json:"quote_qty"`
	Time       int64           `json:"time"`        // Execution time (ms since epoch)
	BuyerMaker bool            `json:"buyer_maker"` // true = sell aggressor
}

// -----------------------------------------------------------------------------
// Aggregate Market Types
// -----------------------------------------------------------------------------

// MarketMetrics represents coin-level aggregates from a market data provider.
type MarketMetrics struct {
	Symbol            string          `json:"symbol"`    // Normalized symbol (e.g., "BTC")
	CoinID            string          `json:"coin_id"`   // Provider coin identifier (e.g., "bitcoin")
	PriceUSD          decimal.Decimal `json:"price_usd"` // Current price in USD
	MarketCap         decimal.Decimal `json:"market_cap"`
	Volume24h         decimal.Decimal `json:"volume_24h"`
	CirculatingSupply decimal.Decimal `json:"circulating_supply"`
	TotalSupply       decimal.Decimal `json:"total_supply"`
	Rank              int             `json:"rank"`             // Market cap rank
	PriceChange24hPct decimal.Decimal `json:"price_change_24h"` // 24h change in percent
	TS                int64           `json:"ts"`               // Observation time (ms since epoch)
}
