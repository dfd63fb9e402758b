package binance

import (
	"github.com/shopspring/decimal"

	"github.com/rickgao/crypto-data/internal/model"
)

// ticker24h mirrors the /api/v3/ticker/24hr payload.
type ticker24h struct {
	Symbol             string `json:"symbol"`
	PriceChangePercent string `json:"priceChangePercent"`
	LastPrice          string `json:"lastPrice"`
	BidPrice           string `json:"bidPrice"`
	AskPrice           string `json:"askPrice"`
	OpenPrice          string `json:"openPrice"`
	HighPrice          string `json:"highPrice"`
	LowPrice           string `json:"lowPrice"`
	Volume             string `json:"volume"`
	QuoteVolume        string `json:"quoteVolume"`
	CloseTime          int64  `json:"closeTime"`
	Count              int64  `json:"count"`
}

func (t ticker24h) toModel(receivedAt int64) model.Ticker {
	return model.Ticker{
		Symbol:         t.Symbol,
		LastPrice:      toDecimal(t.LastPrice),
		BidPrice:       toDecimal(t.BidPrice),
		AskPrice:       toDecimal(t.AskPrice),
		OpenPrice:      toDecimal(t.OpenPrice),
		HighPrice:      toDecimal(t.HighPrice),
		LowPrice:       toDecimal(t.LowPrice),
		Volume:         toDecimal(t.Volume),
		QuoteVolume:    toDecimal(t.QuoteVolume),
		PriceChangePct: toDecimal(t.PriceChangePercent),
		Trades:         t.Count,
		ExchangeTS:     t.CloseTime,
		ReceivedAt:     receivedAt,
	}
}

// depthResponse mirrors /api/v3/depth. Levels arrive as [price, qty]
// string pairs.
type depthResponse struct {
	LastUpdateID int64       `json:"lastUpdateId"`
	Bids         [][2]string `json:"bids"`
	Asks         [][2]string `json:"asks"`
}

func toLevels(raw [][2]string) []model.PriceLevel {
	levels := make([]model.PriceLevel, 0, len(raw))
	for _, pair := range raw {
		levels = append(levels, model.PriceLevel{
			Price: toDecimal(pair[0]),
			Qty:   toDecimal(pair[1]),
		})
	}
	return levels
}

// apiTrade mirrors /api/v3/trades.
type apiTrade struct {
	ID           int64  `json:"id"`
	Price        string `json:"price"`
	Qty          string `json:"qty"`
	QuoteQty     string `json:"quoteQty"`
	Time         int64  `json:"time"`
	IsBuyerMaker bool   `json:"isBuyerMaker"`
}

func (t apiTrade) toModel(symbol string) model.Trade {
	return model.Trade{
		Symbol:     symbol,
		TradeID:    t.ID,
		Price:      toDecimal(t.Price),
		Qty:        toDecimal(t.Qty),
		QuoteQty:   toDecimal(t.QuoteQty),
		Time:       t.Time,
		BuyerMaker: t.IsBuyerMaker,
	}
}

// parseKline converts one kline row. Rows are positional arrays:
// [openTime, open, high, low, close, volume, closeTime, quoteVolume, count, ...].
func parseKline(symbol, interval string, row []any) (model.Candle, bool) {
	if len(row) < 9 {
		return model.Candle{}, false
	}
	return model.Candle{
		Symbol:      symbol,
		Interval:    interval,
		OpenTime:    asInt64(row[0]),
		Open:        toDecimal(asString(row[1])),
		High:        toDecimal(asString(row[2])),
		Low:         toDecimal(asString(row[3])),
		Close:       toDecimal(asString(row[4])),
		Volume:      toDecimal(asString(row[5])),
		CloseTime:   asInt64(row[6]),
		QuoteVolume: toDecimal(asString(row[7])),
		Trades:      asInt64(row[8]),
	}, true
}

// toDecimal parses a Binance decimal string.
// Returns zero for empty or invalid input.
func toDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func asInt64(v any) int64 {
	f, ok := v.(float64)
	if !ok {
		return 0
	}
	return int64(f)
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
