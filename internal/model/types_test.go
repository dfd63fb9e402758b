package model

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func level(price, qty string) PriceLevel {
	return PriceLevel{
		Price: decimal.RequireFromString(price),
		Qty:   decimal.RequireFromString(qty),
	}
}

func TestOrderBookTopOfBook(t *testing.T) {
	t.Run("populated book", func(t *testing.T) {
		b := OrderBook{
			Symbol: "BTCUSDT",
			Bids:   []PriceLevel{level("50000.00", "1.5"), level("49999.50", "2.0")},
			Asks:   []PriceLevel{level("50000.50", "0.8"), level("50001.00", "3.1")},
		}

		if got := b.BestBid(); !got.Price.Equal(decimal.RequireFromString("50000.00")) {
			t.Errorf("BestBid().Price = %s, want 50000.00", got.Price)
		}
		if got := b.BestAsk(); !got.Price.Equal(decimal.RequireFromString("50000.50")) {
			t.Errorf("BestAsk().Price = %s, want 50000.50", got.Price)
		}
		if got := b.Spread(); !got.Equal(decimal.RequireFromString("0.5")) {
			t.Errorf("Spread() = %s, want 0.5", got)
		}
	})

	t.Run("empty book", func(t *testing.T) {
		var b OrderBook

		if got := b.BestBid(); !got.Price.IsZero() || !got.Qty.IsZero() {
			t.Errorf("BestBid() = %+v, want zero level", got)
		}
		if got := b.Spread(); !got.IsZero() {
			t.Errorf("Spread() = %s, want 0", got)
		}
	})

	t.Run("one sided book", func(t *testing.T) {
		b := OrderBook{Bids: []PriceLevel{level("50000.00", "1.0")}}

		if got := b.Spread(); !got.IsZero() {
			t.Errorf("Spread() = %s, want 0", got)
		}
	})
}

// Cached snapshots serve this JSON directly, so decimals must marshal
// as quoted strings and timestamps as plain integers.
func TestTickerJSONShape(t *testing.T) {
	tk := Ticker{
		Symbol:     "BTCUSDT",
		LastPrice:  decimal.RequireFromString("50123.45"),
		Volume:     decimal.RequireFromString("12345.678"),
		Trades:     98765,
		ExchangeTS: 1705320000000,
	}

	data, err := json.Marshal(tk)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	for _, want := range []string{
		`"last_price":"50123.45"`,
		`"volume":"12345.678"`,
		`"trades":98765`,
		`"exchange_ts":1705320000000`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("marshaled ticker missing %s:\n%s", want, data)
		}
	}
}
