package cache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeys_UppercaseSymbol(t *testing.T) {
	require.Equal(t, "ticker:BTCUSDT", TickerKey("btcusdt"))
	require.Equal(t, "orderbook:ETHUSDT", OrderBookKey("ethUSDT"))
	require.Equal(t, "candles:BTCUSDT:1m", CandlesKey("btcusdt", "1m"))
	require.Equal(t, "market_metrics:SOLUSDT", MarketMetricsKey("solusdt"))
}

func TestKeys_IntervalCasePreserved(t *testing.T) {
	// Bar intervals are case sensitive upstream, 1M is one month and
	// 1m is one minute.
	require.Equal(t, "candles:BTCUSDT:1M", CandlesKey("BTCUSDT", "1M"))
}
