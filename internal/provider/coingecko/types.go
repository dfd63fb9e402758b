package coingecko

import (
	"github.com/shopspring/decimal"

	"github.com/rickgao/crypto-data/internal/model"
)

// CoinMarket mirrors one row of /coins/markets. CoinGecko serves plain
// JSON numbers; null fields decode to zero.
type CoinMarket struct {
	ID                string  `json:"id"`
	Symbol            string  `json:"symbol"`
	CurrentPrice      float64 `json:"current_price"`
	MarketCap         float64 `json:"market_cap"`
	MarketCapRank     int     `json:"market_cap_rank"`
	TotalVolume       float64 `json:"total_volume"`
	CirculatingSupply float64 `json:"circulating_supply"`
	TotalSupply       float64 `json:"total_supply"`
	PriceChange24h    float64 `json:"price_change_percentage_24h"`
}

func (m CoinMarket) toModel(symbol string, ts int64) model.MarketMetrics {
	return model.MarketMetrics{
		Symbol:            symbol,
		CoinID:            m.ID,
		PriceUSD:          decimal.NewFromFloat(m.CurrentPrice),
		MarketCap:         decimal.NewFromFloat(m.MarketCap),
		Volume24h:         decimal.NewFromFloat(m.TotalVolume),
		CirculatingSupply: decimal.NewFromFloat(m.CirculatingSupply),
		TotalSupply:       decimal.NewFromFloat(m.TotalSupply),
		Rank:              m.MarketCapRank,
		PriceChange24hPct: decimal.NewFromFloat(m.PriceChange24h),
		TS:                ts,
	}
}

// MarketChart mirrors /coins/{id}/market_chart: parallel [timestamp_ms,
// value] series.
type MarketChart struct {
	Prices     [][2]float64 `json:"prices"`
	MarketCaps [][2]float64 `json:"market_caps"`
	Volumes    [][2]float64 `json:"total_volumes"`
}

// chartToMetrics zips the chart's parallel series into one row per
// timestamp. Series are aligned by index; uneven tails are dropped.
func chartToMetrics(symbol, id string, chart MarketChart) []model.MarketMetrics {
	n := len(chart.Prices)
	if len(chart.MarketCaps) < n {
		n = len(chart.MarketCaps)
	}
	if len(chart.Volumes) < n {
		n = len(chart.Volumes)
	}

	rows := make([]model.MarketMetrics, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, model.MarketMetrics{
			Symbol:    symbol,
			CoinID:    id,
			PriceUSD:  decimal.NewFromFloat(chart.Prices[i][1]),
			MarketCap: decimal.NewFromFloat(chart.MarketCaps[i][1]),
			Volume24h: decimal.NewFromFloat(chart.Volumes[i][1]),
			TS:        int64(chart.Prices[i][0]),
		})
	}
	return rows
}
