package yahoo

import "time"

// Fundamentals contains the per-ticker reference fields the dividend and
// valuation services consume. Pointer fields are nil when the provider
// does not report the value for a security.
type Fundamentals struct {
	Ticker         string   `json:"ticker"`
	DividendRate   *float64 `json:"dividend_rate,omitempty"`
	DividendYield  *float64 `json:"dividend_yield,omitempty"`
	PayoutRatio    *float64 `json:"payout_ratio,omitempty"`
	ExDividendDate *int64   `json:"ex_dividend_date,omitempty"`
	TrailingPE     *float64 `json:"trailing_pe,omitempty"`
	MarketCap      *int64   `json:"market_cap,omitempty"`
}

// HistoricalPrice represents a single OHLCV data point
type HistoricalPrice struct {
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   int64     `json:"volume"`
	AdjClose float64   `json:"adj_close"`
}
