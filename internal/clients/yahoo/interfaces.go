package yahoo

import "github.com/rs/zerolog"

// ClientInterface is the market data surface the analysis, valuation and
// dividend services consume. Both the direct HTTP client and the
// go-yfinance backed native client implement it.
type ClientInterface interface {
	// GetLatestPrice returns the most recent trade price for a ticker,
	// or nil when the provider has no valid price.
	GetLatestPrice(ticker string) (*float64, error)

	// GetBatchQuotes fetches current prices for multiple tickers in one
	// round trip. Tickers the provider cannot price are absent from the
	// result map rather than reported as errors.
	GetBatchQuotes(tickers []string) (map[string]*float64, error)

	// GetPriceHistory fetches daily OHLCV bars for the given range
	// (1mo, 3mo, 6mo, 1y, 2y, 5y, 10y, ytd, max).
	GetPriceHistory(ticker string, period string) ([]HistoricalPrice, error)

	// GetFundamentals fetches dividend and valuation reference data.
	GetFundamentals(ticker string) (*Fundamentals, error)
}

// NewFromConfig returns the client implementation selected by the
// MARKET_DATA_CLIENT setting. "native" selects the go-yfinance backed
// client; anything else falls back to the direct HTTP client.
func NewFromConfig(clientType string, log zerolog.Logger) ClientInterface {
	if clientType == "native" {
		return NewNativeClient(log)
	}
	return NewClient(log)
}
