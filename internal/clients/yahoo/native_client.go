package yahoo

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/multi"
	"github.com/wnjoon/go-yfinance/pkg/ticker"
)

// NativeClient implements ClientInterface using the go-yfinance library.
// Fundamentals are served by the direct HTTP client because the library's
// Info payload does not carry the payout ratio or ex-dividend date.
type NativeClient struct {
	log    zerolog.Logger
	direct *Client
}

// NewNativeClient creates a new native Yahoo Finance client
func NewNativeClient(log zerolog.Logger) *NativeClient {
	return &NativeClient{
		log:    log.With().Str("client", "yahoo-native").Logger(),
		direct: NewClient(log),
	}
}

// GetLatestPrice gets the current price for a ticker with retry logic
func (c *NativeClient) GetLatestPrice(tickerSymbol string) (*float64, error) {
	symbol := normalizeTicker(tickerSymbol)

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			wait := backoff(attempt - 1)
			c.log.Warn().
				Err(lastErr).
				Str("ticker", symbol).
				Dur("wait", wait).
				Msg("Price fetch failed, retrying")
			time.Sleep(wait)
		}

		price, err := c.fetchPrice(symbol)
		if err == nil && price != nil {
			return price, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}

// fetchPrice performs a single price lookup attempt
func (c *NativeClient) fetchPrice(symbol string) (*float64, error) {
	t, err := ticker.New(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticker: %w", err)
	}
	defer t.Close()

	// Try Quote first (faster)
	quote, err := t.Quote()
	if err == nil && quote != nil {
		if quote.RegularMarketPrice > 0 {
			price := quote.RegularMarketPrice
			return &price, nil
		}
		// Try pre/post market prices
		if quote.PreMarketPrice > 0 {
			price := quote.PreMarketPrice
			return &price, nil
		}
		if quote.PostMarketPrice > 0 {
			price := quote.PostMarketPrice
			return &price, nil
		}
	}

	// Fallback to Info
	info, err := t.Info()
	if err == nil && info != nil {
		if info.CurrentPrice > 0 {
			price := info.CurrentPrice
			return &price, nil
		}
		if info.RegularMarketPreviousClose > 0 {
			price := info.RegularMarketPreviousClose
			return &price, nil
		}
	}

	return nil, fmt.Errorf("no valid price for %s", symbol)
}

// GetBatchQuotes fetches current prices for multiple tickers efficiently
func (c *NativeClient) GetBatchQuotes(tickers []string) (map[string]*float64, error) {
	if len(tickers) == 0 {
		return make(map[string]*float64), nil
	}

	symbols := make([]string, 0, len(tickers))
	for _, tickerSymbol := range tickers {
		symbols = append(symbols, normalizeTicker(tickerSymbol))
	}

	// Use multi.Download for batch operations
	params := models.DefaultDownloadParams()
	params.Symbols = symbols
	params.Period = "5d" // Get last 5 days to ensure we have recent data
	params.Interval = "1d"

	result, err := multi.Download(symbols, &params)
	if err != nil {
		return nil, fmt.Errorf("failed to download batch quotes: %w", err)
	}

	// Extract last close price per symbol
	quotes := make(map[string]*float64)
	for _, symbol := range symbols {
		if bars, ok := result.Data[symbol]; ok && len(bars) > 0 {
			lastBar := bars[len(bars)-1]
			price := lastBar.Close
			quotes[symbol] = &price
		} else if err, ok := result.Errors[symbol]; ok {
			c.log.Warn().Err(err).Str("ticker", symbol).Msg("Failed to get quote for ticker")
			// Continue with other tickers
		}
	}

	return quotes, nil
}

// GetPriceHistory fetches daily OHLCV bars for the given range
func (c *NativeClient) GetPriceHistory(tickerSymbol string, period string) ([]HistoricalPrice, error) {
	symbol := normalizeTicker(tickerSymbol)

	t, err := ticker.New(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticker: %w", err)
	}
	defer t.Close()

	params := models.HistoryParams{
		Period:     period,
		Interval:   "1d",
		AutoAdjust: true,
	}

	bars, err := t.History(params)
	if err != nil {
		return nil, fmt.Errorf("failed to get historical prices: %w", err)
	}

	// Convert []models.Bar to []HistoricalPrice
	prices := make([]HistoricalPrice, 0, len(bars))
	for _, bar := range bars {
		prices = append(prices, HistoricalPrice{
			Date:     bar.Date,
			Open:     bar.Open,
			High:     bar.High,
			Low:      bar.Low,
			Close:    bar.Close,
			Volume:   int64(bar.Volume),
			AdjClose: bar.AdjClose,
		})
	}

	return prices, nil
}

// GetFundamentals fetches dividend and valuation reference data via the
// direct HTTP client
func (c *NativeClient) GetFundamentals(tickerSymbol string) (*Fundamentals, error) {
	return c.direct.GetFundamentals(tickerSymbol)
}
