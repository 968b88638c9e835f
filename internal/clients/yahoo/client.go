// Package yahoo provides market data clients backed by the Yahoo Finance API.
package yahoo

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// defaultBaseURL is the public Yahoo Finance query host.
const defaultBaseURL = "https://query1.finance.yahoo.com"

// browserUserAgent mimics a desktop browser; Yahoo rejects the default Go agent.
const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

// quoteFields is the field list requested from the v7 quote API. The
// trailingAnnual* fields back-fill securities that report dividends only
// through the trailing metrics.
const quoteFields = "symbol,currentPrice,regularMarketPrice,dividendRate,dividendYield," +
	"payoutRatio,exDividendDate,trailingAnnualDividendRate,trailingAnnualDividendYield," +
	"trailingPE,marketCap"

const (
	maxRetries     = 3
	quoteBatchSize = 100 // Yahoo caps the v7 quote endpoint around 100 symbols
)

// Client is a direct HTTP client for the Yahoo Finance query API.
type Client struct {
	client  *http.Client
	baseURL string
	log     zerolog.Logger
}

// NewClient creates a new Yahoo Finance client.
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: defaultBaseURL,
		log:     log.With().Str("client", "yahoo").Logger(),
	}
}

// normalizeTicker uppercases and trims a ticker before it reaches the API
func normalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// backoff returns the wait before retry attempt n (1s, 2s, 4s, ...).
func backoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

// quoteResult is the subset of the v7 quote payload we consume. Pointer
// fields distinguish "not reported" from zero.
type quoteResult struct {
	Symbol                      string   `json:"symbol"`
	CurrentPrice                *float64 `json:"currentPrice"`
	RegularMarketPrice          *float64 `json:"regularMarketPrice"`
	DividendRate                *float64 `json:"dividendRate"`
	DividendYield               *float64 `json:"dividendYield"`
	PayoutRatio                 *float64 `json:"payoutRatio"`
	ExDividendDate              *int64   `json:"exDividendDate"`
	TrailingAnnualDividendRate  *float64 `json:"trailingAnnualDividendRate"`
	TrailingAnnualDividendYield *float64 `json:"trailingAnnualDividendYield"`
	TrailingPE                  *float64 `json:"trailingPE"`
	MarketCap                   *int64   `json:"marketCap"`
}

// price returns the first usable trade price. currentPrice wins over
// regularMarketPrice; zero and missing values are rejected.
func (q *quoteResult) price() *float64 {
	for _, p := range []*float64{q.CurrentPrice, q.RegularMarketPrice} {
		if p != nil && *p > 0 {
			return p
		}
	}
	return nil
}

// GetLatestPrice returns the current price for a ticker, retrying when the
// provider errors or reports no usable price.
func (c *Client) GetLatestPrice(ticker string) (*float64, error) {
	symbol := normalizeTicker(ticker)

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

		quote, err := c.fetchQuote(symbol)
		if err != nil {
			lastErr = err
			continue
		}
		if price := quote.price(); price != nil {
			return price, nil
		}
		lastErr = fmt.Errorf("no valid price for %s", symbol)
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}

// GetBatchQuotes fetches current prices for multiple tickers. Tickers
// without a valid price are absent from the result rather than failing
// the whole batch.
func (c *Client) GetBatchQuotes(tickers []string) (map[string]*float64, error) {
	result := make(map[string]*float64)
	if len(tickers) == 0 {
		return result, nil
	}

	symbols := make([]string, len(tickers))
	for i, t := range tickers {
		symbols[i] = normalizeTicker(t)
	}

	for start := 0; start < len(symbols); start += quoteBatchSize {
		end := start + quoteBatchSize
		if end > len(symbols) {
			end = len(symbols)
		}

		quotes, err := c.fetchQuotesRetry(symbols[start:end])
		if err != nil {
			// Partial results beat failing the whole refresh
			c.log.Warn().Err(err).Int("batch_size", end-start).Msg("Failed to fetch batch quotes")
			continue
		}

		for i := range quotes {
			if price := quotes[i].price(); price != nil {
				result[quotes[i].Symbol] = price
			} else {
				c.log.Debug().Str("ticker", quotes[i].Symbol).Msg("No valid price in batch response")
			}
		}
	}

	c.log.Info().
		Int("requested", len(tickers)).
		Int("fetched", len(result)).
		Msg("Batch quote fetch complete")

	return result, nil
}

// GetFundamentals fetches dividend and valuation reference data from the
// quote payload. Dividend rate and yield fall back to the trailing annual
// metrics when the forward-looking fields are not reported.
func (c *Client) GetFundamentals(ticker string) (*Fundamentals, error) {
	symbol := normalizeTicker(ticker)

	quote, err := c.fetchQuote(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote info: %w", err)
	}

	f := &Fundamentals{
		Ticker:         symbol,
		DividendRate:   quote.DividendRate,
		DividendYield:  quote.DividendYield,
		PayoutRatio:    quote.PayoutRatio,
		ExDividendDate: quote.ExDividendDate,
		TrailingPE:     quote.TrailingPE,
		MarketCap:      quote.MarketCap,
	}

	if f.DividendRate == nil {
		f.DividendRate = quote.TrailingAnnualDividendRate
	}
	if f.DividendYield == nil {
		f.DividendYield = quote.TrailingAnnualDividendYield
	}

	return f, nil
}

// GetPriceHistory fetches daily bars from the chart API.
//
// Supports ranges: 1d, 5d, 1mo, 3mo, 6mo, 1y, 2y, 5y, 10y, ytd, max
func (c *Client) GetPriceHistory(ticker string, period string) ([]HistoricalPrice, error) {
	symbol := normalizeTicker(ticker)

	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("range", period)

	var payload chartResponse
	if err := c.getJSON("/v8/finance/chart/"+url.PathEscape(symbol), params, &payload); err != nil {
		return nil, err
	}
	if apiErr := payload.Chart.Error; len(apiErr) > 0 && string(apiErr) != "null" {
		return nil, fmt.Errorf("chart API error: %s", apiErr)
	}
	if len(payload.Chart.Result) == 0 {
		c.log.Warn().Str("ticker", symbol).Msg("No historical data returned")
		return []HistoricalPrice{}, nil
	}

	prices := parseChartBars(payload.Chart.Result[0])

	c.log.Info().
		Str("ticker", symbol).
		Str("period", period).
		Int("count", len(prices)).
		Msg("Fetched historical prices")

	return prices, nil
}

// fetchQuote requests a single symbol and errors when it is unknown.
func (c *Client) fetchQuote(symbol string) (*quoteResult, error) {
	quotes, err := c.fetchQuotes([]string{symbol})
	if err != nil {
		return nil, err
	}
	if len(quotes) == 0 {
		return nil, fmt.Errorf("no quote data returned for symbol %s", symbol)
	}
	return &quotes[0], nil
}

// fetchQuotes requests the v7 quote endpoint for a group of symbols.
func (c *Client) fetchQuotes(symbols []string) ([]quoteResult, error) {
	params := url.Values{}
	params.Set("symbols", strings.Join(symbols, ","))
	params.Set("fields", quoteFields)

	var payload struct {
		QuoteResponse struct {
			Result []quoteResult   `json:"result"`
			Error  json.RawMessage `json:"error"`
		} `json:"quoteResponse"`
	}
	if err := c.getJSON("/v7/finance/quote", params, &payload); err != nil {
		return nil, err
	}
	if apiErr := payload.QuoteResponse.Error; len(apiErr) > 0 && string(apiErr) != "null" {
		return nil, fmt.Errorf("quote API error: %s", apiErr)
	}

	return payload.QuoteResponse.Result, nil
}

// fetchQuotesRetry retries transient batch failures; one bad batch should
// not sink a refresh cycle covering many symbols.
func (c *Client) fetchQuotesRetry(symbols []string) ([]quoteResult, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			wait := backoff(attempt - 1)
			c.log.Warn().
				Err(lastErr).
				Dur("wait", wait).
				Msg("Batch quote request failed, retrying")
			time.Sleep(wait)
		}

		quotes, err := c.fetchQuotes(symbols)
		if err == nil {
			return quotes, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}

// getJSON performs one GET against the query host and decodes the body.
func (c *Client) getJSON(path string, params url.Values, out interface{}) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequest(http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// truncate limits response bodies quoted in error messages.
func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// chartQuote holds the parallel OHLCV arrays of one chart result.
type chartQuote struct {
	Open   []float64 `json:"open"`
	High   []float64 `json:"high"`
	Low    []float64 `json:"low"`
	Close  []float64 `json:"close"`
	Volume []int64   `json:"volume"`
}

type chartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote    []chartQuote `json:"quote"`
		AdjClose []struct {
			AdjClose []float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

type chartResponse struct {
	Chart struct {
		Result []chartResult   `json:"result"`
		Error  json.RawMessage `json:"error"`
	} `json:"chart"`
}

// parseChartBars flattens one chart result into OHLCV bars. Bars where
// every price is zero are nulls in the source arrays and are dropped.
func parseChartBars(result chartResult) []HistoricalPrice {
	if len(result.Indicators.Quote) == 0 {
		return []HistoricalPrice{}
	}
	quote := result.Indicators.Quote[0]

	var adj []float64
	if len(result.Indicators.AdjClose) > 0 {
		adj = result.Indicators.AdjClose[0].AdjClose
	}

	prices := make([]HistoricalPrice, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) || i >= len(quote.Close) {
			break
		}
		if quote.Open[i] == 0 && quote.High[i] == 0 && quote.Low[i] == 0 && quote.Close[i] == 0 {
			continue
		}

		bar := HistoricalPrice{
			Date:     time.Unix(ts, 0),
			Open:     quote.Open[i],
			High:     quote.High[i],
			Low:      quote.Low[i],
			Close:    quote.Close[i],
			AdjClose: quote.Close[i],
		}
		if i < len(quote.Volume) {
			bar.Volume = quote.Volume[i]
		}
		if i < len(adj) && adj[i] != 0 {
			bar.AdjClose = adj[i]
		}
		prices = append(prices, bar)
	}

	return prices
}
