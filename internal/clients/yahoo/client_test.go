package yahoo

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient returns a Client pointed at a local test server
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	log := zerolog.New(nil).Level(zerolog.Disabled)
	client := NewClient(log)
	client.baseURL = server.URL
	client.client = server.Client()
	return client
}

func quoteResponse(results ...string) string {
	body := ""
	for i, r := range results {
		if i > 0 {
			body += ","
		}
		body += r
	}
	return `{"quoteResponse":{"result":[` + body + `],"error":null}}`
}

func TestNormalizeTicker(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"aapl", "AAPL"},
		{"  MSFT  ", "MSFT"},
		{"BRK-B", "BRK-B"},
		{"vusa.l", "VUSA.L"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, normalizeTicker(tt.input))
	}
}

func TestGetLatestPrice_UsesCurrentPrice(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, quoteResponse(`{"symbol":"AAPL","currentPrice":150.25,"regularMarketPrice":149.0}`))
	})

	price, err := client.GetLatestPrice("aapl")
	require.NoError(t, err)
	require.NotNil(t, price)
	assert.Equal(t, 150.25, *price)
}

func TestGetLatestPrice_FallsBackToRegularMarketPrice(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, quoteResponse(`{"symbol":"AAPL","regularMarketPrice":149.5}`))
	})

	price, err := client.GetLatestPrice("AAPL")
	require.NoError(t, err)
	require.NotNil(t, price)
	assert.Equal(t, 149.5, *price)
}

func TestFetchQuote_NoData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, quoteResponse())
	})

	_, err := client.fetchQuote("UNKNOWN")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no quote data")
}

func TestFetchQuote_RequestsExpectedFields(t *testing.T) {
	var capturedQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		capturedQuery = r.URL.RawQuery
		fmt.Fprint(w, quoteResponse(`{"symbol":"AAPL","regularMarketPrice":1.0}`))
	})

	_, err := client.fetchQuote("AAPL")
	require.NoError(t, err)
	assert.Contains(t, capturedQuery, "dividendRate")
	assert.Contains(t, capturedQuery, "exDividendDate")
	assert.Contains(t, capturedQuery, "payoutRatio")
}

func TestGetBatchQuotes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, quoteResponse(
			`{"symbol":"AAPL","currentPrice":150.0}`,
			`{"symbol":"MSFT","regularMarketPrice":380.0}`,
			`{"symbol":"DEAD","regularMarketPrice":0}`,
		))
	})

	quotes, err := client.GetBatchQuotes([]string{"aapl", "msft", "dead"})
	require.NoError(t, err)

	require.NotNil(t, quotes["AAPL"])
	assert.Equal(t, 150.0, *quotes["AAPL"])
	require.NotNil(t, quotes["MSFT"])
	assert.Equal(t, 380.0, *quotes["MSFT"])

	// Zero price must be dropped, not reported as zero
	_, ok := quotes["DEAD"]
	assert.False(t, ok, "ticker without a valid price should be absent")
}

func TestGetBatchQuotes_EmptyInput(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for empty input")
	})

	quotes, err := client.GetBatchQuotes(nil)
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestGetFundamentals_FieldMapping(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, quoteResponse(
			`{"symbol":"KO","dividendRate":1.84,"dividendYield":0.031,"payoutRatio":0.74,`+
				`"exDividendDate":1718323200,"trailingPE":24.5,"marketCap":260000000000}`,
		))
	})

	f, err := client.GetFundamentals("ko")
	require.NoError(t, err)

	assert.Equal(t, "KO", f.Ticker)
	require.NotNil(t, f.DividendRate)
	assert.Equal(t, 1.84, *f.DividendRate)
	require.NotNil(t, f.DividendYield)
	assert.Equal(t, 0.031, *f.DividendYield)
	require.NotNil(t, f.PayoutRatio)
	assert.Equal(t, 0.74, *f.PayoutRatio)
	require.NotNil(t, f.ExDividendDate)
	assert.Equal(t, int64(1718323200), *f.ExDividendDate)
	require.NotNil(t, f.TrailingPE)
	require.NotNil(t, f.MarketCap)
	assert.Equal(t, int64(260000000000), *f.MarketCap)
}

func TestGetFundamentals_TrailingFallback(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, quoteResponse(
			`{"symbol":"XYZ","trailingAnnualDividendRate":0.92,"trailingAnnualDividendYield":0.021}`,
		))
	})

	f, err := client.GetFundamentals("XYZ")
	require.NoError(t, err)

	require.NotNil(t, f.DividendRate)
	assert.Equal(t, 0.92, *f.DividendRate)
	require.NotNil(t, f.DividendYield)
	assert.Equal(t, 0.021, *f.DividendYield)
}

func TestGetFundamentals_NonPayer(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, quoteResponse(`{"symbol":"GROW","regularMarketPrice":42.0}`))
	})

	f, err := client.GetFundamentals("GROW")
	require.NoError(t, err)

	assert.Nil(t, f.DividendRate)
	assert.Nil(t, f.DividendYield)
	assert.Nil(t, f.PayoutRatio)
	assert.Nil(t, f.ExDividendDate)
}

func TestGetPriceHistory_ParsesChartResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[{
			"timestamp":[1704153600,1704240000,1704326400],
			"indicators":{
				"quote":[{
					"open":[100.0,0,102.0],
					"high":[101.0,0,103.0],
					"low":[99.0,0,101.0],
					"close":[100.5,0,102.5],
					"volume":[1000,0,1200]
				}],
				"adjclose":[{"adjclose":[100.5,0,102.5]}]
			}
		}],"error":null}}`)
	})

	prices, err := client.GetPriceHistory("AAPL", "5d")
	require.NoError(t, err)

	// The all-zero row is a null bar and must be skipped
	require.Len(t, prices, 2)
	assert.Equal(t, 100.5, prices[0].Close)
	assert.Equal(t, 102.5, prices[1].Close)
	assert.Equal(t, int64(1000), prices[0].Volume)
	assert.True(t, prices[0].Date.Before(prices[1].Date))
}

func TestGetPriceHistory_EmptyResult(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[],"error":null}}`)
	})

	prices, err := client.GetPriceHistory("UNKNOWN", "1y")
	require.NoError(t, err)
	assert.Empty(t, prices)
}

func TestClient_ImplementsClientInterface(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	var _ ClientInterface = NewClient(log)
}

func TestNewFromConfig(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)

	httpClient := NewFromConfig("http", log)
	_, ok := httpClient.(*Client)
	assert.True(t, ok, "http should select the direct client")

	nativeClient := NewFromConfig("native", log)
	_, ok = nativeClient.(*NativeClient)
	assert.True(t, ok, "native should select the go-yfinance client")

	fallback := NewFromConfig("", log)
	_, ok = fallback.(*Client)
	assert.True(t, ok, "unknown values should fall back to the direct client")
}
