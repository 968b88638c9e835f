package history

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/folio/internal/clientdata"
	"github.com/aristath/folio/internal/clients/yahoo"
)

// mockClient implements yahoo.ClientInterface with canned history data
type mockClient struct {
	history   map[string][]yahoo.HistoricalPrice
	histErr   error
	histCalls int
}

func (m *mockClient) GetLatestPrice(ticker string) (*float64, error) {
	return nil, errors.New("not implemented")
}

func (m *mockClient) GetBatchQuotes(tickers []string) (map[string]*float64, error) {
	return nil, errors.New("not implemented")
}

func (m *mockClient) GetPriceHistory(ticker, period string) ([]yahoo.HistoricalPrice, error) {
	m.histCalls++
	if m.histErr != nil {
		return nil, m.histErr
	}
	return m.history[ticker], nil
}

func (m *mockClient) GetFundamentals(ticker string) (*yahoo.Fundamentals, error) {
	return nil, errors.New("not implemented")
}

func setupService(t *testing.T, client *mockClient, maxAge time.Duration) (*Service, *HistoryDB, *clientdata.Repository) {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "history.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cacheDB, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { cacheDB.Close() })
	require.NoError(t, clientdata.InitSchema(cacheDB))
	cache := clientdata.NewRepository(cacheDB)

	svc := NewService(db, client, cache, maxAge, time.Hour, zerolog.Nop())
	return svc, db, cache
}

func testBars(closes ...float64) []yahoo.HistoricalPrice {
	bars := make([]yahoo.HistoricalPrice, len(closes))
	for i, c := range closes {
		bars[i] = yahoo.HistoricalPrice{
			Date:     time.Date(2024, time.January, i+1, 0, 0, 0, 0, time.UTC),
			Close:    c,
			AdjClose: c,
		}
	}
	return bars
}

func TestEnsureHistoryFetchesAndMirrors(t *testing.T) {
	client := &mockClient{history: map[string][]yahoo.HistoricalPrice{
		"AAPL": testBars(100.0, 101.0, 102.0),
	}}
	svc, db, cache := setupService(t, client, time.Hour)

	failed, err := svc.EnsureHistory([]string{"AAPL"}, "1mo")
	require.NoError(t, err)
	assert.Empty(t, failed)
	assert.Equal(t, 1, client.histCalls)

	series, err := db.GetSeries("AAPL", "", "")
	require.NoError(t, err)
	require.Len(t, series, 3)
	assert.Equal(t, "2024-01-01", series[0].Date)
	assert.Equal(t, 100.0, series[0].Close)

	state, err := db.LastSync("AAPL")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, "1mo", state.RangeSpec)

	data, err := cache.GetIfFresh(clientdata.TablePriceHistory, "AAPL")
	require.NoError(t, err)
	assert.NotNil(t, data)
}

func TestEnsureHistorySkipsFreshMirror(t *testing.T) {
	client := &mockClient{history: map[string][]yahoo.HistoricalPrice{
		"AAPL": testBars(100.0, 101.0),
	}}
	svc, _, _ := setupService(t, client, time.Hour)

	_, err := svc.EnsureHistory([]string{"AAPL"}, "1mo")
	require.NoError(t, err)
	_, err = svc.EnsureHistory([]string{"AAPL"}, "1mo")
	require.NoError(t, err)

	// Second call should be served by the fresh sync state
	assert.Equal(t, 1, client.histCalls)
}

func TestEnsureHistoryWiderRangeTriggersRefetch(t *testing.T) {
	client := &mockClient{history: map[string][]yahoo.HistoricalPrice{
		"AAPL": testBars(100.0, 101.0),
	}}
	svc, _, _ := setupService(t, client, time.Hour)

	_, err := svc.EnsureHistory([]string{"AAPL"}, "1mo")
	require.NoError(t, err)
	_, err = svc.EnsureHistory([]string{"AAPL"}, "1y")
	require.NoError(t, err)

	// 1mo sync does not cover a 1y request
	assert.Equal(t, 2, client.histCalls)
}

func TestEnsureHistoryNarrowerRangeServedByWiderSync(t *testing.T) {
	client := &mockClient{history: map[string][]yahoo.HistoricalPrice{
		"AAPL": testBars(100.0, 101.0),
	}}
	svc, _, _ := setupService(t, client, time.Hour)

	_, err := svc.EnsureHistory([]string{"AAPL"}, "1y")
	require.NoError(t, err)
	_, err = svc.EnsureHistory([]string{"AAPL"}, "1mo")
	require.NoError(t, err)

	assert.Equal(t, 1, client.histCalls)
}

func TestEnsureHistoryProviderFailureFallsBackToStaleCache(t *testing.T) {
	client := &mockClient{histErr: errors.New("rate limited")}
	svc, db, cache := setupService(t, client, time.Hour)

	// Seed an expired cache entry
	payload := cachedHistory{
		RangeSpec: "1y",
		Prices:    []ClosePrice{{Date: "2024-01-01", Close: 99.0}},
		FetchedAt: time.Now().Add(-48 * time.Hour).Unix(),
	}
	require.NoError(t, cache.Store(clientdata.TablePriceHistory, "AAPL", payload, -time.Hour))

	failed, err := svc.EnsureHistory([]string{"AAPL"}, "1mo")
	require.NoError(t, err)
	assert.Empty(t, failed)

	series, err := db.GetSeries("AAPL", "", "")
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, 99.0, series[0].Close)
}

func TestEnsureHistoryProviderFailureKeepsExistingMirror(t *testing.T) {
	client := &mockClient{histErr: errors.New("provider down")}
	svc, db, _ := setupService(t, client, 0) // maxAge 0 forces staleness

	require.NoError(t, db.UpsertPrices("AAPL", "1y", []ClosePrice{
		{Date: "2024-01-01", Close: 100.0},
	}))

	failed, err := svc.EnsureHistory([]string{"AAPL"}, "1mo")
	require.NoError(t, err)
	assert.Empty(t, failed)

	series, err := db.GetSeries("AAPL", "", "")
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, 100.0, series[0].Close)
}

func TestEnsureHistoryNoDataAnywhere(t *testing.T) {
	client := &mockClient{histErr: errors.New("provider down")}
	svc, _, _ := setupService(t, client, time.Hour)

	failed, err := svc.EnsureHistory([]string{"AAPL", "MSFT"}, "1mo")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"AAPL", "MSFT"}, failed)
}

func TestEnsureHistoryInvalidRange(t *testing.T) {
	svc, _, _ := setupService(t, &mockClient{}, time.Hour)

	_, err := svc.EnsureHistory([]string{"AAPL"}, "7w")
	assert.Error(t, err)
}

func TestEnsureHistoryNormalizesTickers(t *testing.T) {
	client := &mockClient{history: map[string][]yahoo.HistoricalPrice{
		"AAPL": testBars(100.0, 101.0),
	}}
	svc, db, _ := setupService(t, client, time.Hour)

	failed, err := svc.EnsureHistory([]string{"  aapl ", ""}, "1mo")
	require.NoError(t, err)
	assert.Empty(t, failed)

	series, err := db.GetSeries("AAPL", "", "")
	require.NoError(t, err)
	assert.Len(t, series, 2)
}

func TestBarsToClosePrices(t *testing.T) {
	bars := []yahoo.HistoricalPrice{
		{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Close: 100.0, AdjClose: 98.5},
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: 101.0, AdjClose: 0},
		{Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Close: 0, AdjClose: 0},
	}

	prices := barsToClosePrices(bars)
	require.Len(t, prices, 2)

	// Adjusted close preferred when positive
	assert.Equal(t, 98.5, prices[0].Close)
	// Raw close used when adjusted is missing
	assert.Equal(t, 101.0, prices[1].Close)
}

func TestGetCloses(t *testing.T) {
	client := &mockClient{}
	svc, db, _ := setupService(t, client, time.Hour)

	today := time.Now().Format("2006-01-02")
	require.NoError(t, db.UpsertPrices("AAPL", "1y", []ClosePrice{
		{Date: today, Close: 100.0},
		{Date: "2000-01-01", Close: 10.0}, // Outside any recent range
	}))

	got, err := svc.GetCloses([]string{" aapl "}, "1mo")
	require.NoError(t, err)
	require.Len(t, got["AAPL"], 1)
	assert.Equal(t, today, got["AAPL"][0].Date)
}
