package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func points(pairs ...interface{}) []PricePoint {
	series := make([]PricePoint, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		series = append(series, PricePoint{Date: pairs[i].(string), Close: pairs[i+1].(float64)})
	}
	return series
}

func TestBuildReturnsAlignsUnionOfDates(t *testing.T) {
	result := BuildReturns(map[string][]PricePoint{
		"AAA": points("2024-01-02", 100.0, "2024-01-03", 102.0, "2024-01-04", 104.0),
		"BBB": points("2024-01-02", 50.0, "2024-01-04", 53.0),
	})

	require.Empty(t, result.Excluded)
	assert.Equal(t, []string{"2024-01-02", "2024-01-03", "2024-01-04"}, result.Prices.Dates)
	assert.Equal(t, []float64{100, 102, 104}, result.Prices.Columns["AAA"])
	// BBB's missing middle day takes the next observed close, not the
	// previous one
	assert.Equal(t, []float64{50, 53, 53}, result.Prices.Columns["BBB"])

	require.Equal(t, []string{"2024-01-03", "2024-01-04"}, result.Returns.Dates)
	require.Len(t, result.Returns.Columns["AAA"], 2)
	assert.InDelta(t, 0.02, result.Returns.Columns["AAA"][0], 1e-12)
	assert.InDelta(t, 0.06, result.Returns.Columns["BBB"][0], 1e-12)
	assert.InDelta(t, 0.0, result.Returns.Columns["BBB"][1], 1e-12)
}

func TestBuildReturnsDropsDatesAfterLastObservation(t *testing.T) {
	// BBB stops trading after Jan 3, so the later dates cannot be filled
	// and the rows are dropped for every ticker
	result := BuildReturns(map[string][]PricePoint{
		"AAA": points("2024-01-02", 100.0, "2024-01-03", 101.0, "2024-01-04", 102.0, "2024-01-05", 103.0),
		"BBB": points("2024-01-02", 40.0, "2024-01-03", 42.0),
	})

	require.Empty(t, result.Excluded)
	assert.Equal(t, []string{"2024-01-02", "2024-01-03"}, result.Prices.Dates)
	assert.Equal(t, []float64{100, 101}, result.Prices.Columns["AAA"])
	assert.Equal(t, []float64{40, 42}, result.Prices.Columns["BBB"])
	assert.Equal(t, []string{"2024-01-03"}, result.Returns.Dates)
}

func TestBuildReturnsBackfillsLateStarter(t *testing.T) {
	// BBB starts trading on Jan 4; its earlier cells take the first
	// observed close so no rows are lost
	result := BuildReturns(map[string][]PricePoint{
		"AAA": points("2024-01-02", 100.0, "2024-01-03", 101.0, "2024-01-04", 102.0),
		"BBB": points("2024-01-04", 60.0, "2024-01-05", 63.0),
	})

	require.Empty(t, result.Excluded)
	assert.Equal(t, []string{"2024-01-02", "2024-01-03", "2024-01-04"}, result.Prices.Dates)
	assert.Equal(t, []float64{60, 60, 60}, result.Prices.Columns["BBB"])
}

func TestBuildReturnsExcludesSparseSeries(t *testing.T) {
	result := BuildReturns(map[string][]PricePoint{
		"AAA": points("2024-01-02", 100.0, "2024-01-03", 102.0),
		"CCC": points("2024-01-02", 10.0),
		"DDD": nil,
	})

	assert.Equal(t, []string{"AAA"}, result.Returns.Tickers())
	require.Len(t, result.Excluded, 2)
	assert.Equal(t, Excluded{Ticker: "CCC", Reason: "insufficient price history"}, result.Excluded[0])
	assert.Equal(t, Excluded{Ticker: "DDD", Reason: "no price history"}, result.Excluded[1])
}

func TestBuildReturnsAllSeriesSparse(t *testing.T) {
	result := BuildReturns(map[string][]PricePoint{
		"CCC": points("2024-01-02", 10.0),
		"DDD": nil,
	})

	assert.Empty(t, result.Prices.Dates)
	assert.Empty(t, result.Returns.Tickers())
	assert.Len(t, result.Excluded, 2)
}

func TestBuildReturnsEmptyInput(t *testing.T) {
	result := BuildReturns(map[string][]PricePoint{})

	assert.Empty(t, result.Prices.Dates)
	assert.Empty(t, result.Returns.Columns)
	assert.Empty(t, result.Excluded)
}

func TestBuildReturnsRoundTrip(t *testing.T) {
	// Compounding the return series from the first aligned close must
	// reproduce the aligned price series
	result := BuildReturns(map[string][]PricePoint{
		"AAA": points("2024-01-02", 100.0, "2024-01-03", 103.5, "2024-01-04", 101.2, "2024-01-05", 108.9),
		"BBB": points("2024-01-02", 55.25, "2024-01-04", 54.1, "2024-01-05", 57.3),
	})

	require.Empty(t, result.Excluded)
	for _, ticker := range result.Prices.Tickers() {
		prices := result.Prices.Columns[ticker]
		returns := result.Returns.Columns[ticker]
		require.Len(t, returns, len(prices)-1)

		value := prices[0]
		for i, r := range returns {
			value *= 1 + r
			assert.InDelta(t, prices[i+1], value, 1e-9, "ticker %s index %d", ticker, i)
		}
	}
}

func TestReturnTableTickersSorted(t *testing.T) {
	table := ReturnTable{Columns: map[string][]float64{
		"ZZZ": {0.1},
		"AAA": {0.2},
		"MMM": {0.3},
	}}

	assert.Equal(t, []string{"AAA", "MMM", "ZZZ"}, table.Tickers())
}
