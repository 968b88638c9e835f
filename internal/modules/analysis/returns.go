package analysis

import (
	"math"
	"sort"

	"github.com/aristath/folio/pkg/formulas"
)

// BuildReturns aligns per-ticker price series into a shared date index
// and derives the return table.
//
// Alignment takes the union of all observed dates. Missing cells are
// filled backward: a later observed price propagates to earlier missing
// days, the nearest subsequent trade standing in for a stale gap. Cells
// with no later observation stay missing, and any date where some column
// is still missing is dropped, so the output is rectangular.
//
// Tickers with fewer than two observed prices cannot produce a return
// series; they are excluded up front rather than contributing a
// backfilled constant column that would fake zero variance.
func BuildReturns(series map[string][]PricePoint) BuildResult {
	var excluded []Excluded
	valid := make(map[string][]PricePoint, len(series))

	for ticker, points := range series {
		switch {
		case len(points) == 0:
			excluded = append(excluded, Excluded{Ticker: ticker, Reason: "no price history"})
		case len(points) < 2:
			excluded = append(excluded, Excluded{Ticker: ticker, Reason: "insufficient price history"})
		default:
			valid[ticker] = points
		}
	}

	sort.Slice(excluded, func(i, j int) bool { return excluded[i].Ticker < excluded[j].Ticker })

	if len(valid) == 0 {
		return BuildResult{Excluded: excluded}
	}

	prices := alignPrices(valid)

	returns := ReturnTable{Columns: make(map[string][]float64, len(prices.Columns))}
	if len(prices.Dates) >= 2 {
		returns.Dates = prices.Dates[1:]
		for ticker, column := range prices.Columns {
			returns.Columns[ticker] = formulas.CalculateReturns(column)
		}
	}

	return BuildResult{
		Prices:   prices,
		Returns:  returns,
		Excluded: excluded,
	}
}

// alignPrices builds the union-date table, backfills, and drops dates
// that remain missing in any column
func alignPrices(series map[string][]PricePoint) PriceTable {
	dateSet := make(map[string]bool)
	for _, points := range series {
		for _, p := range points {
			dateSet[p.Date] = true
		}
	}

	dates := make([]string, 0, len(dateSet))
	for date := range dateSet {
		dates = append(dates, date)
	}
	sort.Strings(dates) // Lexical order matches chronological for YYYY-MM-DD

	columns := make(map[string][]float64, len(series))
	for ticker, points := range series {
		byDate := make(map[string]float64, len(points))
		for _, p := range points {
			byDate[p.Date] = p.Close
		}

		column := make([]float64, len(dates))
		for i, date := range dates {
			if close, ok := byDate[date]; ok {
				column[i] = close
			} else {
				column[i] = math.NaN()
			}
		}

		// Backward fill: later observations propagate to earlier gaps
		for i := len(column) - 2; i >= 0; i-- {
			if math.IsNaN(column[i]) && !math.IsNaN(column[i+1]) {
				column[i] = column[i+1]
			}
		}

		columns[ticker] = column
	}

	// Drop dates where any column is still missing (no later observation
	// existed to fill from)
	keep := make([]int, 0, len(dates))
	for i := range dates {
		complete := true
		for _, column := range columns {
			if math.IsNaN(column[i]) {
				complete = false
				break
			}
		}
		if complete {
			keep = append(keep, i)
		}
	}

	if len(keep) == len(dates) {
		return PriceTable{Dates: dates, Columns: columns}
	}

	kept := PriceTable{
		Dates:   make([]string, len(keep)),
		Columns: make(map[string][]float64, len(columns)),
	}
	for ticker := range columns {
		kept.Columns[ticker] = make([]float64, len(keep))
	}
	for out, in := range keep {
		kept.Dates[out] = dates[in]
		for ticker, column := range columns {
			kept.Columns[ticker][out] = column[in]
		}
	}
	return kept
}

// Tickers returns the table's column names, sorted
func (t ReturnTable) Tickers() []string {
	tickers := make([]string, 0, len(t.Columns))
	for ticker := range t.Columns {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)
	return tickers
}

// Tickers returns the table's column names, sorted
func (t PriceTable) Tickers() []string {
	tickers := make([]string, 0, len(t.Columns))
	for ticker := range t.Columns {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)
	return tickers
}
