package analysis

import (
	"fmt"

	"github.com/aristath/folio/pkg/formulas"
)

// ComputePerformance calculates per-asset and portfolio Sharpe ratios
// and the cumulative return of the aggregate portfolio value.
//
// Degenerate statistics (constant returns, zero starting value) come
// back as nil pointers with an explanatory note, never as NaN.
func ComputePerformance(prices PriceTable, shares map[string]float64, returns ReturnTable, riskFreeRate float64) *PerformanceMetrics {
	metrics := &PerformanceMetrics{}

	for _, ticker := range returns.Tickers() {
		sharpe := formulas.CalculateSharpeRatio(returns.Columns[ticker], riskFreeRate, formulas.TradingDaysPerYear)
		if sharpe == nil {
			metrics.Notes = append(metrics.Notes, fmt.Sprintf("%s sharpe undefined, constant or insufficient returns", ticker))
		}
		metrics.AssetSharpe = append(metrics.AssetSharpe, AssetSharpe{Ticker: ticker, Sharpe: sharpe})
	}

	values := PortfolioValueSeries(prices, shares)
	portfolioReturns := PortfolioReturns(values)

	if sharpe := formulas.CalculateSharpeRatio(portfolioReturns, riskFreeRate, formulas.TradingDaysPerYear); sharpe != nil {
		rounded := formulas.Round(*sharpe, 3)
		metrics.PortfolioSharpe = &rounded
	} else {
		metrics.Notes = append(metrics.Notes, "portfolio sharpe undefined, constant or insufficient returns")
	}

	if cum := formulas.CumulativeReturnPct(values); cum != nil {
		metrics.CumulativeReturnPct = cum
	} else {
		metrics.Notes = append(metrics.Notes, "cumulative return undefined, zero or missing starting value")
	}

	return metrics
}

// PortfolioValueSeries aggregates shares x close across every column of
// the price table, one value per aligned date.
func PortfolioValueSeries(prices PriceTable, shares map[string]float64) []float64 {
	values := make([]float64, len(prices.Dates))
	for ticker, closes := range prices.Columns {
		qty := shares[ticker]
		for i, close := range closes {
			values[i] += qty * close
		}
	}
	return values
}

// PortfolioReturns converts a value series into simple returns. The
// first entry is zero so the series stays aligned with the value dates.
func PortfolioReturns(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	returns := make([]float64, len(values))
	for i := 1; i < len(values); i++ {
		if values[i-1] != 0 {
			returns[i] = (values[i] - values[i-1]) / values[i-1]
		}
	}
	return returns
}
