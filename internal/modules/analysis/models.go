// Package analysis implements the portfolio analytics pipeline: aligned
// return series construction, covariance-based risk metrics, and Sharpe
// and cumulative-return performance metrics.
package analysis

import "errors"

// Sentinel errors for the risk computation
var (
	// ErrDimensionMismatch means the weight vector and return table
	// disagree in column count. Fatal for the request.
	ErrDimensionMismatch = errors.New("weight vector does not match return table columns")

	// ErrInsufficientReturns means the aligned table has too few rows for
	// any statistic to be defined.
	ErrInsufficientReturns = errors.New("insufficient aligned returns")

	// ErrInvalidRange means the requested lookback is not one of the
	// supported analysis ranges.
	ErrInvalidRange = errors.New("invalid analysis range")
)

// PricePoint is one dated close. Dates are timezone-naive YYYY-MM-DD
// strings: a provider timestamp's own calendar date, offset stripped
// rather than converted.
type PricePoint struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

// PriceTable is a date-aligned table of closes, one column per ticker.
// After construction every cell is defined and every column has
// len(Dates) entries.
type PriceTable struct {
	Dates   []string
	Columns map[string][]float64
}

// ReturnTable holds simple period-over-period returns, aligned like the
// price table it came from minus the first row
type ReturnTable struct {
	Dates   []string
	Columns map[string][]float64
}

// Excluded records a ticker left out of an analysis pass and why
type Excluded struct {
	Ticker string `json:"ticker"`
	Reason string `json:"reason"`
}

// BuildResult carries the aligned tables plus the tickers that could not
// be aligned
type BuildResult struct {
	Prices   PriceTable
	Returns  ReturnTable
	Excluded []Excluded
}

// AssetVolatility is one entry of the per-asset risk ranking
type AssetVolatility struct {
	Ticker               string  `json:"ticker"`
	AnnualizedVolatility float64 `json:"annualized_volatility"`
}

// RiskMetrics is the risk engine output. Tickers gives the row/column
// order of the covariance matrix.
type RiskMetrics struct {
	Tickers             []string          `json:"tickers"`
	CovarianceMatrix    [][]float64       `json:"covariance_matrix"`
	PortfolioVariance   float64           `json:"portfolio_variance"`
	PortfolioVolatility float64           `json:"portfolio_volatility_annualized"`
	AssetVolatility     []AssetVolatility `json:"asset_volatility"`
}

// AssetSharpe is one per-asset Sharpe entry. Sharpe is nil when the
// ratio is undefined for that asset (zero volatility or too few returns).
type AssetSharpe struct {
	Ticker string   `json:"ticker"`
	Sharpe *float64 `json:"sharpe"`
}

// PerformanceMetrics is the performance engine output. Nil fields are
// undefined, never NaN.
type PerformanceMetrics struct {
	AssetSharpe         []AssetSharpe `json:"asset_sharpe"`
	PortfolioSharpe     *float64      `json:"portfolio_sharpe"`
	CumulativeReturnPct *float64      `json:"cumulative_return_pct"`
	Notes               []string      `json:"notes,omitempty"`
}

// RiskAnalysis is one risk run. Metrics is nil when the portfolio-level
// result is undefined; Reason says why.
type RiskAnalysis struct {
	RunID    string             `json:"run_id"`
	Range    string             `json:"range"`
	Metrics  *RiskMetrics       `json:"metrics"`
	Weights  map[string]float64 `json:"weights,omitempty"`
	Reason   string             `json:"reason,omitempty"`
	Excluded []Excluded         `json:"excluded"`
}

// PerformanceAnalysis is one performance run
type PerformanceAnalysis struct {
	RunID    string              `json:"run_id"`
	Range    string              `json:"range"`
	Metrics  *PerformanceMetrics `json:"metrics"`
	Reason   string              `json:"reason,omitempty"`
	Excluded []Excluded          `json:"excluded"`
}
