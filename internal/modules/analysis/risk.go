package analysis

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/folio/pkg/formulas"
)

// ComputeRisk calculates the covariance matrix, the portfolio variance
// and annualized volatility, and the per-asset volatility ranking.
//
// weights is a fractional weight vector indexed like returns.Tickers()
// (alphabetical column order). A length mismatch is fatal.
func ComputeRisk(returns ReturnTable, weights []float64) (*RiskMetrics, error) {
	tickers := returns.Tickers()

	if len(weights) != len(tickers) {
		return nil, fmt.Errorf("%w: %d weights, %d columns", ErrDimensionMismatch, len(weights), len(tickers))
	}
	if len(tickers) == 0 {
		return nil, ErrInsufficientReturns
	}
	if len(returns.Dates) < 2 {
		return nil, ErrInsufficientReturns
	}

	n := len(tickers)
	covMatrix := make([][]float64, n)
	for i := range covMatrix {
		covMatrix[i] = make([]float64, n)
	}

	// Sample covariance per pair (N-1 denominator); diagonal entries are
	// each column's variance
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			cov := stat.Covariance(returns.Columns[tickers[i]], returns.Columns[tickers[j]], nil)
			covMatrix[i][j] = cov
			if i != j {
				covMatrix[j][i] = cov // Symmetry
			}
		}
	}

	variance, err := quadraticForm(covMatrix, weights)
	if err != nil {
		return nil, err
	}

	assetVols := make([]AssetVolatility, 0, n)
	for _, ticker := range tickers {
		assetVols = append(assetVols, AssetVolatility{
			Ticker:               ticker,
			AnnualizedVolatility: formulas.AnnualizedVolatility(returns.Columns[ticker]),
		})
	}

	// Ranked by descending volatility, ties broken alphabetically
	sort.SliceStable(assetVols, func(i, j int) bool {
		if assetVols[i].AnnualizedVolatility != assetVols[j].AnnualizedVolatility {
			return assetVols[i].AnnualizedVolatility > assetVols[j].AnnualizedVolatility
		}
		return assetVols[i].Ticker < assetVols[j].Ticker
	})

	return &RiskMetrics{
		Tickers:             tickers,
		CovarianceMatrix:    covMatrix,
		PortfolioVariance:   variance,
		PortfolioVolatility: math.Sqrt(variance) * math.Sqrt(formulas.TradingDaysPerYear),
		AssetVolatility:     assetVols,
	}, nil
}

// quadraticForm computes w^T.Sigma.w and validates the result is usable
// as a variance
func quadraticForm(covMatrix [][]float64, weights []float64) (float64, error) {
	n := len(weights)

	sigma := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sigma.Set(i, j, covMatrix[i][j])
		}
	}
	w := mat.NewVecDense(n, weights)

	var sigmaW mat.VecDense
	sigmaW.MulVec(sigma, w)
	variance := mat.Dot(w, &sigmaW)

	if math.IsNaN(variance) {
		return 0, fmt.Errorf("portfolio variance is NaN, malformed covariance matrix")
	}
	if variance < 0 {
		// A valid covariance matrix cannot produce a negative quadratic
		// form beyond floating-point noise
		if variance > -1e-12 {
			return 0, nil
		}
		return 0, fmt.Errorf("negative portfolio variance %g, malformed covariance matrix", variance)
	}

	return variance, nil
}
