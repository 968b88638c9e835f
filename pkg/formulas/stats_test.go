package formulas

import (
	"math"
	"testing"
)

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func TestMean(t *testing.T) {
	tests := []struct {
		name     string
		data     []float64
		expected float64
	}{
		{"empty", []float64{}, 0},
		{"single", []float64{5}, 5},
		{"simple", []float64{1, 2, 3}, 2},
		{"negative", []float64{-1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Mean(tt.data); !almostEqual(got, tt.expected, 1e-12) {
				t.Errorf("Mean() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestStdDev_SampleConvention(t *testing.T) {
	// [1,2,3,4]: sample variance = 5/3, std dev = sqrt(5/3)
	got := StdDev([]float64{1, 2, 3, 4})
	want := math.Sqrt(5.0 / 3.0)
	if !almostEqual(got, want, 1e-12) {
		t.Errorf("StdDev() = %v, want %v", got, want)
	}

	if got := StdDev(nil); got != 0 {
		t.Errorf("StdDev(nil) = %v, want 0", got)
	}
}

func TestVariance_SampleConvention(t *testing.T) {
	got := Variance([]float64{1, 2, 3, 4})
	want := 5.0 / 3.0
	if !almostEqual(got, want, 1e-12) {
		t.Errorf("Variance() = %v, want %v", got, want)
	}
}

func TestCovariance(t *testing.T) {
	x := []float64{1, 2, 3}
	y := []float64{2, 4, 6}

	// cov = sum((x-2)(y-4)) / 2 = 4/2 = 2
	if got := Covariance(x, y); !almostEqual(got, 2, 1e-12) {
		t.Errorf("Covariance() = %v, want 2", got)
	}

	// Mismatched lengths collapse to 0
	if got := Covariance(x, y[:2]); got != 0 {
		t.Errorf("Covariance() with mismatched lengths = %v, want 0", got)
	}
}

func TestCorrelation_PerfectlyLinear(t *testing.T) {
	x := []float64{1, 2, 3}
	y := []float64{2, 4, 6}

	if got := Correlation(x, y); !almostEqual(got, 1, 1e-12) {
		t.Errorf("Correlation() = %v, want 1", got)
	}
}

func TestAnnualizedVolatility(t *testing.T) {
	tests := []struct {
		name      string
		returns   []float64
		expected  float64
		tolerance float64
	}{
		{
			name:      "empty returns",
			returns:   []float64{},
			expected:  0,
			tolerance: 0,
		},
		{
			name:      "constant returns have zero volatility",
			returns:   []float64{0.01, 0.01, 0.01},
			expected:  0,
			tolerance: 1e-12,
		},
		{
			name:    "alternating returns",
			returns: []float64{0.01, -0.01, 0.01, -0.01},
			// std = sqrt(0.0004/3), annualized by sqrt(250)
			expected:  math.Sqrt(0.0004/3.0) * math.Sqrt(250),
			tolerance: 1e-12,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnnualizedVolatility(tt.returns)
			if !almostEqual(got, tt.expected, tt.tolerance) {
				t.Errorf("AnnualizedVolatility() = %v, want %v (±%v)", got, tt.expected, tt.tolerance)
			}
		})
	}
}

func TestCalculateReturns(t *testing.T) {
	prices := []float64{100, 110, 99}
	returns := CalculateReturns(prices)

	if len(returns) != 2 {
		t.Fatalf("CalculateReturns() returned %d elements, want 2", len(returns))
	}
	if !almostEqual(returns[0], 0.10, 1e-12) {
		t.Errorf("returns[0] = %v, want 0.10", returns[0])
	}
	if !almostEqual(returns[1], -0.10, 1e-12) {
		t.Errorf("returns[1] = %v, want -0.10", returns[1])
	}

	if got := CalculateReturns([]float64{100}); len(got) != 0 {
		t.Errorf("CalculateReturns() with one price = %v, want empty", got)
	}
}

func TestCumulativeReturnPct(t *testing.T) {
	if got := CumulativeReturnPct([]float64{100, 120, 150}); got == nil || !almostEqual(*got, 50, 1e-12) {
		t.Errorf("CumulativeReturnPct() = %v, want 50", got)
	}
	if got := CumulativeReturnPct([]float64{100, 90}); got == nil || !almostEqual(*got, -10, 1e-12) {
		t.Errorf("CumulativeReturnPct() = %v, want -10", got)
	}
	if got := CumulativeReturnPct([]float64{100}); got != nil {
		t.Errorf("CumulativeReturnPct() with one value = %v, want nil", *got)
	}
	if got := CumulativeReturnPct([]float64{0, 50}); got != nil {
		t.Errorf("CumulativeReturnPct() with zero start = %v, want nil", *got)
	}
}

func TestCumulativeGrowth_RoundTripsPrices(t *testing.T) {
	prices := []float64{100, 105, 94.5, 103.95}
	returns := CalculateReturns(prices)
	growth := CumulativeGrowth(returns)

	// Starting price times each growth factor reproduces the series
	for i, g := range growth {
		reconstructed := prices[0] * g
		if !almostEqual(reconstructed, prices[i+1], 1e-9) {
			t.Errorf("reconstructed[%d] = %v, want %v", i+1, reconstructed, prices[i+1])
		}
	}
}
