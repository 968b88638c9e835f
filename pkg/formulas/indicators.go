package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// SMA calculates the simple moving average series over closes. The output
// has the same length as the input; positions before the first full window
// carry no meaningful value and callers should only read from index
// period-1 onward. Returns nil when there are fewer closes than the period.
func SMA(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) < period {
		return nil
	}
	return talib.Sma(closes, period)
}

// EMA calculates the exponential moving average series over closes.
// Returns nil when there are fewer closes than the period.
func EMA(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) < period {
		return nil
	}
	return talib.Ema(closes, period)
}

// LatestSMA returns the current simple moving average value, or nil when
// there is not enough data for a full window.
func LatestSMA(closes []float64, period int) *float64 {
	sma := SMA(closes, period)
	if len(sma) == 0 {
		return nil
	}
	last := sma[len(sma)-1]
	if math.IsNaN(last) {
		return nil
	}
	return &last
}

// LatestEMA returns the current exponential moving average value, or nil
// when there is not enough data for a full window.
func LatestEMA(closes []float64, period int) *float64 {
	ema := EMA(closes, period)
	if len(ema) == 0 {
		return nil
	}
	last := ema[len(ema)-1]
	if math.IsNaN(last) {
		return nil
	}
	return &last
}
