package analysis

import (
	"github.com/aristath/folio/internal/modules/portfolio"
)

// PositionSource provides read access to current holdings.
// Defined here to avoid a hard dependency on the portfolio repository
// and to enable testing with mocks.
type PositionSource interface {
	GetAll() ([]portfolio.Position, error)
}

// QuoteSource provides current prices for weighting surviving assets.
// Tickers without a price are simply absent from the result.
type QuoteSource interface {
	Prices(tickers []string) map[string]float64
}

// HistorySource syncs and serves the local mirror of daily closes.
type HistorySource interface {
	EnsureHistory(tickers []string, rangeSpec string) ([]string, error)
	GetCloses(tickers []string, rangeSpec string) (map[string][]PricePoint, error)
}
