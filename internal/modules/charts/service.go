// Package charts provides services for generating chart data from the
// holdings valuation and the mirrored price history.
package charts

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/modules/analysis"
	"github.com/aristath/folio/internal/modules/history"
	"github.com/aristath/folio/internal/modules/portfolio"
	"github.com/aristath/folio/pkg/formulas"
)

// Sentinel errors mapped to 400 by the HTTP layer
var (
	ErrInvalidRange  = errors.New("invalid chart range")
	ErrInvalidTicker = errors.New("ticker cannot be empty")
)

// ChartDataPoint represents a single point on a chart
type ChartDataPoint struct {
	Time  string  `json:"time"` // YYYY-MM-DD format
	Value float64 `json:"value"`
}

// CompositionSlice is one pie slice of the portfolio composition
type CompositionSlice struct {
	Ticker    string  `json:"ticker"`
	Value     float64 `json:"value"`
	WeightPct float64 `json:"weight_pct"`
}

// PriceChart is a close series with optional moving-average overlays.
// Overlays are omitted when the series is shorter than their period.
type PriceChart struct {
	Ticker string           `json:"ticker"`
	Range  string           `json:"range"`
	Points []ChartDataPoint `json:"points"`
	SMA    []ChartDataPoint `json:"sma,omitempty"`
	EMA    []ChartDataPoint `json:"ema,omitempty"`
}

// CumulativeReturnsChart carries per-ticker and portfolio growth curves,
// each as percent gained since the start of its series.
type CumulativeReturnsChart struct {
	Range     string                      `json:"range"`
	Series    map[string][]ChartDataPoint `json:"series"`
	Portfolio []ChartDataPoint            `json:"portfolio"`
}

// ValuationSource provides the current portfolio valuation.
type ValuationSource interface {
	GetValuation() (*portfolio.Valuation, error)
}

// TableSource builds the aligned price and return tables for the
// current holdings.
type TableSource interface {
	Tables(rangeSpec string) (*analysis.RunContext, analysis.BuildResult, error)
}

// HistorySource syncs and serves single-ticker close series.
type HistorySource interface {
	EnsureHistory(tickers []string, rangeSpec string) ([]string, error)
	GetCloses(tickers []string, rangeSpec string) (map[string][]analysis.PricePoint, error)
}

// Service provides chart data operations
type Service struct {
	valuation    ValuationSource
	tables       TableSource
	history      HistorySource
	defaultRange string
	log          zerolog.Logger
}

// NewService creates a new charts service
func NewService(
	valuation ValuationSource,
	tables TableSource,
	historySource HistorySource,
	defaultRange string,
	log zerolog.Logger,
) *Service {
	return &Service{
		valuation:    valuation,
		tables:       tables,
		history:      historySource,
		defaultRange: defaultRange,
		log:          log.With().Str("service", "charts").Logger(),
	}
}

// GetComposition returns the current portfolio composition by market
// value, one slice per ticker aggregated across accounts. Unpriced
// holdings carry no slice.
func (s *Service) GetComposition() ([]CompositionSlice, error) {
	valuation, err := s.valuation.GetValuation()
	if err != nil {
		return nil, fmt.Errorf("failed to get valuation: %w", err)
	}

	byTicker := make(map[string]*CompositionSlice)
	for _, pos := range valuation.Positions {
		if pos.MarketValue == nil {
			continue
		}
		slice, ok := byTicker[pos.Ticker]
		if !ok {
			slice = &CompositionSlice{Ticker: pos.Ticker}
			byTicker[pos.Ticker] = slice
		}
		slice.Value += *pos.MarketValue
		if pos.WeightPct != nil {
			slice.WeightPct += *pos.WeightPct
		}
	}

	slices := make([]CompositionSlice, 0, len(byTicker))
	for _, slice := range byTicker {
		slices = append(slices, *slice)
	}
	sort.SliceStable(slices, func(i, j int) bool {
		if slices[i].Value != slices[j].Value {
			return slices[i].Value > slices[j].Value
		}
		return slices[i].Ticker < slices[j].Ticker
	})

	return slices, nil
}

// GetPortfolioValue reconstructs the aggregate portfolio value over the
// aligned history, one point per aligned date.
func (s *Service) GetPortfolioValue(rangeSpec string) ([]ChartDataPoint, error) {
	runCtx, build, err := s.tables.Tables(rangeSpec)
	if err != nil {
		return nil, err
	}

	values := analysis.PortfolioValueSeries(build.Prices, runCtx.Shares)
	points := make([]ChartDataPoint, len(values))
	for i, value := range values {
		points[i] = ChartDataPoint{Time: build.Prices.Dates[i], Value: value}
	}
	return points, nil
}

// GetCumulativeReturns builds percent-growth curves for each holding and
// for the aggregate portfolio over the aligned history.
func (s *Service) GetCumulativeReturns(rangeSpec string) (*CumulativeReturnsChart, error) {
	runCtx, build, err := s.tables.Tables(rangeSpec)
	if err != nil {
		return nil, err
	}

	chart := &CumulativeReturnsChart{
		Range:     runCtx.RangeSpec,
		Series:    make(map[string][]ChartDataPoint, len(build.Returns.Columns)),
		Portfolio: []ChartDataPoint{},
	}

	for ticker, returns := range build.Returns.Columns {
		growth := formulas.CumulativeGrowth(returns)
		points := make([]ChartDataPoint, len(growth))
		for i, g := range growth {
			points[i] = ChartDataPoint{Time: build.Returns.Dates[i], Value: g*100 - 100}
		}
		chart.Series[ticker] = points
	}

	values := analysis.PortfolioValueSeries(build.Prices, runCtx.Shares)
	growth := formulas.CumulativeGrowth(analysis.PortfolioReturns(values))
	for i, g := range growth {
		chart.Portfolio = append(chart.Portfolio, ChartDataPoint{Time: build.Prices.Dates[i], Value: g*100 - 100})
	}

	return chart, nil
}

// GetPriceChart returns the mirrored close series for one ticker with
// optional SMA and EMA overlays. An overlay period of zero means no
// overlay; an overlay longer than the series is dropped rather than
// padded.
func (s *Service) GetPriceChart(ticker, rangeSpec string, smaPeriod, emaPeriod int) (*PriceChart, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, ErrInvalidTicker
	}

	if rangeSpec == "" {
		rangeSpec = s.defaultRange
	}
	if !history.ValidRange(rangeSpec) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRange, rangeSpec)
	}

	if failed, err := s.history.EnsureHistory([]string{ticker}, rangeSpec); err != nil {
		return nil, err
	} else if len(failed) > 0 {
		s.log.Warn().Str("ticker", ticker).Msg("Price history sync failed, charting mirror data")
	}

	series, err := s.history.GetCloses([]string{ticker}, rangeSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to get prices: %w", err)
	}

	points := series[ticker]
	chart := &PriceChart{
		Ticker: ticker,
		Range:  rangeSpec,
		Points: make([]ChartDataPoint, len(points)),
	}
	closes := make([]float64, len(points))
	for i, p := range points {
		chart.Points[i] = ChartDataPoint{Time: p.Date, Value: p.Close}
		closes[i] = p.Close
	}

	if smaPeriod > 0 {
		chart.SMA = overlayPoints(points, formulas.SMA(closes, smaPeriod), smaPeriod)
	}
	if emaPeriod > 0 {
		chart.EMA = overlayPoints(points, formulas.EMA(closes, emaPeriod), emaPeriod)
	}

	return chart, nil
}

// overlayPoints trims an indicator series to the dates where a full
// window exists
func overlayPoints(points []analysis.PricePoint, values []float64, period int) []ChartDataPoint {
	if values == nil {
		return nil
	}
	overlay := make([]ChartDataPoint, 0, len(values)-period+1)
	for i := period - 1; i < len(values); i++ {
		overlay = append(overlay, ChartDataPoint{Time: points[i].Date, Value: values[i]})
	}
	return overlay
}
