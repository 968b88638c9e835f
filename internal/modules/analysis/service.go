package analysis

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/modules/portfolio"
)

// Lookback ranges accepted by the analysis endpoints
var analysisRanges = map[string]bool{
	"1y":  true,
	"2y":  true,
	"5y":  true,
	"10y": true,
}

// RunContext is the portfolio snapshot one analysis run operates on.
// Shares aggregates positions across accounts, Tickers is sorted.
type RunContext struct {
	RangeSpec string
	Positions []portfolio.Position
	Tickers   []string
	Shares    map[string]float64
}

// Service orchestrates analysis runs: it assembles the run context from
// the holdings store, syncs price history, builds aligned return tables
// and drives the risk and performance engines.
type Service struct {
	positions    PositionSource
	quotes       QuoteSource
	history      HistorySource
	riskFreeRate float64
	defaultRange string
	log          zerolog.Logger
}

// NewService creates a new analysis service. riskFreeRate is the annual
// rate used for Sharpe ratios, defaultRange the lookback used when a
// request does not name one.
func NewService(
	positions PositionSource,
	quotes QuoteSource,
	history HistorySource,
	riskFreeRate float64,
	defaultRange string,
	log zerolog.Logger,
) *Service {
	return &Service{
		positions:    positions,
		quotes:       quotes,
		history:      history,
		riskFreeRate: riskFreeRate,
		defaultRange: defaultRange,
		log:          log.With().Str("module", "analysis").Logger(),
	}
}

// RunRisk executes one risk pass over the current holdings: covariance
// matrix, portfolio variance and volatility, per-asset volatility
// ranking. Holdings that cannot participate are excluded with a reason
// and the remaining weights renormalized.
func (s *Service) RunRisk(rangeSpec string) (*RiskAnalysis, error) {
	runCtx, err := s.buildContext(rangeSpec)
	if err != nil {
		return nil, err
	}
	runID := uuid.New().String()

	result := &RiskAnalysis{RunID: runID, Range: runCtx.RangeSpec, Excluded: []Excluded{}}
	if len(runCtx.Tickers) == 0 {
		result.Reason = "portfolio has no holdings"
		return result, nil
	}

	// Risk weights come from current market value, so tickers without a
	// live quote are excluded before the history pass
	prices := s.quotes.Prices(runCtx.Tickers)
	priced := make([]string, 0, len(runCtx.Tickers))
	for _, ticker := range runCtx.Tickers {
		if _, ok := prices[ticker]; ok {
			priced = append(priced, ticker)
		} else {
			result.Excluded = append(result.Excluded, Excluded{Ticker: ticker, Reason: "no current price"})
		}
	}
	if len(priced) == 0 {
		result.Reason = "no holdings with a current price"
		return result, nil
	}

	build, err := s.loadReturns(priced, runCtx.RangeSpec)
	if err != nil {
		return nil, err
	}
	result.Excluded = append(result.Excluded, build.Excluded...)

	survivors := build.Returns.Tickers()
	if len(survivors) == 0 {
		result.Reason = "no holdings with sufficient price history"
		return result, nil
	}

	weights, vector := survivorWeights(runCtx.Positions, prices, survivors)
	if vector == nil {
		result.Reason = "surviving holdings have no market value"
		return result, nil
	}

	metrics, err := ComputeRisk(build.Returns, vector)
	if err != nil {
		if errors.Is(err, ErrInsufficientReturns) {
			result.Reason = "insufficient aligned history"
			return result, nil
		}
		return nil, err
	}

	result.Metrics = metrics
	result.Weights = weights
	s.log.Info().
		Str("run_id", runID).
		Str("range", runCtx.RangeSpec).
		Int("assets", len(survivors)).
		Int("excluded", len(result.Excluded)).
		Float64("portfolio_volatility", metrics.PortfolioVolatility).
		Msg("Risk analysis complete")
	return result, nil
}

// RunPerformance executes one performance pass over the current
// holdings. Live quotes are not needed, the value series is rebuilt
// from mirrored closes and current share counts.
func (s *Service) RunPerformance(rangeSpec string) (*PerformanceAnalysis, error) {
	runCtx, err := s.buildContext(rangeSpec)
	if err != nil {
		return nil, err
	}
	runID := uuid.New().String()

	result := &PerformanceAnalysis{RunID: runID, Range: runCtx.RangeSpec, Excluded: []Excluded{}}
	if len(runCtx.Tickers) == 0 {
		result.Reason = "portfolio has no holdings"
		return result, nil
	}

	build, err := s.loadReturns(runCtx.Tickers, runCtx.RangeSpec)
	if err != nil {
		return nil, err
	}
	result.Excluded = append(result.Excluded, build.Excluded...)

	if len(build.Returns.Tickers()) == 0 {
		result.Reason = "no holdings with sufficient price history"
		return result, nil
	}

	result.Metrics = ComputePerformance(build.Prices, runCtx.Shares, build.Returns, s.riskFreeRate)
	s.log.Info().
		Str("run_id", runID).
		Str("range", runCtx.RangeSpec).
		Int("assets", len(build.Returns.Tickers())).
		Int("excluded", len(result.Excluded)).
		Msg("Performance analysis complete")
	return result, nil
}

// Tables builds the aligned price and return tables for the current
// holdings without running the engines. Chart endpoints reuse this to
// reconstruct value and growth series.
func (s *Service) Tables(rangeSpec string) (*RunContext, BuildResult, error) {
	runCtx, err := s.buildContext(rangeSpec)
	if err != nil {
		return nil, BuildResult{}, err
	}
	if len(runCtx.Tickers) == 0 {
		return runCtx, BuildResult{}, nil
	}
	build, err := s.loadReturns(runCtx.Tickers, runCtx.RangeSpec)
	if err != nil {
		return nil, BuildResult{}, err
	}
	return runCtx, build, nil
}

// buildContext resolves the lookback and snapshots the holdings into a
// run context.
func (s *Service) buildContext(rangeSpec string) (*RunContext, error) {
	resolved, err := s.resolveRange(rangeSpec)
	if err != nil {
		return nil, err
	}

	positions, err := s.positions.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load positions: %w", err)
	}

	shares := make(map[string]float64)
	for _, pos := range positions {
		shares[pos.Ticker] += pos.Shares
	}
	tickers := make([]string, 0, len(shares))
	for ticker := range shares {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	return &RunContext{
		RangeSpec: resolved,
		Positions: positions,
		Tickers:   tickers,
		Shares:    shares,
	}, nil
}

func (s *Service) resolveRange(rangeSpec string) (string, error) {
	rangeSpec = strings.ToLower(strings.TrimSpace(rangeSpec))
	if rangeSpec == "" {
		return s.defaultRange, nil
	}
	if !analysisRanges[rangeSpec] {
		return "", fmt.Errorf("%w: %q", ErrInvalidRange, rangeSpec)
	}
	return rangeSpec, nil
}

// loadReturns syncs the mirror for the given tickers and builds the
// aligned price and return tables. Sync failures are tolerated, the
// mirror may still hold usable rows for those tickers.
func (s *Service) loadReturns(tickers []string, rangeSpec string) (BuildResult, error) {
	failed, err := s.history.EnsureHistory(tickers, rangeSpec)
	if err != nil {
		return BuildResult{}, fmt.Errorf("history sync failed: %w", err)
	}
	if len(failed) > 0 {
		s.log.Warn().Strs("tickers", failed).Msg("Price history sync failed, relying on local mirror")
	}

	series, err := s.history.GetCloses(tickers, rangeSpec)
	if err != nil {
		return BuildResult{}, fmt.Errorf("failed to read price history: %w", err)
	}
	return BuildReturns(series), nil
}

// survivorWeights renormalizes current-value weights over the tickers
// that made it into the return table. The vector is ordered like the
// table columns; both are nil when the survivors have no market value.
func survivorWeights(positions []portfolio.Position, prices map[string]float64, survivors []string) (map[string]float64, []float64) {
	subset := make(map[string]float64, len(survivors))
	for _, ticker := range survivors {
		if price, ok := prices[ticker]; ok {
			subset[ticker] = price
		}
	}

	weights := portfolio.Weights(positions, subset)
	if weights == nil {
		return nil, nil
	}

	vector := make([]float64, len(survivors))
	for i, ticker := range survivors {
		vector[i] = weights[ticker]
	}
	return weights, vector
}
