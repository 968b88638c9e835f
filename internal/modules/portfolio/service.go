package portfolio

import (
	"fmt"

	"github.com/rs/zerolog"
)

// QuoteProvider is the price lookup the valuation needs. Tickers with no
// available price are absent from the returned map.
type QuoteProvider interface {
	Prices(tickers []string) map[string]float64
}

// PortfolioService wires the holdings store to current prices and runs
// the valuation engine over the result
type PortfolioService struct {
	repo   *PositionRepository
	quotes QuoteProvider
	log    zerolog.Logger
}

// NewPortfolioService creates a new portfolio service
func NewPortfolioService(repo *PositionRepository, quotes QuoteProvider, log zerolog.Logger) *PortfolioService {
	return &PortfolioService{
		repo:   repo,
		quotes: quotes,
		log:    log.With().Str("service", "portfolio").Logger(),
	}
}

// GetValuation values the full portfolio at current prices
func (s *PortfolioService) GetValuation() (*Valuation, error) {
	positions, err := s.repo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load positions: %w", err)
	}

	prices := s.quotes.Prices(tickersOf(positions))
	valuation := Valuate(positions, prices)

	if len(valuation.Unpriced) > 0 {
		s.log.Warn().
			Strs("tickers", valuation.Unpriced).
			Msg("Positions excluded from totals, no price available")
	}

	return &valuation, nil
}

// GetSummary returns portfolio totals only
func (s *PortfolioService) GetSummary() (*Summary, error) {
	valuation, err := s.GetValuation()
	if err != nil {
		return nil, err
	}
	return &valuation.Summary, nil
}

// tickersOf collects each position's ticker, in order, with duplicates
func tickersOf(positions []Position) []string {
	tickers := make([]string, 0, len(positions))
	for _, pos := range positions {
		tickers = append(tickers, pos.Ticker)
	}
	return tickers
}
