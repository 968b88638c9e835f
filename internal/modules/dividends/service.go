package dividends

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/clients/yahoo"
	"github.com/aristath/folio/internal/modules/portfolio"
)

// PositionSource provides read access to current holdings.
type PositionSource interface {
	GetAll() ([]portfolio.Position, error)
}

// FundamentalsSource provides per-ticker reference data. Lookups fail
// independently per ticker.
type FundamentalsSource interface {
	Fundamentals(ticker string) (*yahoo.Fundamentals, error)
}

// Service assembles the dividend report from holdings and fundamentals.
type Service struct {
	positions    PositionSource
	fundamentals FundamentalsSource
	log          zerolog.Logger
}

// NewService creates a new dividends service
func NewService(positions PositionSource, fundamentals FundamentalsSource, log zerolog.Logger) *Service {
	return &Service{
		positions:    positions,
		fundamentals: fundamentals,
		log:          log.With().Str("module", "dividends").Logger(),
	}
}

// GetReport fetches fundamentals for every held ticker and aggregates
// dividend income. A failed lookup drops that ticker from the report and
// the remaining holdings still aggregate.
func (s *Service) GetReport() (*Report, error) {
	positions, err := s.positions.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load positions: %w", err)
	}

	fundamentals := make(map[string]*yahoo.Fundamentals)
	for _, pos := range positions {
		if _, done := fundamentals[pos.Ticker]; done {
			continue
		}
		f, err := s.fundamentals.Fundamentals(pos.Ticker)
		if err != nil {
			s.log.Warn().Err(err).Str("ticker", pos.Ticker).Msg("Fundamentals unavailable, holding left out of dividend report")
			fundamentals[pos.Ticker] = nil
			continue
		}
		fundamentals[pos.Ticker] = f
	}

	report := Aggregate(positions, fundamentals)
	s.log.Debug().
		Int("holdings", report.Summary.Holdings).
		Int("payers", report.Summary.Payers).
		Float64("total_annual_income", report.Summary.TotalAnnualIncome).
		Msg("Dividend report built")
	return &report, nil
}
