package scheduler

import (
	"github.com/rs/zerolog"
)

// TickerSource lists the tickers currently held.
type TickerSource interface {
	Tickers() ([]string, error)
}

// QuoteWarmer refreshes the quote cache for a set of tickers.
type QuoteWarmer interface {
	WarmQuotes(tickers []string) (int, error)
}

// QuoteRefreshJob keeps the quote cache fresh for every held ticker so
// valuation requests rarely wait on the provider.
type QuoteRefreshJob struct {
	tickers TickerSource
	quotes  QuoteWarmer
	log     zerolog.Logger
}

// NewQuoteRefreshJob creates a new quote refresh job
func NewQuoteRefreshJob(tickers TickerSource, quotes QuoteWarmer, log zerolog.Logger) *QuoteRefreshJob {
	return &QuoteRefreshJob{
		tickers: tickers,
		quotes:  quotes,
		log:     log.With().Str("job", "quote_refresh").Logger(),
	}
}

// Name returns the job name
func (j *QuoteRefreshJob) Name() string {
	return "quote_refresh"
}

// Run refreshes quotes for all held tickers
func (j *QuoteRefreshJob) Run() error {
	tickers, err := j.tickers.Tickers()
	if err != nil {
		return err
	}
	if len(tickers) == 0 {
		j.log.Debug().Msg("No holdings, nothing to refresh")
		return nil
	}

	stored, err := j.quotes.WarmQuotes(tickers)
	if err != nil {
		return err
	}

	j.log.Info().
		Int("tickers", len(tickers)).
		Int("stored", stored).
		Msg("Quote refresh completed")
	return nil
}
