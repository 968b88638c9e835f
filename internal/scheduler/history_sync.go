package scheduler

import (
	"github.com/rs/zerolog"
)

// HistorySyncer pulls provider history into the local mirror.
type HistorySyncer interface {
	EnsureHistory(tickers []string, rangeSpec string) ([]string, error)
}

// HistorySyncJob keeps the daily close mirror current for every held
// ticker. Tickers that fail stay on the previous mirror state and are
// retried on the next run.
type HistorySyncJob struct {
	tickers   TickerSource
	history   HistorySyncer
	rangeSpec string
	log       zerolog.Logger
}

// NewHistorySyncJob creates a new history sync job. rangeSpec is the
// lookback window to keep mirrored.
func NewHistorySyncJob(tickers TickerSource, history HistorySyncer, rangeSpec string, log zerolog.Logger) *HistorySyncJob {
	return &HistorySyncJob{
		tickers:   tickers,
		history:   history,
		rangeSpec: rangeSpec,
		log:       log.With().Str("job", "history_sync").Logger(),
	}
}

// Name returns the job name
func (j *HistorySyncJob) Name() string {
	return "history_sync"
}

// Run syncs price history for all held tickers
func (j *HistorySyncJob) Run() error {
	tickers, err := j.tickers.Tickers()
	if err != nil {
		return err
	}
	if len(tickers) == 0 {
		j.log.Debug().Msg("No holdings, nothing to sync")
		return nil
	}

	failed, err := j.history.EnsureHistory(tickers, j.rangeSpec)
	if err != nil {
		return err
	}
	if len(failed) > 0 {
		j.log.Warn().
			Strs("tickers", failed).
			Msg("Some tickers could not be synced")
	}

	j.log.Info().
		Int("tickers", len(tickers)).
		Int("failed", len(failed)).
		Str("range", j.rangeSpec).
		Msg("History sync completed")
	return nil
}
