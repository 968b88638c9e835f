package history

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/clientdata"
	"github.com/aristath/folio/internal/clients/yahoo"
)

// cachedHistory is the payload stored in the price_history cache table
type cachedHistory struct {
	RangeSpec string       `msgpack:"range_spec"`
	Prices    []ClosePrice `msgpack:"prices"`
	FetchedAt int64        `msgpack:"fetched_at"`
}

// Service keeps the daily price mirror in sync with the provider.
// Provider failures never abort a sync run: stale cache entries and
// previously mirrored rows are served instead.
type Service struct {
	db     *HistoryDB
	client yahoo.ClientInterface
	cache  *clientdata.Repository
	maxAge time.Duration
	ttl    time.Duration
	log    zerolog.Logger
}

// NewService creates a history sync service
func NewService(db *HistoryDB, client yahoo.ClientInterface, cache *clientdata.Repository, maxAge, ttl time.Duration, log zerolog.Logger) *Service {
	return &Service{
		db:     db,
		client: client,
		cache:  cache,
		maxAge: maxAge,
		ttl:    ttl,
		log:    log.With().Str("service", "history").Logger(),
	}
}

// EnsureHistory makes sure every ticker has mirrored closes covering the
// requested range. Tickers that cannot be refreshed keep their existing
// mirror rows and are reported in the returned slice.
func (s *Service) EnsureHistory(tickers []string, rangeSpec string) ([]string, error) {
	if !ValidRange(rangeSpec) {
		return nil, fmt.Errorf("invalid range: %s", rangeSpec)
	}

	var failed []string
	for _, ticker := range tickers {
		ticker = strings.ToUpper(strings.TrimSpace(ticker))
		if ticker == "" {
			continue
		}

		if err := s.ensureTicker(ticker, rangeSpec); err != nil {
			s.log.Warn().
				Err(err).
				Str("ticker", ticker).
				Str("range", rangeSpec).
				Msg("Failed to refresh price history, keeping existing mirror")
			failed = append(failed, ticker)
		}
	}

	return failed, nil
}

// ensureTicker refreshes a single ticker's mirror if it is stale or does
// not cover the requested range
func (s *Service) ensureTicker(ticker, rangeSpec string) error {
	state, err := s.db.LastSync(ticker)
	if err != nil {
		return err
	}

	if state != nil && Covers(state.RangeSpec, rangeSpec) && time.Since(state.SyncedAt) < s.maxAge {
		s.log.Debug().
			Str("ticker", ticker).
			Str("synced_range", state.RangeSpec).
			Time("synced_at", state.SyncedAt).
			Msg("Mirror is fresh, skipping sync")
		return nil
	}

	// Cache hit avoids a provider round trip entirely
	if prices, ok := s.cachedPrices(ticker, rangeSpec, true); ok {
		return s.db.UpsertPrices(ticker, rangeSpec, prices)
	}

	bars, err := s.client.GetPriceHistory(ticker, rangeSpec)
	if err == nil && len(bars) > 0 {
		prices := barsToClosePrices(bars)
		s.storeCache(ticker, rangeSpec, prices)
		return s.db.UpsertPrices(ticker, rangeSpec, prices)
	}

	if err != nil {
		s.log.Warn().
			Err(err).
			Str("ticker", ticker).
			Msg("Provider fetch failed, trying stale cache")
	} else {
		s.log.Warn().
			Str("ticker", ticker).
			Msg("Provider returned no bars, trying stale cache")
	}

	// Stale cache beats nothing at all
	if prices, ok := s.cachedPrices(ticker, rangeSpec, false); ok {
		return s.db.UpsertPrices(ticker, rangeSpec, prices)
	}

	if state != nil {
		// Mirror still has rows from a previous sync; nothing to do
		s.log.Debug().
			Str("ticker", ticker).
			Msg("Serving previously mirrored rows")
		return nil
	}

	return fmt.Errorf("no price history available for %s", ticker)
}

// cachedPrices loads a cached history payload if it exists and covers the
// requested range. freshOnly skips entries past their TTL.
func (s *Service) cachedPrices(ticker, rangeSpec string, freshOnly bool) ([]ClosePrice, bool) {
	var data []byte
	var err error

	if freshOnly {
		data, err = s.cache.GetIfFresh(clientdata.TablePriceHistory, ticker)
	} else {
		data, err = s.cache.Get(clientdata.TablePriceHistory, ticker)
	}
	if err != nil || data == nil {
		return nil, false
	}

	var cached cachedHistory
	if err := clientdata.Decode(data, &cached); err != nil {
		s.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to decode cached history")
		return nil, false
	}

	if !Covers(cached.RangeSpec, rangeSpec) || len(cached.Prices) == 0 {
		return nil, false
	}

	return cached.Prices, true
}

// storeCache writes the fetched payload to the cache table. Cache write
// failures are logged but never fail the sync.
func (s *Service) storeCache(ticker, rangeSpec string, prices []ClosePrice) {
	payload := cachedHistory{
		RangeSpec: rangeSpec,
		Prices:    prices,
		FetchedAt: time.Now().Unix(),
	}
	if err := s.cache.Store(clientdata.TablePriceHistory, ticker, payload, s.ttl); err != nil {
		s.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to cache price history")
	}
}

// GetCloses returns mirrored close series for the requested tickers over
// the given range, keyed by ticker
func (s *Service) GetCloses(tickers []string, rangeSpec string) (map[string][]ClosePrice, error) {
	from := RangeStart(rangeSpec, time.Now())

	normalized := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t != "" {
			normalized = append(normalized, t)
		}
	}

	return s.db.GetSeriesMap(normalized, from, "")
}

// barsToClosePrices converts provider bars into mirror rows.
// Adjusted closes are preferred so splits do not distort return series.
func barsToClosePrices(bars []yahoo.HistoricalPrice) []ClosePrice {
	prices := make([]ClosePrice, 0, len(bars))
	for _, bar := range bars {
		close := bar.Close
		if bar.AdjClose > 0 {
			close = bar.AdjClose
		}
		if close <= 0 {
			continue
		}
		prices = append(prices, ClosePrice{
			Date:  bar.Date.Format("2006-01-02"),
			Close: close,
		})
	}
	return prices
}
