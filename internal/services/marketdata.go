package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/clientdata"
	"github.com/aristath/folio/internal/clients/yahoo"
)

// cachedQuote is the payload stored in the quotes cache table
type cachedQuote struct {
	Price     float64 `msgpack:"price"`
	FetchedAt int64   `msgpack:"fetched_at"`
}

// MarketDataService serves current prices and fundamentals with a tiered
// read path:
// 1. Fresh cache entry
// 2. Provider fetch (refreshes the cache on success)
// 3. Stale cache entry (provider failed)
// A ticker with no tier available is simply absent from the result; callers
// treat absence as missing data and keep going.
type MarketDataService struct {
	client          yahoo.ClientInterface
	cache           *clientdata.Repository
	quoteTTL        time.Duration
	fundamentalsTTL time.Duration
	log             zerolog.Logger
}

// NewMarketDataService creates a new market data service
func NewMarketDataService(
	client yahoo.ClientInterface,
	cache *clientdata.Repository,
	quoteTTL, fundamentalsTTL time.Duration,
	log zerolog.Logger,
) *MarketDataService {
	return &MarketDataService{
		client:          client,
		cache:           cache,
		quoteTTL:        quoteTTL,
		fundamentalsTTL: fundamentalsTTL,
		log:             log.With().Str("service", "market_data").Logger(),
	}
}

// Prices returns the best-known current price per ticker. Tickers that
// cannot be priced from any tier are absent from the map.
func (s *MarketDataService) Prices(tickers []string) map[string]float64 {
	prices := make(map[string]float64, len(tickers))

	var misses []string
	for _, ticker := range normalizeTickers(tickers) {
		if price, ok := s.quoteFromCache(ticker, true); ok {
			prices[ticker] = price
			continue
		}
		misses = append(misses, ticker)
	}

	if len(misses) == 0 {
		return prices
	}

	fetched, err := s.client.GetBatchQuotes(misses)
	if err != nil {
		s.log.Warn().
			Err(err).
			Int("tickers", len(misses)).
			Msg("Batch quote fetch failed, falling back to stale cache")
	}

	for _, ticker := range misses {
		if price, ok := fetched[ticker]; ok && price != nil {
			prices[ticker] = *price
			s.storeQuote(ticker, *price)
			continue
		}

		// Tier 3: stale cache beats a missing price
		if price, ok := s.quoteFromCache(ticker, false); ok {
			s.log.Warn().
				Str("ticker", ticker).
				Float64("price", price).
				Msg("Using stale cached quote")
			prices[ticker] = price
			continue
		}

		s.log.Warn().Str("ticker", ticker).Msg("No price available from any source")
	}

	return prices
}

// Price returns the best-known current price for a single ticker.
// Returns nil when no tier can supply one.
func (s *MarketDataService) Price(ticker string) *float64 {
	prices := s.Prices([]string{ticker})
	if price, ok := prices[strings.ToUpper(strings.TrimSpace(ticker))]; ok {
		return &price
	}
	return nil
}

// Fundamentals returns dividend fundamentals for a ticker through the
// same tiered read path
func (s *MarketDataService) Fundamentals(ticker string) (*yahoo.Fundamentals, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}

	if data, err := s.cache.GetIfFresh(clientdata.TableFundamentals, ticker); err == nil && data != nil {
		var fundamentals yahoo.Fundamentals
		if err := clientdata.Decode(data, &fundamentals); err == nil {
			return &fundamentals, nil
		}
		s.log.Warn().Str("ticker", ticker).Msg("Failed to decode cached fundamentals, refetching")
	}

	fundamentals, err := s.client.GetFundamentals(ticker)
	if err == nil && fundamentals != nil {
		if storeErr := s.cache.Store(clientdata.TableFundamentals, ticker, fundamentals, s.fundamentalsTTL); storeErr != nil {
			s.log.Warn().Err(storeErr).Str("ticker", ticker).Msg("Failed to cache fundamentals")
		}
		return fundamentals, nil
	}

	s.log.Warn().Err(err).Str("ticker", ticker).Msg("Fundamentals fetch failed, trying stale cache")

	if data, cacheErr := s.cache.Get(clientdata.TableFundamentals, ticker); cacheErr == nil && data != nil {
		var stale yahoo.Fundamentals
		if decodeErr := clientdata.Decode(data, &stale); decodeErr == nil {
			s.log.Warn().Str("ticker", ticker).Msg("Using stale cached fundamentals")
			return &stale, nil
		}
	}

	if err == nil {
		err = fmt.Errorf("no fundamentals available for %s", ticker)
	}
	return nil, err
}

// WarmQuotes fetches fresh quotes for the given tickers and refreshes the
// cache. Used by the scheduled quote refresh job.
func (s *MarketDataService) WarmQuotes(tickers []string) (int, error) {
	normalized := normalizeTickers(tickers)
	if len(normalized) == 0 {
		return 0, nil
	}

	fetched, err := s.client.GetBatchQuotes(normalized)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch quotes: %w", err)
	}

	stored := 0
	for ticker, price := range fetched {
		if price == nil {
			continue
		}
		s.storeQuote(ticker, *price)
		stored++
	}

	s.log.Info().
		Int("requested", len(normalized)).
		Int("stored", stored).
		Msg("Quote cache warmed")

	return stored, nil
}

// quoteFromCache reads a cached quote. freshOnly skips entries past their
// TTL.
func (s *MarketDataService) quoteFromCache(ticker string, freshOnly bool) (float64, bool) {
	var data []byte
	var err error

	if freshOnly {
		data, err = s.cache.GetIfFresh(clientdata.TableQuotes, ticker)
	} else {
		data, err = s.cache.Get(clientdata.TableQuotes, ticker)
	}
	if err != nil || data == nil {
		return 0, false
	}

	var quote cachedQuote
	if err := clientdata.Decode(data, &quote); err != nil {
		s.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to decode cached quote")
		return 0, false
	}

	if quote.Price <= 0 {
		return 0, false
	}

	return quote.Price, true
}

func (s *MarketDataService) storeQuote(ticker string, price float64) {
	quote := cachedQuote{
		Price:     price,
		FetchedAt: time.Now().Unix(),
	}
	if err := s.cache.Store(clientdata.TableQuotes, ticker, quote, s.quoteTTL); err != nil {
		s.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to cache quote")
	}
}

// normalizeTickers uppercases, trims, and deduplicates preserving order
func normalizeTickers(tickers []string) []string {
	seen := make(map[string]bool, len(tickers))
	result := make([]string, 0, len(tickers))
	for _, ticker := range tickers {
		ticker = strings.ToUpper(strings.TrimSpace(ticker))
		if ticker == "" || seen[ticker] {
			continue
		}
		seen[ticker] = true
		result = append(result, ticker)
	}
	return result
}
