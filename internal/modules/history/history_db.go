// Package history maintains a local mirror of daily close prices so the
// analysis engines never compute against a half-fetched provider response.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/database"
)

// HistoryDB provides access to the mirrored daily close prices
type HistoryDB struct {
	db   *sql.DB
	path string
	log  zerolog.Logger
}

// Open opens the history mirror database and ensures its schema exists
func Open(path string, log zerolog.Logger) (*HistoryDB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// Verify database is accessible
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}

	if err := InitSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	return &HistoryDB{
		db:   db,
		path: path,
		log:  log.With().Str("component", "history_db").Logger(),
	}, nil
}

// Close closes the underlying database connection
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

// Conn returns the underlying sql.DB connection
func (h *HistoryDB) Conn() *sql.DB {
	return h.db
}

// Name identifies the mirror in maintenance logs
func (h *HistoryDB) Name() string {
	return "history"
}

// WALCheckpoint forces a WAL checkpoint to prevent bloat
func (h *HistoryDB) WALCheckpoint(mode string) error {
	if mode == "" {
		mode = "TRUNCATE"
	}

	if _, err := h.db.Exec(fmt.Sprintf("PRAGMA wal_checkpoint(%s)", mode)); err != nil {
		return fmt.Errorf("WAL checkpoint failed for history: %w", err)
	}
	return nil
}

// GetStats retrieves mirror database statistics
func (h *HistoryDB) GetStats() (*database.Stats, error) {
	stats := &database.Stats{}

	if fileInfo, err := os.Stat(h.path); err == nil {
		stats.SizeBytes = fileInfo.Size()
	}
	if fileInfo, err := os.Stat(h.path + "-wal"); err == nil {
		stats.WALSizeBytes = fileInfo.Size()
	}

	if err := h.db.QueryRow("PRAGMA page_count").Scan(&stats.PageCount); err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}
	if err := h.db.QueryRow("PRAGMA page_size").Scan(&stats.PageSize); err != nil {
		return nil, fmt.Errorf("failed to get page size: %w", err)
	}
	if err := h.db.QueryRow("PRAGMA freelist_count").Scan(&stats.FreelistCount); err != nil {
		return nil, fmt.Errorf("failed to get freelist count: %w", err)
	}

	return stats, nil
}

// ClosePrice represents one mirrored daily close
type ClosePrice struct {
	Date  string  `json:"date"` // YYYY-MM-DD
	Close float64 `json:"close"`
}

// SyncState records when a symbol's mirror was last refreshed and for
// which range
type SyncState struct {
	Symbol    string
	RangeSpec string
	SyncedAt  time.Time
}

// GetSeries fetches ordered closes for a symbol. Empty from/to leave that
// end of the window unbounded.
func (h *HistoryDB) GetSeries(symbol, from, to string) ([]ClosePrice, error) {
	query := "SELECT date, close FROM daily_prices WHERE symbol = ?"
	args := []interface{}{symbol}

	if from != "" {
		query += " AND date >= ?"
		args = append(args, from)
	}
	if to != "" {
		query += " AND date <= ?"
		args = append(args, to)
	}
	query += " ORDER BY date ASC"

	rows, err := h.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer rows.Close()

	var prices []ClosePrice
	for rows.Next() {
		var p ClosePrice
		if err := rows.Scan(&p.Date, &p.Close); err != nil {
			return nil, fmt.Errorf("failed to scan daily price: %w", err)
		}
		prices = append(prices, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily prices: %w", err)
	}

	return prices, nil
}

// GetSeriesMap fetches series for several symbols. Symbols with no
// mirrored data map to an empty slice rather than an error.
func (h *HistoryDB) GetSeriesMap(symbols []string, from, to string) (map[string][]ClosePrice, error) {
	result := make(map[string][]ClosePrice, len(symbols))

	for _, symbol := range symbols {
		series, err := h.GetSeries(symbol, from, to)
		if err != nil {
			return nil, err
		}
		result[symbol] = series
	}

	return result, nil
}

// UpsertPrices replaces mirrored closes for a symbol and records the sync
// state in a single transaction
func (h *HistoryDB) UpsertPrices(symbol, rangeSpec string, prices []ClosePrice) error {
	tx, err := h.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Will be no-op if Commit succeeds

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO daily_prices (symbol, date, close)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, price := range prices {
		if _, err := stmt.Exec(symbol, price.Date, price.Close); err != nil {
			return fmt.Errorf("failed to insert daily price for %s: %w", price.Date, err)
		}
	}

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO sync_state (symbol, range_spec, synced_at)
		VALUES (?, ?, ?)
	`, symbol, rangeSpec, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to record sync state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	h.log.Info().
		Str("symbol", symbol).
		Str("range", rangeSpec).
		Int("count", len(prices)).
		Msg("Synced mirrored prices")

	return nil
}

// LastSync returns the recorded sync state for a symbol.
// Returns nil if the symbol was never synced (not an error).
func (h *HistoryDB) LastSync(symbol string) (*SyncState, error) {
	var state SyncState
	var syncedUnix int64

	err := h.db.QueryRow(
		"SELECT symbol, range_spec, synced_at FROM sync_state WHERE symbol = ?",
		symbol,
	).Scan(&state.Symbol, &state.RangeSpec, &syncedUnix)

	if err == sql.ErrNoRows {
		return nil, nil // Never synced (not an error)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}

	state.SyncedAt = time.Unix(syncedUnix, 0).UTC()
	return &state, nil
}

// DeleteSymbol removes all mirrored data for a symbol.
// Used when a position is removed from the portfolio.
func (h *HistoryDB) DeleteSymbol(symbol string) error {
	tx, err := h.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM daily_prices WHERE symbol = ?", symbol); err != nil {
		return fmt.Errorf("failed to delete daily prices: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM sync_state WHERE symbol = ?", symbol); err != nil {
		return fmt.Errorf("failed to delete sync state: %w", err)
	}

	return tx.Commit()
}
