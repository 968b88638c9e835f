// Package clientdata provides persistent caching for market data provider
// responses. All data is stored as msgpack blobs with expiration timestamps
// for cache-first behavior.
package clientdata

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Cache tables in cache.db, all keyed by ticker.
const (
	TableQuotes       = "quotes"
	TableFundamentals = "fundamentals"
	TablePriceHistory = "price_history"
)

// AllTables lists every cache table for cleanup operations.
var AllTables = []string{TableQuotes, TableFundamentals, TablePriceHistory}

// Repository reads and writes the cache tables.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a cache repository on top of cache.db.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// checkTable rejects table names outside the fixed set. Table names are
// interpolated into SQL, so they must never come from request input.
func checkTable(table string) error {
	for _, t := range AllTables {
		if t == table {
			return nil
		}
	}
	return fmt.Errorf("invalid table name: %s", table)
}

// Decode unmarshals a cached blob into out.
func Decode(data []byte, out interface{}) error {
	return msgpack.Unmarshal(data, out)
}

// Store upserts data under key with expiration now + ttl.
func (r *Repository) Store(table, key string, data interface{}, ttl time.Duration) error {
	if err := checkTable(table); err != nil {
		return err
	}

	blob, err := msgpack.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	_, err = r.db.Exec(
		"INSERT OR REPLACE INTO "+table+" (ticker, data, expires_at) VALUES (?, ?, ?)",
		key, blob, time.Now().Add(ttl).Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store data in %s: %w", table, err)
	}
	return nil
}

// GetIfFresh returns the blob only while its expiration has not passed.
// Missing and expired keys both return nil, nil.
func (r *Repository) GetIfFresh(table, key string) ([]byte, error) {
	return r.get(table, key, true)
}

// Get returns the blob regardless of expiration. Used as a fallback when
// the provider is down; stale data beats none. Missing keys return nil, nil.
func (r *Repository) Get(table, key string) ([]byte, error) {
	return r.get(table, key, false)
}

func (r *Repository) get(table, key string, freshOnly bool) ([]byte, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}

	query := "SELECT data FROM " + table + " WHERE ticker = ?"
	args := []interface{}{key}
	if freshOnly {
		query += " AND expires_at > ?"
		args = append(args, time.Now().Unix())
	}

	var data []byte
	err := r.db.QueryRow(query, args...).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get data from %s: %w", table, err)
	}
	return data, nil
}

// Delete removes one entry.
func (r *Repository) Delete(table, key string) error {
	if err := checkTable(table); err != nil {
		return err
	}

	if _, err := r.db.Exec("DELETE FROM "+table+" WHERE ticker = ?", key); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}

// DeleteExpired removes rows past their expiration and reports how many.
func (r *Repository) DeleteExpired(table string) (int64, error) {
	if err := checkTable(table); err != nil {
		return 0, err
	}

	result, err := r.db.Exec("DELETE FROM "+table+" WHERE expires_at < ?", time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired from %s: %w", table, err)
	}
	return result.RowsAffected()
}

// DeleteAllExpired prunes every cache table, returning per-table counts.
func (r *Repository) DeleteAllExpired() (map[string]int64, error) {
	results := make(map[string]int64, len(AllTables))
	for _, table := range AllTables {
		deleted, err := r.DeleteExpired(table)
		if err != nil {
			return results, err
		}
		results[table] = deleted
	}
	return results, nil
}
