package clientdata

import "database/sql"

// Schema creates the cache tables in cache.db. Every table stores one
// msgpack blob per ticker with the expiration timestamp the cache-first
// readers check.
const Schema = `
CREATE TABLE IF NOT EXISTS quotes (
    ticker TEXT PRIMARY KEY,
    data BLOB NOT NULL,
    expires_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS fundamentals (
    ticker TEXT PRIMARY KEY,
    data BLOB NOT NULL,
    expires_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS price_history (
    ticker TEXT PRIMARY KEY,
    data BLOB NOT NULL,
    expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_quotes_expires ON quotes(expires_at);
CREATE INDEX IF NOT EXISTS idx_fundamentals_expires ON fundamentals(expires_at);
CREATE INDEX IF NOT EXISTS idx_price_history_expires ON price_history(expires_at);
`

// InitSchema ensures the cache tables exist.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
