package history

import "database/sql"

// Schema creates the price mirror tables in history.db. Dates are stored
// as YYYY-MM-DD text so lexical ordering matches chronological ordering.
const Schema = `
CREATE TABLE IF NOT EXISTS daily_prices (
    symbol TEXT NOT NULL,
    date TEXT NOT NULL,
    close REAL NOT NULL,
    PRIMARY KEY (symbol, date)
);

CREATE INDEX IF NOT EXISTS idx_daily_prices_date ON daily_prices(date);

CREATE TABLE IF NOT EXISTS sync_state (
    symbol TEXT PRIMARY KEY,
    range_spec TEXT NOT NULL,
    synced_at INTEGER NOT NULL
);
`

// InitSchema ensures the mirror tables exist.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
