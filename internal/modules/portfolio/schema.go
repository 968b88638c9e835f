package portfolio

import "database/sql"

// Schema defines the positions table
const Schema = `
CREATE TABLE IF NOT EXISTS positions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ticker TEXT NOT NULL,
	account TEXT NOT NULL DEFAULT '',
	shares REAL NOT NULL,
	cost_basis REAL NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_positions_ticker ON positions(ticker);
CREATE INDEX IF NOT EXISTS idx_positions_account ON positions(account);
`

// InitSchema creates the positions table if it doesn't exist
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
