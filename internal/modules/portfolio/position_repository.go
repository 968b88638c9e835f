package portfolio

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const positionColumns = "id, ticker, account, shares, cost_basis, created_at, updated_at"

// PositionRepository handles position database operations
type PositionRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(db *sql.DB, log zerolog.Logger) *PositionRepository {
	return &PositionRepository{
		db:  db,
		log: log.With().Str("repo", "position").Logger(),
	}
}

// GetAll returns all positions in insertion order
func (r *PositionRepository) GetAll() ([]Position, error) {
	query := "SELECT " + positionColumns + " FROM positions ORDER BY id"

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// GetByAccount returns positions for one account in insertion order
func (r *PositionRepository) GetByAccount(account string) ([]Position, error) {
	query := "SELECT " + positionColumns + " FROM positions WHERE account = ? ORDER BY id"

	rows, err := r.db.Query(query, strings.TrimSpace(account))
	if err != nil {
		return nil, fmt.Errorf("failed to query positions by account: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// Get returns a position by id.
// Returns nil when the position doesn't exist (not an error).
func (r *PositionRepository) Get(id int64) (*Position, error) {
	query := "SELECT " + positionColumns + " FROM positions WHERE id = ?"

	var pos Position
	err := r.db.QueryRow(query, id).Scan(
		&pos.ID, &pos.Ticker, &pos.Account, &pos.Shares, &pos.CostBasis,
		&pos.CreatedAt, &pos.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query position: %w", err)
	}

	return &pos, nil
}

// Accounts returns the distinct account names, sorted
func (r *PositionRepository) Accounts() ([]string, error) {
	rows, err := r.db.Query("SELECT DISTINCT account FROM positions ORDER BY account")
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []string
	for rows.Next() {
		var account string
		if err := rows.Scan(&account); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}

// Tickers returns the distinct held tickers, sorted
func (r *PositionRepository) Tickers() ([]string, error) {
	rows, err := r.db.Query("SELECT DISTINCT ticker FROM positions ORDER BY ticker")
	if err != nil {
		return nil, fmt.Errorf("failed to query tickers: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var ticker string
		if err := rows.Scan(&ticker); err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		tickers = append(tickers, ticker)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tickers: %w", err)
	}

	return tickers, nil
}

// SharesByTicker returns total shares held per ticker, summed across
// accounts
func (r *PositionRepository) SharesByTicker() (map[string]float64, error) {
	rows, err := r.db.Query("SELECT ticker, SUM(shares) FROM positions GROUP BY ticker")
	if err != nil {
		return nil, fmt.Errorf("failed to query shares by ticker: %w", err)
	}
	defer rows.Close()

	shares := make(map[string]float64)
	for rows.Next() {
		var ticker string
		var total float64
		if err := rows.Scan(&ticker, &total); err != nil {
			return nil, fmt.Errorf("failed to scan shares: %w", err)
		}
		shares[ticker] = total
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shares: %w", err)
	}

	return shares, nil
}

// GetCount returns the total number of positions
func (r *PositionRepository) GetCount() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM positions").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get position count: %w", err)
	}
	return count, nil
}

// Create inserts a new position after validation and normalization
func (r *PositionRepository) Create(ticker, account string, shares, costBasis float64) (*Position, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	account = strings.TrimSpace(account)

	if ticker == "" {
		return nil, fmt.Errorf("%w: ticker is required", ErrValidation)
	}
	if shares <= 0 {
		return nil, fmt.Errorf("%w: shares must be positive", ErrValidation)
	}
	if costBasis <= 0 {
		return nil, fmt.Errorf("%w: cost basis must be positive", ErrValidation)
	}

	now := time.Now().Unix()

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.Exec(`
		INSERT INTO positions (ticker, account, shares, cost_basis, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, ticker, account, shares, costBasis, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert position: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get inserted id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.log.Info().
		Int64("id", id).
		Str("ticker", ticker).
		Float64("shares", shares).
		Msg("Position created")

	return &Position{
		ID:        id,
		Ticker:    ticker,
		Account:   account,
		Shares:    shares,
		CostBasis: costBasis,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Update modifies a position's account, shares, and cost basis.
// Shares <= 0 means delete: the row is removed and (nil, nil) returned.
func (r *PositionRepository) Update(id int64, account string, shares, costBasis float64) (*Position, error) {
	existing, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}

	if shares <= 0 {
		if err := r.Delete(id); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if costBasis <= 0 {
		return nil, fmt.Errorf("%w: cost basis must be positive", ErrValidation)
	}

	account = strings.TrimSpace(account)
	now := time.Now().Unix()

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
		UPDATE positions SET account = ?, shares = ?, cost_basis = ?, updated_at = ?
		WHERE id = ?
	`, account, shares, costBasis, now, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update position: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.log.Info().
		Int64("id", id).
		Str("ticker", existing.Ticker).
		Float64("shares", shares).
		Msg("Position updated")

	existing.Account = account
	existing.Shares = shares
	existing.CostBasis = costBasis
	existing.UpdatedAt = now
	return existing, nil
}

// Delete removes a position by id
func (r *PositionRepository) Delete(id int64) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.Exec("DELETE FROM positions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.log.Info().Int64("id", id).Msg("Position deleted")
	return nil
}

// scanPositions scans query rows into positions
func scanPositions(rows *sql.Rows) ([]Position, error) {
	var positions []Position
	for rows.Next() {
		var pos Position
		err := rows.Scan(
			&pos.ID, &pos.Ticker, &pos.Account, &pos.Shares, &pos.CostBasis,
			&pos.CreatedAt, &pos.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, pos)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return positions, nil
}
