// Package portfolio owns the holdings store and the valuation engine:
// per-position market values, portfolio weights, and unrealized gain/loss.
package portfolio

import "errors"

// Sentinel errors surfaced to HTTP handlers
var (
	ErrNotFound   = errors.New("position not found")
	ErrValidation = errors.New("invalid position")
)

// Position is one holding row. CostBasis is per share.
type Position struct {
	ID        int64   `json:"id"`
	Ticker    string  `json:"ticker"`
	Account   string  `json:"account"`
	Shares    float64 `json:"shares"`
	CostBasis float64 `json:"cost_basis"`
	CreatedAt int64   `json:"created_at"`
	UpdatedAt int64   `json:"updated_at"`
}

// PositionValuation is one valued position row. Pointer fields are nil
// when the underlying quantity is undefined (no price, zero cost basis).
type PositionValuation struct {
	ID          int64    `json:"id"`
	Ticker      string   `json:"ticker"`
	Account     string   `json:"account"`
	Shares      float64  `json:"shares"`
	CostBasis   float64  `json:"cost_basis"`
	Price       *float64 `json:"price"`
	MarketValue *float64 `json:"market_value"`
	WeightPct   *float64 `json:"weight_pct"`
	GainLoss    *float64 `json:"gain_loss"`
	GainLossPct *float64 `json:"gain_loss_pct"`
}

// Summary carries portfolio-level totals over priced positions only
type Summary struct {
	TotalValue       float64  `json:"total_value"`
	TotalCost        float64  `json:"total_cost"`
	TotalGainLoss    float64  `json:"total_gain_loss"`
	TotalGainLossPct *float64 `json:"total_gain_loss_pct"`
	Positions        int      `json:"positions"`
	Priced           int      `json:"priced"`
}

// Valuation is the full valuation engine output
type Valuation struct {
	Positions []PositionValuation `json:"positions"`
	Summary   Summary             `json:"summary"`
	Unpriced  []string            `json:"unpriced"`
}
