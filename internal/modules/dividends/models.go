// Package dividends aggregates per-holding dividend income from provider
// fundamentals. Holdings whose security pays no dividend are left out of
// every metric rather than counted as zero.
package dividends

// DividendRecord is one dividend-paying holding.
type DividendRecord struct {
	Ticker           string  `json:"ticker"`
	Account          string  `json:"account,omitempty"`
	Shares           float64 `json:"shares"`
	DividendRate     float64 `json:"dividend_rate"`
	AnnualDividend   float64 `json:"annual_dividend"`
	DividendYieldPct float64 `json:"dividend_yield_pct"`
	PayoutRatioPct   float64 `json:"payout_ratio_pct"`
	ExDividendDate   string  `json:"ex_dividend_date"`
}

// Summary aggregates dividend income across the portfolio. AverageYieldPct
// is the unweighted mean over paying holdings only.
type Summary struct {
	TotalAnnualIncome float64 `json:"total_annual_income"`
	AverageYieldPct   float64 `json:"average_yield_pct"`
	Payers            int     `json:"payers"`
	Holdings          int     `json:"holdings"`
}

// Report is the dividends endpoint payload.
type Report struct {
	Records []DividendRecord `json:"records"`
	Summary Summary          `json:"summary"`
}
