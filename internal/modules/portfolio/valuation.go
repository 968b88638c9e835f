package portfolio

import "sort"

// Valuate computes per-position market values, portfolio weights, and
// unrealized gain/loss from current prices.
//
// A position whose ticker has no entry in prices gets nil metrics and is
// excluded from the portfolio total. Zero-filling it instead would
// understate the total and corrupt every weight, so absence stays absence.
//
// Output rows are sorted by descending market value; ties and unpriced
// positions keep insertion order, unpriced after priced.
func Valuate(positions []Position, prices map[string]float64) Valuation {
	rows := make([]PositionValuation, 0, len(positions))
	var totalValue, totalCost float64
	priced := 0

	for _, pos := range positions {
		row := PositionValuation{
			ID:        pos.ID,
			Ticker:    pos.Ticker,
			Account:   pos.Account,
			Shares:    pos.Shares,
			CostBasis: pos.CostBasis,
		}

		if price, ok := prices[pos.Ticker]; ok {
			value := pos.Shares * price
			row.Price = &price
			row.MarketValue = &value

			costBase := pos.CostBasis * pos.Shares
			gainLoss := value - costBase
			row.GainLoss = &gainLoss
			if costBase != 0 {
				pct := gainLoss / costBase * 100
				row.GainLossPct = &pct
			}

			totalValue += value
			totalCost += costBase
			priced++
		}

		rows = append(rows, row)
	}

	// Weights need the full total, so a second pass
	if totalValue > 0 {
		for i := range rows {
			if rows[i].MarketValue != nil {
				weight := *rows[i].MarketValue / totalValue * 100
				rows[i].WeightPct = &weight
			}
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		vi, vj := rows[i].MarketValue, rows[j].MarketValue
		if vi == nil {
			return false
		}
		if vj == nil {
			return true
		}
		return *vi > *vj
	})

	summary := Summary{
		TotalValue:    totalValue,
		TotalCost:     totalCost,
		TotalGainLoss: totalValue - totalCost,
		Positions:     len(positions),
		Priced:        priced,
	}
	if totalCost != 0 {
		pct := summary.TotalGainLoss / totalCost * 100
		summary.TotalGainLossPct = &pct
	}

	return Valuation{
		Positions: rows,
		Summary:   summary,
		Unpriced:  unpricedTickers(positions, prices),
	}
}

// unpricedTickers lists tickers with no price, deduplicated in insertion
// order
func unpricedTickers(positions []Position, prices map[string]float64) []string {
	seen := make(map[string]bool)
	var missing []string
	for _, pos := range positions {
		if _, ok := prices[pos.Ticker]; ok {
			continue
		}
		if seen[pos.Ticker] {
			continue
		}
		seen[pos.Ticker] = true
		missing = append(missing, pos.Ticker)
	}
	return missing
}

// Weights returns fractional portfolio weights per ticker over the priced
// positions, aggregating multi-account holdings of the same ticker.
// Returns nil when no position has a defined value.
func Weights(positions []Position, prices map[string]float64) map[string]float64 {
	values := make(map[string]float64)
	var total float64

	for _, pos := range positions {
		price, ok := prices[pos.Ticker]
		if !ok {
			continue
		}
		value := pos.Shares * price
		values[pos.Ticker] += value
		total += value
	}

	if total <= 0 {
		return nil
	}

	weights := make(map[string]float64, len(values))
	for ticker, value := range values {
		weights[ticker] = value / total
	}
	return weights
}
