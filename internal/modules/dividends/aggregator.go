package dividends

import (
	"time"

	"github.com/aristath/folio/internal/clients/yahoo"
	"github.com/aristath/folio/internal/modules/portfolio"
)

// exDateLayout renders ex-dividend dates month-day-year
const exDateLayout = "01-02-2006"

// Aggregate builds dividend records for every holding whose fundamentals
// report a dividend rate. Yield and payout ratio are provider fractions
// converted to percent, zero when the provider omits them. The average
// yield is the unweighted mean over paying holdings, non-payers are not
// counted as 0%.
func Aggregate(positions []portfolio.Position, fundamentals map[string]*yahoo.Fundamentals) Report {
	records := make([]DividendRecord, 0, len(positions))

	totalIncome := 0.0
	yieldSum := 0.0

	for _, pos := range positions {
		f := fundamentals[pos.Ticker]
		if f == nil || f.DividendRate == nil {
			continue
		}

		record := DividendRecord{
			Ticker:         pos.Ticker,
			Account:        pos.Account,
			Shares:         pos.Shares,
			DividendRate:   *f.DividendRate,
			AnnualDividend: pos.Shares * *f.DividendRate,
			ExDividendDate: formatExDate(f.ExDividendDate),
		}
		if f.DividendYield != nil {
			record.DividendYieldPct = *f.DividendYield * 100
		}
		if f.PayoutRatio != nil {
			record.PayoutRatioPct = *f.PayoutRatio * 100
		}

		totalIncome += record.AnnualDividend
		yieldSum += record.DividendYieldPct
		records = append(records, record)
	}

	summary := Summary{
		TotalAnnualIncome: totalIncome,
		Payers:            len(records),
		Holdings:          len(positions),
	}
	if len(records) > 0 {
		summary.AverageYieldPct = yieldSum / float64(len(records))
	}

	return Report{Records: records, Summary: summary}
}

// formatExDate renders a provider epoch as a calendar date. Provider
// ex-date timestamps are midnight UTC, so the conversion stays in UTC to
// keep the calendar date intact.
func formatExDate(epoch *int64) string {
	if epoch == nil {
		return "N/A"
	}
	return time.Unix(*epoch, 0).UTC().Format(exDateLayout)
}
