package history

import "time"

// rangeRank orders the provider range specs from narrowest to widest so a
// mirror synced for a wide range also covers requests for narrower ones.
var rangeRank = map[string]int{
	"1d":  1,
	"5d":  2,
	"1mo": 3,
	"3mo": 4,
	"6mo": 5,
	"ytd": 6,
	"1y":  7,
	"2y":  8,
	"5y":  9,
	"10y": 10,
	"max": 11,
}

// ValidRange reports whether a range spec is one the provider accepts
func ValidRange(rangeSpec string) bool {
	_, ok := rangeRank[rangeSpec]
	return ok
}

// Covers reports whether a mirror synced for syncedRange satisfies a
// request for wantRange
func Covers(syncedRange, wantRange string) bool {
	have, ok := rangeRank[syncedRange]
	if !ok {
		return false
	}
	want, ok := rangeRank[wantRange]
	if !ok {
		return false
	}
	return have >= want
}

// RangeStart converts a range spec into the earliest date (YYYY-MM-DD)
// that spec reaches back to, relative to now. Returns "" for "max",
// which leaves the query window unbounded.
func RangeStart(rangeSpec string, now time.Time) string {
	var start time.Time

	switch rangeSpec {
	case "1d":
		start = now.AddDate(0, 0, -1)
	case "5d":
		start = now.AddDate(0, 0, -5)
	case "1mo":
		start = now.AddDate(0, -1, 0)
	case "3mo":
		start = now.AddDate(0, -3, 0)
	case "6mo":
		start = now.AddDate(0, -6, 0)
	case "ytd":
		start = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	case "1y":
		start = now.AddDate(-1, 0, 0)
	case "2y":
		start = now.AddDate(-2, 0, 0)
	case "5y":
		start = now.AddDate(-5, 0, 0)
	case "10y":
		start = now.AddDate(-10, 0, 0)
	case "max":
		return ""
	default:
		start = now.AddDate(-1, 0, 0) // Default to 1 year
	}

	return start.Format("2006-01-02")
}
