package core

import "time"

const (
	Daily   Granularity = "daily"
	Monthly Granularity = "monthly"
	Yearly  Granularity = "yearly"
)

// Granularity selects the calendar window used to scope a view.
type Granularity string

// FilterByPeriod returns the transactions whose date falls in the same
// calendar day, month, or year as ref. The input is never mutated and
// relative order is preserved.
//
// Unknown granularities pass everything through unchanged; that is the
// documented fallback, not an error. Transactions with malformed dates
// never match a known granularity.
func FilterByPeriod(txs []Transaction, ref time.Time, g Granularity) []Transaction {
	switch g {
	case Daily, Monthly, Yearly:
	default:
		out := make([]Transaction, len(txs))
		copy(out, txs)
		return out
	}

	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if !tx.Date.Valid() {
			continue
		}
		if samePeriod(tx.Date.Time(), ref, g) {
			out = append(out, tx)
		}
	}
	return out
}

func samePeriod(d, ref time.Time, g Granularity) bool {
	if d.Year() != ref.Year() {
		return false
	}
	switch g {
	case Yearly:
		return true
	case Monthly:
		return d.Month() == ref.Month()
	default: // Daily
		return d.Month() == ref.Month() && d.Day() == ref.Day()
	}
}
