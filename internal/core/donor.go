package core

// DonorSummary collects one counterparty's income transactions and
// their total, as needed for a donation receipt.
type DonorSummary struct {
	Transactions []Transaction
	Total        Money
}

// IndexByDonor groups income transactions by counterparty name.
// Receipts are an income-only concept, so expense rows are skipped.
// Per-donor transaction order follows the input.
func IndexByDonor(txs []Transaction) map[string]DonorSummary {
	index := make(map[string]DonorSummary)
	for _, tx := range txs {
		if tx.Direction != Income {
			continue
		}
		s := index[tx.Counterparty]
		s.Transactions = append(s.Transactions, tx)
		s.Total = s.Total.Add(tx.Amount)
		index[tx.Counterparty] = s
	}
	return index
}

// DonorsMatching filters names by the Hangul-aware matcher, keeping
// the input order.
func DonorsMatching(names []string, query string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if MatchHangul(name, query) {
			out = append(out, name)
		}
	}
	return out
}
