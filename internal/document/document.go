// Package document encodes and decodes the persisted ledger document:
// a JSON object with top-level keys "transactions", "donors", and
// "budgets". Import/export and cloud sync all operate on this exact
// shape.
package document

import (
	"encoding/json"
	"fmt"

	"jangbu/internal/core"
)

// Document is the full working set in its persisted form.
type Document struct {
	Transactions []core.Transaction
	Donors       []string
	Budgets      core.BudgetTable
}

// Wire field names match the legacy data files, so old backups load
// unchanged.
type (
	wireDocument struct {
		Transactions json.RawMessage `json:"transactions"`
		Donors       json.RawMessage `json:"donors"`
		Budgets      json.RawMessage `json:"budgets"`
	}

	wireTransaction struct {
		ID          json.RawMessage `json:"id"`
		Date        string          `json:"date"`
		Type        string          `json:"type"`
		FinanceType string          `json:"financeType"`
		Category    string          `json:"category"`
		Name        string          `json:"name"`
		Amount      json.Number     `json:"amount"`
		Note        string          `json:"note,omitempty"`
	}
)

// Decode parses a persisted document. It is deliberately lenient:
// a top-level field of the wrong shape is treated as absent (empty
// collection) rather than an error, and legacy category names are
// migrated. Only unparseable JSON at the top level is reported.
func Decode(data []byte) (Document, error) {
	doc := Document{Budgets: core.BudgetTable{}}

	var wire wireDocument
	if err := json.Unmarshal(data, &wire); err != nil {
		return doc, fmt.Errorf("parse ledger document: %w", err)
	}

	tax := core.DefaultTaxonomy()

	var wireTxs []wireTransaction
	if len(wire.Transactions) > 0 {
		if err := json.Unmarshal(wire.Transactions, &wireTxs); err != nil {
			wireTxs = nil // not an array: treat as absent
		}
	}
	for _, wt := range wireTxs {
		doc.Transactions = append(doc.Transactions, fromWire(wt, tax))
	}

	if len(wire.Donors) > 0 {
		var donors []string
		if err := json.Unmarshal(wire.Donors, &donors); err == nil {
			doc.Donors = donors
		}
	}

	if len(wire.Budgets) > 0 {
		var budgets map[string]json.Number
		if err := json.Unmarshal(wire.Budgets, &budgets); err == nil {
			for cat, n := range budgets {
				if v, err := n.Int64(); err == nil {
					doc.Budgets[cat] = v
				}
			}
		}
	}

	return doc, nil
}

// Encode serializes a document back into the persisted shape. The
// output round-trips through Decode modulo key ordering.
func Encode(doc Document) ([]byte, error) {
	wire := struct {
		Transactions []wireTransaction `json:"transactions"`
		Donors       []string          `json:"donors"`
		Budgets      core.BudgetTable  `json:"budgets"`
	}{
		Transactions: make([]wireTransaction, 0, len(doc.Transactions)),
		Donors:       doc.Donors,
		Budgets:      doc.Budgets,
	}
	if wire.Donors == nil {
		wire.Donors = []string{}
	}
	if wire.Budgets == nil {
		wire.Budgets = core.BudgetTable{}
	}

	for _, tx := range doc.Transactions {
		id, err := json.Marshal(tx.ID)
		if err != nil {
			return nil, fmt.Errorf("marshal transaction id: %w", err)
		}
		wire.Transactions = append(wire.Transactions, wireTransaction{
			ID:          id,
			Date:        tx.Date.String(),
			Type:        string(tx.Direction),
			FinanceType: string(tx.FundType),
			Category:    tx.Category,
			Name:        tx.Counterparty,
			Amount:      json.Number(fmt.Sprintf("%d", tx.Amount.Won)),
			Note:        tx.Note,
		})
	}

	return json.MarshalIndent(wire, "", "  ")
}

// fromWire converts one persisted row, tolerating the quirks of old
// data: numeric ids, float amounts, missing fund types, and the
// combined legacy carryover category.
func fromWire(wt wireTransaction, tax *core.Taxonomy) core.Transaction {
	tx := core.Transaction{
		ID:           decodeID(wt.ID),
		Date:         core.ParseDate(wt.Date),
		Direction:    core.Direction(wt.Type),
		FundType:     core.FundType(wt.FinanceType),
		Category:     wt.Category,
		Counterparty: wt.Name,
		Note:         wt.Note,
	}

	if tx.Direction != core.Expense {
		// Old exports carried income rows with a blank type.
		tx.Direction = core.Income
	}
	if !tx.FundType.Valid() {
		tx.FundType = tax.GuessFundType(tx.Category)
	}
	if tx.Category == core.LegacyCarryover {
		tx.Category = tax.CarryoverCategory(tx.FundType)
	}

	if v, err := wt.Amount.Int64(); err == nil {
		tx.Amount = core.Money{Won: v}
	} else if f, err := wt.Amount.Float64(); err == nil {
		tx.Amount = core.Money{Won: int64(f)}
	}
	if tx.Amount.Won < 0 {
		// The domain has no negative amounts. Flipping the sign would
		// invent a figure, so a bad row degrades to zero instead.
		tx.Amount.Won = 0
	}

	return tx
}

// decodeID accepts both legacy numeric ids and uuid strings.
func decodeID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
