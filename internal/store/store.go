// Package store holds the live ledger working set: transactions, donors and
// budgets behind a single mutex. Reads hand out deep copies so callers can
// never alias internal state, and every mutation records an undo snapshot.
package store

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"jangbu/internal/core"
	"jangbu/internal/document"
)

const historyLimit = 20

var (
	ErrNotFound    = errors.New("transaction not found")
	ErrNoHistory   = errors.New("no undo history")
	ErrDuplicateID = errors.New("duplicate transaction id")
)

// Store is the in-memory ledger state. All methods are safe for concurrent use.
type Store struct {
	mu           sync.RWMutex
	transactions []core.Transaction
	donors       []string
	budgets      core.BudgetTable
	history      []snapshot
	revision     uint64
}

type snapshot struct {
	transactions []core.Transaction
	donors       []string
	budgets      core.BudgetTable
}

func New() *Store {
	return &Store{
		budgets: core.BudgetTable{},
	}
}

// Revision returns the mutation counter. It increments on every successful
// mutation, including Undo, so consumers can detect staleness cheaply.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Transactions returns a deep copy of all transactions.
func (s *Store) Transactions() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyTransactions(s.transactions)
}

// Donors returns a copy of the registered donor names, sorted.
func (s *Store) Donors() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyStrings(s.donors)
}

// Budgets returns a copy of the budget table.
func (s *Store) Budgets() core.BudgetTable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyBudgets(s.budgets)
}

// Document exports the full state as a persistable document.
func (s *Store) Document() document.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return document.Document{
		Transactions: copyTransactions(s.transactions),
		Donors:       copyStrings(s.donors),
		Budgets:      copyBudgets(s.budgets),
	}
}

// Add validates and inserts a transaction. A missing ID gets a fresh UUID;
// a caller-supplied ID that already exists is rejected, so Update and
// Delete always target exactly one row. Income counterparties are
// auto-registered as donors.
func (s *Store) Add(tx core.Transaction) (core.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasID(tx.ID) {
		return core.Transaction{}, ErrDuplicateID
	}
	s.pushHistory()
	s.transactions = append(s.transactions, tx)
	s.registerDonor(tx)
	s.revision++
	return tx, nil
}

// AddBulk inserts many transactions atomically: either all pass validation
// and the ID uniqueness check, with one undo snapshot covering the whole
// batch, or nothing changes.
func (s *Store) AddBulk(txs []core.Transaction) ([]core.Transaction, error) {
	added := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.ID == "" {
			tx.ID = uuid.NewString()
		}
		if err := tx.Validate(); err != nil {
			return nil, err
		}
		added = append(added, tx)
	}
	if len(added) == 0 {
		return added, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{}, len(added))
	for _, tx := range added {
		if _, dup := seen[tx.ID]; dup || s.hasID(tx.ID) {
			return nil, ErrDuplicateID
		}
		seen[tx.ID] = struct{}{}
	}
	s.pushHistory()
	s.transactions = append(s.transactions, added...)
	for _, tx := range added {
		s.registerDonor(tx)
	}
	s.revision++
	return copyTransactions(added), nil
}

// Update replaces the transaction with a matching ID.
func (s *Store) Update(tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.transactions {
		if s.transactions[i].ID == tx.ID {
			s.pushHistory()
			s.transactions[i] = tx
			s.registerDonor(tx)
			s.revision++
			return nil
		}
	}
	return ErrNotFound
}

// Delete removes the transaction with the given ID.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.transactions {
		if s.transactions[i].ID == id {
			s.pushHistory()
			s.transactions = append(s.transactions[:i], s.transactions[i+1:]...)
			s.revision++
			return nil
		}
	}
	return ErrNotFound
}

// ReplaceAll swaps the entire transaction list, assigning IDs where missing.
// Used by spreadsheet import.
func (s *Store) ReplaceAll(txs []core.Transaction) error {
	next := make([]core.Transaction, 0, len(txs))
	seen := make(map[string]struct{}, len(txs))
	for _, tx := range txs {
		if tx.ID == "" {
			tx.ID = uuid.NewString()
		}
		if err := tx.Validate(); err != nil {
			return err
		}
		if _, dup := seen[tx.ID]; dup {
			return ErrDuplicateID
		}
		seen[tx.ID] = struct{}{}
		next = append(next, tx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushHistory()
	s.transactions = next
	for _, tx := range next {
		s.registerDonor(tx)
	}
	s.revision++
	return nil
}

// SetBudget sets the yearly budget for a category. A zero amount removes
// the entry so the category reports no meaningful ratio.
func (s *Store) SetBudget(category string, amount int64) error {
	if category == "" {
		return core.ErrEmptyCategory
	}
	if amount < 0 {
		return core.ErrNegativeAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushHistory()
	if amount == 0 {
		delete(s.budgets, category)
	} else {
		s.budgets[category] = amount
	}
	s.revision++
	return nil
}

// AddDonor registers a donor name without requiring a transaction.
func (s *Store) AddDonor(name string) error {
	if name == "" {
		return core.ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.donors {
		if d == name {
			return nil
		}
	}
	s.pushHistory()
	s.donors = append(s.donors, name)
	sort.Strings(s.donors)
	s.revision++
	return nil
}

// RemoveDonor deletes a donor from the registry. Transactions referencing
// the name are left untouched.
func (s *Store) RemoveDonor(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range s.donors {
		if d == name {
			s.pushHistory()
			s.donors = append(s.donors[:i], s.donors[i+1:]...)
			s.revision++
			return nil
		}
	}
	return ErrNotFound
}

// RestoreDocument replaces the whole state from a loaded document, e.g.
// after a cloud load or a settings import. History is cleared: restores
// are checkpoints, not undoable edits. Legacy exports used timestamp ids
// that collide on bulk paste; colliding rows keep their data but get a
// fresh id so every row stays individually addressable.
func (s *Store) RestoreDocument(doc document.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = dedupeIDs(copyTransactions(doc.Transactions))
	s.donors = copyStrings(doc.Donors)
	sort.Strings(s.donors)
	s.budgets = copyBudgets(doc.Budgets)
	if s.budgets == nil {
		s.budgets = core.BudgetTable{}
	}
	s.history = nil
	s.revision++
}

// Undo restores the most recent snapshot.
func (s *Store) Undo() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == 0 {
		return ErrNoHistory
	}
	last := s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]
	s.transactions = last.transactions
	s.donors = last.donors
	s.budgets = last.budgets
	s.revision++
	return nil
}

// CanUndo reports whether an undo snapshot is available.
func (s *Store) CanUndo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history) > 0
}

// pushHistory snapshots current state before a mutation. Callers must hold
// the write lock. Oldest entries fall off past the limit.
func (s *Store) pushHistory() {
	s.history = append(s.history, snapshot{
		transactions: copyTransactions(s.transactions),
		donors:       copyStrings(s.donors),
		budgets:      copyBudgets(s.budgets),
	})
	if len(s.history) > historyLimit {
		s.history = s.history[len(s.history)-historyLimit:]
	}
}

// hasID reports whether a transaction with the given id exists. Callers
// must hold the lock.
func (s *Store) hasID(id string) bool {
	for i := range s.transactions {
		if s.transactions[i].ID == id {
			return true
		}
	}
	return false
}

// dedupeIDs reassigns the id of every row whose id was already taken by
// an earlier row. The first occurrence keeps its id.
func dedupeIDs(txs []core.Transaction) []core.Transaction {
	seen := make(map[string]struct{}, len(txs))
	for i := range txs {
		if _, dup := seen[txs[i].ID]; dup || txs[i].ID == "" {
			txs[i].ID = uuid.NewString()
		}
		seen[txs[i].ID] = struct{}{}
	}
	return txs
}

// registerDonor adds an income counterparty to the donor registry.
// Callers must hold the write lock.
func (s *Store) registerDonor(tx core.Transaction) {
	if tx.Direction != core.Income || tx.Counterparty == "" {
		return
	}
	for _, d := range s.donors {
		if d == tx.Counterparty {
			return
		}
	}
	s.donors = append(s.donors, tx.Counterparty)
	sort.Strings(s.donors)
}

func copyTransactions(txs []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, len(txs))
	copy(out, txs)
	return out
}

func copyStrings(ss []string) []string {
	out := make([]string, len(ss))
	copy(out, ss)
	return out
}

func copyBudgets(b core.BudgetTable) core.BudgetTable {
	out := make(core.BudgetTable, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}
