package services

import (
	"context"
	"fmt"
	"log/slog"

	"jangbu/internal/core"
	"jangbu/internal/document"
	"jangbu/internal/store"
)

// Repository persists the ledger document between runs.
type Repository interface {
	LoadDocument(ctx context.Context) (document.Document, error)
	SaveDocument(ctx context.Context, doc document.Document, revision uint64) error
	Close() error
}

// SyncPublisher announces ledger changes to the sync worker.
type SyncPublisher interface {
	PublishLedgerSync(ctx context.Context, revision uint64) error
	Close() error
}

// LedgerService orchestrates ledger mutations across the in-memory store,
// SQLite persistence and the AMQP sync queue. The store is the source of
// truth: persistence and messaging failures are logged, not returned, so a
// broker outage never blocks bookkeeping.
type LedgerService struct {
	store     *store.Store
	repo      Repository
	publisher SyncPublisher
	debouncer *Debouncer
}

func NewLedgerService(st *store.Store, repo Repository, publisher SyncPublisher, debouncer *Debouncer) *LedgerService {
	return &LedgerService{
		store:     st,
		repo:      repo,
		publisher: publisher,
		debouncer: debouncer,
	}
}

// LoadPersisted restores the store from the repository, if one is configured.
func (s *LedgerService) LoadPersisted(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}

	doc, err := s.repo.LoadDocument(ctx)
	if err != nil {
		return fmt.Errorf("load persisted ledger: %w", err)
	}
	s.store.RestoreDocument(doc)

	slog.InfoContext(ctx, "Restored ledger from persistence",
		"transactions", len(doc.Transactions),
		"donors", len(doc.Donors))
	return nil
}

// Store exposes the underlying store for read paths.
func (s *LedgerService) Store() *store.Store {
	return s.store
}

// AddTransaction records a transaction and schedules a sync.
func (s *LedgerService) AddTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	added, err := s.store.Add(tx)
	if err != nil {
		return core.Transaction{}, err
	}
	s.afterMutation(ctx)
	return added, nil
}

// AddTransactions records a batch of transactions as one undoable step.
func (s *LedgerService) AddTransactions(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error) {
	added, err := s.store.AddBulk(txs)
	if err != nil {
		return nil, err
	}
	s.afterMutation(ctx)
	return added, nil
}

// UpdateTransaction replaces a transaction by ID.
func (s *LedgerService) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	if err := s.store.Update(tx); err != nil {
		return err
	}
	s.afterMutation(ctx)
	return nil
}

// DeleteTransaction removes a transaction by ID.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id string) error {
	if err := s.store.Delete(id); err != nil {
		return err
	}
	s.afterMutation(ctx)
	return nil
}

// ReplaceTransactions swaps the full transaction list, as one undoable step.
func (s *LedgerService) ReplaceTransactions(ctx context.Context, txs []core.Transaction) error {
	if err := s.store.ReplaceAll(txs); err != nil {
		return err
	}
	s.afterMutation(ctx)
	return nil
}

// SetBudget sets the yearly budget for a category.
func (s *LedgerService) SetBudget(ctx context.Context, category string, amount int64) error {
	if err := s.store.SetBudget(category, amount); err != nil {
		return err
	}
	s.afterMutation(ctx)
	return nil
}

// AddDonor registers a donor name.
func (s *LedgerService) AddDonor(ctx context.Context, name string) error {
	if err := s.store.AddDonor(name); err != nil {
		return err
	}
	s.afterMutation(ctx)
	return nil
}

// RemoveDonor deletes a donor from the registry.
func (s *LedgerService) RemoveDonor(ctx context.Context, name string) error {
	if err := s.store.RemoveDonor(name); err != nil {
		return err
	}
	s.afterMutation(ctx)
	return nil
}

// Undo rolls back the most recent mutation.
func (s *LedgerService) Undo(ctx context.Context) error {
	if err := s.store.Undo(); err != nil {
		return err
	}
	s.afterMutation(ctx)
	return nil
}

// ImportDocument replaces the whole ledger from an exported document.
func (s *LedgerService) ImportDocument(ctx context.Context, doc document.Document) {
	s.store.RestoreDocument(doc)
	s.afterMutation(ctx)
}

// ExportDocument returns the current ledger as a document snapshot.
func (s *LedgerService) ExportDocument() document.Document {
	return s.store.Document()
}

// SyncNow publishes a sync message immediately, bypassing the debounce.
func (s *LedgerService) SyncNow(ctx context.Context) error {
	if s.publisher == nil {
		return fmt.Errorf("sync is not configured")
	}
	return s.publisher.PublishLedgerSync(ctx, s.store.Revision())
}

// afterMutation persists the new state and schedules a debounced sync.
// The store already holds the change, so failures here are logged only.
func (s *LedgerService) afterMutation(ctx context.Context) {
	revision := s.store.Revision()

	if s.repo != nil {
		if err := s.repo.SaveDocument(ctx, s.store.Document(), revision); err != nil {
			slog.ErrorContext(ctx, "Failed to persist ledger",
				"revision", revision, "error", err)
		}
	}

	if s.debouncer != nil {
		s.debouncer.Trigger(revision)
	}
}

// Close flushes pending sync work and closes the outbound connections.
func (s *LedgerService) Close() error {
	if s.debouncer != nil {
		s.debouncer.Stop()
	}

	var errs []error

	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}

	return nil
}
