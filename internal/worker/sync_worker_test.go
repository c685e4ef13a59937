package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"jangbu/internal/amqp"
	"jangbu/internal/core"
	"jangbu/internal/document"
)

type fakeStorage struct {
	mu     sync.Mutex
	doc    document.Document
	local  uint64
	synced uint64

	loadErr error
	revErr  error
}

func (f *fakeStorage) LoadDocument(ctx context.Context) (document.Document, error) {
	return f.doc, f.loadErr
}

func (f *fakeStorage) Revision(ctx context.Context) (uint64, uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.local, f.synced, f.revErr
}

func (f *fakeStorage) MarkSynced(ctx context.Context, revision uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if revision > f.synced {
		f.synced = revision
	}
	return nil
}

type fakeCloud struct {
	mu      sync.Mutex
	saves   int
	lastDoc document.Document
	err     error
}

func (f *fakeCloud) Save(ctx context.Context, doc document.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saves++
	f.lastDoc = doc
	return nil
}

func testDocument() document.Document {
	return document.Document{
		Transactions: []core.Transaction{{
			ID:           "tx-1",
			Date:         core.NewDate(2025, 3, 9),
			Direction:    core.Income,
			FundType:     core.FundGeneral,
			Category:     "십일조",
			Counterparty: "김민수",
			Amount:       core.Money{Won: 50000},
		}},
		Budgets: core.BudgetTable{},
	}
}

func TestHandleSyncMessageUploadsAndMarksSynced(t *testing.T) {
	storage := &fakeStorage{doc: testDocument(), local: 3, synced: 1}
	cloud := &fakeCloud{}
	w := NewSyncWorker(storage, cloud)

	msg := amqp.NewLedgerSyncMessage(2)
	if err := w.HandleSyncMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleSyncMessage() error = %v", err)
	}

	if cloud.saves != 1 {
		t.Errorf("cloud saves = %d, want 1", cloud.saves)
	}
	if len(cloud.lastDoc.Transactions) != 1 {
		t.Errorf("uploaded document has %d transactions, want 1", len(cloud.lastDoc.Transactions))
	}
	// The upload covers the latest local revision, not just the message's.
	if storage.synced != 3 {
		t.Errorf("synced revision = %d, want 3", storage.synced)
	}
}

func TestHandleSyncMessageSkipsStale(t *testing.T) {
	storage := &fakeStorage{doc: testDocument(), local: 5, synced: 5}
	cloud := &fakeCloud{}
	w := NewSyncWorker(storage, cloud)

	if err := w.HandleSyncMessage(context.Background(), amqp.NewLedgerSyncMessage(4)); err != nil {
		t.Fatalf("HandleSyncMessage() error = %v", err)
	}
	if cloud.saves != 0 {
		t.Errorf("cloud saves = %d, want 0 for stale message", cloud.saves)
	}
}

func TestHandleSyncMessageUploadFailure(t *testing.T) {
	storage := &fakeStorage{doc: testDocument(), local: 2, synced: 0}
	cloud := &fakeCloud{err: errors.New("drive unavailable")}
	w := NewSyncWorker(storage, cloud)

	err := w.HandleSyncMessage(context.Background(), amqp.NewLedgerSyncMessage(2))
	if err == nil {
		t.Fatal("HandleSyncMessage() error = nil, want upload failure so the message is requeued")
	}
	if storage.synced != 0 {
		t.Errorf("synced revision = %d, want 0 after failed upload", storage.synced)
	}
}

func TestStartupSyncCheck(t *testing.T) {
	t.Run("nothing pending", func(t *testing.T) {
		storage := &fakeStorage{doc: testDocument(), local: 4, synced: 4}
		cloud := &fakeCloud{}
		w := NewSyncWorker(storage, cloud)

		if err := w.StartupSyncCheck(context.Background()); err != nil {
			t.Fatalf("StartupSyncCheck() error = %v", err)
		}
		if cloud.saves != 0 {
			t.Errorf("cloud saves = %d, want 0", cloud.saves)
		}
	})

	t.Run("unsynced revisions", func(t *testing.T) {
		storage := &fakeStorage{doc: testDocument(), local: 7, synced: 4}
		cloud := &fakeCloud{}
		w := NewSyncWorker(storage, cloud)

		if err := w.StartupSyncCheck(context.Background()); err != nil {
			t.Fatalf("StartupSyncCheck() error = %v", err)
		}
		if cloud.saves != 1 {
			t.Errorf("cloud saves = %d, want 1", cloud.saves)
		}
		if storage.synced != 7 {
			t.Errorf("synced revision = %d, want 7", storage.synced)
		}
	})

	t.Run("revision read failure", func(t *testing.T) {
		storage := &fakeStorage{revErr: errors.New("database locked")}
		w := NewSyncWorker(storage, &fakeCloud{})

		if err := w.StartupSyncCheck(context.Background()); err == nil {
			t.Error("StartupSyncCheck() error = nil, want failure")
		}
	})
}

func TestRunBackupScanStopsOnCancel(t *testing.T) {
	storage := &fakeStorage{doc: testDocument(), local: 1, synced: 1}
	w := NewSyncWorker(storage, &fakeCloud{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := w.RunBackupScan(ctx, time.Millisecond); !errors.Is(err, context.Canceled) {
		t.Errorf("RunBackupScan() error = %v, want context.Canceled", err)
	}
}
