// Package worker uploads the persisted ledger to Google Drive. The HTTP
// service only publishes lightweight revision messages; this worker reads
// the full document from SQLite so the queue stays small and duplicate
// messages are cheap to drop.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"jangbu/internal/amqp"
	"jangbu/internal/document"
)

// Repository is the slice of the storage layer the worker needs.
type Repository interface {
	LoadDocument(ctx context.Context) (document.Document, error)
	Revision(ctx context.Context) (local, synced uint64, err error)
	MarkSynced(ctx context.Context, revision uint64) error
}

// CloudStore uploads a ledger document, overwriting the remote copy.
type CloudStore interface {
	Save(ctx context.Context, doc document.Document) error
}

// SyncWorker pushes ledger revisions from SQLite to the cloud copy.
type SyncWorker struct {
	storage Repository
	cloud   CloudStore
}

func NewSyncWorker(storage Repository, cloud CloudStore) *SyncWorker {
	return &SyncWorker{
		storage: storage,
		cloud:   cloud,
	}
}

// HandleSyncMessage processes a single ledger sync message from AMQP.
// Stale messages (revision already synced) are dropped without an upload.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.LedgerSyncMessage) error {
	local, synced, err := w.storage.Revision(ctx)
	if err != nil {
		return fmt.Errorf("read revision state: %w", err)
	}

	if msg.Revision <= synced {
		slog.InfoContext(ctx, "Skipping stale sync message",
			"message_revision", msg.Revision,
			"synced_revision", synced)
		return nil
	}

	return w.upload(ctx, local)
}

// StartupSyncCheck uploads any revision that was written locally but never
// confirmed synced, recovering from missed messages or worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	local, synced, err := w.storage.Revision(ctx)
	if err != nil {
		return fmt.Errorf("read revision state for startup check: %w", err)
	}

	if local <= synced {
		slog.InfoContext(ctx, "Ledger already synced on startup", "revision", local)
		return nil
	}

	slog.InfoContext(ctx, "Found unsynced revisions on startup, uploading",
		"local_revision", local,
		"synced_revision", synced)
	return w.upload(ctx, local)
}

// RunBackupScan periodically re-checks for unsynced revisions until the
// context is canceled. This is a safety net behind the AMQP path.
func (w *SyncWorker) RunBackupScan(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.StartupSyncCheck(ctx); err != nil {
				slog.ErrorContext(ctx, "Backup sync scan failed", "error", err)
			}
		}
	}
}

// upload reads the current document and overwrites the cloud copy. The
// whole document goes up every time; the remote file is small and the
// most recent writer simply wins.
func (w *SyncWorker) upload(ctx context.Context, revision uint64) error {
	doc, err := w.storage.LoadDocument(ctx)
	if err != nil {
		return fmt.Errorf("load ledger document: %w", err)
	}

	if err := w.cloud.Save(ctx, doc); err != nil {
		return fmt.Errorf("upload ledger document: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, revision); err != nil {
		slog.ErrorContext(ctx, "Failed to mark revision synced", "revision", revision, "error", err)
		// The upload itself worked; the next scan will just re-upload.
	}

	slog.InfoContext(ctx, "Ledger synced to cloud",
		"revision", revision,
		"transactions", len(doc.Transactions))
	return nil
}
