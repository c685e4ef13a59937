// Package storage persists the ledger document to SQLite. The in-memory
// store remains the source of truth while the process runs; this layer
// gives the ledger durability across restarts and feeds the sync worker's
// revision bookkeeping.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"jangbu/internal/core"
	"jangbu/internal/document"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// LoadDocument reads the whole persisted ledger. Transactions come back in
// their stored positions so the ledger order survives restarts.
func (r *SQLiteRepository) LoadDocument(ctx context.Context) (document.Document, error) {
	doc := document.Document{Budgets: core.BudgetTable{}}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tx_date, direction, fund_type, category, counterparty, amount_won, note
		FROM transactions ORDER BY position`)
	if err != nil {
		return doc, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			tx                           core.Transaction
			rawDate, direction, fundType string
		)
		if err := rows.Scan(&tx.ID, &rawDate, &direction, &fundType,
			&tx.Category, &tx.Counterparty, &tx.Amount.Won, &tx.Note); err != nil {
			return doc, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Date = core.ParseDate(rawDate)
		tx.Direction = core.Direction(direction)
		tx.FundType = core.FundType(fundType)
		doc.Transactions = append(doc.Transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return doc, fmt.Errorf("iterate transactions: %w", err)
	}

	donorRows, err := r.db.QueryContext(ctx, `SELECT name FROM donors ORDER BY name`)
	if err != nil {
		return doc, fmt.Errorf("query donors: %w", err)
	}
	defer donorRows.Close()

	for donorRows.Next() {
		var name string
		if err := donorRows.Scan(&name); err != nil {
			return doc, fmt.Errorf("scan donor: %w", err)
		}
		doc.Donors = append(doc.Donors, name)
	}
	if err := donorRows.Err(); err != nil {
		return doc, fmt.Errorf("iterate donors: %w", err)
	}

	budgetRows, err := r.db.QueryContext(ctx, `SELECT category, amount_won FROM budgets`)
	if err != nil {
		return doc, fmt.Errorf("query budgets: %w", err)
	}
	defer budgetRows.Close()

	for budgetRows.Next() {
		var (
			category string
			amount   int64
		)
		if err := budgetRows.Scan(&category, &amount); err != nil {
			return doc, fmt.Errorf("scan budget: %w", err)
		}
		doc.Budgets[category] = amount
	}
	if err := budgetRows.Err(); err != nil {
		return doc, fmt.Errorf("iterate budgets: %w", err)
	}

	return doc, nil
}

// SaveDocument replaces the persisted ledger with the given document in a
// single transaction and records the revision it corresponds to.
func (r *SQLiteRepository) SaveDocument(ctx context.Context, doc document.Document, revision uint64) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	for _, table := range []string{"transactions", "donors", "budgets"} {
		if _, err := dbTx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	insertTx, err := dbTx.PrepareContext(ctx, `
		INSERT INTO transactions (id, tx_date, direction, fund_type, category, counterparty, amount_won, note, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare transaction insert: %w", err)
	}
	defer insertTx.Close()

	for i, tx := range doc.Transactions {
		if _, err := insertTx.ExecContext(ctx, tx.ID, tx.Date.String(), string(tx.Direction),
			string(tx.FundType), tx.Category, tx.Counterparty, tx.Amount.Won, tx.Note, i); err != nil {
			return fmt.Errorf("insert transaction %s: %w", tx.ID, err)
		}
	}

	for _, name := range doc.Donors {
		if _, err := dbTx.ExecContext(ctx, `INSERT INTO donors (name) VALUES (?)`, name); err != nil {
			return fmt.Errorf("insert donor %s: %w", name, err)
		}
	}

	for category, amount := range doc.Budgets {
		if _, err := dbTx.ExecContext(ctx, `INSERT INTO budgets (category, amount_won) VALUES (?, ?)`, category, amount); err != nil {
			return fmt.Errorf("insert budget %s: %w", category, err)
		}
	}

	if _, err := dbTx.ExecContext(ctx, `
		UPDATE sync_state SET revision = ?, updated_at = CURRENT_TIMESTAMP WHERE id = 1`, revision); err != nil {
		return fmt.Errorf("update sync state: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit document: %w", err)
	}

	slog.InfoContext(ctx, "Ledger document saved to SQLite",
		"transactions", len(doc.Transactions),
		"donors", len(doc.Donors),
		"budgets", len(doc.Budgets),
		"revision", revision)

	return nil
}

// Revision returns the locally persisted revision and the revision last
// confirmed synced to the cloud. The sync worker compares the two to decide
// whether a backup upload is due.
func (r *SQLiteRepository) Revision(ctx context.Context) (local, synced uint64, err error) {
	row := r.db.QueryRowContext(ctx, `SELECT revision, synced_revision FROM sync_state WHERE id = 1`)
	if err := row.Scan(&local, &synced); err != nil {
		return 0, 0, fmt.Errorf("read sync state: %w", err)
	}
	return local, synced, nil
}

// MarkSynced records that the cloud copy now reflects the given revision.
// A concurrent newer local revision is preserved: synced_revision only
// moves forward.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, revision uint64) error {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE sync_state
		SET synced_revision = MAX(synced_revision, ?), updated_at = CURRENT_TIMESTAMP
		WHERE id = 1`, revision); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}

	slog.InfoContext(ctx, "Revision marked as synced", "revision", revision)
	return nil
}
