package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"buste/internal/core"
)

// Export states for the ledger export worker. The ledger engine itself never
// reads these; they only drive the catch-up sweep.
const (
	SyncStatePending = "pending"
	SyncStateSynced  = "synced"
	SyncStateError   = "error"
)

const transactionColumns = `id, date, description, payment_amount_cents, envelope_id`

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var t core.Transaction
	err := row.Scan(&t.ID, &t.Date, &t.Description, &t.PaymentAmount.Cents, &t.EnvelopeID)
	return t, err
}

// GetTransaction returns the transaction with the given id, or core.ErrNotFound.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	return r.TransactionByID(ctx, r.db, id)
}

// TransactionByID reads a single transaction through q.
func (r *SQLiteRepository) TransactionByID(ctx context.Context, q DBTX, id int64) (core.Transaction, error) {
	t, err := scanTransaction(q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// ListTransactions returns all transactions ordered by id ascending.
func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("list transactions: scan: %w", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return transactions, nil
}

// InsertTransaction stores a new transaction row through q and returns it
// with its assigned id.
func (r *SQLiteRepository) InsertTransaction(ctx context.Context, q DBTX, date time.Time, description string, paymentAmountCents, envelopeID int64) (core.Transaction, error) {
	res, err := q.ExecContext(ctx,
		`INSERT INTO transactions (date, description, payment_amount_cents, envelope_id) VALUES (?, ?, ?, ?)`,
		date, description, paymentAmountCents, envelopeID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: last insert id: %w", err)
	}

	return core.Transaction{
		ID:            id,
		Date:          date,
		Description:   description,
		PaymentAmount: core.Money{Cents: paymentAmountCents},
		EnvelopeID:    envelopeID,
	}, nil
}

// UpdateTransactionFields overwrites description and payment amount through q.
// The amended row goes back to the pending export state.
func (r *SQLiteRepository) UpdateTransactionFields(ctx context.Context, q DBTX, id int64, description string, paymentAmountCents int64) error {
	res, err := q.ExecContext(ctx,
		`UPDATE transactions SET description = ?, payment_amount_cents = ?, sync_state = ? WHERE id = ?`,
		description, paymentAmountCents, SyncStatePending, id)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("update transaction: rows affected: %w", err)
	} else if affected == 0 {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return nil
}

// DeleteTransactionRow removes a transaction row through q.
func (r *SQLiteRepository) DeleteTransactionRow(ctx context.Context, q DBTX, id int64) error {
	res, err := q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("delete transaction: rows affected: %w", err)
	} else if affected == 0 {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return nil
}

// ListPendingExport returns up to limit transactions still waiting to be
// exported, oldest first.
func (r *SQLiteRepository) ListPendingExport(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE sync_state = ? ORDER BY id LIMIT ?`,
		SyncStatePending, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending export: %w", err)
	}
	defer rows.Close()

	var transactions []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("list pending export: scan: %w", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending export: %w", err)
	}
	return transactions, nil
}

// MarkExported records a successful export of a transaction.
func (r *SQLiteRepository) MarkExported(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_state = ?, synced_at = CURRENT_TIMESTAMP WHERE id = ?`,
		SyncStateSynced, id)
	if err != nil {
		return fmt.Errorf("mark transaction exported: %w", err)
	}
	return nil
}

// MarkExportError flags a transaction whose export failed so the sweep can
// retry it explicitly.
func (r *SQLiteRepository) MarkExportError(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_state = ? WHERE id = ?`,
		SyncStateError, id)
	if err != nil {
		return fmt.Errorf("mark transaction export error: %w", err)
	}
	return nil
}
