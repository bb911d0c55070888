// Package worker exports committed transactions to an external ledger copy.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"buste/internal/amqp"
	"buste/internal/core"
	"buste/internal/sheets"
	"buste/internal/storage"
)

// ExportWorker consumes ledger events and appends the corresponding
// transaction rows through a LedgerWriter. The export is append-only:
// amendments re-enter the pending state and are appended again; removals and
// transfers carry no row to export.
type ExportWorker struct {
	storage   *storage.SQLiteRepository
	writer    sheets.LedgerWriter
	batchSize int
}

func NewExportWorker(storage *storage.SQLiteRepository, writer sheets.LedgerWriter, batchSize int) *ExportWorker {
	return &ExportWorker{
		storage:   storage,
		writer:    writer,
		batchSize: batchSize,
	}
}

// HandleLedgerEvent processes one event from the queue.
func (w *ExportWorker) HandleLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	switch ev.Kind {
	case amqp.EventTransactionCreated, amqp.EventTransactionAmended:
		return w.exportTransaction(ctx, ev.TransactionID)
	case amqp.EventTransactionRemoved, amqp.EventTransfer:
		// Nothing to append; the periodic sweep covers everything else.
		slog.DebugContext(ctx, "Ledger event needs no export", "kind", ev.Kind)
		return nil
	default:
		return fmt.Errorf("unknown ledger event kind %q", ev.Kind)
	}
}

func (w *ExportWorker) exportTransaction(ctx context.Context, id int64) error {
	t, err := w.storage.GetTransaction(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		// Removed between commit and consumption; nothing left to export.
		slog.WarnContext(ctx, "Transaction vanished before export", "id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load transaction for export: %w", err)
	}

	if err := w.writer.AppendTransaction(ctx, t); err != nil {
		if markErr := w.storage.MarkExportError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append transaction %d: %w", id, err)
	}

	if err := w.storage.MarkExported(ctx, id); err != nil {
		return fmt.Errorf("mark transaction exported: %w", err)
	}

	slog.InfoContext(ctx, "Transaction exported", "id", id)
	return nil
}

// ProcessPending sweeps transactions still in the pending state, catching up
// on events that were lost or never published.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.ListPendingExport(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending export: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Sweeping pending exports", "count", len(pending))

	var failed int
	for _, t := range pending {
		if err := w.exportTransaction(ctx, t.ID); err != nil {
			slog.ErrorContext(ctx, "Pending export failed", "id", t.ID, "error", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d pending exports failed", failed, len(pending))
	}
	return nil
}
