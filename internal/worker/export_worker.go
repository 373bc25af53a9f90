// Package worker drains ledger events into the external export sheet.
package worker

import (
	"context"
	"errors"
	"fmt"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/export"
	"tally/internal/log"
)

// ExportStore is the slice of storage the worker needs.
type ExportStore interface {
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	PendingExport(ctx context.Context, limit int) ([]core.Transaction, error)
	MarkExported(ctx context.Context, id int64) error
}

// ExportWorker copies created transactions to the export sheet and marks
// them exported. Deleted rows stay in the sheet; the event is only logged.
type ExportWorker struct {
	store     ExportStore
	sheet     export.RowWriter
	batchSize int
	logger    *log.Logger
}

func NewExportWorker(store ExportStore, sheet export.RowWriter, batchSize int) *ExportWorker {
	return &ExportWorker{
		store:     store,
		sheet:     sheet,
		batchSize: batchSize,
		logger:    log.New(log.DefaultConfig()).WithComponent(log.ComponentWorker),
	}
}

// HandleEvent processes a single ledger event from the queue.
func (w *ExportWorker) HandleEvent(ctx context.Context, event *amqp.LedgerEvent) error {
	switch event.Kind {
	case amqp.EventTransactionCreated:
		return w.exportTransaction(ctx, event.ID)
	case amqp.EventTransactionDeleted:
		// The sheet is an append-only audit trail; deletions are not mirrored.
		w.logger.InfoContext(ctx, "Transaction deleted, keeping sheet row",
			log.FieldTransaction, event.ID)
		return nil
	default:
		w.logger.WarnContext(ctx, "Ignoring unknown event kind",
			"kind", event.Kind, log.FieldTransaction, event.ID)
		return nil
	}
}

func (w *ExportWorker) exportTransaction(ctx context.Context, id int64) error {
	tx, err := w.store.GetTransaction(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// Row was deleted before the event was consumed. Nothing to export.
			w.logger.WarnContext(ctx, "Transaction gone before export",
				log.FieldTransaction, id)
			return nil
		}
		return fmt.Errorf("get transaction %d: %w", id, err)
	}

	ref, err := w.sheet.Append(ctx, tx)
	if err != nil {
		return fmt.Errorf("append transaction %d to sheet: %w", id, err)
	}

	if err := w.store.MarkExported(ctx, id); err != nil {
		// The append succeeded; the pending sweep will retry the mark and
		// at worst duplicate the row, never lose it.
		w.logger.ErrorContext(ctx, "Failed to mark transaction exported",
			log.FieldTransaction, id, log.FieldError, err)
		return nil
	}

	w.logger.InfoContext(ctx, "Exported transaction",
		log.FieldTransaction, id, "sheets_ref", ref)
	return nil
}

// ProcessPending sweeps transactions that never made it to the sheet.
// This is the backup path for lost or unpublished events.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.store.PendingExport(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	w.logger.InfoContext(ctx, "Processing pending exports", "count", len(pending))

	var exported, failed int
	for _, tx := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		ref, err := w.sheet.Append(ctx, tx)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to export pending transaction",
				log.FieldTransaction, tx.ID, log.FieldError, err)
			failed++
			continue
		}
		if err := w.store.MarkExported(ctx, tx.ID); err != nil {
			w.logger.ErrorContext(ctx, "Failed to mark transaction exported",
				log.FieldTransaction, tx.ID, log.FieldError, err)
			failed++
			continue
		}
		w.logger.InfoContext(ctx, "Exported pending transaction",
			log.FieldTransaction, tx.ID, "sheets_ref", ref)
		exported++
	}

	w.logger.InfoContext(ctx, "Pending export sweep complete",
		"exported", exported, "failed", failed)
	return nil
}
