package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"conti/internal/amqp"
	"conti/internal/core"
	"conti/internal/services"
	"conti/internal/sheets"
	"conti/internal/storage"
)

// EventWorker reacts to transaction events: it keeps budgets current and
// mirrors transactions into the spreadsheet.
type EventWorker struct {
	transactions storage.TransactionRepository
	groups       storage.GroupRepository
	budgets      *services.BudgetService
	exporter     sheets.Exporter
}

// NewEventWorker builds the worker. exporter may be nil to skip the export.
func NewEventWorker(transactions storage.TransactionRepository, groups storage.GroupRepository, budgets *services.BudgetService, exporter sheets.Exporter) *EventWorker {
	return &EventWorker{
		transactions: transactions,
		groups:       groups,
		budgets:      budgets,
		exporter:     exporter,
	}
}

var _ amqp.EventHandler = (*EventWorker)(nil).Handle

// Handle processes one event. A returned error requeues the message.
func (w *EventWorker) Handle(ctx context.Context, event *amqp.TransactionEvent) error {
	slog.InfoContext(ctx, "Processing transaction event",
		"event", event.Type,
		"transaction_id", event.TransactionID,
		"group_id", event.GroupID)

	if err := w.budgets.Recalculate(ctx, event.GroupID); err != nil {
		return fmt.Errorf("recalculate budgets: %w", err)
	}

	if w.exporter == nil {
		return nil
	}

	switch event.Type {
	case amqp.TransactionCreated, amqp.TransactionUpdated:
		return w.export(ctx, event.TransactionID)
	case amqp.TransactionDeleted:
		if err := w.exporter.Remove(ctx, event.TransactionID); err != nil {
			return fmt.Errorf("remove exported row: %w", err)
		}
		slog.InfoContext(ctx, "Removed exported transaction", "transaction_id", event.TransactionID)
		return nil
	default:
		slog.WarnContext(ctx, "Ignoring unknown event type", "event", event.Type)
		return nil
	}
}

func (w *EventWorker) export(ctx context.Context, id string) error {
	t, err := w.transactions.GetTransaction(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		// deleted before the event was consumed; the delete event follows
		slog.InfoContext(ctx, "Transaction gone, skipping export", "transaction_id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}

	ref, err := w.exporter.Export(ctx, t)
	if err != nil {
		return fmt.Errorf("export transaction: %w", err)
	}
	slog.InfoContext(ctx, "Exported transaction", "transaction_id", id, "row", ref)
	return nil
}

// Resync exports every transaction of every group. It recovers rows missed
// while the worker was down. Per-transaction failures are logged and counted.
func (w *EventWorker) Resync(ctx context.Context) (exported, failed int, err error) {
	if w.exporter == nil {
		return 0, 0, nil
	}
	groups, err := w.groups.ListGroups(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list groups: %w", err)
	}

	for _, g := range groups {
		txs, err := w.transactions.ListTransactions(ctx, g.ID)
		if err != nil {
			return exported, failed, fmt.Errorf("list transactions of %s: %w", g.ID, err)
		}
		for _, t := range txs {
			if err := ctx.Err(); err != nil {
				return exported, failed, err
			}
			if _, err := w.exporter.Export(ctx, t); err != nil {
				slog.ErrorContext(ctx, "Failed to export transaction during resync", "transaction_id", t.ID, "error", err)
				failed++
				continue
			}
			exported++
		}
	}

	slog.InfoContext(ctx, "Resync completed", "groups", len(groups), "exported", exported, "failed", failed)
	return exported, failed, nil
}
