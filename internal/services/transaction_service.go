package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"conti/internal/amqp"
	"conti/internal/core"
	"conti/internal/storage"
)

// TransactionService saves transactions and announces every change.
type TransactionService struct {
	transactions storage.TransactionRepository
	categories   *CategoryService
	budgets      *BudgetService
	publisher    EventPublisher
	onChange     []func(groupID string)
}

// NewTransactionService builds the service. publisher may be nil, in which
// case budgets are recalculated inline.
func NewTransactionService(transactions storage.TransactionRepository, categories *CategoryService, budgets *BudgetService, publisher EventPublisher) *TransactionService {
	return &TransactionService{
		transactions: transactions,
		categories:   categories,
		budgets:      budgets,
		publisher:    publisher,
	}
}

// OnChange registers fn to run after every successful write of a group.
func (s *TransactionService) OnChange(fn func(groupID string)) {
	s.onChange = append(s.onChange, fn)
}

func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.Description = strings.TrimSpace(t.Description)
	t.NormalizeAmount()
	t.CategoryID, t.Category = s.categories.Resolve(ctx, t.GroupID, t.CategoryID, t.Category)
	if t.IsRecurring && t.LastRecurredAt == nil {
		// the template itself is the first occurrence
		first := t.Date
		t.LastRecurredAt = &first
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	id, err := s.transactions.AddTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	saved, err := s.transactions.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("reload transaction: %w", err)
	}

	s.notify(ctx, amqp.TransactionCreated, saved.ID, saved.GroupID)
	return saved, nil
}

func (s *TransactionService) Get(ctx context.Context, groupID, id string) (core.Transaction, error) {
	t, err := s.transactions.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if t.GroupID != groupID {
		return core.Transaction{}, outsideGroup("transaction", id)
	}
	return t, nil
}

// List returns the group's transactions matching filter, newest first.
func (s *TransactionService) List(ctx context.Context, groupID string, filter core.FilterOptions) ([]core.Transaction, error) {
	txs, err := s.transactions.ListTransactions(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return filter.Apply(txs), nil
}

func (s *TransactionService) Update(ctx context.Context, groupID, id string, patch TransactionPatch) (core.Transaction, error) {
	t, err := s.Get(ctx, groupID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	patch.Apply(&t)
	t.Description = strings.TrimSpace(t.Description)
	t.CategoryID, t.Category = s.categories.Resolve(ctx, groupID, t.CategoryID, t.Category)
	if t.IsRecurring && t.LastRecurredAt == nil {
		first := t.Date
		t.LastRecurredAt = &first
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.transactions.UpdateTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	s.notify(ctx, amqp.TransactionUpdated, t.ID, t.GroupID)
	return t, nil
}

func (s *TransactionService) Delete(ctx context.Context, groupID, id string) error {
	if _, err := s.Get(ctx, groupID, id); err != nil {
		return err
	}
	if err := s.transactions.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.notify(ctx, amqp.TransactionDeleted, id, groupID)
	return nil
}

// notify never fails the write that triggered it.
func (s *TransactionService) notify(ctx context.Context, typ amqp.EventType, id, groupID string) {
	for _, fn := range s.onChange {
		fn(groupID)
	}

	if s.publisher == nil {
		if s.budgets == nil {
			return
		}
		if err := s.budgets.Recalculate(ctx, groupID); err != nil {
			slog.ErrorContext(ctx, "Failed to recalculate budgets", "group_id", groupID, "error", err)
		}
		return
	}

	if err := s.publisher.PublishTransactionEvent(ctx, amqp.NewTransactionEvent(typ, id, groupID)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"event", typ, "transaction_id", id, "error", err)
	}
}
