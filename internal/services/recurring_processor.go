package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"conti/internal/core"
	"conti/internal/storage"
)

// RecurringProcessor materialises occurrences of recurring transactions.
type RecurringProcessor struct {
	transactions storage.TransactionRepository
	service      *TransactionService
}

func NewRecurringProcessor(transactions storage.TransactionRepository, service *TransactionService) *RecurringProcessor {
	return &RecurringProcessor{transactions: transactions, service: service}
}

// ProcessDue creates one non-recurring copy, dated now, of every template
// that is due and advances its lastRecurredAt. Failures of a single template
// are logged and skipped. It returns the number of copies created.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.transactions == nil || p.service == nil {
		return 0, errors.New("processor not properly initialized")
	}

	templates, err := p.transactions.ListRecurringTransactions(ctx)
	if err != nil {
		return 0, fmt.Errorf("list recurring transactions: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring transactions",
		"templates", len(templates),
		"now", now.Format(time.DateOnly))

	created := 0
	for _, tmpl := range templates {
		if err := ctx.Err(); err != nil {
			return created, err
		}

		due, err := p.isDue(tmpl, now)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to check recurring transaction", "id", tmpl.ID, "error", err)
			continue
		}
		if !due {
			continue
		}

		occurrence, err := p.service.Create(ctx, occurrenceOf(tmpl, now))
		if err != nil {
			slog.ErrorContext(ctx, "Failed to create recurring occurrence",
				"template_id", tmpl.ID,
				"description", tmpl.Description,
				"error", err)
			continue
		}

		last := now
		tmpl.LastRecurredAt = &last
		if err := p.transactions.UpdateTransaction(ctx, tmpl); err != nil {
			// the occurrence exists; the next run would duplicate it
			slog.ErrorContext(ctx, "Failed to advance recurring template",
				"template_id", tmpl.ID,
				"occurrence_id", occurrence.ID,
				"error", err)
		}

		created++
		slog.InfoContext(ctx, "Created recurring occurrence",
			"template_id", tmpl.ID,
			"occurrence_id", occurrence.ID,
			"amount", occurrence.Amount.StringFixed(2),
			"interval", tmpl.RecurringInterval)
	}

	slog.InfoContext(ctx, "Recurring processing complete", "created", created, "checked", len(templates))
	return created, nil
}

func (p *RecurringProcessor) isDue(tmpl core.Transaction, now time.Time) (bool, error) {
	checker, err := GetDuenessChecker(tmpl.RecurringInterval)
	if err != nil {
		return false, err
	}
	last := tmpl.Date
	if tmpl.LastRecurredAt != nil {
		last = *tmpl.LastRecurredAt
	}
	return checker.IsDue(last, now, tmpl.Date), nil
}

func occurrenceOf(tmpl core.Transaction, now time.Time) core.Transaction {
	t := tmpl
	t.ID = ""
	t.CreatedAt = time.Time{}
	t.Date = now
	t.IsRecurring = false
	t.RecurringInterval = ""
	t.LastRecurredAt = nil
	t.Tags = append([]string(nil), tmpl.Tags...)
	t.Items = append([]core.LineItem(nil), tmpl.Items...)
	return t
}
