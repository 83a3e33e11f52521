package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"conti/internal/storage"
)

// Recalculator periodically recomputes the budgets of every group, catching
// up on events the worker missed.
type Recalculator struct {
	groups   storage.GroupRepository
	budgets  *BudgetService
	interval time.Duration

	mu      sync.Mutex
	running bool
}

func NewRecalculator(groups storage.GroupRepository, budgets *BudgetService, interval time.Duration) *Recalculator {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Recalculator{groups: groups, budgets: budgets, interval: interval}
}

// Run recalculates immediately and then on every tick until ctx is done.
// It returns nil on cancellation.
func (r *Recalculator) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return errors.New("recalculator is already running")
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	slog.InfoContext(ctx, "Budget recalculator started", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.recalculateLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Budget recalculator stopped")
			return nil
		case <-ticker.C:
			r.recalculateLogged(ctx)
		}
	}
}

func (r *Recalculator) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Recalculator) recalculateLogged(ctx context.Context) {
	n, err := r.RecalculateAll(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Budget recalculation failed", "groups", n, "error", err)
		return
	}
	slog.DebugContext(ctx, "Budget recalculation complete", "groups", n)
}

// RecalculateAll recomputes every group and returns how many succeeded.
// A failing group does not stop the others; their errors are joined.
func (r *Recalculator) RecalculateAll(ctx context.Context) (int, error) {
	groups, err := r.groups.ListGroups(ctx)
	if err != nil {
		return 0, fmt.Errorf("list groups: %w", err)
	}

	var errs []error
	done := 0
	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if err := r.budgets.Recalculate(ctx, g.ID); err != nil {
			errs = append(errs, fmt.Errorf("group %s: %w", g.ID, err))
			continue
		}
		done++
	}
	return done, errors.Join(errs...)
}
