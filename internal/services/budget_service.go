package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"conti/internal/core"
	"conti/internal/stats"
	"conti/internal/storage"
)

// BudgetView is a budget with its display progress.
type BudgetView struct {
	core.Budget
	Progress decimal.Decimal `json:"progress"`
	Tier     stats.Tier      `json:"tier"`
}

func NewBudgetView(b core.Budget) BudgetView {
	p := stats.BudgetProgress(b.Spent, b.Amount)
	return BudgetView{Budget: b, Progress: p.Round(2), Tier: stats.ProgressTier(p)}
}

type BudgetService struct {
	budgets      storage.BudgetRepository
	transactions storage.TransactionRepository
	categories   *CategoryService
}

func NewBudgetService(budgets storage.BudgetRepository, transactions storage.TransactionRepository, categories *CategoryService) *BudgetService {
	return &BudgetService{budgets: budgets, transactions: transactions, categories: categories}
}

// Create seeds spent from the transactions already inside the window.
func (s *BudgetService) Create(ctx context.Context, b core.Budget) (core.Budget, error) {
	b.CategoryID, b.Category = s.categories.Resolve(ctx, b.GroupID, b.CategoryID, b.Category)
	b.Recompute()
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if err := s.refreshSpent(ctx, &b); err != nil {
		return core.Budget{}, err
	}
	id, err := s.budgets.AddBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}
	return s.budgets.GetBudget(ctx, id)
}

func (s *BudgetService) get(ctx context.Context, groupID, id string) (core.Budget, error) {
	b, err := s.budgets.GetBudget(ctx, id)
	if err != nil {
		return core.Budget{}, err
	}
	if b.GroupID != groupID {
		return core.Budget{}, outsideGroup("budget", id)
	}
	return b, nil
}

func (s *BudgetService) Get(ctx context.Context, groupID, id string) (BudgetView, error) {
	b, err := s.get(ctx, groupID, id)
	if err != nil {
		return BudgetView{}, err
	}
	return NewBudgetView(b), nil
}

func (s *BudgetService) List(ctx context.Context, groupID string) ([]BudgetView, error) {
	budgets, err := s.budgets.ListBudgets(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	out := make([]BudgetView, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, NewBudgetView(b))
	}
	return out, nil
}

func (s *BudgetService) Update(ctx context.Context, groupID, id string, patch BudgetPatch) (core.Budget, error) {
	b, err := s.get(ctx, groupID, id)
	if err != nil {
		return core.Budget{}, err
	}
	patch.Apply(&b)
	b.CategoryID, b.Category = s.categories.Resolve(ctx, groupID, b.CategoryID, b.Category)
	b.Recompute()
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if err := s.refreshSpent(ctx, &b); err != nil {
		return core.Budget{}, err
	}
	if err := s.budgets.UpdateBudget(ctx, b); err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	return b, nil
}

// refreshSpent recomputes spent for b's category and window.
func (s *BudgetService) refreshSpent(ctx context.Context, b *core.Budget) error {
	txs, err := s.transactions.ListTransactions(ctx, b.GroupID)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	b.Spent = stats.BudgetSpent(*b, txs)
	b.Recompute()
	return nil
}

func (s *BudgetService) Delete(ctx context.Context, groupID, id string) error {
	if _, err := s.get(ctx, groupID, id); err != nil {
		return err
	}
	return s.budgets.DeleteBudget(ctx, id)
}

// Recalculate recomputes spent for every budget of the group from its
// transactions and persists the budgets that changed.
func (s *BudgetService) Recalculate(ctx context.Context, groupID string) error {
	budgets, err := s.budgets.ListBudgets(ctx, groupID)
	if err != nil {
		return fmt.Errorf("list budgets: %w", err)
	}
	if len(budgets) == 0 {
		return nil
	}
	txs, err := s.transactions.ListTransactions(ctx, groupID)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}

	updated := 0
	for _, b := range budgets {
		spent := stats.BudgetSpent(b, txs)
		if spent.Equal(b.Spent) {
			continue
		}
		b.Spent = spent
		b.Recompute()
		if err := s.budgets.UpdateBudget(ctx, b); err != nil {
			return fmt.Errorf("update budget %s: %w", b.ID, err)
		}
		updated++
	}

	slog.DebugContext(ctx, "Recalculated budgets", "group_id", groupID, "budgets", len(budgets), "updated", updated)
	return nil
}
