// Package storage declares the data-access ports shared by every backend.
//
// Every entity exposes add/get/list/update/delete. List returns the rows of
// one group ordered by creation time, newest first. Updates replace the whole
// row; concurrent writers are last-write-wins.
package storage

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"conti/internal/core"
)

type (
	TransactionRepository interface {
		AddTransaction(ctx context.Context, t core.Transaction) (string, error)
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
		ListTransactions(ctx context.Context, groupID string) ([]core.Transaction, error)
		UpdateTransaction(ctx context.Context, t core.Transaction) error
		DeleteTransaction(ctx context.Context, id string) error
		// ListRecurringTransactions returns recurring templates across all groups.
		ListRecurringTransactions(ctx context.Context) ([]core.Transaction, error)
	}

	CategoryRepository interface {
		AddCategory(ctx context.Context, c core.Category) (string, error)
		GetCategory(ctx context.Context, id string) (core.Category, error)
		ListCategories(ctx context.Context, groupID string) ([]core.Category, error)
		UpdateCategory(ctx context.Context, c core.Category) error
		DeleteCategory(ctx context.Context, id string) error
	}

	BudgetRepository interface {
		AddBudget(ctx context.Context, b core.Budget) (string, error)
		GetBudget(ctx context.Context, id string) (core.Budget, error)
		ListBudgets(ctx context.Context, groupID string) ([]core.Budget, error)
		UpdateBudget(ctx context.Context, b core.Budget) error
		DeleteBudget(ctx context.Context, id string) error
	}

	GoalRepository interface {
		AddGoal(ctx context.Context, g core.Goal) (string, error)
		GetGoal(ctx context.Context, id string) (core.Goal, error)
		ListGoals(ctx context.Context, groupID string) ([]core.Goal, error)
		UpdateGoal(ctx context.Context, g core.Goal) error
		DeleteGoal(ctx context.Context, id string) error
	}

	GroupRepository interface {
		AddGroup(ctx context.Context, g core.Group) (string, error)
		GetGroup(ctx context.Context, id string) (core.Group, error)
		// FindGroupByMember returns the couple group of uid, or core.ErrNotFound.
		FindGroupByMember(ctx context.Context, uid string) (core.Group, error)
		ListGroups(ctx context.Context) ([]core.Group, error)
	}

	// Repository is the full set of ports a backend provides.
	Repository interface {
		TransactionRepository
		CategoryRepository
		BudgetRepository
		GoalRepository
		GroupRepository
	}
)

// PrepareNew assigns an id and creation time when they are missing.
func PrepareNew(id *string, createdAt *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	if createdAt.IsZero() {
		*createdAt = time.Now().UTC()
	}
}

// SortNewestFirst orders items by creation time descending, id breaking ties.
func SortNewestFirst[T any](items []T, key func(T) (time.Time, string)) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if ti.Equal(tj) {
			return idi > idj
		}
		return ti.After(tj)
	})
}
