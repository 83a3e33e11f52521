// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conti/internal/core"
	"conti/internal/storage"
)

// Run exercises repo against the common repository contract.
func Run(t *testing.T, newRepo func(t *testing.T) storage.Repository) {
	t.Run("TransactionCRUD", func(t *testing.T) { testTransactionCRUD(t, newRepo(t)) })
	t.Run("ListNewestFirst", func(t *testing.T) { testListNewestFirst(t, newRepo(t)) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, newRepo(t)) })
	t.Run("Recurring", func(t *testing.T) { testRecurring(t, newRepo(t)) })
	t.Run("CategoryBudgetGoal", func(t *testing.T) { testCategoryBudgetGoal(t, newRepo(t)) })
	t.Run("Groups", func(t *testing.T) { testGroups(t, newRepo(t)) })
}

func at(day int) time.Time {
	return time.Date(2024, 3, day, 12, 0, 0, 0, time.UTC)
}

func sampleTransaction(group string) core.Transaction {
	return core.Transaction{
		Type:        core.Expense,
		Amount:      decimal.RequireFromString("12.50"),
		Description: "Lunch",
		Category:    "Dining Out",
		CategoryID:  "cat-dining",
		Date:        at(10),
		OwnerID:     "u1",
		OwnerName:   "Ada",
		GroupID:     group,
		IsShared:    true,
		Tags:        []string{"work"},
		Items: []core.LineItem{
			{Name: "Pasta", Price: decimal.RequireFromString("10.00"), Quantity: 1},
			{Name: "Water", Price: decimal.RequireFromString("1.25"), Quantity: 2},
		},
		Notes: "with team",
	}
}

func testTransactionCRUD(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	tx := sampleTransaction("g1")

	id, err := repo.AddTransaction(ctx, tx)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := repo.GetTransaction(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.True(t, got.Amount.Equal(tx.Amount))
	assert.Equal(t, tx.Description, got.Description)
	assert.True(t, got.Date.Equal(tx.Date))
	assert.Equal(t, []string{"work"}, got.Tags)
	require.Len(t, got.Items, 2)
	assert.Equal(t, 2, got.Items[1].Quantity)
	assert.False(t, got.CreatedAt.IsZero())
	assert.Nil(t, got.LastRecurredAt)

	got.Description = "Team lunch"
	got.Amount = decimal.RequireFromString("20")
	got.Items = nil
	require.NoError(t, repo.UpdateTransaction(ctx, got))

	updated, err := repo.GetTransaction(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Team lunch", updated.Description)
	assert.True(t, updated.Amount.Equal(decimal.NewFromInt(20)))
	assert.Empty(t, updated.Items)
	assert.True(t, updated.CreatedAt.Equal(got.CreatedAt))

	require.NoError(t, repo.DeleteTransaction(ctx, id))
	_, err = repo.GetTransaction(ctx, id)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func testListNewestFirst(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, desc := range []string{"first", "second", "third"} {
		tx := sampleTransaction("g1")
		tx.Description = desc
		tx.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		_, err := repo.AddTransaction(ctx, tx)
		require.NoError(t, err)
	}
	other := sampleTransaction("g2")
	_, err := repo.AddTransaction(ctx, other)
	require.NoError(t, err)

	list, err := repo.ListTransactions(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "third", list[0].Description)
	assert.Equal(t, "second", list[1].Description)
	assert.Equal(t, "first", list[2].Description)

	empty, err := repo.ListTransactions(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func testNotFound(t *testing.T, repo storage.Repository) {
	ctx := context.Background()

	_, err := repo.GetTransaction(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, repo.UpdateTransaction(ctx, core.Transaction{ID: "missing", Type: core.Expense, GroupID: "g"}), core.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteTransaction(ctx, "missing"), core.ErrNotFound)

	_, err = repo.GetCategory(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteBudget(ctx, "missing"), core.ErrNotFound)
	assert.ErrorIs(t, repo.UpdateGoal(ctx, core.Goal{ID: "missing"}), core.ErrNotFound)
	_, err = repo.GetGroup(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func testRecurring(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	last := at(1)

	rec := sampleTransaction("g1")
	rec.IsRecurring = true
	rec.RecurringInterval = core.Monthly
	rec.LastRecurredAt = &last
	recID, err := repo.AddTransaction(ctx, rec)
	require.NoError(t, err)

	_, err = repo.AddTransaction(ctx, sampleTransaction("g2"))
	require.NoError(t, err)

	list, err := repo.ListRecurringTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, recID, list[0].ID)
	assert.Equal(t, core.Monthly, list[0].RecurringInterval)
	require.NotNil(t, list[0].LastRecurredAt)
	assert.True(t, list[0].LastRecurredAt.Equal(last))
}

func testCategoryBudgetGoal(t *testing.T, repo storage.Repository) {
	ctx := context.Background()

	catID, err := repo.AddCategory(ctx, core.Category{Name: "Groceries", Type: core.Expense, Icon: "cart", GroupID: "g1", IsDefault: true})
	require.NoError(t, err)
	cat, err := repo.GetCategory(ctx, catID)
	require.NoError(t, err)
	assert.True(t, cat.IsDefault)
	cat.Name = "Food"
	require.NoError(t, repo.UpdateCategory(ctx, cat))
	cats, err := repo.ListCategories(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Food", cats[0].Name)

	budget := core.Budget{
		CategoryID: catID,
		Category:   "Food",
		Amount:     decimal.NewFromInt(300),
		Spent:      decimal.NewFromInt(120),
		Period:     core.Monthly,
		StartDate:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		GroupID:    "g1",
		Rollover:   true,
	}
	budget.Recompute()
	budgetID, err := repo.AddBudget(ctx, budget)
	require.NoError(t, err)
	gotBudget, err := repo.GetBudget(ctx, budgetID)
	require.NoError(t, err)
	assert.True(t, gotBudget.Remaining.Equal(decimal.NewFromInt(180)))
	assert.True(t, gotBudget.EndDate.Equal(budget.EndDate))
	assert.True(t, gotBudget.Rollover)

	target := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	goalID, err := repo.AddGoal(ctx, core.Goal{
		Name:          "Holiday",
		TargetAmount:  decimal.NewFromInt(1000),
		CurrentAmount: decimal.NewFromInt(250),
		StartDate:     at(1),
		TargetDate:    &target,
		GroupID:       "g1",
	})
	require.NoError(t, err)
	goal, err := repo.GetGoal(ctx, goalID)
	require.NoError(t, err)
	require.NotNil(t, goal.TargetDate)
	assert.True(t, goal.TargetDate.Equal(target))
	require.NoError(t, goal.Contribute(decimal.NewFromInt(750)))
	require.NoError(t, repo.UpdateGoal(ctx, goal))
	goals, err := repo.ListGoals(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.True(t, goals[0].IsCompleted)

	require.NoError(t, repo.DeleteCategory(ctx, catID))
	require.NoError(t, repo.DeleteBudget(ctx, budgetID))
	require.NoError(t, repo.DeleteGoal(ctx, goalID))
	budgets, err := repo.ListBudgets(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, budgets)
}

func testGroups(t *testing.T, repo storage.Repository) {
	ctx := context.Background()

	_, err := repo.AddGroup(ctx, core.Group{ID: core.PersonalGroupID("u1"), Members: []string{"u1"}})
	require.NoError(t, err)

	_, err = repo.FindGroupByMember(ctx, "u1")
	assert.ErrorIs(t, err, core.ErrNotFound)

	id, err := repo.AddGroup(ctx, core.Group{Members: []string{"u1", "u2"}})
	require.NoError(t, err)

	g, err := repo.FindGroupByMember(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, id, g.ID)
	assert.ElementsMatch(t, []string{"u1", "u2"}, g.Members)

	personal, err := repo.GetGroup(ctx, core.PersonalGroupID("u1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, personal.Members)

	// only the literal prefix marks a personal group
	lookalike := "personalXu3u4"
	_, err = repo.AddGroup(ctx, core.Group{ID: lookalike, Members: []string{"u3", "u4"}})
	require.NoError(t, err)
	g, err = repo.FindGroupByMember(ctx, "u3")
	require.NoError(t, err)
	assert.Equal(t, lookalike, g.ID)

	all, err := repo.ListGroups(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(all))
	for _, g := range all {
		ids = append(ids, g.ID)
	}
	assert.ElementsMatch(t, []string{id, core.PersonalGroupID("u1"), lookalike}, ids)
}
