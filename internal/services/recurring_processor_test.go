package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conti/internal/core"
)

func TestRecurringProcessorProcessDue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	p := NewRecurringProcessor(f.store, f.transactions)

	start := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	tmpl := expense("g1", "Netflix", "12.99", start)
	tmpl.IsRecurring = true
	tmpl.RecurringInterval = core.Monthly
	tmpl.Tags = []string{"subscriptions"}
	tmpl, err := f.transactions.Create(ctx, tmpl)
	require.NoError(t, err)

	n, err := p.ProcessDue(ctx, time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, n, "creation is the first occurrence")

	feb := time.Date(2024, 2, 15, 10, 0, 0, 0, time.UTC)
	n, err = p.ProcessDue(ctx, feb)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = p.ProcessDue(ctx, feb.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)

	txs, err := f.transactions.List(ctx, "g1", core.FilterOptions{})
	require.NoError(t, err)
	require.Len(t, txs, 2)

	var occurrence core.Transaction
	for _, tx := range txs {
		if tx.ID != tmpl.ID {
			occurrence = tx
		}
	}
	assert.False(t, occurrence.IsRecurring)
	assert.Nil(t, occurrence.LastRecurredAt)
	assert.True(t, occurrence.Date.Equal(feb))
	assert.True(t, occurrence.Amount.Equal(decimal.RequireFromString("12.99")))
	assert.Equal(t, []string{"subscriptions"}, occurrence.Tags)

	stored, err := f.transactions.Get(ctx, "g1", tmpl.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastRecurredAt)
	assert.True(t, stored.LastRecurredAt.Equal(feb))
	assert.True(t, stored.IsRecurring)
}

func TestRecurringProcessorSkipsUnknownInterval(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	_, err := f.store.AddTransaction(ctx, core.Transaction{
		Type:              core.Expense,
		Amount:            decimal.NewFromInt(5),
		Description:       "Broken",
		Date:              time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		GroupID:           "g1",
		IsRecurring:       true,
		RecurringInterval: "hourly",
	})
	require.NoError(t, err)

	n, err := NewRecurringProcessor(f.store, f.transactions).ProcessDue(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRecurringProcessorNotInitialized(t *testing.T) {
	_, err := (&RecurringProcessor{}).ProcessDue(context.Background(), time.Now())
	assert.Error(t, err)
}

func TestRecalculatorRecalculateAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	groceries := f.category(t, "g1", "Groceries")

	_, err := f.groups.EnsurePersonal(ctx, "u1")
	require.NoError(t, err)
	_, err = f.store.AddGroup(ctx, core.Group{ID: "g1", Members: []string{"u1", "u2"}})
	require.NoError(t, err)

	b, err := f.budgets.Create(ctx, core.Budget{
		CategoryID: groceries.ID,
		Amount:     decimal.NewFromInt(100),
		Period:     core.Monthly,
		StartDate:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		GroupID:    "g1",
	})
	require.NoError(t, err)

	// written behind the services' back, so only a full pass sees it
	tx := expense("g1", "Shop", "30", time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC))
	tx.CategoryID = groceries.ID
	_, err = f.store.AddTransaction(ctx, tx)
	require.NoError(t, err)

	r := NewRecalculator(f.store, f.budgets, time.Minute)
	n, err := r.RecalculateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	view, err := f.budgets.Get(ctx, "g1", b.ID)
	require.NoError(t, err)
	assert.Equal(t, "30", view.Spent.String())
}

func TestRecalculatorRunStopsOnCancel(t *testing.T) {
	f := newFixture(t, nil)
	r := NewRecalculator(f.store, f.budgets, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, r.IsRunning, time.Second, 5*time.Millisecond)
	assert.Error(t, r.Run(ctx), "second run must be rejected")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("recalculator did not stop")
	}
	assert.False(t, r.IsRunning())
}
