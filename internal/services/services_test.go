package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"conti/internal/amqp"
	authmemory "conti/internal/auth/memory"
	"conti/internal/cache"
	"conti/internal/core"
	"conti/internal/stats"
	"conti/internal/storage/memory"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishTransactionEvent(ctx context.Context, event *amqp.TransactionEvent) error {
	return m.Called(ctx, event).Error(0)
}

func eventOf(typ amqp.EventType, groupID string) any {
	return mock.MatchedBy(func(e *amqp.TransactionEvent) bool {
		return e.Type == typ && e.GroupID == groupID && e.TransactionID != ""
	})
}

type fixture struct {
	store        *memory.Store
	categories   *CategoryService
	budgets      *BudgetService
	goals        *GoalService
	groups       *GroupService
	transactions *TransactionService
	stats        *StatsService
}

// newFixture wires every service on one memory store. A nil publisher
// leaves budget recalculation inline.
func newFixture(t *testing.T, publisher EventPublisher) *fixture {
	t.Helper()
	store := memory.New()
	f := &fixture{store: store}
	f.categories = NewCategoryService(store)
	f.budgets = NewBudgetService(store, store, f.categories)
	f.goals = NewGoalService(store, f.categories)
	f.groups = NewGroupService(store)
	f.transactions = NewTransactionService(store, f.categories, f.budgets, publisher)
	f.stats = NewStatsService(store, store, cache.NewLRUCache[Dashboard](16, time.Minute))
	f.transactions.OnChange(f.stats.Invalidate)
	return f
}

func (f *fixture) category(t *testing.T, groupID, name string) core.Category {
	t.Helper()
	cats, err := f.categories.List(context.Background(), groupID)
	require.NoError(t, err)
	c, ok := core.FindCategoryByName(cats, name)
	require.True(t, ok, "category %s", name)
	return c
}

func expense(groupID, description, amount string, date time.Time) core.Transaction {
	return core.Transaction{
		Type:        core.Expense,
		Amount:      decimal.RequireFromString(amount),
		Description: description,
		Date:        date,
		OwnerID:     "u1",
		GroupID:     groupID,
	}
}

func TestTransactionServiceCreate(t *testing.T) {
	ctx := context.Background()
	pub := &mockPublisher{}
	pub.On("PublishTransactionEvent", mock.Anything, eventOf(amqp.TransactionCreated, "g1")).Return(nil).Once()
	f := newFixture(t, pub)
	groceries := f.category(t, "g1", "Groceries")

	tx := expense("g1", "  Weekly shop  ", "0", time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))
	tx.CategoryID = groceries.ID
	tx.Items = []core.LineItem{
		{Name: "Bread", Price: decimal.RequireFromString("2.50"), Quantity: 2},
		{Name: "Milk", Price: decimal.RequireFromString("1.20")},
	}

	got, err := f.transactions.Create(ctx, tx)
	require.NoError(t, err)

	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "Weekly shop", got.Description)
	assert.Equal(t, "6.2", got.Amount.String())
	assert.Equal(t, "Groceries", got.Category)
	pub.AssertExpectations(t)
}

func TestTransactionServiceCreateResolvesCategoryByName(t *testing.T) {
	f := newFixture(t, nil)
	dining := f.category(t, "g1", "Dining Out")

	tx := expense("g1", "Pizza", "18", time.Now())
	tx.Category = "dining out"

	got, err := f.transactions.Create(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, dining.ID, got.CategoryID)
	assert.Equal(t, "Dining Out", got.Category)
}

func TestTransactionServiceCreateValidation(t *testing.T) {
	pub := &mockPublisher{}
	f := newFixture(t, pub)

	_, err := f.transactions.Create(context.Background(), expense("g1", "   ", "5", time.Now()))
	assert.ErrorIs(t, err, core.ErrEmptyDescription)

	txs, err := f.transactions.List(context.Background(), "g1", core.FilterOptions{})
	require.NoError(t, err)
	assert.Empty(t, txs)
	pub.AssertNotCalled(t, "PublishTransactionEvent", mock.Anything, mock.Anything)
}

func TestTransactionServicePublishFailureKeepsWrite(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("PublishTransactionEvent", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	f := newFixture(t, pub)

	got, err := f.transactions.Create(context.Background(), expense("g1", "Taxi", "12", time.Now()))
	require.NoError(t, err)

	stored, err := f.transactions.Get(context.Background(), "g1", got.ID)
	require.NoError(t, err)
	assert.Equal(t, "Taxi", stored.Description)
}

func TestTransactionServiceRecalculatesInlineWithoutPublisher(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	groceries := f.category(t, "g1", "Groceries")

	b, err := f.budgets.Create(ctx, core.Budget{
		CategoryID: groceries.ID,
		Amount:     decimal.NewFromInt(200),
		Period:     core.Monthly,
		StartDate:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		GroupID:    "g1",
	})
	require.NoError(t, err)

	tx := expense("g1", "Market", "150", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))
	tx.CategoryID = groceries.ID
	created, err := f.transactions.Create(ctx, tx)
	require.NoError(t, err)

	view, err := f.budgets.Get(ctx, "g1", b.ID)
	require.NoError(t, err)
	assert.Equal(t, "150", view.Spent.String())
	assert.Equal(t, "50", view.Remaining.String())
	assert.Equal(t, "75", view.Progress.String())
	assert.Equal(t, "medium", string(view.Tier))

	require.NoError(t, f.transactions.Delete(ctx, "g1", created.ID))
	view, err = f.budgets.Get(ctx, "g1", b.ID)
	require.NoError(t, err)
	assert.True(t, view.Spent.IsZero())
}

func TestTransactionServiceUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	pub := &mockPublisher{}
	pub.On("PublishTransactionEvent", mock.Anything, eventOf(amqp.TransactionCreated, "g1")).Return(nil).Once()
	pub.On("PublishTransactionEvent", mock.Anything, eventOf(amqp.TransactionUpdated, "g1")).Return(nil).Once()
	pub.On("PublishTransactionEvent", mock.Anything, eventOf(amqp.TransactionDeleted, "g1")).Return(nil).Once()
	f := newFixture(t, pub)

	created, err := f.transactions.Create(ctx, expense("g1", "Cinema", "20", time.Now()))
	require.NoError(t, err)

	desc := "Cinema and popcorn"
	amount := decimal.NewFromInt(27)
	updated, err := f.transactions.Update(ctx, "g1", created.ID, TransactionPatch{Description: &desc, Amount: &amount})
	require.NoError(t, err)
	assert.Equal(t, desc, updated.Description)
	assert.Equal(t, "27", updated.Amount.String())

	require.NoError(t, f.transactions.Delete(ctx, "g1", created.ID))
	_, err = f.transactions.Get(ctx, "g1", created.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	pub.AssertExpectations(t)
}

func TestTransactionServiceHidesOtherGroups(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	created, err := f.transactions.Create(ctx, expense("g1", "Private", "3", time.Now()))
	require.NoError(t, err)

	_, err = f.transactions.Get(ctx, "g2", created.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	desc := "hijacked"
	_, err = f.transactions.Update(ctx, "g2", created.ID, TransactionPatch{Description: &desc})
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, f.transactions.Delete(ctx, "g2", created.ID), core.ErrNotFound)
}

func TestTransactionServiceRecurringTemplateCountsAsFirstOccurrence(t *testing.T) {
	f := newFixture(t, nil)
	date := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	tx := expense("g1", "Gym", "30", date)
	tx.IsRecurring = true
	tx.RecurringInterval = core.Monthly

	got, err := f.transactions.Create(context.Background(), tx)
	require.NoError(t, err)
	require.NotNil(t, got.LastRecurredAt)
	assert.True(t, got.LastRecurredAt.Equal(date))
}

func TestTransactionServiceListFilters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	_, err := f.transactions.Create(ctx, expense("g1", "March", "10", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	_, err = f.transactions.Create(ctx, expense("g1", "April", "10", time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	txs, err := f.transactions.List(ctx, "g1", core.FilterOptions{Year: 2024, Month: 4})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "April", txs[0].Description)
}

func TestCategoryServiceSeedsDefaultsOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	first, err := f.categories.List(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, first, len(core.DefaultCategories("g1", time.Now())))

	second, err := f.categories.List(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, second, len(first))
}

func TestCategoryServiceCRUD(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	c, err := f.categories.Create(ctx, core.Category{Name: " Pets ", Type: core.Expense, GroupID: "g1", IsDefault: true})
	require.NoError(t, err)
	assert.Equal(t, "Pets", c.Name)
	assert.False(t, c.IsDefault)

	_, err = f.categories.Create(ctx, core.Category{Name: "", Type: core.Expense, GroupID: "g1"})
	assert.ErrorIs(t, err, core.ErrEmptyName)

	color := "#000000"
	updated, err := f.categories.Update(ctx, "g1", c.ID, CategoryPatch{Color: &color})
	require.NoError(t, err)
	assert.Equal(t, color, updated.Color)

	_, err = f.categories.Update(ctx, "g2", c.ID, CategoryPatch{Color: &color})
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, f.categories.Delete(ctx, "g1", c.ID))
	_, err = f.categories.Get(ctx, "g1", c.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestBudgetServiceCreateAndUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	utilities := f.category(t, "g1", "Utilities")

	b, err := f.budgets.Create(ctx, core.Budget{
		CategoryID: utilities.ID,
		Amount:     decimal.NewFromInt(100),
		Spent:      decimal.NewFromInt(40),
		Period:     core.Monthly,
		StartDate:  time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		GroupID:    "g1",
	})
	require.NoError(t, err)
	assert.True(t, b.Spent.IsZero())
	assert.Equal(t, "Utilities", b.Category)
	assert.Equal(t, time.Date(2024, 2, 29, 23, 59, 59, 999999999, time.UTC), b.EndDate)

	period := core.Weekly
	updated, err := f.budgets.Update(ctx, "g1", b.ID, BudgetPatch{Period: &period})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 7, 23, 59, 59, 999999999, time.UTC), updated.EndDate)

	views, err := f.budgets.List(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "low", string(views[0].Tier))

	require.NoError(t, f.budgets.Delete(ctx, "g1", b.ID))
	_, err = f.budgets.Get(ctx, "g1", b.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestBudgetServiceSpentFollowsCategoryAndWindow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	groceries := f.category(t, "g1", "Groceries")
	rent := f.category(t, "g1", "Rent/Mortgage")

	tx := expense("g1", "Market", "60", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))
	tx.CategoryID = groceries.ID
	_, err := f.transactions.Create(ctx, tx)
	require.NoError(t, err)

	b, err := f.budgets.Create(ctx, core.Budget{
		CategoryID: groceries.ID,
		Amount:     decimal.NewFromInt(100),
		Period:     core.Monthly,
		StartDate:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		GroupID:    "g1",
	})
	require.NoError(t, err)
	assert.Equal(t, "60", b.Spent.String(), "existing spend is counted on create")
	assert.Equal(t, "40", b.Remaining.String())

	updated, err := f.budgets.Update(ctx, "g1", b.ID, BudgetPatch{CategoryID: &rent.ID})
	require.NoError(t, err)
	assert.True(t, updated.Spent.IsZero())
	assert.Equal(t, "100", updated.Remaining.String())

	view, err := f.budgets.Get(ctx, "g1", b.ID)
	require.NoError(t, err)
	assert.True(t, view.Progress.IsZero())
	assert.Equal(t, stats.TierLow, view.Tier)

	april := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	updated, err = f.budgets.Update(ctx, "g1", b.ID, BudgetPatch{CategoryID: &groceries.ID, StartDate: &april})
	require.NoError(t, err)
	assert.True(t, updated.Spent.IsZero(), "March spend falls outside the April window")
}

func TestBudgetServiceRejectsInvalid(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.budgets.Create(context.Background(), core.Budget{
		CategoryID: "c1",
		Amount:     decimal.NewFromInt(-1),
		Period:     core.Monthly,
		StartDate:  time.Now(),
		GroupID:    "g1",
	})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}

func TestGoalServiceContribute(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	g, err := f.goals.Create(ctx, core.Goal{
		Name:          "Holiday",
		TargetAmount:  decimal.NewFromInt(1000),
		CurrentAmount: decimal.NewFromInt(500),
		GroupID:       "g1",
	})
	require.NoError(t, err)
	assert.True(t, g.CurrentAmount.IsZero())
	assert.False(t, g.StartDate.IsZero())

	g, err = f.goals.Contribute(ctx, "g1", g.ID, decimal.NewFromInt(600))
	require.NoError(t, err)
	assert.False(t, g.IsCompleted)

	g, err = f.goals.Contribute(ctx, "g1", g.ID, decimal.NewFromInt(400))
	require.NoError(t, err)
	assert.True(t, g.IsCompleted)

	_, err = f.goals.Contribute(ctx, "g1", g.ID, decimal.Zero)
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = f.goals.Contribute(ctx, "g2", g.ID, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, core.ErrNotFound)

	stored, err := f.goals.Get(ctx, "g1", g.ID)
	require.NoError(t, err)
	assert.Equal(t, "1000", stored.CurrentAmount.String())
}

func TestGoalServiceUpdateRecomputesCompletion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	g, err := f.goals.Create(ctx, core.Goal{Name: "Bike", TargetAmount: decimal.NewFromInt(300), GroupID: "g1"})
	require.NoError(t, err)

	target := decimal.Zero
	_, err = f.goals.Update(ctx, "g1", g.ID, GoalPatch{TargetAmount: &target})
	assert.ErrorIs(t, err, core.ErrInvalidTarget)

	current := decimal.NewFromInt(300)
	updated, err := f.goals.Update(ctx, "g1", g.ID, GoalPatch{CurrentAmount: &current})
	require.NoError(t, err)
	assert.True(t, updated.IsCompleted)

	goals, err := f.goals.List(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, goals, 1)

	require.NoError(t, f.goals.Delete(ctx, "g1", g.ID))
}

func TestGroupServiceLinking(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	personal, err := f.groups.EnsurePersonal(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "personal_u1", personal.ID)

	again, err := f.groups.EnsurePersonal(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, personal.ID, again.ID)

	current, err := f.groups.Current(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, personal.ID, current.ID)

	couple, err := f.groups.LinkCouple(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.True(t, couple.IsCouple())

	current, err = f.groups.Current(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, couple.ID, current.ID)

	_, err = f.groups.LinkCouple(ctx, "u2", "u3")
	assert.ErrorIs(t, err, core.ErrAlreadyLinked)

	_, err = f.groups.LinkCouple(ctx, "u4", "u4")
	assert.ErrorIs(t, err, core.ErrAlreadyLinked)

	_, err = f.groups.FindByMember(ctx, "u3")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

type countingStore struct {
	*memory.Store
	lists int
}

func (c *countingStore) ListTransactions(ctx context.Context, groupID string) ([]core.Transaction, error) {
	c.lists++
	return c.Store.ListTransactions(ctx, groupID)
}

func TestStatsServiceDashboardCachesUntilWrite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	counting := &countingStore{Store: f.store}
	f.stats = NewStatsService(counting, counting, cache.NewLRUCache[Dashboard](16, time.Minute))
	f.transactions.OnChange(f.stats.Invalidate)

	income := expense("g1", "Salary", "3000", time.Date(2024, 5, 27, 0, 0, 0, 0, time.UTC))
	income.Type = core.Income
	_, err := f.transactions.Create(ctx, income)
	require.NoError(t, err)
	_, err = f.transactions.Create(ctx, expense("g1", "Rent", "1200", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	d, err := f.stats.Dashboard(ctx, "g1", core.FilterOptions{}, 2024)
	require.NoError(t, err)
	assert.Equal(t, "3000", d.TotalIncome.String())
	assert.Equal(t, "1200", d.TotalExpenses.String())
	assert.Equal(t, "1800", d.Balance.String())
	assert.Equal(t, "60", d.SavingsRate.String())
	assert.Len(t, d.MonthlyData, 12)
	assert.Len(t, d.RecentTransactions, 2)

	_, err = f.stats.Dashboard(ctx, "g1", core.FilterOptions{}, 2024)
	require.NoError(t, err)
	assert.Equal(t, 1, counting.lists)

	_, err = f.transactions.Create(ctx, expense("g1", "Power", "80", time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	d, err = f.stats.Dashboard(ctx, "g1", core.FilterOptions{}, 2024)
	require.NoError(t, err)
	assert.Equal(t, 2, counting.lists)
	assert.Equal(t, "1280", d.TotalExpenses.String())
}

func TestStatsServiceDashboardDefaultsYear(t *testing.T) {
	f := newFixture(t, nil)
	d, err := f.stats.Dashboard(context.Background(), "empty", core.FilterOptions{Year: 2022}, 0)
	require.NoError(t, err)
	assert.Equal(t, 2022, d.Year)
	assert.True(t, d.TotalIncome.IsZero())
	assert.Empty(t, d.Budgets)
}

func TestGroupServiceOnSessionProvisionsPersonalGroup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	gateway := authmemory.New()
	unsubscribe := gateway.Subscribe(f.groups.OnSession(ctx))
	defer unsubscribe()

	s, err := gateway.SignUp(ctx, "kim@example.com", "secret1", "")
	require.NoError(t, err)

	g, err := f.store.GetGroup(ctx, core.PersonalGroupID(s.User.UID))
	require.NoError(t, err)
	assert.Equal(t, []string{s.User.UID}, g.Members)

	require.NoError(t, gateway.SignOut(ctx, s.AccessToken))
}

func TestDashboardBudgetsDoNotWaitForWorker(t *testing.T) {
	ctx := context.Background()
	pub := &mockPublisher{}
	pub.On("PublishTransactionEvent", mock.Anything, eventOf(amqp.TransactionCreated, "g1")).Return(nil).Once()
	f := newFixture(t, pub)
	groceries := f.category(t, "g1", "Groceries")

	b, err := f.budgets.Create(ctx, core.Budget{
		CategoryID: groceries.ID,
		Amount:     decimal.NewFromInt(100),
		Period:     core.Monthly,
		StartDate:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		GroupID:    "g1",
	})
	require.NoError(t, err)

	d, err := f.stats.Dashboard(ctx, "g1", core.FilterOptions{}, 2024)
	require.NoError(t, err)
	require.Len(t, d.Budgets, 1)
	assert.True(t, d.Budgets[0].Spent.IsZero())

	tx := expense("g1", "Market", "60", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))
	tx.CategoryID = groceries.ID
	_, err = f.transactions.Create(ctx, tx)
	require.NoError(t, err)

	stored, err := f.store.GetBudget(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, stored.Spent.IsZero(), "recalculation is left to the worker")

	d, err = f.stats.Dashboard(ctx, "g1", core.FilterOptions{}, 2024)
	require.NoError(t, err)
	require.Len(t, d.Budgets, 1)
	assert.Equal(t, "60", d.Budgets[0].Spent.String())
	assert.Equal(t, "40", d.Budgets[0].Remaining.String())
	pub.AssertExpectations(t)
}

// gatedStore holds the first transaction listing until release is closed
// and honours the caller's context afterwards.
type gatedStore struct {
	*memory.Store
	started chan struct{}
	release chan struct{}
	once    sync.Once
	lists   atomic.Int32
}

func newGatedStore(store *memory.Store) *gatedStore {
	return &gatedStore{Store: store, started: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedStore) ListTransactions(ctx context.Context, groupID string) ([]core.Transaction, error) {
	g.lists.Add(1)
	g.once.Do(func() { close(g.started) })
	<-g.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.Store.ListTransactions(ctx, groupID)
}

func TestStatsServiceDashboardIgnoresCallerCancellation(t *testing.T) {
	f := newFixture(t, nil)
	gated := newGatedStore(f.store)
	svc := NewStatsService(gated, gated, cache.NewLRUCache[Dashboard](16, time.Minute))
	_, err := f.transactions.Create(context.Background(), expense("g1", "Rent", "1200", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	type result struct {
		d   Dashboard
		err error
	}
	done := make(chan result, 1)
	go func() {
		d, err := svc.Dashboard(ctx, "g1", core.FilterOptions{}, 2024)
		done <- result{d, err}
	}()

	<-gated.started
	cancel()
	close(gated.release)

	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, "1200", r.d.TotalExpenses.String())
}

func TestStatsServiceInvalidateDuringLoadSkipsCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	gated := newGatedStore(f.store)
	svc := NewStatsService(gated, gated, cache.NewLRUCache[Dashboard](16, time.Minute))
	f.transactions.OnChange(svc.Invalidate)
	_, err := f.transactions.Create(ctx, expense("g1", "Rent", "1200", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Dashboard(ctx, "g1", core.FilterOptions{}, 2024)
		done <- err
	}()

	<-gated.started
	_, err = f.transactions.Create(ctx, expense("g1", "Power", "80", time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	close(gated.release)
	require.NoError(t, <-done)

	d, err := svc.Dashboard(ctx, "g1", core.FilterOptions{}, 2024)
	require.NoError(t, err)
	assert.Equal(t, int32(2), gated.lists.Load())
	assert.Equal(t, "1280", d.TotalExpenses.String())
}
