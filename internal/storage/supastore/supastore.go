// Package supastore implements the storage ports over the Supabase REST API.
// It expects the schema shipped with the postgres backend.
package supastore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"

	"conti/internal/core"
	"conti/internal/storage"
)

const (
	tableTransactions = "transactions"
	tableCategories   = "categories"
	tableBudgets      = "budgets"
	tableGoals        = "goals"
	tableGroups       = "member_groups"

	returnRows = "representation"
)

var newestFirst = &postgrest.OrderOpts{Ascending: false}

type Repository struct {
	client *supabase.Client
}

var _ storage.Repository = (*Repository)(nil)

func NewRepository(client *supabase.Client) *Repository {
	return &Repository{client: client}
}

type (
	transactionRow struct {
		ID                string          `json:"id"`
		Type              string          `json:"type"`
		Amount            decimal.Decimal `json:"amount"`
		Description       string          `json:"description"`
		Category          string          `json:"category"`
		CategoryID        string          `json:"category_id"`
		Date              time.Time       `json:"date"`
		OwnerID           string          `json:"owner_id"`
		OwnerName         string          `json:"owner_name"`
		GroupID           string          `json:"group_id"`
		IsShared          bool            `json:"is_shared"`
		Tags              []string        `json:"tags"`
		IsRecurring       bool            `json:"is_recurring"`
		RecurringInterval string          `json:"recurring_interval"`
		LastRecurredAt    *time.Time      `json:"last_recurred_at"`
		Receipt           string          `json:"receipt"`
		Location          string          `json:"location"`
		Items             []core.LineItem `json:"items"`
		Notes             string          `json:"notes"`
		CreatedAt         time.Time       `json:"created_at"`
	}

	categoryRow struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Type      string    `json:"type"`
		Icon      string    `json:"icon"`
		Color     string    `json:"color"`
		ParentID  string    `json:"parent_id"`
		IsDefault bool      `json:"is_default"`
		GroupID   string    `json:"group_id"`
		CreatedAt time.Time `json:"created_at"`
	}

	budgetRow struct {
		ID         string          `json:"id"`
		CategoryID string          `json:"category_id"`
		Category   string          `json:"category"`
		Amount     decimal.Decimal `json:"amount"`
		Spent      decimal.Decimal `json:"spent"`
		Remaining  decimal.Decimal `json:"remaining"`
		Period     string          `json:"period"`
		StartDate  time.Time       `json:"start_date"`
		EndDate    time.Time       `json:"end_date"`
		Rollover   bool            `json:"rollover"`
		GroupID    string          `json:"group_id"`
		CreatedAt  time.Time       `json:"created_at"`
	}

	goalRow struct {
		ID            string          `json:"id"`
		Name          string          `json:"name"`
		TargetAmount  decimal.Decimal `json:"target_amount"`
		CurrentAmount decimal.Decimal `json:"current_amount"`
		StartDate     time.Time       `json:"start_date"`
		TargetDate    *time.Time      `json:"target_date"`
		CategoryID    string          `json:"category_id"`
		Category      string          `json:"category"`
		IconEmoji     string          `json:"icon_emoji"`
		Color         string          `json:"color"`
		IsCompleted   bool            `json:"is_completed"`
		GroupID       string          `json:"group_id"`
		CreatedAt     time.Time       `json:"created_at"`
	}

	groupRow struct {
		ID        string    `json:"id"`
		Members   []string  `json:"members"`
		CreatedAt time.Time `json:"created_at"`
	}
)

func toTransactionRow(t core.Transaction) transactionRow {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	items := t.Items
	if items == nil {
		items = []core.LineItem{}
	}
	return transactionRow{
		ID: t.ID, Type: string(t.Type), Amount: t.Amount, Description: t.Description, Category: t.Category,
		CategoryID: t.CategoryID, Date: t.Date, OwnerID: t.OwnerID, OwnerName: t.OwnerName, GroupID: t.GroupID,
		IsShared: t.IsShared, Tags: tags, IsRecurring: t.IsRecurring, RecurringInterval: string(t.RecurringInterval),
		LastRecurredAt: t.LastRecurredAt, Receipt: t.Receipt, Location: t.Location, Items: items, Notes: t.Notes,
		CreatedAt: t.CreatedAt,
	}
}

func (r transactionRow) toCore() core.Transaction {
	return core.Transaction{
		ID: r.ID, Type: core.TransactionType(r.Type), Amount: r.Amount, Description: r.Description, Category: r.Category,
		CategoryID: r.CategoryID, Date: r.Date, OwnerID: r.OwnerID, OwnerName: r.OwnerName, GroupID: r.GroupID,
		IsShared: r.IsShared, Tags: r.Tags, IsRecurring: r.IsRecurring, RecurringInterval: core.Interval(r.RecurringInterval),
		LastRecurredAt: r.LastRecurredAt, Receipt: r.Receipt, Location: r.Location, Items: r.Items, Notes: r.Notes,
		CreatedAt: r.CreatedAt,
	}
}

func toCategoryRow(c core.Category) categoryRow {
	return categoryRow{
		ID: c.ID, Name: c.Name, Type: string(c.Type), Icon: c.Icon, Color: c.Color, ParentID: c.ParentID,
		IsDefault: c.IsDefault, GroupID: c.GroupID, CreatedAt: c.CreatedAt,
	}
}

func (r categoryRow) toCore() core.Category {
	return core.Category{
		ID: r.ID, Name: r.Name, Type: core.TransactionType(r.Type), Icon: r.Icon, Color: r.Color, ParentID: r.ParentID,
		IsDefault: r.IsDefault, GroupID: r.GroupID, CreatedAt: r.CreatedAt,
	}
}

func toBudgetRow(b core.Budget) budgetRow {
	return budgetRow{
		ID: b.ID, CategoryID: b.CategoryID, Category: b.Category, Amount: b.Amount, Spent: b.Spent,
		Remaining: b.Remaining, Period: string(b.Period), StartDate: b.StartDate, EndDate: b.EndDate,
		Rollover: b.Rollover, GroupID: b.GroupID, CreatedAt: b.CreatedAt,
	}
}

func (r budgetRow) toCore() core.Budget {
	return core.Budget{
		ID: r.ID, CategoryID: r.CategoryID, Category: r.Category, Amount: r.Amount, Spent: r.Spent,
		Remaining: r.Remaining, Period: core.Interval(r.Period), StartDate: r.StartDate, EndDate: r.EndDate,
		Rollover: r.Rollover, GroupID: r.GroupID, CreatedAt: r.CreatedAt,
	}
}

func toGoalRow(g core.Goal) goalRow {
	return goalRow{
		ID: g.ID, Name: g.Name, TargetAmount: g.TargetAmount, CurrentAmount: g.CurrentAmount, StartDate: g.StartDate,
		TargetDate: g.TargetDate, CategoryID: g.CategoryID, Category: g.Category, IconEmoji: g.IconEmoji,
		Color: g.Color, IsCompleted: g.IsCompleted, GroupID: g.GroupID, CreatedAt: g.CreatedAt,
	}
}

func (r goalRow) toCore() core.Goal {
	return core.Goal{
		ID: r.ID, Name: r.Name, TargetAmount: r.TargetAmount, CurrentAmount: r.CurrentAmount, StartDate: r.StartDate,
		TargetDate: r.TargetDate, CategoryID: r.CategoryID, Category: r.Category, IconEmoji: r.IconEmoji,
		Color: r.Color, IsCompleted: r.IsCompleted, GroupID: r.GroupID, CreatedAt: r.CreatedAt,
	}
}

func mapRows[R any, T any](rows []R, conv func(R) T) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		out = append(out, conv(r))
	}
	return out
}

// The helpers below share the PostgREST plumbing across tables.

func (r *Repository) insert(table string, row any) error {
	if _, _, err := r.client.From(table).Insert(row, false, "", returnRows, "").Execute(); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

func getOne[R any](r *Repository, table, kind, id string) (R, error) {
	var (
		zero R
		rows []R
	)
	data, _, err := r.client.From(table).Select("*", "", false).Eq("id", id).Execute()
	if err != nil {
		return zero, fmt.Errorf("get %s: %w", kind, err)
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return zero, fmt.Errorf("decode %s: %w", kind, err)
	}
	if len(rows) == 0 {
		return zero, fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
	}
	return rows[0], nil
}

func (r *Repository) update(table, kind, id string, row any) error {
	var out []map[string]any
	data, _, err := r.client.From(table).Update(row, returnRows, "").Eq("id", id).Execute()
	if err != nil {
		return fmt.Errorf("update %s: %w", kind, err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("decode %s: %w", kind, err)
	}
	if len(out) == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
	}
	return nil
}

func (r *Repository) remove(table, kind, id string) error {
	var out []map[string]any
	data, _, err := r.client.From(table).Delete(returnRows, "").Eq("id", id).Execute()
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("decode %s: %w", kind, err)
	}
	if len(out) == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
	}
	return nil
}

func (r *Repository) listByGroup(table, groupID string, dst any) error {
	data, _, err := r.client.From(table).
		Select("*", "", false).
		Eq("group_id", groupID).
		Order("created_at", newestFirst).
		Execute()
	if err != nil {
		return fmt.Errorf("list %s: %w", table, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", table, err)
	}
	return nil
}

func (r *Repository) AddTransaction(_ context.Context, t core.Transaction) (string, error) {
	storage.PrepareNew(&t.ID, &t.CreatedAt)
	if err := r.insert(tableTransactions, toTransactionRow(t)); err != nil {
		return "", err
	}
	return t.ID, nil
}

func (r *Repository) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	row, err := getOne[transactionRow](r, tableTransactions, "transaction", id)
	if err != nil {
		return core.Transaction{}, err
	}
	return row.toCore(), nil
}

func (r *Repository) ListTransactions(_ context.Context, groupID string) ([]core.Transaction, error) {
	var rows []transactionRow
	if err := r.listByGroup(tableTransactions, groupID, &rows); err != nil {
		return nil, err
	}
	return mapRows(rows, transactionRow.toCore), nil
}

func (r *Repository) ListRecurringTransactions(_ context.Context) ([]core.Transaction, error) {
	var rows []transactionRow
	data, _, err := r.client.From(tableTransactions).
		Select("*", "", false).
		Eq("is_recurring", "true").
		Order("created_at", newestFirst).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("list recurring transactions: %w", err)
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	return mapRows(rows, transactionRow.toCore), nil
}

func (r *Repository) UpdateTransaction(_ context.Context, t core.Transaction) error {
	return r.update(tableTransactions, "transaction", t.ID, toTransactionRow(t))
}

func (r *Repository) DeleteTransaction(_ context.Context, id string) error {
	return r.remove(tableTransactions, "transaction", id)
}

func (r *Repository) AddCategory(_ context.Context, c core.Category) (string, error) {
	storage.PrepareNew(&c.ID, &c.CreatedAt)
	if err := r.insert(tableCategories, toCategoryRow(c)); err != nil {
		return "", err
	}
	return c.ID, nil
}

func (r *Repository) GetCategory(_ context.Context, id string) (core.Category, error) {
	row, err := getOne[categoryRow](r, tableCategories, "category", id)
	if err != nil {
		return core.Category{}, err
	}
	return row.toCore(), nil
}

func (r *Repository) ListCategories(_ context.Context, groupID string) ([]core.Category, error) {
	var rows []categoryRow
	if err := r.listByGroup(tableCategories, groupID, &rows); err != nil {
		return nil, err
	}
	return mapRows(rows, categoryRow.toCore), nil
}

func (r *Repository) UpdateCategory(_ context.Context, c core.Category) error {
	return r.update(tableCategories, "category", c.ID, toCategoryRow(c))
}

func (r *Repository) DeleteCategory(_ context.Context, id string) error {
	return r.remove(tableCategories, "category", id)
}

func (r *Repository) AddBudget(_ context.Context, b core.Budget) (string, error) {
	storage.PrepareNew(&b.ID, &b.CreatedAt)
	if err := r.insert(tableBudgets, toBudgetRow(b)); err != nil {
		return "", err
	}
	return b.ID, nil
}

func (r *Repository) GetBudget(_ context.Context, id string) (core.Budget, error) {
	row, err := getOne[budgetRow](r, tableBudgets, "budget", id)
	if err != nil {
		return core.Budget{}, err
	}
	return row.toCore(), nil
}

func (r *Repository) ListBudgets(_ context.Context, groupID string) ([]core.Budget, error) {
	var rows []budgetRow
	if err := r.listByGroup(tableBudgets, groupID, &rows); err != nil {
		return nil, err
	}
	return mapRows(rows, budgetRow.toCore), nil
}

func (r *Repository) UpdateBudget(_ context.Context, b core.Budget) error {
	return r.update(tableBudgets, "budget", b.ID, toBudgetRow(b))
}

func (r *Repository) DeleteBudget(_ context.Context, id string) error {
	return r.remove(tableBudgets, "budget", id)
}

func (r *Repository) AddGoal(_ context.Context, g core.Goal) (string, error) {
	storage.PrepareNew(&g.ID, &g.CreatedAt)
	if err := r.insert(tableGoals, toGoalRow(g)); err != nil {
		return "", err
	}
	return g.ID, nil
}

func (r *Repository) GetGoal(_ context.Context, id string) (core.Goal, error) {
	row, err := getOne[goalRow](r, tableGoals, "goal", id)
	if err != nil {
		return core.Goal{}, err
	}
	return row.toCore(), nil
}

func (r *Repository) ListGoals(_ context.Context, groupID string) ([]core.Goal, error) {
	var rows []goalRow
	if err := r.listByGroup(tableGoals, groupID, &rows); err != nil {
		return nil, err
	}
	return mapRows(rows, goalRow.toCore), nil
}

func (r *Repository) UpdateGoal(_ context.Context, g core.Goal) error {
	return r.update(tableGoals, "goal", g.ID, toGoalRow(g))
}

func (r *Repository) DeleteGoal(_ context.Context, id string) error {
	return r.remove(tableGoals, "goal", id)
}

func (r *Repository) AddGroup(_ context.Context, g core.Group) (string, error) {
	storage.PrepareNew(&g.ID, &g.CreatedAt)
	members := g.Members
	if members == nil {
		members = []string{}
	}
	if err := r.insert(tableGroups, groupRow{ID: g.ID, Members: members, CreatedAt: g.CreatedAt}); err != nil {
		return "", err
	}
	return g.ID, nil
}

func (r *Repository) GetGroup(_ context.Context, id string) (core.Group, error) {
	row, err := getOne[groupRow](r, tableGroups, "group", id)
	if err != nil {
		return core.Group{}, err
	}
	return core.Group(row), nil
}

func (r *Repository) FindGroupByMember(_ context.Context, uid string) (core.Group, error) {
	var rows []groupRow
	data, _, err := r.client.From(tableGroups).
		Select("*", "", false).
		Filter("members", "cs", "{"+uid+"}").
		Order("created_at", newestFirst).
		Execute()
	if err != nil {
		return core.Group{}, fmt.Errorf("find group: %w", err)
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return core.Group{}, fmt.Errorf("decode groups: %w", err)
	}
	for _, row := range rows {
		if g := core.Group(row); g.IsCouple() {
			return g, nil
		}
	}
	return core.Group{}, fmt.Errorf("group for member %s: %w", uid, core.ErrNotFound)
}

func (r *Repository) ListGroups(_ context.Context) ([]core.Group, error) {
	var rows []groupRow
	data, _, err := r.client.From(tableGroups).
		Select("*", "", false).
		Order("created_at", newestFirst).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode groups: %w", err)
	}
	out := make([]core.Group, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.Group(row))
	}
	return out, nil
}
