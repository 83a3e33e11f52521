// Package postgres implements the storage ports on PostgreSQL through pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"conti/internal/core"
	"conti/internal/storage"
)

type Repository struct {
	pool *pgxpool.Pool
}

var _ storage.Repository = (*Repository)(nil)

// NewRepository connects to databaseURL and applies pending migrations.
func NewRepository(ctx context.Context, databaseURL string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
}

func wrapNoRows(err error, kind, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound(kind, id)
	}
	return fmt.Errorf("get %s: %w", kind, err)
}

func checkAffected(tag pgconn.CommandTag, kind, id string) error {
	if tag.RowsAffected() == 0 {
		return notFound(kind, id)
	}
	return nil
}

func parseDecimals(pairs ...any) error {
	for i := 0; i < len(pairs); i += 2 {
		dst := pairs[i].(*decimal.Decimal)
		v, err := decimal.NewFromString(pairs[i+1].(string))
		if err != nil {
			return fmt.Errorf("parse numeric: %w", err)
		}
		*dst = v
	}
	return nil
}

// Transactions

const transactionColumns = `id, type, amount::text, description, category, category_id, date, owner_id, owner_name,
	group_id, is_shared, tags, is_recurring, recurring_interval, last_recurred_at, receipt, location, items::text, notes, created_at`

func scanTransaction(row pgx.Row) (core.Transaction, error) {
	var (
		t                     core.Transaction
		typ, amount, interval string
		items                 string
	)
	err := row.Scan(&t.ID, &typ, &amount, &t.Description, &t.Category, &t.CategoryID, &t.Date, &t.OwnerID, &t.OwnerName,
		&t.GroupID, &t.IsShared, &t.Tags, &t.IsRecurring, &interval, &t.LastRecurredAt, &t.Receipt, &t.Location, &items, &t.Notes, &t.CreatedAt)
	if err != nil {
		return t, err
	}
	t.Type = core.TransactionType(typ)
	t.RecurringInterval = core.Interval(interval)
	if err := parseDecimals(&t.Amount, amount); err != nil {
		return t, err
	}
	if err := json.Unmarshal([]byte(items), &t.Items); err != nil {
		return t, fmt.Errorf("decode items: %w", err)
	}
	return t, nil
}

func transactionArgs(t core.Transaction) ([]any, error) {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	items := t.Items
	if items == nil {
		items = []core.LineItem{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}
	return []any{
		t.ID, string(t.Type), t.Amount.String(), t.Description, t.Category, t.CategoryID, t.Date,
		t.OwnerID, t.OwnerName, t.GroupID, t.IsShared, tags, t.IsRecurring,
		string(t.RecurringInterval), t.LastRecurredAt, t.Receipt, t.Location, string(itemsJSON), t.Notes,
	}, nil
}

func (r *Repository) AddTransaction(ctx context.Context, t core.Transaction) (string, error) {
	storage.PrepareNew(&t.ID, &t.CreatedAt)
	args, err := transactionArgs(t)
	if err != nil {
		return "", err
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO transactions (id, type, amount, description, category, category_id, date,
		owner_id, owner_name, group_id, is_shared, tags, is_recurring, recurring_interval, last_recurred_at,
		receipt, location, items, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		append(args, t.CreatedAt)...)
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}
	return t.ID, nil
}

func (r *Repository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	t, err := scanTransaction(r.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
	if err != nil {
		return core.Transaction{}, wrapNoRows(err, "transaction", id)
	}
	return t, nil
}

func (r *Repository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Transaction, error) {
		return scanTransaction(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan transactions: %w", err)
	}
	if out == nil {
		out = []core.Transaction{}
	}
	return out, nil
}

func (r *Repository) ListTransactions(ctx context.Context, groupID string) ([]core.Transaction, error) {
	return r.queryTransactions(ctx, `SELECT `+transactionColumns+` FROM transactions
		WHERE group_id = $1 ORDER BY created_at DESC, id DESC`, groupID)
}

func (r *Repository) ListRecurringTransactions(ctx context.Context) ([]core.Transaction, error) {
	return r.queryTransactions(ctx, `SELECT `+transactionColumns+` FROM transactions
		WHERE is_recurring ORDER BY created_at DESC, id DESC`)
}

func (r *Repository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	args, err := transactionArgs(t)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `UPDATE transactions SET
		type = $2, amount = $3, description = $4, category = $5, category_id = $6, date = $7, owner_id = $8,
		owner_name = $9, group_id = $10, is_shared = $11, tags = $12, is_recurring = $13, recurring_interval = $14,
		last_recurred_at = $15, receipt = $16, location = $17, items = $18, notes = $19
		WHERE id = $1`, args...)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return checkAffected(tag, "transaction", t.ID)
}

func (r *Repository) DeleteTransaction(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return checkAffected(tag, "transaction", id)
}

// Categories

const categoryColumns = `id, name, type, icon, color, parent_id, is_default, group_id, created_at`

func scanCategory(row pgx.Row) (core.Category, error) {
	var (
		c   core.Category
		typ string
	)
	if err := row.Scan(&c.ID, &c.Name, &typ, &c.Icon, &c.Color, &c.ParentID, &c.IsDefault, &c.GroupID, &c.CreatedAt); err != nil {
		return c, err
	}
	c.Type = core.TransactionType(typ)
	return c, nil
}

func (r *Repository) AddCategory(ctx context.Context, c core.Category) (string, error) {
	storage.PrepareNew(&c.ID, &c.CreatedAt)
	_, err := r.pool.Exec(ctx, `INSERT INTO categories (`+categoryColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.Name, string(c.Type), c.Icon, c.Color, c.ParentID, c.IsDefault, c.GroupID, c.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("insert category: %w", err)
	}
	return c.ID, nil
}

func (r *Repository) GetCategory(ctx context.Context, id string) (core.Category, error) {
	c, err := scanCategory(r.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if err != nil {
		return core.Category{}, wrapNoRows(err, "category", id)
	}
	return c, nil
}

func (r *Repository) ListCategories(ctx context.Context, groupID string) ([]core.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+categoryColumns+` FROM categories
		WHERE group_id = $1 ORDER BY created_at DESC, id DESC`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Category, error) {
		return scanCategory(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan categories: %w", err)
	}
	if out == nil {
		out = []core.Category{}
	}
	return out, nil
}

func (r *Repository) UpdateCategory(ctx context.Context, c core.Category) error {
	tag, err := r.pool.Exec(ctx, `UPDATE categories SET
		name = $2, type = $3, icon = $4, color = $5, parent_id = $6, is_default = $7, group_id = $8
		WHERE id = $1`,
		c.ID, c.Name, string(c.Type), c.Icon, c.Color, c.ParentID, c.IsDefault, c.GroupID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return checkAffected(tag, "category", c.ID)
}

func (r *Repository) DeleteCategory(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return checkAffected(tag, "category", id)
}

// Budgets

const budgetColumns = `id, category_id, category, amount::text, spent::text, remaining::text, period,
	start_date, end_date, rollover, group_id, created_at`

func scanBudget(row pgx.Row) (core.Budget, error) {
	var (
		b                                core.Budget
		amount, spent, remaining, period string
	)
	if err := row.Scan(&b.ID, &b.CategoryID, &b.Category, &amount, &spent, &remaining, &period,
		&b.StartDate, &b.EndDate, &b.Rollover, &b.GroupID, &b.CreatedAt); err != nil {
		return b, err
	}
	b.Period = core.Interval(period)
	if err := parseDecimals(&b.Amount, amount, &b.Spent, spent, &b.Remaining, remaining); err != nil {
		return b, err
	}
	return b, nil
}

func (r *Repository) AddBudget(ctx context.Context, b core.Budget) (string, error) {
	storage.PrepareNew(&b.ID, &b.CreatedAt)
	_, err := r.pool.Exec(ctx, `INSERT INTO budgets (id, category_id, category, amount, spent, remaining, period,
		start_date, end_date, rollover, group_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		b.ID, b.CategoryID, b.Category, b.Amount.String(), b.Spent.String(), b.Remaining.String(), string(b.Period),
		b.StartDate, b.EndDate, b.Rollover, b.GroupID, b.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("insert budget: %w", err)
	}
	return b.ID, nil
}

func (r *Repository) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	b, err := scanBudget(r.pool.QueryRow(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = $1`, id))
	if err != nil {
		return core.Budget{}, wrapNoRows(err, "budget", id)
	}
	return b, nil
}

func (r *Repository) ListBudgets(ctx context.Context, groupID string) ([]core.Budget, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+budgetColumns+` FROM budgets
		WHERE group_id = $1 ORDER BY created_at DESC, id DESC`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Budget, error) {
		return scanBudget(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan budgets: %w", err)
	}
	if out == nil {
		out = []core.Budget{}
	}
	return out, nil
}

func (r *Repository) UpdateBudget(ctx context.Context, b core.Budget) error {
	tag, err := r.pool.Exec(ctx, `UPDATE budgets SET
		category_id = $2, category = $3, amount = $4, spent = $5, remaining = $6, period = $7,
		start_date = $8, end_date = $9, rollover = $10, group_id = $11
		WHERE id = $1`,
		b.ID, b.CategoryID, b.Category, b.Amount.String(), b.Spent.String(), b.Remaining.String(), string(b.Period),
		b.StartDate, b.EndDate, b.Rollover, b.GroupID)
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	return checkAffected(tag, "budget", b.ID)
}

func (r *Repository) DeleteBudget(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM budgets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return checkAffected(tag, "budget", id)
}

// Goals

const goalColumns = `id, name, target_amount::text, current_amount::text, start_date, target_date, category_id, category,
	icon_emoji, color, is_completed, group_id, created_at`

func scanGoal(row pgx.Row) (core.Goal, error) {
	var (
		g               core.Goal
		target, current string
	)
	if err := row.Scan(&g.ID, &g.Name, &target, &current, &g.StartDate, &g.TargetDate, &g.CategoryID, &g.Category,
		&g.IconEmoji, &g.Color, &g.IsCompleted, &g.GroupID, &g.CreatedAt); err != nil {
		return g, err
	}
	if err := parseDecimals(&g.TargetAmount, target, &g.CurrentAmount, current); err != nil {
		return g, err
	}
	return g, nil
}

func (r *Repository) AddGoal(ctx context.Context, g core.Goal) (string, error) {
	storage.PrepareNew(&g.ID, &g.CreatedAt)
	_, err := r.pool.Exec(ctx, `INSERT INTO goals (id, name, target_amount, current_amount, start_date, target_date,
		category_id, category, icon_emoji, color, is_completed, group_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		g.ID, g.Name, g.TargetAmount.String(), g.CurrentAmount.String(), g.StartDate, g.TargetDate,
		g.CategoryID, g.Category, g.IconEmoji, g.Color, g.IsCompleted, g.GroupID, g.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("insert goal: %w", err)
	}
	return g.ID, nil
}

func (r *Repository) GetGoal(ctx context.Context, id string) (core.Goal, error) {
	g, err := scanGoal(r.pool.QueryRow(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = $1`, id))
	if err != nil {
		return core.Goal{}, wrapNoRows(err, "goal", id)
	}
	return g, nil
}

func (r *Repository) ListGoals(ctx context.Context, groupID string) ([]core.Goal, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+goalColumns+` FROM goals
		WHERE group_id = $1 ORDER BY created_at DESC, id DESC`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Goal, error) {
		return scanGoal(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan goals: %w", err)
	}
	if out == nil {
		out = []core.Goal{}
	}
	return out, nil
}

func (r *Repository) UpdateGoal(ctx context.Context, g core.Goal) error {
	tag, err := r.pool.Exec(ctx, `UPDATE goals SET
		name = $2, target_amount = $3, current_amount = $4, start_date = $5, target_date = $6, category_id = $7,
		category = $8, icon_emoji = $9, color = $10, is_completed = $11, group_id = $12
		WHERE id = $1`,
		g.ID, g.Name, g.TargetAmount.String(), g.CurrentAmount.String(), g.StartDate, g.TargetDate, g.CategoryID,
		g.Category, g.IconEmoji, g.Color, g.IsCompleted, g.GroupID)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	return checkAffected(tag, "goal", g.ID)
}

func (r *Repository) DeleteGoal(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM goals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return checkAffected(tag, "goal", id)
}

// Groups

func (r *Repository) AddGroup(ctx context.Context, g core.Group) (string, error) {
	storage.PrepareNew(&g.ID, &g.CreatedAt)
	members := g.Members
	if members == nil {
		members = []string{}
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO member_groups (id, members, created_at) VALUES ($1, $2, $3)`,
		g.ID, members, g.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("insert group: %w", err)
	}
	return g.ID, nil
}

func (r *Repository) GetGroup(ctx context.Context, id string) (core.Group, error) {
	var g core.Group
	err := r.pool.QueryRow(ctx, `SELECT id, members, created_at FROM member_groups WHERE id = $1`, id).
		Scan(&g.ID, &g.Members, &g.CreatedAt)
	if err != nil {
		return core.Group{}, wrapNoRows(err, "group", id)
	}
	return g, nil
}

func (r *Repository) FindGroupByMember(ctx context.Context, uid string) (core.Group, error) {
	var g core.Group
	err := r.pool.QueryRow(ctx, `SELECT id, members, created_at FROM member_groups
		WHERE $1 = ANY(members) AND cardinality(members) = 2 AND left(id, length($2)) <> $2
		ORDER BY created_at DESC LIMIT 1`, uid, core.PersonalGroupPrefix).
		Scan(&g.ID, &g.Members, &g.CreatedAt)
	if err != nil {
		return core.Group{}, wrapNoRows(err, "group for member", uid)
	}
	return g, nil
}

func (r *Repository) ListGroups(ctx context.Context) ([]core.Group, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, members, created_at FROM member_groups ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Group, error) {
		var g core.Group
		err := row.Scan(&g.ID, &g.Members, &g.CreatedAt)
		return g, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan groups: %w", err)
	}
	if out == nil {
		out = []core.Group{}
	}
	return out, nil
}
