// Package sqlite implements the storage ports on an embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"conti/internal/core"
	"conti/internal/storage"
)

// fixed width so text ordering matches chronological ordering
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Repository struct {
	db *sql.DB
}

var _ storage.Repository = (*Repository)(nil)

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// modernc sqlite serialises writers; a single connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func parseTimePtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func checkAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
	}
	return nil
}

func wrapNoRows(err error, kind, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
	}
	return fmt.Errorf("get %s: %w", kind, err)
}

// Transactions

const transactionColumns = `id, type, amount, description, category, category_id, date, owner_id, owner_name,
	group_id, is_shared, tags, is_recurring, recurring_interval, last_recurred_at, receipt, location, items, notes, created_at`

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t                          core.Transaction
		typ, amount, date, created string
		interval, tags, items      string
		isShared, isRecurring      int
		lastRecurred               sql.NullString
	)
	err := s.Scan(&t.ID, &typ, &amount, &t.Description, &t.Category, &t.CategoryID, &date, &t.OwnerID, &t.OwnerName,
		&t.GroupID, &isShared, &tags, &isRecurring, &interval, &lastRecurred, &t.Receipt, &t.Location, &items, &t.Notes, &created)
	if err != nil {
		return t, err
	}
	t.Type = core.TransactionType(typ)
	t.RecurringInterval = core.Interval(interval)
	t.IsShared = isShared != 0
	t.IsRecurring = isRecurring != 0
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return t, fmt.Errorf("parse amount: %w", err)
	}
	if t.Date, err = parseTime(date); err != nil {
		return t, fmt.Errorf("parse date: %w", err)
	}
	if t.CreatedAt, err = parseTime(created); err != nil {
		return t, fmt.Errorf("parse created_at: %w", err)
	}
	if t.LastRecurredAt, err = parseTimePtr(lastRecurred); err != nil {
		return t, fmt.Errorf("parse last_recurred_at: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
		return t, fmt.Errorf("decode tags: %w", err)
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
	tagsJSON, err := encodeJSON(tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}
	itemsJSON, err := encodeJSON(items)
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}
	return []any{
		string(t.Type), t.Amount.String(), t.Description, t.Category, t.CategoryID, formatTime(t.Date),
		t.OwnerID, t.OwnerName, t.GroupID, boolInt(t.IsShared), tagsJSON, boolInt(t.IsRecurring),
		string(t.RecurringInterval), formatTimePtr(t.LastRecurredAt), t.Receipt, t.Location, itemsJSON, t.Notes,
	}, nil
}

func (r *Repository) AddTransaction(ctx context.Context, t core.Transaction) (string, error) {
	storage.PrepareNew(&t.ID, &t.CreatedAt)
	args, err := transactionArgs(t)
	if err != nil {
		return "", err
	}
	args = append([]any{t.ID}, append(args, formatTime(t.CreatedAt))...)
	_, err = r.db.ExecContext(ctx, `INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}
	slog.DebugContext(ctx, "Transaction saved to SQLite", "id", t.ID, "group_id", t.GroupID, "amount", t.Amount.String())
	return t.ID, nil
}

func (r *Repository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, wrapNoRows(err, "transaction", id)
	}
	return t, nil
}

func (r *Repository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repository) ListTransactions(ctx context.Context, groupID string) ([]core.Transaction, error) {
	return r.queryTransactions(ctx, `SELECT `+transactionColumns+` FROM transactions
		WHERE group_id = ? ORDER BY created_at DESC, id DESC`, groupID)
}

func (r *Repository) ListRecurringTransactions(ctx context.Context) ([]core.Transaction, error) {
	return r.queryTransactions(ctx, `SELECT `+transactionColumns+` FROM transactions
		WHERE is_recurring = 1 ORDER BY created_at DESC, id DESC`)
}

func (r *Repository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	args, err := transactionArgs(t)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE transactions SET
		type = ?, amount = ?, description = ?, category = ?, category_id = ?, date = ?, owner_id = ?, owner_name = ?,
		group_id = ?, is_shared = ?, tags = ?, is_recurring = ?, recurring_interval = ?, last_recurred_at = ?,
		receipt = ?, location = ?, items = ?, notes = ?
		WHERE id = ?`, append(args, t.ID)...)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return checkAffected(res, "transaction", t.ID)
}

func (r *Repository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return checkAffected(res, "transaction", id)
}

// Categories

const categoryColumns = `id, name, type, icon, color, parent_id, is_default, group_id, created_at`

func scanCategory(s scanner) (core.Category, error) {
	var (
		c            core.Category
		typ, created string
		isDefault    int
	)
	if err := s.Scan(&c.ID, &c.Name, &typ, &c.Icon, &c.Color, &c.ParentID, &isDefault, &c.GroupID, &created); err != nil {
		return c, err
	}
	c.Type = core.TransactionType(typ)
	c.IsDefault = isDefault != 0
	var err error
	if c.CreatedAt, err = parseTime(created); err != nil {
		return c, fmt.Errorf("parse created_at: %w", err)
	}
	return c, nil
}

func (r *Repository) AddCategory(ctx context.Context, c core.Category) (string, error) {
	storage.PrepareNew(&c.ID, &c.CreatedAt)
	_, err := r.db.ExecContext(ctx, `INSERT INTO categories (`+categoryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, string(c.Type), c.Icon, c.Color, c.ParentID, boolInt(c.IsDefault), c.GroupID, formatTime(c.CreatedAt))
	if err != nil {
		return "", fmt.Errorf("insert category: %w", err)
	}
	return c.ID, nil
}

func (r *Repository) GetCategory(ctx context.Context, id string) (core.Category, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id))
	if err != nil {
		return core.Category{}, wrapNoRows(err, "category", id)
	}
	return c, nil
}

func (r *Repository) ListCategories(ctx context.Context, groupID string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories
		WHERE group_id = ? ORDER BY created_at DESC, id DESC`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := make([]core.Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateCategory(ctx context.Context, c core.Category) error {
	res, err := r.db.ExecContext(ctx, `UPDATE categories SET
		name = ?, type = ?, icon = ?, color = ?, parent_id = ?, is_default = ?, group_id = ?
		WHERE id = ?`,
		c.Name, string(c.Type), c.Icon, c.Color, c.ParentID, boolInt(c.IsDefault), c.GroupID, c.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return checkAffected(res, "category", c.ID)
}

func (r *Repository) DeleteCategory(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return checkAffected(res, "category", id)
}

// Budgets

const budgetColumns = `id, category_id, category, amount, spent, remaining, period, start_date, end_date, rollover, group_id, created_at`

func scanBudget(s scanner) (core.Budget, error) {
	var (
		b                                core.Budget
		amount, spent, remaining, period string
		start, end, created              string
		rollover                         int
	)
	if err := s.Scan(&b.ID, &b.CategoryID, &b.Category, &amount, &spent, &remaining, &period, &start, &end, &rollover, &b.GroupID, &created); err != nil {
		return b, err
	}
	b.Period = core.Interval(period)
	b.Rollover = rollover != 0
	var err error
	if b.Amount, err = decimal.NewFromString(amount); err != nil {
		return b, fmt.Errorf("parse amount: %w", err)
	}
	if b.Spent, err = decimal.NewFromString(spent); err != nil {
		return b, fmt.Errorf("parse spent: %w", err)
	}
	if b.Remaining, err = decimal.NewFromString(remaining); err != nil {
		return b, fmt.Errorf("parse remaining: %w", err)
	}
	if b.StartDate, err = parseTime(start); err != nil {
		return b, fmt.Errorf("parse start_date: %w", err)
	}
	if b.EndDate, err = parseTime(end); err != nil {
		return b, fmt.Errorf("parse end_date: %w", err)
	}
	if b.CreatedAt, err = parseTime(created); err != nil {
		return b, fmt.Errorf("parse created_at: %w", err)
	}
	return b, nil
}

func (r *Repository) AddBudget(ctx context.Context, b core.Budget) (string, error) {
	storage.PrepareNew(&b.ID, &b.CreatedAt)
	_, err := r.db.ExecContext(ctx, `INSERT INTO budgets (`+budgetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.CategoryID, b.Category, b.Amount.String(), b.Spent.String(), b.Remaining.String(), string(b.Period),
		formatTime(b.StartDate), formatTime(b.EndDate), boolInt(b.Rollover), b.GroupID, formatTime(b.CreatedAt))
	if err != nil {
		return "", fmt.Errorf("insert budget: %w", err)
	}
	return b.ID, nil
}

func (r *Repository) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	b, err := scanBudget(r.db.QueryRowContext(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id))
	if err != nil {
		return core.Budget{}, wrapNoRows(err, "budget", id)
	}
	return b, nil
}

func (r *Repository) ListBudgets(ctx context.Context, groupID string) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+budgetColumns+` FROM budgets
		WHERE group_id = ? ORDER BY created_at DESC, id DESC`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	out := make([]core.Budget, 0)
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateBudget(ctx context.Context, b core.Budget) error {
	res, err := r.db.ExecContext(ctx, `UPDATE budgets SET
		category_id = ?, category = ?, amount = ?, spent = ?, remaining = ?, period = ?,
		start_date = ?, end_date = ?, rollover = ?, group_id = ?
		WHERE id = ?`,
		b.CategoryID, b.Category, b.Amount.String(), b.Spent.String(), b.Remaining.String(), string(b.Period),
		formatTime(b.StartDate), formatTime(b.EndDate), boolInt(b.Rollover), b.GroupID, b.ID)
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	return checkAffected(res, "budget", b.ID)
}

func (r *Repository) DeleteBudget(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return checkAffected(res, "budget", id)
}

// Goals

const goalColumns = `id, name, target_amount, current_amount, start_date, target_date, category_id, category,
	icon_emoji, color, is_completed, group_id, created_at`

func scanGoal(s scanner) (core.Goal, error) {
	var (
		g               core.Goal
		target, current string
		start, created  string
		targetDate      sql.NullString
		completed       int
	)
	if err := s.Scan(&g.ID, &g.Name, &target, &current, &start, &targetDate, &g.CategoryID, &g.Category,
		&g.IconEmoji, &g.Color, &completed, &g.GroupID, &created); err != nil {
		return g, err
	}
	g.IsCompleted = completed != 0
	var err error
	if g.TargetAmount, err = decimal.NewFromString(target); err != nil {
		return g, fmt.Errorf("parse target_amount: %w", err)
	}
	if g.CurrentAmount, err = decimal.NewFromString(current); err != nil {
		return g, fmt.Errorf("parse current_amount: %w", err)
	}
	if g.StartDate, err = parseTime(start); err != nil {
		return g, fmt.Errorf("parse start_date: %w", err)
	}
	if g.TargetDate, err = parseTimePtr(targetDate); err != nil {
		return g, fmt.Errorf("parse target_date: %w", err)
	}
	if g.CreatedAt, err = parseTime(created); err != nil {
		return g, fmt.Errorf("parse created_at: %w", err)
	}
	return g, nil
}

func (r *Repository) AddGoal(ctx context.Context, g core.Goal) (string, error) {
	storage.PrepareNew(&g.ID, &g.CreatedAt)
	_, err := r.db.ExecContext(ctx, `INSERT INTO goals (`+goalColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Name, g.TargetAmount.String(), g.CurrentAmount.String(), formatTime(g.StartDate), formatTimePtr(g.TargetDate),
		g.CategoryID, g.Category, g.IconEmoji, g.Color, boolInt(g.IsCompleted), g.GroupID, formatTime(g.CreatedAt))
	if err != nil {
		return "", fmt.Errorf("insert goal: %w", err)
	}
	return g.ID, nil
}

func (r *Repository) GetGoal(ctx context.Context, id string) (core.Goal, error) {
	g, err := scanGoal(r.db.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = ?`, id))
	if err != nil {
		return core.Goal{}, wrapNoRows(err, "goal", id)
	}
	return g, nil
}

func (r *Repository) ListGoals(ctx context.Context, groupID string) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+goalColumns+` FROM goals
		WHERE group_id = ? ORDER BY created_at DESC, id DESC`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	out := make([]core.Goal, 0)
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateGoal(ctx context.Context, g core.Goal) error {
	res, err := r.db.ExecContext(ctx, `UPDATE goals SET
		name = ?, target_amount = ?, current_amount = ?, start_date = ?, target_date = ?, category_id = ?, category = ?,
		icon_emoji = ?, color = ?, is_completed = ?, group_id = ?
		WHERE id = ?`,
		g.Name, g.TargetAmount.String(), g.CurrentAmount.String(), formatTime(g.StartDate), formatTimePtr(g.TargetDate),
		g.CategoryID, g.Category, g.IconEmoji, g.Color, boolInt(g.IsCompleted), g.GroupID, g.ID)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	return checkAffected(res, "goal", g.ID)
}

func (r *Repository) DeleteGoal(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return checkAffected(res, "goal", id)
}

// Groups

func scanGroup(s scanner) (core.Group, error) {
	var (
		g                core.Group
		members, created string
	)
	if err := s.Scan(&g.ID, &members, &created); err != nil {
		return g, err
	}
	if err := json.Unmarshal([]byte(members), &g.Members); err != nil {
		return g, fmt.Errorf("decode members: %w", err)
	}
	var err error
	if g.CreatedAt, err = parseTime(created); err != nil {
		return g, fmt.Errorf("parse created_at: %w", err)
	}
	return g, nil
}

func (r *Repository) AddGroup(ctx context.Context, g core.Group) (string, error) {
	storage.PrepareNew(&g.ID, &g.CreatedAt)
	members := g.Members
	if members == nil {
		members = []string{}
	}
	membersJSON, err := encodeJSON(members)
	if err != nil {
		return "", fmt.Errorf("encode members: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO member_groups (id, members, created_at) VALUES (?, ?, ?)`,
		g.ID, membersJSON, formatTime(g.CreatedAt))
	if err != nil {
		return "", fmt.Errorf("insert group: %w", err)
	}
	return g.ID, nil
}

func (r *Repository) GetGroup(ctx context.Context, id string) (core.Group, error) {
	g, err := scanGroup(r.db.QueryRowContext(ctx, `SELECT id, members, created_at FROM member_groups WHERE id = ?`, id))
	if err != nil {
		return core.Group{}, wrapNoRows(err, "group", id)
	}
	return g, nil
}

func (r *Repository) FindGroupByMember(ctx context.Context, uid string) (core.Group, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT g.id, g.members, g.created_at FROM member_groups g, json_each(g.members) m
		WHERE m.value = ? ORDER BY g.created_at DESC`, uid)
	if err != nil {
		return core.Group{}, fmt.Errorf("find group: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return core.Group{}, fmt.Errorf("scan group: %w", err)
		}
		if g.IsCouple() {
			return g, nil
		}
	}
	if err := rows.Err(); err != nil {
		return core.Group{}, fmt.Errorf("find group: %w", err)
	}
	return core.Group{}, fmt.Errorf("group for member %s: %w", uid, core.ErrNotFound)
}

func (r *Repository) ListGroups(ctx context.Context) ([]core.Group, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, members, created_at FROM member_groups ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	out := make([]core.Group, 0)
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
