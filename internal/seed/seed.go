// Package seed fills a group with realistic demo data.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"

	"conti/internal/core"
	"conti/internal/services"
)

type Options struct {
	GroupID   string
	OwnerID   string
	OwnerName string
	// Transactions are spread over the last Months months.
	Transactions int
	Months       int
	Budgets      int
	Goals        int
	Now          time.Time
}

type Result struct {
	Transactions int
	Budgets      int
	Goals        int
}

var tags = []string{"food", "home", "fun", "work", "travel", "kids", "health"}

type Seeder struct {
	categories   *services.CategoryService
	transactions *services.TransactionService
	budgets      *services.BudgetService
	goals        *services.GoalService
	faker        *gofakeit.Faker
}

// New returns a seeder; the same seed produces the same data.
func New(categories *services.CategoryService, transactions *services.TransactionService, budgets *services.BudgetService, goals *services.GoalService, seed int64) *Seeder {
	return &Seeder{
		categories:   categories,
		transactions: transactions,
		budgets:      budgets,
		goals:        goals,
		faker:        gofakeit.New(seed),
	}
}

func (s *Seeder) Run(ctx context.Context, opts Options) (Result, error) {
	var res Result
	if opts.GroupID == "" {
		return res, core.ErrMissingGroup
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now().UTC()
	}
	if opts.Months <= 0 {
		opts.Months = 6
	}

	cats, err := s.categories.List(ctx, opts.GroupID)
	if err != nil {
		return res, fmt.Errorf("list categories: %w", err)
	}
	var expense, income []core.Category
	for _, c := range cats {
		if c.Type == core.Income {
			income = append(income, c)
		} else {
			expense = append(expense, c)
		}
	}
	if len(expense) == 0 || len(income) == 0 {
		return res, fmt.Errorf("group %s needs income and expense categories", opts.GroupID)
	}

	from := opts.Now.AddDate(0, -opts.Months, 0)
	for i := 0; i < opts.Transactions; i++ {
		if _, err := s.transactions.Create(ctx, s.transaction(opts, from, expense, income)); err != nil {
			return res, fmt.Errorf("create transaction %d: %w", i, err)
		}
		res.Transactions++
	}

	start := time.Date(opts.Now.Year(), opts.Now.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < opts.Budgets && i < len(expense); i++ {
		_, err := s.budgets.Create(ctx, core.Budget{
			CategoryID: expense[i].ID,
			Amount:     s.amount(200, 800),
			Period:     core.Monthly,
			StartDate:  start,
			GroupID:    opts.GroupID,
		})
		if err != nil {
			return res, fmt.Errorf("create budget: %w", err)
		}
		res.Budgets++
	}

	for i := 0; i < opts.Goals; i++ {
		target := opts.Now.AddDate(0, s.faker.Number(3, 24), 0)
		_, err := s.goals.Create(ctx, core.Goal{
			Name:         capitalize(s.faker.Word()) + " fund",
			TargetAmount: s.amount(500, 5000),
			StartDate:    opts.Now,
			TargetDate:   &target,
			IconEmoji:    s.faker.Emoji(),
			Color:        s.faker.HexColor(),
			GroupID:      opts.GroupID,
		})
		if err != nil {
			return res, fmt.Errorf("create goal: %w", err)
		}
		res.Goals++
	}
	return res, nil
}

func (s *Seeder) transaction(opts Options, from time.Time, expense, income []core.Category) core.Transaction {
	t := core.Transaction{
		Date:     s.faker.DateRange(from, opts.Now),
		OwnerID:  opts.OwnerID,
		GroupID:  opts.GroupID,
		IsShared: s.faker.Bool(),
	}
	if t.OwnerName = opts.OwnerName; t.OwnerName == "" {
		t.OwnerName = s.faker.FirstName()
	}

	// roughly one in five is income
	if s.faker.Number(1, 5) == 1 {
		c := income[s.faker.Number(0, len(income)-1)]
		t.Type = core.Income
		t.CategoryID, t.Category = c.ID, c.Name
		t.Amount = s.amount(500, 3000)
		t.Description = c.Name + " " + s.faker.Company()
		return t
	}

	c := expense[s.faker.Number(0, len(expense)-1)]
	t.Type = core.Expense
	t.CategoryID, t.Category = c.ID, c.Name
	t.Amount = s.amount(5, 300)
	t.Description = s.faker.Company()
	t.Tags = []string{s.faker.RandomString(tags)}
	return t
}

func capitalize(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + w[1:]
}

func (s *Seeder) amount(lo, hi float64) decimal.Decimal {
	return decimal.NewFromFloat(s.faker.Price(lo, hi)).Round(2)
}
