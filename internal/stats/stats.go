// Package stats derives read-only financial summaries from transaction lists.
package stats

import (
	"time"

	"github.com/shopspring/decimal"

	"conti/internal/core"
)

// Tier buckets a progress percentage for display.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

var hundred = decimal.NewFromInt(100)

type (
	MonthlyFinancialData struct {
		Month    string          `json:"month"`
		Income   decimal.Decimal `json:"income"`
		Expenses decimal.Decimal `json:"expenses"`
		Balance  decimal.Decimal `json:"balance"`
	}

	FinancialStats struct {
		TotalIncome        decimal.Decimal            `json:"totalIncome"`
		TotalExpenses      decimal.Decimal            `json:"totalExpenses"`
		Balance            decimal.Decimal            `json:"balance"`
		SavingsRate        decimal.Decimal            `json:"savingsRate"`
		ExpensesByCategory map[string]decimal.Decimal `json:"expensesByCategory"`
		IncomeByCategory   map[string]decimal.Decimal `json:"incomeByCategory"`
		MonthlyData        []MonthlyFinancialData     `json:"monthlyData"`
	}
)

func sumOf(txs []core.Transaction, typ core.TransactionType) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txs {
		if t.Type == typ {
			total = total.Add(t.Amount)
		}
	}
	return total
}

func byCategory(txs []core.Transaction, typ core.TransactionType) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, t := range txs {
		if t.Type != typ {
			continue
		}
		out[t.Category] = out[t.Category].Add(t.Amount)
	}
	return out
}

// TotalIncome sums the income transactions.
func TotalIncome(txs []core.Transaction) decimal.Decimal {
	return sumOf(txs, core.Income)
}

// TotalExpenses sums the expense transactions.
func TotalExpenses(txs []core.Transaction) decimal.Decimal {
	return sumOf(txs, core.Expense)
}

func Balance(txs []core.Transaction) decimal.Decimal {
	return TotalIncome(txs).Sub(TotalExpenses(txs))
}

// GroupByCategory maps category name to spent amount. Income is never included.
func GroupByCategory(txs []core.Transaction) map[string]decimal.Decimal {
	return byCategory(txs, core.Expense)
}

// IncomeByCategory maps category name to earned amount.
func IncomeByCategory(txs []core.Transaction) map[string]decimal.Decimal {
	return byCategory(txs, core.Income)
}

// SavingsRate returns (income-expenses)/income*100, or 0 when there is no income.
func SavingsRate(income, expenses decimal.Decimal) decimal.Decimal {
	if !income.IsPositive() {
		return decimal.Zero
	}
	return income.Sub(expenses).Div(income).Mul(hundred)
}

// BudgetProgress returns spent/amount*100 clamped to 100, or 0 when amount is not positive.
func BudgetProgress(spent, amount decimal.Decimal) decimal.Decimal {
	if !amount.IsPositive() {
		return decimal.Zero
	}
	return decimal.Min(spent.Div(amount).Mul(hundred), hundred)
}

func ProgressTier(progress decimal.Decimal) Tier {
	switch {
	case progress.LessThan(decimal.NewFromInt(50)):
		return TierLow
	case progress.LessThan(decimal.NewFromInt(80)):
		return TierMedium
	default:
		return TierHigh
	}
}

// MonthlyData returns one row per month of year, January first.
func MonthlyData(txs []core.Transaction, year int) []MonthlyFinancialData {
	rows := make([]MonthlyFinancialData, 12)
	for i := range rows {
		rows[i] = MonthlyFinancialData{
			Month:    time.Month(i + 1).String()[:3],
			Income:   decimal.Zero,
			Expenses: decimal.Zero,
		}
	}
	for _, t := range txs {
		if t.Date.Year() != year {
			continue
		}
		row := &rows[t.Date.Month()-1]
		switch t.Type {
		case core.Income:
			row.Income = row.Income.Add(t.Amount)
		case core.Expense:
			row.Expenses = row.Expenses.Add(t.Amount)
		}
	}
	for i := range rows {
		rows[i].Balance = rows[i].Income.Sub(rows[i].Expenses)
	}
	return rows
}

// Compute builds the full summary for txs; monthly rows cover year.
func Compute(txs []core.Transaction, year int) FinancialStats {
	income := TotalIncome(txs)
	expenses := TotalExpenses(txs)
	return FinancialStats{
		TotalIncome:        income,
		TotalExpenses:      expenses,
		Balance:            income.Sub(expenses),
		SavingsRate:        SavingsRate(income, expenses).Round(2),
		ExpensesByCategory: GroupByCategory(txs),
		IncomeByCategory:   IncomeByCategory(txs),
		MonthlyData:        MonthlyData(txs, year),
	}
}

// BudgetSpent sums the expenses that count against b.
func BudgetSpent(b core.Budget, txs []core.Transaction) decimal.Decimal {
	spent := decimal.Zero
	for _, t := range txs {
		if t.Type != core.Expense || t.CategoryID != b.CategoryID || !b.Covers(t.Date) {
			continue
		}
		spent = spent.Add(t.Amount)
	}
	return spent
}
