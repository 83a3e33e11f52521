package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{"1.005", "1.01", true}, // half-up rounding
		{" 2.50 ", "2.5", true},
		{"0", "0", true},
		{",5", "0.5", true},
		{"-1", "", false},
		{"+1", "", false},
		{"1e3", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(MustAmount("1250.7")); got != "1250,70" {
		t.Fatalf("got %q", got)
	}
}

func TestFilterOptionsApply(t *testing.T) {
	day := func(m, d int) time.Time { return time.Date(2024, time.Month(m), d, 0, 0, 0, 0, time.UTC) }
	min := decimal.NewFromInt(20)
	txs := []Transaction{
		{ID: "1", Type: Expense, Amount: decimal.NewFromInt(10), Description: "Coffee", Category: "Dining Out", CategoryID: "c1", OwnerID: "u1", Date: day(1, 5), Tags: []string{"work"}},
		{ID: "2", Type: Expense, Amount: decimal.NewFromInt(50), Description: "Groceries run", Category: "Groceries", CategoryID: "c2", OwnerID: "u2", Date: day(2, 3)},
		{ID: "3", Type: Income, Amount: decimal.NewFromInt(900), Description: "Salary", Category: "Salary", CategoryID: "c3", OwnerID: "u1", Date: day(2, 28)},
	}

	cases := []struct {
		name   string
		filter FilterOptions
		want   []string
	}{
		{"empty", FilterOptions{}, []string{"1", "2", "3"}},
		{"month", FilterOptions{Year: 2024, Month: 2}, []string{"2", "3"}},
		{"type", FilterOptions{Type: Expense}, []string{"1", "2"}},
		{"owner", FilterOptions{OwnerID: "u1"}, []string{"1", "3"}},
		{"category", FilterOptions{CategoryID: "c2"}, []string{"2"}},
		{"min amount", FilterOptions{MinAmount: &min}, []string{"2", "3"}},
		{"tag", FilterOptions{Tags: []string{"WORK"}}, []string{"1"}},
		{"search category name", FilterOptions{Search: "grocer"}, []string{"2"}},
		{"date range", FilterOptions{StartDate: day(1, 10), EndDate: day(2, 10)}, []string{"2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.filter.Apply(txs)
			if len(got) != len(tc.want) {
				t.Fatalf("got %d transactions, want %d", len(got), len(tc.want))
			}
			for i, tx := range got {
				if tx.ID != tc.want[i] {
					t.Fatalf("position %d: got %s, want %s", i, tx.ID, tc.want[i])
				}
			}
		})
	}
}

func TestDefaultCategories(t *testing.T) {
	cats := DefaultCategories("g1", time.Now())
	if len(cats) != 13 {
		t.Fatalf("got %d default categories, want 13", len(cats))
	}
	c, ok := FindCategoryByName(cats, "groceries")
	if !ok || c.Type != Expense || !c.IsDefault || c.GroupID != "g1" {
		t.Fatalf("unexpected groceries category: %+v", c)
	}
	if _, ok := FindCategoryByName(cats, "Salary"); !ok {
		t.Fatal("salary should be seeded")
	}
}
