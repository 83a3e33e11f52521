package core

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type defaultCategory struct {
	name  string
	icon  string
	color string
}

var (
	defaultExpenseCategories = []defaultCategory{
		{"Groceries", "shopping-cart", "#10B981"},
		{"Rent/Mortgage", "home", "#6366F1"},
		{"Utilities", "zap", "#F59E0B"},
		{"Transportation", "car", "#3B82F6"},
		{"Dining Out", "utensils", "#EF4444"},
		{"Entertainment", "film", "#EC4899"},
		{"Healthcare", "heart", "#14B8A6"},
		{"Shopping", "shopping-bag", "#8B5CF6"},
		{"Other Expense", "more-horizontal", "#6B7280"},
	}
	defaultIncomeCategories = []defaultCategory{
		{"Salary", "briefcase", "#22C55E"},
		{"Freelance", "pen-tool", "#0EA5E9"},
		{"Investment", "trending-up", "#A855F7"},
		{"Other Income", "plus-circle", "#64748B"},
	}
)

// DefaultCategories returns the categories seeded for a group that has none.
func DefaultCategories(groupID string, now time.Time) []Category {
	out := make([]Category, 0, len(defaultExpenseCategories)+len(defaultIncomeCategories))
	add := func(list []defaultCategory, typ TransactionType) {
		for _, d := range list {
			out = append(out, Category{
				ID:        uuid.NewString(),
				Name:      d.name,
				Type:      typ,
				Icon:      d.icon,
				Color:     d.color,
				IsDefault: true,
				GroupID:   groupID,
				CreatedAt: now,
			})
		}
	}
	add(defaultExpenseCategories, Expense)
	add(defaultIncomeCategories, Income)
	return out
}

// FindCategoryByName does a case-insensitive lookup by name.
func FindCategoryByName(categories []Category, name string) (Category, bool) {
	name = strings.TrimSpace(name)
	for _, c := range categories {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Category{}, false
}
