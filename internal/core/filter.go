package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FilterOptions narrows a transaction list. Zero-valued fields do not filter.
type FilterOptions struct {
	Year       int
	Month      int // 1-12
	CategoryID string
	OwnerID    string
	Type       TransactionType
	Tags       []string
	StartDate  time.Time
	EndDate    time.Time
	MinAmount  *decimal.Decimal
	MaxAmount  *decimal.Decimal
	Search     string
}

// IsEmpty reports whether no filter is set.
func (f FilterOptions) IsEmpty() bool {
	return f.Year == 0 && f.Month == 0 && f.CategoryID == "" && f.OwnerID == "" &&
		f.Type == "" && len(f.Tags) == 0 && f.StartDate.IsZero() && f.EndDate.IsZero() &&
		f.MinAmount == nil && f.MaxAmount == nil && strings.TrimSpace(f.Search) == ""
}

// Key renders f as a stable string, suitable as a cache key component.
func (f FilterOptions) Key() string {
	amount := func(d *decimal.Decimal) string {
		if d == nil {
			return ""
		}
		return d.String()
	}
	day := func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("y=%d;m=%d;c=%s;o=%s;t=%s;tags=%s;s=%s;e=%s;min=%s;max=%s;q=%s",
		f.Year, f.Month, f.CategoryID, f.OwnerID, f.Type, strings.ToLower(strings.Join(f.Tags, ",")),
		day(f.StartDate), day(f.EndDate), amount(f.MinAmount), amount(f.MaxAmount),
		strings.ToLower(strings.TrimSpace(f.Search)))
}

// Match reports whether t satisfies every set field.
func (f FilterOptions) Match(t Transaction) bool {
	if f.Year != 0 && t.Date.Year() != f.Year {
		return false
	}
	if f.Month != 0 && int(t.Date.Month()) != f.Month {
		return false
	}
	if f.CategoryID != "" && t.CategoryID != f.CategoryID {
		return false
	}
	if f.OwnerID != "" && t.OwnerID != f.OwnerID {
		return false
	}
	if f.Type.Valid() && t.Type != f.Type {
		return false
	}
	if !f.StartDate.IsZero() && t.Date.Before(f.StartDate) {
		return false
	}
	if !f.EndDate.IsZero() && t.Date.After(f.EndDate) {
		return false
	}
	if f.MinAmount != nil && t.Amount.LessThan(*f.MinAmount) {
		return false
	}
	if f.MaxAmount != nil && t.Amount.GreaterThan(*f.MaxAmount) {
		return false
	}
	if len(f.Tags) > 0 && !sharesTag(t.Tags, f.Tags) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" && !matchesSearch(t, q) {
		return false
	}
	return true
}

// Apply returns the transactions matching f, preserving order.
func (f FilterOptions) Apply(txs []Transaction) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

func sharesTag(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}

func matchesSearch(t Transaction, q string) bool {
	if strings.Contains(strings.ToLower(t.Description), q) ||
		strings.Contains(strings.ToLower(t.Category), q) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}
