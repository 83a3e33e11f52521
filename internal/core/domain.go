package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	Daily   Interval = "daily"
	Weekly  Interval = "weekly"
	Monthly Interval = "monthly"
	Yearly  Interval = "yearly"
)

// PersonalGroupPrefix prefixes the group id of a user without a partner.
const PersonalGroupPrefix = "personal_"

const maxDescriptionLen = 200

type (
	TransactionType string

	// Interval is used both as a budget period and as a recurrence interval.
	Interval string

	LineItem struct {
		Name     string          `json:"name"`
		Price    decimal.Decimal `json:"price"`
		Quantity int             `json:"quantity,omitempty"`
	}

	Transaction struct {
		ID                string          `json:"id"`
		Type              TransactionType `json:"type"`
		Amount            decimal.Decimal `json:"amount"`
		Description       string          `json:"description"`
		Category          string          `json:"category"`
		CategoryID        string          `json:"categoryId"`
		Date              time.Time       `json:"date"`
		OwnerID           string          `json:"ownerId"`
		OwnerName         string          `json:"ownerName,omitempty"`
		GroupID           string          `json:"groupId"`
		IsShared          bool            `json:"isShared"`
		Tags              []string        `json:"tags"`
		IsRecurring       bool            `json:"isRecurring"`
		RecurringInterval Interval        `json:"recurringInterval,omitempty"`
		LastRecurredAt    *time.Time      `json:"lastRecurredAt,omitempty"`
		Receipt           string          `json:"receipt,omitempty"`
		Location          string          `json:"location,omitempty"`
		Items             []LineItem      `json:"items,omitempty"`
		Notes             string          `json:"notes,omitempty"`
		CreatedAt         time.Time       `json:"createdAt"`
	}

	Category struct {
		ID        string          `json:"id"`
		Name      string          `json:"name"`
		Type      TransactionType `json:"type"`
		Icon      string          `json:"icon,omitempty"`
		Color     string          `json:"color,omitempty"`
		ParentID  string          `json:"parentId,omitempty"`
		IsDefault bool            `json:"isDefault"`
		GroupID   string          `json:"groupId"`
		CreatedAt time.Time       `json:"createdAt"`
	}

	Budget struct {
		ID         string          `json:"id"`
		CategoryID string          `json:"categoryId"`
		Category   string          `json:"category"`
		Amount     decimal.Decimal `json:"amount"`
		Spent      decimal.Decimal `json:"spent"`
		Remaining  decimal.Decimal `json:"remaining"`
		Period     Interval        `json:"period"`
		StartDate  time.Time       `json:"startDate"`
		EndDate    time.Time       `json:"endDate"`
		Rollover   bool            `json:"rollover"`
		GroupID    string          `json:"groupId"`
		CreatedAt  time.Time       `json:"createdAt"`
	}

	Goal struct {
		ID            string          `json:"id"`
		Name          string          `json:"name"`
		TargetAmount  decimal.Decimal `json:"targetAmount"`
		CurrentAmount decimal.Decimal `json:"currentAmount"`
		StartDate     time.Time       `json:"startDate"`
		TargetDate    *time.Time      `json:"targetDate,omitempty"`
		CategoryID    string          `json:"categoryId,omitempty"`
		Category      string          `json:"category,omitempty"`
		IconEmoji     string          `json:"iconEmoji,omitempty"`
		Color         string          `json:"color,omitempty"`
		IsCompleted   bool            `json:"isCompleted"`
		GroupID       string          `json:"groupId"`
		CreatedAt     time.Time       `json:"createdAt"`
	}

	// Group is the ownership boundary shared by one or two users.
	Group struct {
		ID        string    `json:"id"`
		Members   []string  `json:"members"`
		CreatedAt time.Time `json:"createdAt"`
	}

	User struct {
		UID         string `json:"uid"`
		Email       string `json:"email"`
		DisplayName string `json:"displayName,omitempty"`
		PhotoURL    string `json:"photoURL,omitempty"`
		GroupID     string `json:"groupId,omitempty"`
	}

	ReceiptData struct {
		Merchant string          `json:"merchant"`
		Amount   decimal.Decimal `json:"amount"`
		Date     string          `json:"date,omitempty"`
		Category string          `json:"category,omitempty"`
		Items    []LineItem      `json:"items,omitempty"`
	}
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrInvalidPeriod      = errors.New("invalid period")
	ErrItemsMismatch      = errors.New("amount does not match items total")
	ErrEmptyName          = errors.New("empty name")
	ErrInvalidTarget      = errors.New("invalid target amount")
	ErrInvalidDateRange   = errors.New("end date before start date")
	ErrMissingGroup       = errors.New("missing group")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrAlreadyLinked      = errors.New("user already linked to a couple")
)

// IsValidation reports whether err is one of the input validation errors.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidAmount, ErrEmptyDescription, ErrDescriptionTooLong, ErrInvalidType, ErrInvalidPeriod,
		ErrItemsMismatch, ErrEmptyName, ErrInvalidTarget, ErrInvalidDateRange, ErrMissingGroup,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (i Interval) Valid() bool {
	switch i {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// End returns the last instant of the period that starts at start.
func (i Interval) End(start time.Time) time.Time {
	var next time.Time
	switch i {
	case Daily:
		next = start.AddDate(0, 0, 1)
	case Weekly:
		next = start.AddDate(0, 0, 7)
	case Yearly:
		next = start.AddDate(1, 0, 0)
	default:
		next = start.AddDate(0, 1, 0)
	}
	return next.Add(-time.Nanosecond)
}

// PersonalGroupID returns the id of the single-member group owned by uid.
func PersonalGroupID(uid string) string {
	return PersonalGroupPrefix + uid
}

// Total returns price times quantity; a zero quantity counts as one.
func (li LineItem) Total() decimal.Decimal {
	qty := li.Quantity
	if qty <= 0 {
		qty = 1
	}
	return li.Price.Mul(decimal.NewFromInt(int64(qty)))
}

// ItemsTotal sums the line items of the transaction.
func (t Transaction) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range t.Items {
		total = total.Add(it.Total())
	}
	return total
}

// NormalizeAmount derives the amount from the line items when there are any.
func (t *Transaction) NormalizeAmount() {
	if len(t.Items) > 0 {
		t.Amount = t.ItemsTotal()
	}
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if t.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if len(t.Description) > maxDescriptionLen {
		return fmt.Errorf("%w (max %d characters)", ErrDescriptionTooLong, maxDescriptionLen)
	}
	if t.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidDateRange)
	}
	if strings.TrimSpace(t.GroupID) == "" {
		return ErrMissingGroup
	}
	for _, it := range t.Items {
		if it.Price.IsNegative() || it.Quantity < 0 {
			return fmt.Errorf("%w: item %q", ErrInvalidAmount, it.Name)
		}
	}
	if len(t.Items) > 0 && !t.Amount.Equal(t.ItemsTotal()) {
		return ErrItemsMismatch
	}
	if t.IsRecurring && !t.RecurringInterval.Valid() {
		return ErrInvalidPeriod
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Type.Valid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(c.GroupID) == "" {
		return ErrMissingGroup
	}
	return nil
}

// Recompute restores remaining = amount - spent and fills a missing end date.
func (b *Budget) Recompute() {
	if b.EndDate.IsZero() && !b.StartDate.IsZero() {
		b.EndDate = b.Period.End(b.StartDate)
	}
	b.Remaining = b.Amount.Sub(b.Spent)
}

// Covers reports whether t falls inside the budget window.
func (b Budget) Covers(t time.Time) bool {
	return !t.Before(b.StartDate) && !t.After(b.EndDate)
}

func (b Budget) Validate() error {
	if b.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(b.CategoryID) == "" {
		return fmt.Errorf("%w: category is required", ErrEmptyName)
	}
	if !b.Period.Valid() {
		return ErrInvalidPeriod
	}
	if b.StartDate.IsZero() {
		return fmt.Errorf("%w: start date is required", ErrInvalidDateRange)
	}
	if !b.EndDate.IsZero() && b.EndDate.Before(b.StartDate) {
		return ErrInvalidDateRange
	}
	if strings.TrimSpace(b.GroupID) == "" {
		return ErrMissingGroup
	}
	return nil
}

// Recompute restores isCompleted = currentAmount >= targetAmount.
func (g *Goal) Recompute() {
	g.IsCompleted = g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount)
}

// Contribute adds amount to the goal and recomputes completion.
func (g *Goal) Contribute(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	g.CurrentAmount = g.CurrentAmount.Add(amount)
	g.Recompute()
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if !g.TargetAmount.IsPositive() {
		return ErrInvalidTarget
	}
	if g.CurrentAmount.IsNegative() {
		return ErrInvalidAmount
	}
	if g.TargetDate != nil && !g.StartDate.IsZero() && g.TargetDate.Before(g.StartDate) {
		return ErrInvalidDateRange
	}
	if strings.TrimSpace(g.GroupID) == "" {
		return ErrMissingGroup
	}
	return nil
}

// HasMember reports whether uid belongs to the group.
func (g Group) HasMember(uid string) bool {
	for _, m := range g.Members {
		if m == uid {
			return true
		}
	}
	return false
}

// IsCouple reports whether the group links two users.
func (g Group) IsCouple() bool {
	return len(g.Members) == 2 && !strings.HasPrefix(g.ID, PersonalGroupPrefix)
}
