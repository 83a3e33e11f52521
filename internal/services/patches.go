package services

import (
	"time"

	"github.com/shopspring/decimal"

	"conti/internal/core"
)

// Patches carry partial updates. Nil fields are left untouched.

type TransactionPatch struct {
	Type              *core.TransactionType `json:"type,omitempty"`
	Amount            *decimal.Decimal      `json:"amount,omitempty"`
	Description       *string               `json:"description,omitempty"`
	CategoryID        *string               `json:"categoryId,omitempty"`
	Date              *time.Time            `json:"date,omitempty"`
	IsShared          *bool                 `json:"isShared,omitempty"`
	Tags              *[]string             `json:"tags,omitempty"`
	IsRecurring       *bool                 `json:"isRecurring,omitempty"`
	RecurringInterval *core.Interval        `json:"recurringInterval,omitempty"`
	Receipt           *string               `json:"receipt,omitempty"`
	Location          *string               `json:"location,omitempty"`
	Items             *[]core.LineItem      `json:"items,omitempty"`
	Notes             *string               `json:"notes,omitempty"`
}

func (p TransactionPatch) Apply(t *core.Transaction) {
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.CategoryID != nil && *p.CategoryID != t.CategoryID {
		t.CategoryID = *p.CategoryID
		t.Category = ""
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.IsShared != nil {
		t.IsShared = *p.IsShared
	}
	if p.Tags != nil {
		t.Tags = *p.Tags
	}
	if p.IsRecurring != nil {
		t.IsRecurring = *p.IsRecurring
	}
	if p.RecurringInterval != nil {
		t.RecurringInterval = *p.RecurringInterval
	}
	if p.Receipt != nil {
		t.Receipt = *p.Receipt
	}
	if p.Location != nil {
		t.Location = *p.Location
	}
	if p.Items != nil {
		t.Items = *p.Items
		t.NormalizeAmount()
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
}

type CategoryPatch struct {
	Name     *string               `json:"name,omitempty"`
	Type     *core.TransactionType `json:"type,omitempty"`
	Icon     *string               `json:"icon,omitempty"`
	Color    *string               `json:"color,omitempty"`
	ParentID *string               `json:"parentId,omitempty"`
}

func (p CategoryPatch) Apply(c *core.Category) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.Icon != nil {
		c.Icon = *p.Icon
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
	if p.ParentID != nil {
		c.ParentID = *p.ParentID
	}
}

type BudgetPatch struct {
	CategoryID *string          `json:"categoryId,omitempty"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	Period     *core.Interval   `json:"period,omitempty"`
	StartDate  *time.Time       `json:"startDate,omitempty"`
	EndDate    *time.Time       `json:"endDate,omitempty"`
	Rollover   *bool            `json:"rollover,omitempty"`
}

// Apply updates b; a new period or start without an explicit end re-derives the end.
func (p BudgetPatch) Apply(b *core.Budget) {
	if p.CategoryID != nil && *p.CategoryID != b.CategoryID {
		b.CategoryID = *p.CategoryID
		b.Category = ""
	}
	if p.Amount != nil {
		b.Amount = *p.Amount
	}
	if p.Period != nil {
		b.Period = *p.Period
	}
	if p.StartDate != nil {
		b.StartDate = *p.StartDate
	}
	switch {
	case p.EndDate != nil:
		b.EndDate = *p.EndDate
	case p.Period != nil || p.StartDate != nil:
		b.EndDate = time.Time{}
	}
	if p.Rollover != nil {
		b.Rollover = *p.Rollover
	}
	b.Recompute()
}

type GoalPatch struct {
	Name          *string          `json:"name,omitempty"`
	TargetAmount  *decimal.Decimal `json:"targetAmount,omitempty"`
	CurrentAmount *decimal.Decimal `json:"currentAmount,omitempty"`
	TargetDate    *time.Time       `json:"targetDate,omitempty"`
	CategoryID    *string          `json:"categoryId,omitempty"`
	IconEmoji     *string          `json:"iconEmoji,omitempty"`
	Color         *string          `json:"color,omitempty"`
}

func (p GoalPatch) Apply(g *core.Goal) {
	if p.Name != nil {
		g.Name = *p.Name
	}
	if p.TargetAmount != nil {
		g.TargetAmount = *p.TargetAmount
	}
	if p.CurrentAmount != nil {
		g.CurrentAmount = *p.CurrentAmount
	}
	if p.TargetDate != nil {
		td := *p.TargetDate
		g.TargetDate = &td
	}
	if p.CategoryID != nil && *p.CategoryID != g.CategoryID {
		g.CategoryID = *p.CategoryID
		g.Category = ""
	}
	if p.IconEmoji != nil {
		g.IconEmoji = *p.IconEmoji
	}
	if p.Color != nil {
		g.Color = *p.Color
	}
	g.Recompute()
}
