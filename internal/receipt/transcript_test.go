package receipt

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conti/internal/core"
)

func TestParseTranscript(t *testing.T) {
	tests := []struct {
		text        string
		typ         core.TransactionType
		amount      string
		category    string
		description string
	}{
		{"Spent $42.50 on groceries", core.Expense, "42.50", "Groceries", "Groceries"},
		{"I earned 1,200 from a client", core.Income, "1200", "Salary", "Client"},
		{"got paid 300 bucks", core.Income, "300", "Other Income", "Income"},
		{"50 dollars for dinner at the restaurant", core.Expense, "50", "Dining Out", "Dinner restaurant"},
		{"paid the electric bill 80", core.Expense, "80", "Utilities", "Electric bill"},
		{"12,50 euro for lunch", core.Expense, "12.50", "Dining Out", "Lunch"},
		{"bought something nice for 19.99", core.Expense, "19.99", "Shopping", "Bought something nice"},
		{"received 20 for the phone", core.Income, "20", "Other Income", "Phone"},
		{"spent 20", core.Expense, "20", "Other Expense", "Expense"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			d, err := ParseTranscript(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.typ, d.Type)
			assert.True(t, decimal.RequireFromString(tt.amount).Equal(d.Amount), "amount %s", d.Amount)
			assert.Equal(t, tt.category, d.Category)
			assert.Equal(t, tt.description, d.Description)
		})
	}
}

func TestParseTranscriptWithoutAmount(t *testing.T) {
	for _, text := range []string{"", "spent a lot on coffee", "spent 0 dollars"} {
		_, err := ParseTranscript(text)
		assert.ErrorIs(t, err, ErrNoAmount, text)
	}
}
