package receipt

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"conti/internal/core"
)

// ErrNoAmount is returned when a transcript names no positive amount.
var ErrNoAmount = errors.New("no amount in transcript")

// Draft is a transaction guessed from a spoken sentence. Category is a
// category name for the caller to resolve against its group.
type Draft struct {
	Type        core.TransactionType `json:"type"`
	Amount      decimal.Decimal      `json:"amount"`
	Description string               `json:"description"`
	Category    string               `json:"category"`
}

var (
	amountPattern = regexp.MustCompile(`[$€£]?\s?(\d+(?:[.,]\d{1,2})?)\s?(?:dollars?|bucks?|euros?)?`)
	wordPattern   = regexp.MustCompile(`[a-z]+`)
	thousands     = regexp.MustCompile(`(\d),(\d{3})\b`)

	incomeMarkers = []string{"earned", "received", "got paid", "income"}
	fillerWords   = map[string]bool{
		"spent": true, "paid": true, "for": true, "on": true, "at": true,
		"the": true, "and": true, "got": true, "from": true, "with": true, "was": true, "some": true,
		"earned": true, "received": true,
		"dollar": true, "dollars": true, "buck": true, "bucks": true, "euro": true, "euros": true,
	}

	transcriptKeywords = []struct {
		typ      core.TransactionType
		category string
		keywords []string
	}{
		{core.Expense, "Groceries", []string{"grocery", "groceries", "supermarket", "food"}},
		{core.Expense, "Dining Out", []string{"restaurant", "dining", "lunch", "dinner", "breakfast", "meal", "takeout"}},
		{core.Expense, "Transportation", []string{"gas", "fuel", "uber", "lyft", "taxi", "car", "bus", "train", "transport", "travel"}},
		{core.Expense, "Shopping", []string{"clothes", "clothing", "shopping", "amazon", "online", "bought", "purchase"}},
		{core.Expense, "Entertainment", []string{"movie", "movies", "netflix", "spotify", "entertainment", "game", "games", "subscription"}},
		{core.Expense, "Rent/Mortgage", []string{"rent", "mortgage", "housing", "apartment"}},
		{core.Expense, "Utilities", []string{"electric", "electricity", "water", "internet", "phone", "bill", "utility", "utilities"}},
		{core.Income, "Salary", []string{"salary", "paycheck", "work", "job", "client"}},
	}
)

// ParseTranscript turns a sentence like "spent 42.50 on groceries" into a
// draft. Income is detected from a few verbs; everything else is an
// expense. The first keyword group of that type with a whole-word hit
// names the category, falling back to the type's Other category.
func ParseTranscript(text string) (Draft, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	text = thousands.ReplaceAllString(text, "$1$2")

	m := amountPattern.FindStringSubmatch(text)
	if m == nil {
		return Draft{}, ErrNoAmount
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", "."))
	if err != nil || !amount.IsPositive() {
		return Draft{}, ErrNoAmount
	}

	d := Draft{Type: core.Expense, Amount: amount}
	for _, marker := range incomeMarkers {
		if strings.Contains(text, marker) {
			d.Type = core.Income
			break
		}
	}

	words := wordPattern.FindAllString(amountPattern.ReplaceAllString(text, " "), -1)
	d.Category = transcriptCategory(words, d.Type)

	var kept []string
	for _, w := range words {
		if len(w) > 2 && !fillerWords[w] {
			kept = append(kept, w)
		}
	}
	switch {
	case len(kept) > 0:
		desc := strings.Join(kept, " ")
		d.Description = strings.ToUpper(desc[:1]) + desc[1:]
	case d.Type == core.Income:
		d.Description = "Income"
	default:
		d.Description = "Expense"
	}
	return d, nil
}

func transcriptCategory(words []string, typ core.TransactionType) string {
	seen := make(map[string]bool, len(words))
	for _, w := range words {
		seen[w] = true
	}
	for _, group := range transcriptKeywords {
		if group.typ != typ {
			continue
		}
		for _, kw := range group.keywords {
			if seen[kw] {
				return group.category
			}
		}
	}
	if typ == core.Income {
		return "Other Income"
	}
	return "Other Expense"
}
