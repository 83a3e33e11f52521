package sheets

import (
	"context"
	"strings"

	"conti/internal/core"
)

// Ports for the spreadsheet mirror of transactions. Rows are keyed by
// transaction id.
type (
	TransactionExporter interface {
		// Export inserts the row of t or overwrites it when already present.
		Export(ctx context.Context, t core.Transaction) (rowRef string, err error)
	}

	TransactionRemover interface {
		// Remove deletes the row of the transaction. Missing rows are not an error.
		Remove(ctx context.Context, id string) error
	}

	Exporter interface {
		TransactionExporter
		TransactionRemover
	}
)

// Header is the first row of the export sheet.
var Header = []string{"ID", "Date", "Type", "Description", "Category", "Amount", "Owner", "Group", "Shared", "Tags"}

// Row renders t in Header order.
func Row(t core.Transaction) []string {
	shared := "no"
	if t.IsShared {
		shared = "yes"
	}
	owner := t.OwnerName
	if owner == "" {
		owner = t.OwnerID
	}
	return []string{
		t.ID,
		t.Date.UTC().Format("2006-01-02"),
		string(t.Type),
		t.Description,
		t.Category,
		t.Amount.StringFixed(2),
		owner,
		t.GroupID,
		shared,
		strings.Join(t.Tags, ", "),
	}
}
