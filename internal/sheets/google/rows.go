package google

import (
	"fmt"
	"strings"
)

// firstColumn flattens a column read, keeping blank cells so that indexes
// stay aligned with sheet rows.
func firstColumn(values [][]any) []string {
	out := make([]string, len(values))
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(row[0]))
	}
	return out
}

// findRow returns the 1-based sheet row of id, or 0.
func findRow(ids []string, id string) int {
	id = strings.TrimSpace(id)
	if id == "" {
		return 0
	}
	for i, v := range ids {
		if v == id {
			return i + 1
		}
	}
	return 0
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
