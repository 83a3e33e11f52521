package memory

import (
	"context"
	"fmt"
	"sync"

	"conti/internal/core"
	"conti/internal/sheets"
)

// Exporter keeps exported rows in process, in insertion order.
type Exporter struct {
	mu   sync.Mutex
	ids  []string
	rows map[string][]string
}

var _ sheets.Exporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{rows: make(map[string][]string)}
}

func (e *Exporter) Export(_ context.Context, t core.Transaction) (string, error) {
	if t.ID == "" {
		return "", fmt.Errorf("export: %w", core.ErrNotFound)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.rows[t.ID]; !ok {
		e.ids = append(e.ids, t.ID)
	}
	e.rows[t.ID] = sheets.Row(t)
	return fmt.Sprintf("mem:%d", e.indexOf(t.ID)+1), nil
}

func (e *Exporter) Remove(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.rows[id]; !ok {
		return nil
	}
	delete(e.rows, id)
	i := e.indexOf(id)
	e.ids = append(e.ids[:i], e.ids[i+1:]...)
	return nil
}

// Rows returns a copy of the exported rows in insertion order.
func (e *Exporter) Rows() [][]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([][]string, 0, len(e.ids))
	for _, id := range e.ids {
		out = append(out, append([]string(nil), e.rows[id]...))
	}
	return out
}

func (e *Exporter) indexOf(id string) int {
	for i, v := range e.ids {
		if v == id {
			return i
		}
	}
	return -1
}
