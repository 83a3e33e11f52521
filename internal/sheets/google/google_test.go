package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"conti/internal/core"
)

// fakeSheets serves the subset of the Sheets v4 REST API the client uses,
// backed by one in-memory grid.
type fakeSheets struct {
	mu      sync.Mutex
	grid    [][]string
	updates []string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, rq := range req.Requests {
			d := rq.DeleteDimension.Range
			f.grid = append(f.grid[:d.StartIndex], f.grid[d.EndIndex:]...)
		}
		fmt.Fprint(w, `{}`)

	case r.Method == http.MethodGet && strings.HasSuffix(path, "/v4/spreadsheets/sid"):
		fmt.Fprint(w, `{"sheets":[{"properties":{"sheetId":7,"title":"Other"}},{"properties":{"sheetId":42,"title":"Transactions"}}]}`)

	case r.Method == http.MethodGet && strings.Contains(path, "/values/"):
		values := make([][]string, 0, len(f.grid))
		for _, row := range f.grid {
			if len(row) == 0 {
				values = append(values, []string{})
				continue
			}
			values = append(values, row[:1])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"values": values})

	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		rng := path[strings.Index(path, "/values/")+len("/values/"):]
		f.updates = append(f.updates, rng)
		var first, last int
		if _, err := fmt.Sscanf(rng[strings.Index(rng, "!")+1:], "A%d:J%d", &first, &last); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var vr gsheet.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for i, row := range vr.Values {
			for len(f.grid) < first+i {
				f.grid = append(f.grid, nil)
			}
			cells := make([]string, len(row))
			for j, v := range row {
				cells[j] = fmt.Sprint(v)
			}
			f.grid[first+i-1] = cells
		}
		fmt.Fprintf(w, `{"updatedRange":%q}`, rng)

	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return NewWithService(svc, "sid", ""), fake
}

func transaction(id, desc string) core.Transaction {
	return core.Transaction{
		ID:          id,
		Type:        core.Expense,
		Amount:      decimal.RequireFromString("9.90"),
		Description: desc,
		Category:    "Groceries",
		Date:        time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		OwnerID:     "u1",
		GroupID:     "g1",
	}
}

func TestExportWritesHeaderThenUpserts(t *testing.T) {
	ctx := context.Background()
	c, fake := newTestClient(t)

	ref, err := c.Export(ctx, transaction("t1", "Bread"))
	require.NoError(t, err)
	assert.Equal(t, "Transactions!A2:J2", ref)

	ref, err = c.Export(ctx, transaction("t2", "Milk"))
	require.NoError(t, err)
	assert.Equal(t, "Transactions!A3:J3", ref)

	ref, err = c.Export(ctx, transaction("t1", "Bread and butter"))
	require.NoError(t, err)
	assert.Equal(t, "Transactions!A2:J2", ref)

	require.Len(t, fake.grid, 3)
	assert.Equal(t, "ID", fake.grid[0][0])
	assert.Equal(t, "Bread and butter", fake.grid[1][3])
	assert.Equal(t, "9.90", fake.grid[1][5])
	assert.Equal(t, []string{"Transactions!A1:J2", "Transactions!A3:J3", "Transactions!A2:J2"}, fake.updates)
}

func TestRemoveDeletesRow(t *testing.T) {
	ctx := context.Background()
	c, fake := newTestClient(t)

	for _, id := range []string{"t1", "t2", "t3"} {
		_, err := c.Export(ctx, transaction(id, id))
		require.NoError(t, err)
	}

	require.NoError(t, c.Remove(ctx, "t2"))
	require.NoError(t, c.Remove(ctx, "unknown"))

	ids := make([]string, 0, len(fake.grid))
	for _, row := range fake.grid {
		ids = append(ids, row[0])
	}
	assert.Equal(t, []string{"ID", "t1", "t3"}, ids)
	require.NotNil(t, c.sheetID)
	assert.Equal(t, int64(42), *c.sheetID)
}

func TestExportRequiresService(t *testing.T) {
	c := &Client{spreadsheetID: "sid"}
	_, err := c.Export(context.Background(), transaction("t1", "x"))
	assert.Error(t, err)
	assert.Error(t, c.Remove(context.Background(), "t1"))
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), " ", "Transactions", []byte(`{}`))
	require.Error(t, err)
	assert.Equal(t, "missing GOOGLE_SPREADSHEET_ID", err.Error())
}

func TestLoadCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	b, err := LoadCredentials(` {"type":"service_account"} `, "")
	require.NoError(t, err)
	assert.Equal(t, `{"type":"service_account"}`, string(b))

	_, err = LoadCredentials("", "")
	assert.ErrorContains(t, err, "missing service account credentials")

	_, err = LoadCredentials("", t.TempDir()+"/missing.json")
	assert.ErrorContains(t, err, "read service account file")
}

func TestFindRow(t *testing.T) {
	ids := firstColumn([][]any{{"ID"}, {}, {" t1 "}})
	assert.Equal(t, []string{"ID", "", "t1"}, ids)
	assert.Equal(t, 3, findRow(ids, "t1"))
	assert.Equal(t, 0, findRow(ids, ""))
	assert.Equal(t, 0, findRow(ids, "t9"))
}
