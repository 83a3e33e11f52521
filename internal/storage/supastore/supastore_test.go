package supastore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supabase-community/supabase-go"

	"conti/internal/core"
)

// fakeREST records requests and replays a canned body per method.
type fakeREST struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   []string
	replies  map[string]string
}

func (f *fakeREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, r)
	f.bodies = append(f.bodies, string(body))
	reply, ok := f.replies[r.Method]
	f.mu.Unlock()
	if !ok {
		reply = "[]"
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(reply))
}

func (f *fakeREST) last() (*http.Request, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1], f.bodies[len(f.bodies)-1]
}

func newTestRepository(t *testing.T, replies map[string]string) (*Repository, *fakeREST) {
	t.Helper()
	fake := &fakeREST{replies: replies}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := supabase.NewClient(srv.URL, "anon-key", &supabase.ClientOptions{})
	require.NoError(t, err)
	return NewRepository(client), fake
}

func TestAddTransactionSendsSnakeCaseRow(t *testing.T) {
	repo, fake := newTestRepository(t, nil)

	id, err := repo.AddTransaction(context.Background(), core.Transaction{
		Type:        core.Expense,
		Amount:      decimal.RequireFromString("9.99"),
		Description: "Book",
		Date:        time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		GroupID:     "g1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	req, body := fake.last()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.True(t, strings.HasSuffix(req.URL.Path, "/transactions"))

	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &sent))
	assert.Equal(t, id, sent["id"])
	assert.Equal(t, "g1", sent["group_id"])
	assert.Equal(t, "9.99", sent["amount"])
	assert.Equal(t, []any{}, sent["tags"])
}

func TestGetTransactionNotFound(t *testing.T) {
	repo, _ := newTestRepository(t, map[string]string{http.MethodGet: "[]"})

	_, err := repo.GetTransaction(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestListTransactionsOrdersNewestFirst(t *testing.T) {
	reply := `[{"id":"t2","type":"expense","amount":5,"description":"b","group_id":"g1","tags":["x"],"items":[],
		"date":"2024-02-02T00:00:00+00:00","created_at":"2024-02-02T10:00:00+00:00"},
		{"id":"t1","type":"income","amount":"10.50","description":"a","group_id":"g1","tags":[],"items":[],
		"date":"2024-02-01T00:00:00+00:00","created_at":"2024-02-01T10:00:00+00:00"}]`
	repo, fake := newTestRepository(t, map[string]string{http.MethodGet: reply})

	list, err := repo.ListTransactions(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "t2", list[0].ID)
	assert.True(t, list[1].Amount.Equal(decimal.RequireFromString("10.5")))
	assert.Equal(t, core.Income, list[1].Type)

	req, _ := fake.last()
	assert.Equal(t, "eq.g1", req.URL.Query().Get("group_id"))
	assert.True(t, strings.HasPrefix(req.URL.Query().Get("order"), "created_at.desc"))
}

func TestUpdateMissingRowIsNotFound(t *testing.T) {
	repo, _ := newTestRepository(t, map[string]string{http.MethodPatch: "[]"})

	err := repo.UpdateGoal(context.Background(), core.Goal{ID: "missing", Name: "x"})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestFindGroupByMemberSkipsPersonalGroups(t *testing.T) {
	reply := `[{"id":"personal_u1","members":["u1"],"created_at":"2024-01-02T00:00:00Z"},
		{"id":"couple-1","members":["u1","u2"],"created_at":"2024-01-01T00:00:00Z"}]`
	repo, fake := newTestRepository(t, map[string]string{http.MethodGet: reply})

	g, err := repo.FindGroupByMember(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "couple-1", g.ID)

	req, _ := fake.last()
	assert.Equal(t, "cs.{u1}", req.URL.Query().Get("members"))
}
