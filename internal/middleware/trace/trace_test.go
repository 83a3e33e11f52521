package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conti/internal/log"
)

func newTraced(t *testing.T, status int) (http.Handler, *Middleware, *bytes.Buffer, *string) {
	t.Helper()
	var buf bytes.Buffer
	logger := log.New(log.Config{Component: log.ComponentTrace, Handler: log.NewHandler(&buf, "text", slog.LevelInfo)})
	m := NewMiddleware(func(*http.Request) string { return "203.0.113.5" }, logger)

	seen := new(string)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen = GetRequestID(r.Context())
		w.WriteHeader(status)
	}))
	return h, m, &buf, seen
}

func TestMiddlewareGeneratesRequestID(t *testing.T) {
	h, m, buf, seen := newTraced(t, http.StatusCreated)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/transactions", nil))

	require.True(t, strings.HasPrefix(*seen, "req_"))
	assert.Equal(t, *seen, rec.Header().Get(HeaderRequestID))
	assert.Contains(t, buf.String(), "HTTP request started")
	assert.Contains(t, buf.String(), "status_code=201")
	assert.Contains(t, buf.String(), "client_ip=203.0.113.5")
	assert.Equal(t, int64(1), m.GetMetrics().TotalRequests)
}

func TestMiddlewareReusesValidIncomingID(t *testing.T) {
	h, _, _, seen := newTraced(t, http.StatusOK)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "abc-123", *seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "bad id\nwith newline")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.True(t, strings.HasPrefix(*seen, "req_"))
}

func TestMiddlewareLogsServerErrorsAtErrorLevel(t *testing.T) {
	h, _, buf, _ := newTraced(t, http.StatusInternalServerError)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, buf.String(), "level=ERROR")
}

func TestMetricsAverage(t *testing.T) {
	assert.Zero(t, Metrics{}.AverageResponseTime())
	assert.Equal(t, "2ms", Metrics{TotalRequests: 2, TotalDurationMicros: 4000}.AverageResponseTime().String())
}

func TestRequestIDFromRequest(t *testing.T) {
	assert.Empty(t, RequestIDFromRequest(httptest.NewRequest(http.MethodGet, "/", nil)))
}

func TestAcceptableID(t *testing.T) {
	assert.True(t, acceptableID("abc-123_x.y"))
	assert.False(t, acceptableID(""))
	assert.False(t, acceptableID(strings.Repeat("a", 65)))
	assert.False(t, acceptableID("a b"))
	assert.True(t, acceptableID(NewRequestID()))
}
