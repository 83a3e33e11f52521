package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestLimiter(t *testing.T, perMinute int) (*Limiter, *clock) {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerMinute: perMinute, CleanupInterval: time.Hour})
	t.Cleanup(rl.Stop)
	c := &clock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	rl.now = c.now
	return rl, c
}

func TestLimiterAllow(t *testing.T) {
	rl, c := newTestLimiter(t, 2)

	assert.True(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("1.1.1.1"))
	assert.False(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("2.2.2.2"), "clients are counted separately")

	c.t = c.t.Add(30 * time.Second)
	assert.False(t, rl.Allow("1.1.1.1"), "window is fixed, not sliding")

	c.t = c.t.Add(31 * time.Second)
	assert.True(t, rl.Allow("1.1.1.1"))

	m := rl.GetMetrics()
	assert.Equal(t, int64(2), m.TotalHits)
	assert.Equal(t, int64(2), m.ClientCount)
}

func TestLimiterCleanup(t *testing.T) {
	rl, c := newTestLimiter(t, 5)
	rl.Allow("1.1.1.1")
	c.t = c.t.Add(5 * time.Minute)
	rl.Allow("2.2.2.2")

	c.t = c.t.Add(6 * time.Minute)
	assert.Equal(t, 1, rl.forgetIdle())
	assert.Equal(t, 1, rl.ActiveClients())
}

func TestMiddlewareOnlyLimitsMutatingRequests(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	h := rl.Middleware(func(*http.Request) string { return "1.1.1.1" }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	do := func(method string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, "/api/transactions", nil))
		return rec
	}

	assert.Equal(t, http.StatusNoContent, do(http.MethodPost).Code)
	rec := do(http.MethodPatch)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusNoContent, do(http.MethodGet).Code)
	}
}

func TestMiddlewareCustomOnLimit(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	called := false
	h := rl.Middleware(func(*http.Request) string { return "ip" }, func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusTooManyRequests)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/", nil))
	assert.True(t, called)
}

func TestNewLimiterDefaults(t *testing.T) {
	rl := NewLimiter(Config{})
	defer rl.Stop()
	assert.Equal(t, 60, rl.limit)
	assert.Equal(t, 5*time.Minute, rl.sweepEvery)
	rl.Stop()
}
