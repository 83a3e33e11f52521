// Package ratelimit caps state-changing requests per client in fixed
// one-minute windows.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const (
	window  = time.Minute
	idleTTL = 10 * time.Minute
)

type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
}

func DefaultConfig() Config {
	return Config{RequestsPerMinute: 60, CleanupInterval: 5 * time.Minute}
}

type bucket struct {
	opened time.Time
	last   time.Time
	count  int
}

type Limiter struct {
	limit      int
	sweepEvery time.Duration
	now        func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket

	rejected atomic.Int64
	done     chan struct{}
	stop     sync.Once
}

// NewLimiter starts a background sweep of idle clients; call Stop to end it.
func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	l := &Limiter{
		limit:      cfg.RequestsPerMinute,
		sweepEvery: cfg.CleanupInterval,
		now:        time.Now,
		buckets:    make(map[string]*bucket),
		done:       make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

func (l *Limiter) Allow(client string) bool {
	_, reset := l.take(client)
	return reset == 0
}

// take counts one request and returns the calls left in the window, with a
// non-zero reset when the caller is over the limit.
func (l *Limiter) take(client string) (left int, reset time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b := l.buckets[client]
	if b == nil || now.Sub(b.opened) >= window {
		b = &bucket{opened: now}
		l.buckets[client] = b
	}
	b.count++
	b.last = now
	if b.count <= l.limit {
		return l.limit - b.count, 0
	}
	l.rejected.Add(1)
	return 0, b.opened.Add(window).Sub(now)
}

func (l *Limiter) sweepLoop() {
	t := time.NewTicker(l.sweepEvery)
	defer t.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-t.C:
			l.forgetIdle()
		}
	}
}

// forgetIdle drops clients not seen for idleTTL.
func (l *Limiter) forgetIdle() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-idleTTL)
	n := 0
	for k, b := range l.buckets {
		if b.last.Before(cutoff) {
			delete(l.buckets, k)
			n++
		}
	}
	return n
}

func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *Limiter) Stop() {
	l.stop.Do(func() { close(l.done) })
}

type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

func (l *Limiter) GetMetrics() Metrics {
	return Metrics{TotalHits: l.rejected.Load(), ClientCount: int64(l.ActiveClients())}
}

// IsMutating reports whether the method changes state.
func IsMutating(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// Middleware limits mutating requests per client key; reads pass through.
// onLimit writes the rejection, a plain 429 when nil.
func (l *Limiter) Middleware(clientKey func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsMutating(r) {
				next.ServeHTTP(w, r)
				return
			}
			left, reset := l.take(clientKey(r))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(left))
			if reset == 0 {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", strconv.Itoa(max(int(reset.Round(time.Second)/time.Second), 1)))
			if onLimit == nil {
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			onLimit(w, r)
		})
	}
}
