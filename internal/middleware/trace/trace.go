// Package trace tags every request with an id and logs its start and end.
package trace

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"conti/internal/log"
)

// HeaderRequestID carries the request id in and out.
const HeaderRequestID = "X-Request-ID"

type requestIDKey struct{}

// Metrics is a snapshot of request totals.
type Metrics struct {
	TotalRequests       int64
	TotalDurationMicros int64
}

func (m Metrics) AverageResponseTime() time.Duration {
	if m.TotalRequests == 0 {
		return 0
	}
	return time.Duration(m.TotalDurationMicros/m.TotalRequests) * time.Microsecond
}

type Middleware struct {
	clientIP func(*http.Request) string
	events   *log.StructuredLogger

	requests atomic.Int64
	micros   atomic.Int64
}

// NewMiddleware logs through logger; clientIP may be nil.
func NewMiddleware(clientIP func(*http.Request) string, logger *log.Logger) *Middleware {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	return &Middleware{clientIP: clientIP, events: log.NewStructuredLogger(logger)}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ip := ""
		if m.clientIP != nil {
			ip = m.clientIP(r)
		}

		id := r.Header.Get(HeaderRequestID)
		if !acceptableID(id) {
			id = NewRequestID()
		}
		w.Header().Set(HeaderRequestID, id)
		ctx := WithRequestID(r.Context(), id)
		r = r.WithContext(ctx)

		m.events.LogHTTPStart(ctx, r, ip)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		m.requests.Add(1)
		m.micros.Add(elapsed.Microseconds())
		m.events.LogHTTPEnd(ctx, r, rec.status, elapsed.Milliseconds(), ip)
	})
}

func (m *Middleware) GetMetrics() Metrics {
	return Metrics{TotalRequests: m.requests.Load(), TotalDurationMicros: m.micros.Load()}
}

// acceptableID allows caller ids of up to 64 characters from [A-Za-z0-9._-]
// so they cannot break a log line.
func acceptableID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '.', c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}

func NewRequestID() string {
	return "req_" + uuid.NewString()
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// GetRequestID returns "" outside a traced request.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestIDFromRequest fits log.RequestIDMiddleware.
func RequestIDFromRequest(r *http.Request) string {
	return GetRequestID(r.Context())
}

type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.written {
		s.status, s.written = code, true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.written = true
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
