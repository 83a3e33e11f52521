package log

import (
	"context"
	"log/slog"
	"net/http"
)

type ctxKey struct{}

// IntoContext returns ctx carrying l.
func IntoContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the request logger, or one around slog.Default.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return &Logger{Logger: slog.Default(), base: slog.Default(), component: "unknown"}
}

// Middleware puts logger into each request context.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(IntoContext(r.Context(), logger)))
		})
	}
}

// RequestIDMiddleware tags the request logger with the id returned by requestID.
// It must run inside Middleware.
func RequestIDMiddleware(requestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := FromContext(r.Context()).With(FieldRequestID, requestID(r))
			next.ServeHTTP(w, r.WithContext(IntoContext(r.Context(), l)))
		})
	}
}

// StructuredLogger emits the recurring events with a fixed attribute set.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func httpLevel(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	sl.logger.WithComponent(ComponentHTTP).LogAttrs(ctx, slog.LevelInfo, "HTTP request started",
		slog.String(FieldMethod, r.Method),
		slog.String(FieldPath, r.URL.Path),
		slog.String(FieldQuery, r.URL.RawQuery),
		slog.String(FieldUserAgent, r.UserAgent()),
		slog.String(FieldClientIP, clientIP),
	)
}

func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, status int, durationMs int64, clientIP string) {
	sl.logger.WithComponent(ComponentHTTP).LogAttrs(ctx, httpLevel(status), "HTTP request completed",
		slog.String(FieldMethod, r.Method),
		slog.String(FieldPath, r.URL.Path),
		slog.Int(FieldStatusCode, status),
		slog.Int64(FieldDuration, durationMs),
		slog.String(FieldClientIP, clientIP),
	)
}

func (sl *StructuredLogger) LogTransactionWritten(ctx context.Context, op, id, groupID, txType, amount string) {
	sl.logger.WithComponent(ComponentTransaction).LogAttrs(ctx, slog.LevelInfo, "Transaction written",
		slog.String(FieldOperation, op),
		slog.String(FieldTransactionID, id),
		slog.String(FieldGroupID, groupID),
		slog.String(FieldTxType, txType),
		slog.String(FieldAmount, amount),
	)
}

// LogRPC logs a finished unary call; failures are warnings.
func (sl *StructuredLogger) LogRPC(ctx context.Context, method, code string, durationMs int64, err error) {
	attrs := []slog.Attr{
		slog.String(FieldRPCMethod, method),
		slog.String(FieldRPCCode, code),
		slog.Int64(FieldDuration, durationMs),
	}
	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelWarn
		attrs = append(attrs, slog.String(FieldError, err.Error()))
	}
	sl.logger.WithComponent(ComponentReceipt).LogAttrs(ctx, level, "RPC completed", attrs...)
}
