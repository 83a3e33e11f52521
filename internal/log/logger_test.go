package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNewHandlerFormats(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentReceipt, Handler: NewHandler(&buf, "json", slog.LevelInfo)})
	logger.Info("hello", FieldGroupID, "g1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, ComponentReceipt, entry[FieldComponent])
	assert.Equal(t, "g1", entry[FieldGroupID])

	buf.Reset()
	text := New(Config{Component: ComponentApp, Handler: NewHandler(&buf, "text", slog.LevelWarn)})
	text.Info("dropped")
	text.Warn("kept")
	assert.NotContains(t, buf.String(), "dropped")
	assert.True(t, strings.Contains(buf.String(), "msg=kept"))
}

func TestMiddlewareStoresLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentHTTP, Handler: NewHandler(&buf, "text", slog.LevelInfo)})

	var got *Logger
	h := Middleware(logger)(RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = FromContext(r.Context())
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, got)
	got.Info("inside")
	assert.Contains(t, buf.String(), "request_id=req-1")
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	l := FromContext(context.Background())
	require.NotNil(t, l)
	assert.Equal(t, "unknown", l.Component())
}

func TestLogRPCLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Component: ComponentReceipt, Handler: NewHandler(&buf, "text", slog.LevelInfo)}))

	sl.LogRPC(context.Background(), "/svc/Analyze", "OK", 3, nil)
	assert.Contains(t, buf.String(), "level=INFO")

	buf.Reset()
	sl.LogRPC(context.Background(), "/svc/Analyze", "InvalidArgument", 1, assert.AnError)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "rpc_code=InvalidArgument")
}

func TestWithComponentReplacesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentHTTP, Handler: NewHandler(&buf, "text", slog.LevelInfo)}).
		With(FieldRequestID, "req-9").
		WithComponent(ComponentAuth)

	logger.Info("signed in")
	line := buf.String()
	assert.Equal(t, 1, strings.Count(line, "component="))
	assert.Contains(t, line, "component=auth")
	assert.Contains(t, line, "request_id=req-9")
	assert.Equal(t, ComponentAuth, logger.Component())
}
