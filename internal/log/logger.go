package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is a slog.Logger that remembers which component it belongs to.
type Logger struct {
	*slog.Logger
	base      *slog.Logger
	component string
}

type Config struct {
	Level     slog.Level
	Component string
	// Handler overrides Level; nil means text on stdout.
	Handler slog.Handler
}

// ParseLevel maps LOG_LEVEL values to slog levels, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewHandler returns a JSON handler for format "json" and a text handler otherwise.
func NewHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func New(cfg Config) *Logger {
	h := cfg.Handler
	if h == nil {
		h = NewHandler(os.Stdout, "text", cfg.Level)
	}
	return wrap(slog.New(h), cfg.Component)
}

func wrap(base *slog.Logger, component string) *Logger {
	l := &Logger{Logger: base, base: base, component: component}
	if component != "" {
		l.Logger = base.With(FieldComponent, component)
	}
	return l
}

// With returns a logger carrying args on every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:    l.Logger.With(args...),
		base:      l.base.With(args...),
		component: l.component,
	}
}

// WithComponent swaps the component attribute instead of stacking a second one.
func (l *Logger) WithComponent(component string) *Logger {
	return wrap(l.base, component)
}

func (l *Logger) Component() string {
	return l.component
}

// SetDefault installs l as the process-wide slog default.
func SetDefault(l *Logger) {
	slog.SetDefault(l.Logger)
}
