package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Attribute keys shared by every component.
const (
	KeyComponent = "component"
	KeyError     = "error"
)

// New returns a JSON logger writing one object per line to w.
// The time attribute is emitted as "ts" in RFC3339Nano, rendered in loc.
func New(w io.Writer, level string, loc *time.Location) *slog.Logger {
	if loc == nil {
		loc = time.UTC
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				return slog.String("ts", a.Value.Time().In(loc).Format(time.RFC3339Nano))
			case slog.LevelKey:
				return slog.String(slog.LevelKey, strings.ToLower(a.Value.String()))
			}
			return a
		},
	})
	return slog.New(h)
}

// NewDefault builds a stdout logger and installs it as the slog default.
func NewDefault(level string, loc *time.Location) *slog.Logger {
	l := New(os.Stdout, level, loc)
	slog.SetDefault(l)
	return l
}

// ParseLevel maps debug/info/warn/error to a slog level; unknown values mean info.
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

// Component returns a child logger tagged with the component name.
func Component(l *slog.Logger, name string) *slog.Logger {
	if l == nil {
		l = slog.Default()
	}
	return l.With(KeyComponent, name)
}
