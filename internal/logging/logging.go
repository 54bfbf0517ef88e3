// Package logging builds the JSON slog loggers used across the service.
// Every line carries a "ts" field formatted as RFC3339Nano in the
// configured location.
package logging

import (
	"io"
	"log/slog"
	"time"
)

// New returns a JSON logger writing to w with timestamps in loc.
func New(w io.Writer, loc *time.Location) *slog.Logger {
	return slog.New(NewHandler(w, loc, slog.LevelInfo))
}

// NewHandler returns the JSON handler behind New.
func NewHandler(w io.Writer, loc *time.Location, level slog.Leveler) slog.Handler {
	if loc == nil {
		loc = time.UTC
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				return slog.String("ts", a.Value.Time().In(loc).Format(time.RFC3339Nano))
			case slog.LevelKey:
				return slog.String(slog.LevelKey, levelName(a.Value))
			}
			return a
		},
	})
}

func levelName(v slog.Value) string {
	l, ok := v.Any().(slog.Level)
	if !ok {
		return v.String()
	}
	switch {
	case l >= slog.LevelError:
		return "error"
	case l >= slog.LevelWarn:
		return "warn"
	case l >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
