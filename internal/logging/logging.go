package logging

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// New initializes the operational zerolog.Logger writing to w.
// format can be "text" (human-friendly console) or "json" (structured).
// Events below level are dropped.
func New(w io.Writer, format string, level zerolog.Level) zerolog.Logger {
	if format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// NewReport returns the logger the check report is written through. Each
// event is rendered as its bare message on one line, and events below level
// are dropped.
func NewReport(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		PartsOrder: []string{zerolog.MessageFieldName},
	}).Level(level)
}

// ParseOutputLevel maps an --output-level value to a zerolog level.
func ParseOutputLevel(s string) (zerolog.Level, error) {
	switch s {
	case "info":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	}
	return zerolog.NoLevel, fmt.Errorf("invalid output level %q: must be info or debug", s)
}

// ParseLogLevel maps a --log-level value to a zerolog level.
func ParseLogLevel(s string) (zerolog.Level, error) {
	switch s {
	case "debug", "info", "warn", "error":
		return zerolog.ParseLevel(s)
	}
	return zerolog.NoLevel, fmt.Errorf("invalid log level %q: must be debug, info, warn or error", s)
}
