package logging

import (
	"io"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Report file rotation, in lumberjack units.
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 28
)

// OpenOutput returns the destination of the report. "-" or "" is stdout;
// anything else is a file that is appended to and rotated by size.
func OpenOutput(path string, stdout io.Writer) io.WriteCloser {
	if path == "" || path == "-" {
		return nopCloser{stdout}
	}
	return &lj.Logger{
		Filename:   path,
		MaxSize:    DefaultMaxSizeMB,
		MaxBackups: DefaultMaxBackups,
		MaxAge:     DefaultMaxAgeDays,
		Compress:   true,
	}
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
