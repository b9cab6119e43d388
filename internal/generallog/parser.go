// Package generallog tokenizes the engine's general (process) log.
//
// A line looks like
//
//	2000-01-01 12:00:00.000000|C|1234:00000000: -- CRASHED!!! --
//
// where the pid and thread id parts are optional.
package generallog

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"time"

	"github.com/gyeh/qlcheck/internal/logio"
	"github.com/gyeh/qlcheck/internal/model"
	"github.com/gyeh/qlcheck/internal/normalize"
)

var linePattern = regexp.MustCompile(`^(\d{4}-\d\d-\d\d \d\d:\d\d:\d\d\.\d+)\|(.)\|(?:(\d+):)?(?:([\da-fA-F]+):)? (.*)$`)

// TargetLine reports whether line looks like a general log line.
func TargetLine(line string) bool {
	return linePattern.MatchString(line)
}

// ParseLine tokenizes one line. ok is false for lines that are not general
// log lines.
func ParseLine(line string, loc *time.Location) (entry model.LogEntry, ok bool) {
	m := linePattern.FindStringSubmatch(line)
	if m == nil {
		return model.LogEntry{}, false
	}
	ts, err := normalize.ParseTimestamp(m[1], loc)
	if err != nil {
		return model.LogEntry{}, false
	}
	level, ok := model.LogLevelByMark(m[2][0])
	if !ok {
		return model.LogEntry{}, false
	}
	var pid int
	if m[3] != "" {
		if pid, err = strconv.Atoi(m[3]); err != nil {
			return model.LogEntry{}, false
		}
	}
	return model.LogEntry{
		Timestamp: ts,
		PID:       pid,
		ThreadID:  m[4],
		Level:     level,
		Message:   m[5],
	}, true
}

// Parser streams general log entries from files.
type Parser struct {
	loc *time.Location
}

// New creates a Parser reading timestamps in loc (nil means local time).
func New(loc *time.Location) *Parser {
	if loc == nil {
		loc = time.Local
	}
	return &Parser{loc: loc}
}

// Parse calls yield for each entry of r. Unparseable lines are skipped.
func (p *Parser) Parse(ctx context.Context, r io.Reader, yield func(model.LogEntry) bool) error {
	return logio.EachLine(ctx, r, func(line string) bool {
		entry, ok := ParseLine(line, p.loc)
		if !ok {
			return true
		}
		return yield(entry)
	})
}

// ParsePaths parses each file in order.
func (p *Parser) ParsePaths(ctx context.Context, paths []string, yield func(path string, entry model.LogEntry) bool) error {
	for _, path := range paths {
		stop := false
		err := p.parsePath(ctx, path, func(entry model.LogEntry) bool {
			if !yield(path, entry) {
				stop = true
				return false
			}
			return true
		})
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
	return nil
}

func (p *Parser) parsePath(ctx context.Context, path string, yield func(model.LogEntry) bool) error {
	f, err := logio.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := p.Parse(ctx, f, yield); err != nil {
		return fmt.Errorf("parse general log %s: %w", path, err)
	}
	return nil
}
