// Package lifeline reconstructs engine process lifetimes from general log
// entries.
//
// Process identity is only the pid, which the OS recycles. A second start
// marker for a pid with an open lifeline closes the old one as crashed. A
// crash is emitted in two steps: the crash banner marks the lifeline, and
// the trace terminator that follows the multi-line crash trace emits it.
package lifeline

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gyeh/qlcheck/internal/generallog"
	"github.com/gyeh/qlcheck/internal/model"
)

const (
	CrashBanner     = "-- CRASHED!!! --"
	TraceTerminator = "----------------"
)

var (
	startPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^grn_init: <(.+?)>`),
		regexp.MustCompile(`^mroonga (\d+\.\d+) started\.$`),
	}
	finishPattern = regexp.MustCompile(`^grn_fin \((\d+)\)$`)
)

// Epoch is the start time of lifelines whose start marker was never seen.
var Epoch = time.Unix(0, 0)

// EmitFunc receives each lifeline once its end is known. A non-nil error
// stops the build and is returned to the caller.
type EmitFunc func(*model.Lifeline) error

type openLifeline struct {
	seq      int64
	lifeline *model.Lifeline
}

// Builder holds the open lifeline of each pid for one pass.
type Builder struct {
	open    map[int]*openLifeline
	nextSeq int64
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{open: make(map[int]*openLifeline)}
}

// Feed applies one entry read from path.
func (b *Builder) Feed(path string, e model.LogEntry, emit EmitFunc) error {
	if version, ok := startVersion(e.Message); ok {
		if prev := b.take(e.PID); prev != nil {
			prev.MarkCrashed()
			if err := emit(prev); err != nil {
				return err
			}
		}
		b.put(model.NewLifeline(version, e.PID, e.Timestamp, path))
		return nil
	}

	if m := finishPattern.FindStringSubmatch(e.Message); m != nil {
		l := b.openOrSynthesize(e.PID, path)
		leaks, _ := strconv.Atoi(m[1])
		l.Leaks = leaks
		l.EndTime = e.Timestamp
		l.EndLogPath = path
		l.Finished = true
		b.take(e.PID)
		return emit(l)
	}

	l := b.openOrSynthesize(e.PID, path)
	if important(e) {
		l.ImportantEntries = append(l.ImportantEntries, e)
	}
	l.EndTime = e.Timestamp
	l.EndLogPath = path
	switch e.Message {
	case CrashBanner:
		l.MarkCrashed()
	case TraceTerminator:
		if l.Crashed {
			b.take(e.PID)
			return emit(l)
		}
	}
	return nil
}

// Flush emits every lifeline still open, in the order they were opened.
// These are processes with no observed termination.
func (b *Builder) Flush(emit EmitFunc) error {
	open := make([]*openLifeline, 0, len(b.open))
	for _, o := range b.open {
		open = append(open, o)
	}
	sort.Slice(open, func(i, j int) bool { return open[i].seq < open[j].seq })
	b.open = make(map[int]*openLifeline)

	for _, o := range open {
		if err := emit(o.lifeline); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) openOrSynthesize(pid int, path string) *model.Lifeline {
	if o, ok := b.open[pid]; ok {
		return o.lifeline
	}
	l := model.NewLifeline("", pid, Epoch, path)
	b.put(l)
	return l
}

func (b *Builder) put(l *model.Lifeline) {
	b.nextSeq++
	b.open[l.PID] = &openLifeline{seq: b.nextSeq, lifeline: l}
}

func (b *Builder) take(pid int) *model.Lifeline {
	o, ok := b.open[pid]
	if !ok {
		return nil
	}
	delete(b.open, pid)
	return o.lifeline
}

func startVersion(message string) (string, bool) {
	for _, p := range startPatterns {
		if m := p.FindStringSubmatch(message); m != nil {
			return m[1], true
		}
	}
	return "", false
}

func important(e model.LogEntry) bool {
	if e.Level == model.LevelNotice {
		return strings.Contains(e.Message, "lock")
	}
	return e.Level.Important()
}

// Enumerate streams the general logs at paths through a Builder, calling
// emit for each lifeline in emission order, then for the ones left open.
func Enumerate(ctx context.Context, parser *generallog.Parser, paths []string, emit EmitFunc) error {
	b := NewBuilder()
	var emitErr error
	err := parser.ParsePaths(ctx, paths, func(path string, e model.LogEntry) bool {
		emitErr = b.Feed(path, e, emit)
		return emitErr == nil
	})
	if err != nil {
		return err
	}
	if emitErr != nil {
		return emitErr
	}
	return b.Flush(emit)
}
