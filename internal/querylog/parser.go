// Package querylog parses the engine's query log into per-command statistics.
//
// Each line is "<timestamp>|<context_id>|<marker><payload>" where the marker
// is '>' (command start), ':' (operation) or '<' (command finish). Lines that
// do not fit are skipped.
package querylog

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gyeh/qlcheck/internal/logio"
	"github.com/gyeh/qlcheck/internal/model"
	"github.com/gyeh/qlcheck/internal/normalize"
)

var (
	linePattern      = regexp.MustCompile(`^(\d{4}-\d\d-\d\d \d\d:\d\d:\d\d\.\d+)\|(.+?)\|([>:<])`)
	operationPattern = regexp.MustCompile(`^(\d+) (.+)\((\d+)\)(\[.+\])?`)
	finishPattern    = regexp.MustCompile(`^(\d+) rc=(-?\d+)`)
)

// TargetLine reports whether line looks like a query log line.
func TargetLine(line string) bool {
	return linePattern.MatchString(line)
}

// Stats counts what the parser saw. Abandoned counts statistics replaced by
// a second start line for the same context, a sign of a corrupted log.
type Stats struct {
	Lines     int64
	Skipped   int64
	Emitted   int64
	Filtered  int64
	Abandoned int64
}

// Option configures a Parser.
type Option func(*Parser)

// WithLocation sets the time zone the log timestamps are written in.
func WithLocation(loc *time.Location) Option {
	return func(p *Parser) { p.loc = loc }
}

// WithTargetCommands restricts emitted statistics to the named commands.
func WithTargetCommands(names ...string) Option {
	return func(p *Parser) { p.targetCommands = toSet(p.targetCommands, names) }
}

// WithTargetTables restricts emitted statistics to commands whose "table"
// argument is one of tables.
func WithTargetTables(tables ...string) Option {
	return func(p *Parser) { p.targetTables = toSet(p.targetTables, tables) }
}

func toSet(set map[string]struct{}, values []string) map[string]struct{} {
	if set == nil {
		set = make(map[string]struct{}, len(values))
	}
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

type openStatistic struct {
	seq       int64
	statistic *model.Statistic
}

// Parser holds the open statistic of every context seen so far. A Parser is
// not safe for concurrent use; use one per pass.
type Parser struct {
	loc            *time.Location
	targetCommands map[string]struct{}
	targetTables   map[string]struct{}

	running     map[string]*openStatistic
	nextSeq     int64
	currentPath string
	stopped     bool
	stats       Stats
}

// New creates a Parser.
func New(opts ...Option) *Parser {
	p := &Parser{
		loc:     time.Local,
		running: make(map[string]*openStatistic),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CurrentPath is the file being parsed by ParsePaths.
func (p *Parser) CurrentPath() string {
	return p.currentPath
}

// Stats returns the counters accumulated so far.
func (p *Parser) Stats() Stats {
	return p.stats
}

// ParsePaths parses each file in order, calling yield for every completed
// statistic in finish-line order. It stops once yield returns false.
func (p *Parser) ParsePaths(ctx context.Context, paths []string, yield func(*model.Statistic) bool) error {
	for _, path := range paths {
		if p.stopped {
			return nil
		}
		if err := p.parsePath(ctx, path, yield); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) parsePath(ctx context.Context, path string, yield func(*model.Statistic) bool) error {
	f, err := logio.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	p.currentPath = path
	if err := p.Parse(ctx, f, yield); err != nil {
		return fmt.Errorf("parse query log %s: %w", path, err)
	}
	return nil
}

// Parse streams r line by line. See ParsePaths.
func (p *Parser) Parse(ctx context.Context, r io.Reader, yield func(*model.Statistic) bool) error {
	return logio.EachLine(ctx, r, func(line string) bool {
		return p.ParseLine(line, yield)
	})
}

// ParseLine feeds one line. It returns false once yield has asked to stop.
func (p *Parser) ParseLine(line string, yield func(*model.Statistic) bool) bool {
	if p.stopped {
		return false
	}
	p.stats.Lines++

	m := linePattern.FindStringSubmatchIndex(line)
	if m == nil {
		p.stats.Skipped++
		return true
	}
	timestamp, err := normalize.ParseTimestamp(line[m[2]:m[3]], p.loc)
	if err != nil {
		p.stats.Skipped++
		return true
	}
	contextID := line[m[4]:m[5]]
	marker := line[m[6]]
	rest := strings.TrimSpace(line[m[1]:])

	switch marker {
	case '>':
		p.start(timestamp, contextID, rest)
	case ':':
		p.operation(contextID, rest)
	case '<':
		if s := p.finish(contextID, rest); s != nil && p.target(s) {
			p.stats.Emitted++
			if !yield(s) {
				p.stopped = true
				return false
			}
		}
	}
	return true
}

func (p *Parser) start(timestamp time.Time, contextID, raw string) {
	if raw == "" {
		p.stats.Skipped++
		return
	}
	s := model.NewStatistic(contextID, timestamp, raw)
	if prev, ok := p.running[contextID]; ok {
		p.stats.Abandoned++
		prev.statistic = s
		return
	}
	p.nextSeq++
	p.running[contextID] = &openStatistic{seq: p.nextSeq, statistic: s}
}

func (p *Parser) operation(contextID, rest string) {
	m := operationPattern.FindStringSubmatch(rest)
	if m == nil {
		p.stats.Skipped++
		return
	}
	open, ok := p.running[contextID]
	if !ok {
		return
	}
	elapsed, err1 := strconv.ParseInt(m[1], 10, 64)
	records, err2 := strconv.Atoi(m[3])
	if err1 != nil || err2 != nil {
		p.stats.Skipped++
		return
	}
	open.statistic.AddOperation(model.Operation{
		Name:    m[2] + m[4],
		Elapsed: time.Duration(elapsed),
		Records: records,
	})
}

func (p *Parser) finish(contextID, rest string) *model.Statistic {
	m := finishPattern.FindStringSubmatch(rest)
	if m == nil {
		p.stats.Skipped++
		return nil
	}
	elapsed, err1 := strconv.ParseInt(m[1], 10, 64)
	rc, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil {
		p.stats.Skipped++
		return nil
	}
	open, ok := p.running[contextID]
	if !ok {
		return nil
	}
	delete(p.running, contextID)
	open.statistic.Finish(time.Duration(elapsed), rc)
	return open.statistic
}

func (p *Parser) target(s *model.Statistic) bool {
	if p.targetCommands != nil {
		if _, ok := p.targetCommands[s.CommandName()]; !ok || s.Command == nil {
			p.stats.Filtered++
			return false
		}
	}
	if p.targetTables != nil {
		if s.Command == nil {
			p.stats.Filtered++
			return false
		}
		table, ok := s.Command.Arg("table")
		if !ok {
			p.stats.Filtered++
			return false
		}
		if _, ok := p.targetTables[table]; !ok {
			p.stats.Filtered++
			return false
		}
	}
	return true
}

// Running returns the statistics still open, in the order their contexts
// were first opened.
func (p *Parser) Running() []*model.Statistic {
	open := make([]*openStatistic, 0, len(p.running))
	for _, o := range p.running {
		open = append(open, o)
	}
	sort.Slice(open, func(i, j int) bool { return open[i].seq < open[j].seq })

	out := make([]*model.Statistic, len(open))
	for i, o := range open {
		out[i] = o.statistic
	}
	return out
}
