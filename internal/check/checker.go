// Package check correlates general-log lifelines with query-log statistics
// to find crashes, leaks, and writes lost before a crash.
package check

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gyeh/qlcheck/internal/flush"
	"github.com/gyeh/qlcheck/internal/generallog"
	"github.com/gyeh/qlcheck/internal/lifeline"
	"github.com/gyeh/qlcheck/internal/logio"
	"github.com/gyeh/qlcheck/internal/model"
	"github.com/gyeh/qlcheck/internal/normalize"
	"github.com/gyeh/qlcheck/internal/querylog"
)

// Phases reported in PhaseError.
const (
	PhaseSplit      = "split"
	PhaseGeneralLog = "general log"
	PhaseQueryLog   = "query log"
)

// PhaseError wraps an error with the phase where it occurred.
type PhaseError struct {
	Phase string
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// Option configures a Checker.
type Option func(*Checker)

// WithLocation sets the time zone logs are written in and reports are
// printed in.
func WithLocation(loc *time.Location) Option {
	return func(c *Checker) { c.loc = loc }
}

// WithReport sets the logger the report lines are written to.
func WithReport(report zerolog.Logger) Option {
	return func(c *Checker) { c.report = report }
}

// WithLogger sets the operational logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Checker) { c.log = log }
}

// Checker runs one crash check over a set of log files.
type Checker struct {
	paths  []string
	loc    *time.Location
	report zerolog.Logger
	log    zerolog.Logger
}

// New creates a Checker for paths. Each path is classified as a general log
// or a query log when Check runs; unrecognized files are ignored.
func New(paths []string, opts ...Option) *Checker {
	c := &Checker{
		paths:  paths,
		loc:    time.Local,
		report: zerolog.Nop(),
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check reads every lifeline from the general logs and, for lifelines that
// did not shut down cleanly, replays the query logs inside their window.
// Report lines are written as lifelines are processed. On error, including
// cancellation, no summary is written and the returned report is nil.
func (c *Checker) Check(ctx context.Context) (*model.CheckReport, error) {
	rep := &model.CheckReport{
		RunID:     uuid.New(),
		StartedAt: time.Now(),
	}
	log := c.log.With().Str("run_id", rep.RunID.String()).Logger()

	general, query, err := logio.Split(c.paths, querylog.TargetLine, generallog.TargetLine, log)
	if err != nil {
		return nil, &PhaseError{Phase: PhaseSplit, Err: err}
	}
	rep.GeneralLogPaths = general
	rep.QueryLogPaths = query
	log.Info().
		Int("general_logs", len(general)).
		Int("query_logs", len(query)).
		Msg("starting crash check")

	var queryErr error
	err = lifeline.Enumerate(ctx, generallog.New(c.loc), general, func(l *model.Lifeline) error {
		result, err := c.checkLifeline(ctx, log, query, l, &rep.Summary)
		if err != nil {
			queryErr = err
			return err
		}
		rep.Results = append(rep.Results, result)
		return nil
	})
	if queryErr != nil {
		return nil, &PhaseError{Phase: PhaseQueryLog, Err: queryErr}
	}
	if err != nil {
		return nil, &PhaseError{Phase: PhaseGeneralLog, Err: err}
	}

	c.writeSummary(rep.Summary)
	rep.FinishedAt = time.Now()
	log.Info().
		Int("lifelines", len(rep.Results)).
		Bool("problems", rep.Summary.HasProblems()).
		Str("duration", rep.FinishedAt.Sub(rep.StartedAt).String()).
		Msg("crash check complete")
	return rep, nil
}

func (c *Checker) checkLifeline(ctx context.Context, log zerolog.Logger, queryPaths []string, l *model.Lifeline, summary *model.Summary) (model.LifelineResult, error) {
	result := model.LifelineResult{Lifeline: l}

	switch {
	case l.SuccessfullyFinished():
		c.report.Debug().Msg(c.processLine("success", l, true))
	case l.Crashed:
		c.report.Debug().Msg(c.processLine("crashed", l, true))
		summary.Crashed = true
	default:
		c.report.Debug().Msg(c.processLine("unfinished", l, false))
	}

	if l.Leaks > 0 {
		c.report.Debug().Msg(strings.Join([]string{
			"leak",
			orDash(l.Version),
			strconv.Itoa(l.Leaks),
			c.iso(l.EndTime),
			pidOrDash(l.PID),
			l.EndLogPath,
		}, " "))
		summary.Leak = true
	}

	if len(l.ImportantEntries) > 0 {
		c.report.Info().Msg("Important entries:")
		for _, e := range l.ImportantEntries {
			c.report.Info().Msg(c.entryLine(e))
		}
	}

	if l.SuccessfullyFinished() {
		return result, nil
	}

	running, unflushed, err := c.replay(ctx, log, queryPaths, l)
	if err != nil {
		return result, err
	}
	result.Running = running
	result.Unflushed = unflushed

	if len(running) > 0 {
		c.report.Info().Msg("Running queries:")
		for _, s := range running {
			c.report.Info().Msg(c.iso(s.StartTime) + ":")
			if s.Command != nil {
				c.report.Info().Msg(s.Command.Format(true))
			} else {
				c.report.Info().Msg(s.RawCommand)
			}
		}
		summary.Unfinished = true
	}
	if len(unflushed) > 0 {
		c.report.Info().Msgf("Unflushed commands in %s/%s", c.iso(l.StartTime), c.iso(l.EndTime))
		for _, s := range unflushed {
			c.report.Info().Msgf("%s: %s", c.iso(s.StartTime), s.RawCommand)
		}
		summary.Unflushed = true
	}
	return result, nil
}

// replay streams the query logs through a fresh parser and tracker, keeping
// only statistics that started inside the lifeline's window.
func (c *Checker) replay(ctx context.Context, log zerolog.Logger, queryPaths []string, l *model.Lifeline) (running, unflushed []*model.Statistic, err error) {
	parser := querylog.New(querylog.WithLocation(c.loc))
	tracker := flush.NewTracker()

	err = parser.ParsePaths(ctx, queryPaths, func(s *model.Statistic) bool {
		if s.StartTime.Before(l.StartTime) {
			return true
		}
		if s.StartTime.After(l.EndTime) {
			return false
		}
		tracker.Observe(s)
		return true
	})
	if err != nil {
		return nil, nil, err
	}

	for _, s := range parser.Running() {
		if !s.StartTime.Before(l.StartTime) {
			running = append(running, s)
		}
	}

	st := parser.Stats()
	log.Debug().
		Int("pid", l.PID).
		Str("status", l.Status()).
		Int64("lines", st.Lines).
		Int64("skipped", st.Skipped).
		Int64("emitted", st.Emitted).
		Int64("abandoned", st.Abandoned).
		Int("unflushed", len(tracker.Unflushed())).
		Str("last_path", parser.CurrentPath()).
		Msg("replayed query logs")
	return running, tracker.Unflushed(), nil
}

func (c *Checker) writeSummary(s model.Summary) {
	c.report.Info().Msg("Summary:")
	c.report.Info().Msgf("crashed:%s, unflushed:%s, unfinished:%s, leak:%s",
		yesNo(s.Crashed), yesNo(s.Unflushed), yesNo(s.Unfinished), yesNo(s.Leak))
	if s.HasProblems() {
		c.report.Info().Msg("NG: problems found. Please check the output and logs.")
	} else {
		c.report.Info().Msg("OK: no problems.")
	}
}

func (c *Checker) processLine(status string, l *model.Lifeline, ended bool) string {
	parts := []string{"process", status, orDash(l.Version), c.iso(l.StartTime)}
	if ended {
		parts = append(parts, c.iso(l.EndTime))
	}
	parts = append(parts, pidOrDash(l.PID), l.StartLogPath)
	if ended {
		parts = append(parts, l.EndLogPath)
	}
	return strings.Join(parts, " ")
}

func (c *Checker) entryLine(e model.LogEntry) string {
	pid := ""
	if e.PID != 0 {
		pid = strconv.Itoa(e.PID)
	}
	return fmt.Sprintf("%s: %s: %s: %s: %s", c.iso(e.Timestamp), pid, e.ThreadID, e.Level, e.Message)
}

func (c *Checker) iso(t time.Time) string {
	return normalize.FormatISO(t, c.loc)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func pidOrDash(pid int) string {
	if pid == 0 {
		return "-"
	}
	return strconv.Itoa(pid)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
