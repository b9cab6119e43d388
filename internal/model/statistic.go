package model

import (
	"time"

	"github.com/gyeh/qlcheck/internal/command"
)

// Operation is one sub-operation reported between the start and finish
// lines of a command, e.g. "filter(10)".
type Operation struct {
	Name    string
	Elapsed time.Duration // since the command started
	Records int
}

// Statistic is one command execution reconstructed from the query log.
// Elapsed and ReturnCode are only meaningful once Finished is set.
type Statistic struct {
	ContextID  string
	StartTime  time.Time
	RawCommand string
	// Command is nil when RawCommand is not a parseable command.
	Command    *command.Command
	Operations []Operation
	Elapsed    time.Duration
	ReturnCode int
	Finished   bool
}

// NewStatistic opens a statistic for a "start" line.
func NewStatistic(contextID string, start time.Time, raw string) *Statistic {
	s := &Statistic{
		ContextID:  contextID,
		StartTime:  start,
		RawCommand: raw,
	}
	if cmd, err := command.Parse(raw); err == nil {
		s.Command = cmd
	}
	return s
}

// AddOperation appends an operation line.
func (s *Statistic) AddOperation(op Operation) {
	s.Operations = append(s.Operations, op)
}

// Finish seals the statistic with the elapsed time and return code of its
// finish line.
func (s *Statistic) Finish(elapsed time.Duration, returnCode int) {
	s.Elapsed = elapsed
	s.ReturnCode = returnCode
	s.Finished = true
}

// EndTime is StartTime plus Elapsed; equal to StartTime while running.
func (s *Statistic) EndTime() time.Time {
	return s.StartTime.Add(s.Elapsed)
}

// CommandName returns the parsed command name, or "" when unparseable.
func (s *Statistic) CommandName() string {
	if s.Command == nil {
		return ""
	}
	return s.Command.Name
}
