package model

import (
	"time"

	"github.com/google/uuid"
)

// LifelineRow is the DB-ready representation of one checked lifeline.
type LifelineRow struct {
	RunID        uuid.UUID
	Seq          int32 // emission order within the run
	PID          *int32
	Version      *string
	Status       string
	StartTime    time.Time
	EndTime      time.Time
	StartLogPath string
	EndLogPath   string
	Leaks        int32
	Crashed      bool
	Finished     bool
	NImportant   int32
}

// NewLifelineRow flattens a lifeline for storage.
func NewLifelineRow(runID uuid.UUID, seq int, l *Lifeline) *LifelineRow {
	row := &LifelineRow{
		RunID:        runID,
		Seq:          int32(seq),
		Status:       l.Status(),
		StartTime:    l.StartTime,
		EndTime:      l.EndTime,
		StartLogPath: l.StartLogPath,
		EndLogPath:   l.EndLogPath,
		Leaks:        int32(l.Leaks),
		Crashed:      l.Crashed,
		Finished:     l.Finished,
		NImportant:   int32(len(l.ImportantEntries)),
	}
	if l.PID != 0 {
		pid := int32(l.PID)
		row.PID = &pid
	}
	if l.Version != "" {
		v := l.Version
		row.Version = &v
	}
	return row
}

// LifelineColumns returns the ordered column names for COPY into qlcheck.lifelines.
func LifelineColumns() []string {
	return []string{
		"run_id",
		"seq",
		"pid",
		"version",
		"status",
		"start_time",
		"end_time",
		"start_log_path",
		"end_log_path",
		"n_leaks",
		"crashed",
		"finished",
		"n_important_entries",
	}
}

// CopyValues returns the row values in the same order as LifelineColumns().
func (r *LifelineRow) CopyValues() []any {
	return []any{
		r.RunID,
		r.Seq,
		r.PID,
		r.Version,
		r.Status,
		r.StartTime,
		r.EndTime,
		r.StartLogPath,
		r.EndLogPath,
		r.Leaks,
		r.Crashed,
		r.Finished,
		r.NImportant,
	}
}

// Command kinds stored in qlcheck.commands.
const (
	CommandKindRunning   = "running"
	CommandKindUnflushed = "unflushed"
)

// CommandRow is a running or unflushed statistic attached to a lifeline.
type CommandRow struct {
	RunID       uuid.UUID
	LifelineSeq int32
	Kind        string
	ContextID   string
	StartTime   time.Time
	CommandName *string
	RawCommand  string
}

// NewCommandRow flattens a statistic of the given kind.
func NewCommandRow(runID uuid.UUID, seq int, kind string, s *Statistic) *CommandRow {
	row := &CommandRow{
		RunID:       runID,
		LifelineSeq: int32(seq),
		Kind:        kind,
		ContextID:   s.ContextID,
		StartTime:   s.StartTime,
		RawCommand:  s.RawCommand,
	}
	if name := s.CommandName(); name != "" {
		row.CommandName = &name
	}
	return row
}

// CommandColumns returns the ordered column names for COPY into qlcheck.commands.
func CommandColumns() []string {
	return []string{
		"run_id",
		"lifeline_seq",
		"kind",
		"context_id",
		"start_time",
		"command_name",
		"raw_command",
	}
}

// CopyValues returns the row values in the same order as CommandColumns().
func (r *CommandRow) CopyValues() []any {
	return []any{
		r.RunID,
		r.LifelineSeq,
		r.Kind,
		r.ContextID,
		r.StartTime,
		r.CommandName,
		r.RawCommand,
	}
}
