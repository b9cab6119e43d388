package model

import (
	"time"

	"github.com/google/uuid"
)

// Summary holds the run-level problem flags.
type Summary struct {
	Crashed    bool
	Unflushed  bool
	Unfinished bool
	Leak       bool
}

// HasProblems reports whether any flag is set.
func (s Summary) HasProblems() bool {
	return s.Crashed || s.Unflushed || s.Unfinished || s.Leak
}

// LifelineResult is the checker's verdict for one lifeline.
type LifelineResult struct {
	Lifeline *Lifeline
	// Running holds statistics still open when the query log ended.
	Running []*Statistic
	// Unflushed holds writes not followed by a covering io_flush.
	Unflushed []*Statistic
}

// CheckReport captures everything a single crash check found.
type CheckReport struct {
	RunID           uuid.UUID
	StartedAt       time.Time
	FinishedAt      time.Time
	GeneralLogPaths []string
	QueryLogPaths   []string
	Results         []LifelineResult
	Summary         Summary
}
