package model

import "time"

// Lifeline is the reconstructed start-to-end record of one engine process.
type Lifeline struct {
	// Version is empty when the start marker was never seen.
	Version      string
	PID          int
	StartTime    time.Time
	EndTime      time.Time
	StartLogPath string
	EndLogPath   string
	Leaks        int
	Crashed      bool
	Finished     bool
	// ImportantEntries holds lock notices and emergency..error entries.
	ImportantEntries []LogEntry
}

// NewLifeline opens a lifeline whose end is initially its start.
func NewLifeline(version string, pid int, start time.Time, path string) *Lifeline {
	return &Lifeline{
		Version:      version,
		PID:          pid,
		StartTime:    start,
		EndTime:      start,
		StartLogPath: path,
		EndLogPath:   path,
	}
}

// MarkCrashed records an abnormal termination. A crash always finishes.
func (l *Lifeline) MarkCrashed() {
	l.Crashed = true
	l.Finished = true
}

// SuccessfullyFinished reports a clean shutdown.
func (l *Lifeline) SuccessfullyFinished() bool {
	return l.Finished && !l.Crashed
}

// Status is "success", "crashed" or "unfinished".
func (l *Lifeline) Status() string {
	switch {
	case l.SuccessfullyFinished():
		return "success"
	case l.Crashed:
		return "crashed"
	default:
		return "unfinished"
	}
}
