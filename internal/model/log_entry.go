package model

import "time"

// LogEntry is one parsed line of the general log.
type LogEntry struct {
	Timestamp time.Time
	PID       int    // 0 when the line carries no pid
	ThreadID  string // hex thread id, may be empty
	Level     LogLevel
	Message   string
}
