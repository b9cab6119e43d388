package model

// LogLevel is the severity of a general log entry.
type LogLevel int

const (
	LevelNone LogLevel = iota
	LevelEmergency
	LevelAlert
	LevelCritical
	LevelError
	LevelWarning
	LevelNotice
	LevelInfo
	LevelDebug
	LevelDump
)

// LogLevelInfo describes one severity as it appears in the general log.
type LogLevelInfo struct {
	Level LogLevel
	Mark  byte   // one-character marker in the log line, e.g. 'C'
	Name  string // e.g. "critical"
}

// AllLogLevels lists the severities in decreasing order of importance.
var AllLogLevels = []LogLevelInfo{
	{Level: LevelEmergency, Mark: 'E', Name: "emergency"},
	{Level: LevelAlert, Mark: 'A', Name: "alert"},
	{Level: LevelCritical, Mark: 'C', Name: "critical"},
	{Level: LevelError, Mark: 'e', Name: "error"},
	{Level: LevelWarning, Mark: 'w', Name: "warning"},
	{Level: LevelNotice, Mark: 'n', Name: "notice"},
	{Level: LevelInfo, Mark: 'i', Name: "info"},
	{Level: LevelDebug, Mark: 'd', Name: "debug"},
	{Level: LevelDump, Mark: '-', Name: "dump"},
	{Level: LevelNone, Mark: ' ', Name: "none"},
}

// LogLevelByMark returns the level for a log line marker, or ok=false.
func LogLevelByMark(mark byte) (LogLevel, bool) {
	for _, l := range AllLogLevels {
		if l.Mark == mark {
			return l.Level, true
		}
	}
	return LevelNone, false
}

func (l LogLevel) String() string {
	for _, info := range AllLogLevels {
		if info.Level == l {
			return info.Name
		}
	}
	return "unknown"
}

// Important reports whether entries of this level are always surfaced.
func (l LogLevel) Important() bool {
	switch l {
	case LevelEmergency, LevelAlert, LevelCritical, LevelError:
		return true
	}
	return false
}
