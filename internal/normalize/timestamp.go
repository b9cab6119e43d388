package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LogTimeLayout is the second-resolution prefix shared by both log formats.
const LogTimeLayout = "2006-01-02 15:04:05"

// ISOLayout is used for every timestamp printed in reports.
const ISOLayout = "2006-01-02T15:04:05-07:00"

// ParseTimestamp parses "YYYY-MM-DD HH:MM:SS.ffffff" in loc. The fraction is
// read as an integer count of microseconds, as the engine writes it.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	base, frac, ok := strings.Cut(s, ".")
	if !ok || frac == "" {
		return time.Time{}, fmt.Errorf("timestamp %q: missing fraction", s)
	}
	t, err := time.ParseInLocation(LogTimeLayout, base, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q: %w", s, err)
	}
	us, err := strconv.Atoi(frac)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q fraction: %w", s, err)
	}
	return t.Add(time.Duration(us) * time.Microsecond), nil
}

// FormatISO formats t in loc with second resolution and numeric offset.
func FormatISO(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(ISOLayout)
}
