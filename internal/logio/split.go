package logio

import (
	"os"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
)

// SniffLines is how many leading lines are inspected to classify a file.
const SniffLines = 10

// Classifier decides whether a single line belongs to a log format.
type Classifier func(line string) bool

// Split sorts paths into query logs and general logs by sniffing their first
// lines. A file matching neither format is ignored. The input order is kept
// within each group.
func Split(paths []string, isQueryLog, isGeneralLog Classifier, log zerolog.Logger) (general, query []string, err error) {
	for _, path := range paths {
		lines, err := Head(path, SniffLines)
		if err != nil {
			return nil, nil, err
		}

		kind := "unknown"
		switch {
		case anyLine(lines, isQueryLog):
			kind = "query"
			query = append(query, path)
		case anyLine(lines, isGeneralLog):
			kind = "general"
			general = append(general, path)
		}

		ev := log.Debug().Str("path", path).Str("kind", kind)
		if st, statErr := os.Stat(path); statErr == nil {
			ev = ev.Str("size", humanize.Bytes(uint64(st.Size())))
		}
		ev.Msg("classified log file")
	}
	return general, query, nil
}

func anyLine(lines []string, match Classifier) bool {
	for _, line := range lines {
		if match(line) {
			return true
		}
	}
	return false
}
