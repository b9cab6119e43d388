// Package store persists finished check reports.
package store

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/gyeh/qlcheck/internal/config"
	"github.com/gyeh/qlcheck/internal/model"
	"github.com/gyeh/qlcheck/internal/normalize"
)

// Sink stores one report per run.
type Sink interface {
	Save(ctx context.Context, rep *model.CheckReport) error
	Close() error
}

// Open returns the Sink a DSN points at. sqlite:// DSNs create their schema
// on open; Postgres expects `qlcheck migrate` to have been run.
func Open(ctx context.Context, dsn string, log zerolog.Logger) (Sink, error) {
	kind, err := config.StoreKind(dsn)
	if err != nil {
		return nil, err
	}
	switch kind {
	case config.StorePostgres:
		return OpenPostgres(ctx, dsn, log)
	default:
		return OpenSQLite(ctx, dsn, log)
	}
}

// Log file kinds.
const (
	KindGeneral = "general"
	KindQuery   = "query"
)

// LogFile identifies an input file by content.
type LogFile struct {
	Path   string
	Kind   string
	SHA256 string
	Size   int64
}

// logFiles hashes every input of the report.
func logFiles(rep *model.CheckReport) ([]LogFile, error) {
	var files []LogFile
	add := func(kind string, paths []string) error {
		for _, path := range paths {
			sha, err := normalize.FileHash(path)
			if err != nil {
				return err
			}
			st, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("stat log file: %w", err)
			}
			files = append(files, LogFile{Path: path, Kind: kind, SHA256: sha, Size: st.Size()})
		}
		return nil
	}
	if err := add(KindGeneral, rep.GeneralLogPaths); err != nil {
		return nil, err
	}
	if err := add(KindQuery, rep.QueryLogPaths); err != nil {
		return nil, err
	}
	return files, nil
}

// rows flattens the per-lifeline results. Lifeline seq numbers start at 1
// in emission order.
func rows(rep *model.CheckReport) ([]*model.LifelineRow, []*model.CommandRow) {
	lifelines := make([]*model.LifelineRow, 0, len(rep.Results))
	var commands []*model.CommandRow
	for i, r := range rep.Results {
		seq := i + 1
		lifelines = append(lifelines, model.NewLifelineRow(rep.RunID, seq, r.Lifeline))
		for _, s := range r.Running {
			commands = append(commands, model.NewCommandRow(rep.RunID, seq, model.CommandKindRunning, s))
		}
		for _, s := range r.Unflushed {
			commands = append(commands, model.NewCommandRow(rep.RunID, seq, model.CommandKindUnflushed, s))
		}
	}
	return lifelines, commands
}
