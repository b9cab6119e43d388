package parquetio

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/qlcheck/internal/model"
	"github.com/gyeh/qlcheck/internal/querylog"
)

// ExtractResult holds metrics from one extract run.
type ExtractResult struct {
	Rows     int64
	Stats    querylog.Stats
	Running  int
	Duration time.Duration
}

// Extract parses the query logs at paths and writes every completed
// statistic the parser emits to a new Parquet file at out. The file is read
// back before Extract returns.
func Extract(ctx context.Context, log zerolog.Logger, paths []string, out string, opts ...querylog.Option) (*ExtractResult, error) {
	start := time.Now()
	w, err := Create(out)
	if err != nil {
		return nil, err
	}

	parser := querylog.New(opts...)
	var writeErr error
	err = parser.ParsePaths(ctx, paths, func(s *model.Statistic) bool {
		if writeErr = w.Write(s); writeErr != nil {
			return false
		}
		return true
	})
	if err == nil {
		err = writeErr
	}
	if err != nil {
		log.Error().Err(err).Str("path", parser.CurrentPath()).Msg("extract stopped")
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	rows, err := Verify(out)
	if err != nil {
		return nil, err
	}
	if rows != w.Rows() {
		return nil, fmt.Errorf("verify %s: wrote %d rows, read back %d", out, w.Rows(), rows)
	}

	res := &ExtractResult{
		Rows:     rows,
		Stats:    parser.Stats(),
		Running:  len(parser.Running()),
		Duration: time.Since(start),
	}
	log.Info().
		Str("output", out).
		Int64("rows", res.Rows).
		Int64("lines", res.Stats.Lines).
		Int64("skipped", res.Stats.Skipped).
		Int64("filtered", res.Stats.Filtered).
		Int("running", res.Running).
		Str("duration", res.Duration.String()).
		Msg("extract complete")
	return res, nil
}
