package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gyeh/qlcheck/internal/exitcode"
	"github.com/gyeh/qlcheck/internal/generallog"
	"github.com/gyeh/qlcheck/internal/logio"
	"github.com/gyeh/qlcheck/internal/parquetio"
	"github.com/gyeh/qlcheck/internal/querylog"
)

func newExtractCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract --output FILE.parquet [flags] LOG ...",
		Short: "Write the completed commands of query logs to a Parquet file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usage(cmd, a.stdout)
			}
			if err := a.cfg.ValidateExtract(); err != nil {
				return fail(exitcode.UsageError, err)
			}
			return runExtract(cmd.Context(), a, args)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&a.cfg.ParquetPath, "output", "o", "", "Parquet file to write (required)")
	f.StringArrayVar(&a.cfg.TargetCommands, "target-command", nil, "Only extract this command (repeatable)")
	f.StringArrayVar(&a.cfg.TargetTables, "target-table", nil, "Only extract commands on this table (repeatable)")
	return cmd
}

func runExtract(ctx context.Context, a *app, paths []string) error {
	log := a.log
	loc, err := a.cfg.Location()
	if err != nil {
		return fail(exitcode.UsageError, err)
	}

	_, query, err := logio.Split(paths, querylog.TargetLine, generallog.TargetLine, log)
	if err != nil {
		log.Error().Err(err).Msg("read logs failed")
		return fail(exitcode.IOError, err)
	}
	if len(query) == 0 {
		return fail(exitcode.UsageError, fmt.Errorf("no query logs among %d files", len(paths)))
	}
	if skipped := len(paths) - len(query); skipped > 0 {
		log.Warn().Int("skipped", skipped).Msg("ignoring files that are not query logs")
	}

	opts := []querylog.Option{querylog.WithLocation(loc)}
	if len(a.cfg.TargetCommands) > 0 {
		opts = append(opts, querylog.WithTargetCommands(a.cfg.TargetCommands...))
	}
	if len(a.cfg.TargetTables) > 0 {
		opts = append(opts, querylog.WithTargetTables(a.cfg.TargetTables...))
	}

	res, err := parquetio.Extract(ctx, log, query, a.cfg.ParquetPath, opts...)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		log.Error().Err(err).Msg("extract failed")
		return fail(exitcode.ExportError, err)
	}
	fmt.Fprintf(a.stdout, "Extract complete: %d commands written to %s (%.1fs)\n",
		res.Rows, a.cfg.ParquetPath, res.Duration.Seconds())
	return nil
}
