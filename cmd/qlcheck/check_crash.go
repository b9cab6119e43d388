package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/gyeh/qlcheck/internal/check"
	"github.com/gyeh/qlcheck/internal/exitcode"
	"github.com/gyeh/qlcheck/internal/logging"
	"github.com/gyeh/qlcheck/internal/store"
)

func newCheckCrashCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-crash [flags] LOG1 ...",
		Short: "Check general and query logs for crashes and unflushed writes",
		Long: "Classifies each LOG as a general log or a query log, reconstructs every engine process " +
			"from the general logs, and reports crashes, leaks, queries still running and writes " +
			"not followed by io_flush. Problems are reported in the output, not the exit status.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usage(cmd, a.stdout)
			}
			return runCheckCrash(cmd.Context(), a, args)
		},
	}
	f := cmd.Flags()
	f.StringVar(&a.cfg.OutputLevel, "output-level", "info", "Output level: info or debug (debug shows every process)")
	f.StringVar(&a.cfg.Output, "output", "-", "Report destination; - for stdout, otherwise a size-rotated file")
	f.StringVar(&a.cfg.StoreDSN, "store-dsn", storeDSNDefault(), "Store the report in postgres:// or sqlite:// (or set QLCHECK_STORE_DSN)")
	return cmd
}

func runCheckCrash(ctx context.Context, a *app, paths []string) error {
	log := a.log
	level, err := logging.ParseOutputLevel(a.cfg.OutputLevel)
	if err != nil {
		return fail(exitcode.UsageError, err)
	}
	loc, err := a.cfg.Location()
	if err != nil {
		return fail(exitcode.UsageError, err)
	}

	out := logging.OpenOutput(a.cfg.Output, a.stdout)
	defer out.Close()

	checker := check.New(paths,
		check.WithLocation(loc),
		check.WithReport(logging.NewReport(out, level)),
		check.WithLogger(log),
	)
	rep, err := checker.Check(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		var pe *check.PhaseError
		if errors.As(err, &pe) {
			log.Error().Err(pe.Err).Str("phase", pe.Phase).Msg("check failed")
		}
		return fail(exitcode.IOError, err)
	}

	if a.cfg.StoreDSN == "" {
		return nil
	}
	sink, err := store.Open(ctx, a.cfg.StoreDSN, log)
	if err != nil {
		log.Error().Err(err).Msg("store connection failed")
		return fail(exitcode.StoreError, err)
	}
	defer sink.Close()
	if err := sink.Save(ctx, rep); err != nil {
		log.Error().Err(err).Msg("store report failed")
		return fail(exitcode.StoreError, err)
	}
	return nil
}
