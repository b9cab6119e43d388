package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/gyeh/qlcheck/internal/config"
	"github.com/gyeh/qlcheck/internal/db"
	"github.com/gyeh/qlcheck/internal/exitcode"
	"github.com/gyeh/qlcheck/internal/store"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the report store schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, a)
		},
	}
	cmd.Flags().StringVar(&a.cfg.StoreDSN, "store-dsn", storeDSNDefault(), "postgres:// or sqlite:// DSN (or set QLCHECK_STORE_DSN)")
	return cmd
}

func runMigrate(cmd *cobra.Command, a *app) error {
	log := a.log
	ctx := cmd.Context()

	if a.cfg.StoreDSN == "" {
		return fail(exitcode.UsageError, errors.New("--store-dsn or QLCHECK_STORE_DSN is required"))
	}
	kind, err := config.StoreKind(a.cfg.StoreDSN)
	if err != nil {
		return fail(exitcode.UsageError, err)
	}

	if kind == config.StoreSQLite {
		s, err := store.OpenSQLite(ctx, a.cfg.StoreDSN, log)
		if err != nil {
			log.Error().Err(err).Msg("sqlite schema failed")
			return fail(exitcode.StoreError, err)
		}
		log.Info().Msg("sqlite schema up to date")
		return s.Close()
	}

	pool, err := db.NewPool(ctx, a.cfg.StoreDSN)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		return fail(exitcode.StoreError, err)
	}
	defer pool.Close()

	if _, err := db.ApplyMigrations(ctx, pool, log); err != nil {
		log.Error().Err(err).Msg("migration failed")
		return fail(exitcode.StoreError, err)
	}
	return nil
}
