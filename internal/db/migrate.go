package db

import (
	"context"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	embedsql "github.com/gyeh/qlcheck/internal/sql"
)

const createMigrationsTable = `CREATE TABLE IF NOT EXISTS public.qlcheck_schema_migrations (
    name        TEXT PRIMARY KEY,
    applied_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// ApplyMigrations runs the embedded SQL migrations not yet recorded in
// qlcheck_schema_migrations, in filename order, each in its own transaction.
// It returns the names of the migrations it applied.
func ApplyMigrations(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger) ([]string, error) {
	entries, err := fs.ReadDir(embedsql.Migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	if _, err := pool.Exec(ctx, createMigrationsTable); err != nil {
		return nil, fmt.Errorf("create migrations table: %w", err)
	}

	var applied []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		data, err := fs.ReadFile(embedsql.Migrations, "migrations/"+name)
		if err != nil {
			return applied, fmt.Errorf("read migration %s: %w", name, err)
		}

		done, err := applyOne(ctx, pool, name, string(data))
		if err != nil {
			return applied, err
		}
		if !done {
			log.Debug().Str("migration", name).Msg("migration already applied")
			continue
		}
		log.Info().Str("migration", name).Msg("applied migration")
		applied = append(applied, name)
	}

	log.Info().Int("applied", len(applied)).Int("total", len(entries)).Msg("migrations up to date")
	return applied, nil
}

func applyOne(ctx context.Context, pool *pgxpool.Pool, name, ddl string) (bool, error) {
	applied := false
	err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			"INSERT INTO public.qlcheck_schema_migrations (name) VALUES ($1) ON CONFLICT DO NOTHING",
			name,
		)
		if err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		if _, err := tx.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("execute migration %s: %w", name, err)
		}
		applied = true
		return nil
	})
	return applied, err
}
