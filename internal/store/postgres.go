package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/qlcheck/internal/db"
	"github.com/gyeh/qlcheck/internal/model"
	embedsql "github.com/gyeh/qlcheck/internal/sql"
)

const copyBufferSize = 256

// Postgres writes reports into the qlcheck schema.
type Postgres struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// OpenPostgres connects to dsn.
func OpenPostgres(ctx context.Context, dsn string, log zerolog.Logger) (*Postgres, error) {
	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return NewPostgres(pool, log), nil
}

// NewPostgres wraps an existing pool. Close closes the pool.
func NewPostgres(pool *pgxpool.Pool, log zerolog.Logger) *Postgres {
	return &Postgres{pool: pool, log: log}
}

// Close closes the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// Save writes the run, its input files, lifelines and commands in one
// transaction. Lifelines and commands are loaded with COPY.
func (p *Postgres) Save(ctx context.Context, rep *model.CheckReport) error {
	start := time.Now()
	files, err := logFiles(rep)
	if err != nil {
		return fmt.Errorf("hash log files: %w", err)
	}
	lifelines, commands := rows(rep)

	var nLifelines, nCommands int64
	err = pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		s := rep.Summary
		if _, err := tx.Exec(ctx, embedsql.InsertCheckRun,
			rep.RunID, rep.StartedAt, rep.FinishedAt, len(rep.Results),
			s.Crashed, s.Unflushed, s.Unfinished, s.Leak,
		); err != nil {
			return fmt.Errorf("insert check run: %w", err)
		}

		if len(files) > 0 {
			batch := &pgx.Batch{}
			for _, f := range files {
				batch.Queue(embedsql.InsertLogFile, rep.RunID, f.Path, f.Kind, f.SHA256, f.Size)
			}
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return fmt.Errorf("insert log files: %w", err)
			}
		}

		if nLifelines, err = copyRows(ctx, tx, pgx.Identifier{"qlcheck", "lifelines"}, model.LifelineColumns(), lifelines); err != nil {
			return fmt.Errorf("copy lifelines: %w", err)
		}
		if nCommands, err = copyRows(ctx, tx, pgx.Identifier{"qlcheck", "commands"}, model.CommandColumns(), commands); err != nil {
			return fmt.Errorf("copy commands: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	p.log.Info().
		Str("run_id", rep.RunID.String()).
		Int("log_files", len(files)).
		Int64("lifelines", nLifelines).
		Int64("commands", nCommands).
		Str("duration", time.Since(start).String()).
		Msg("report stored in postgres")
	return nil
}

// copyRows streams rows to COPY through a channel-backed source.
func copyRows[T db.CopyRow](ctx context.Context, tx pgx.Tx, table pgx.Identifier, columns []string, rows []T) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan T, copyBufferSize)
	errCh := make(chan error, 1)

	go func() {
		defer close(ch)
		for _, r := range rows {
			select {
			case ch <- r:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
		errCh <- nil
	}()

	n, err := tx.CopyFrom(ctx, table, columns, db.NewChannelSource[T](ch))
	if err != nil {
		cancel()
		<-errCh
		return 0, err
	}
	if prodErr := <-errCh; prodErr != nil {
		return 0, fmt.Errorf("copy producer: %w", prodErr)
	}
	return n, nil
}
