package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/gyeh/qlcheck/internal/model"
	embedsql "github.com/gyeh/qlcheck/internal/sql"
)

// SQLite writes reports into a local database file (modernc.org/sqlite
// driver, CGO-free).
type SQLite struct {
	db  *sql.DB
	log zerolog.Logger
}

// OpenSQLite opens the database a sqlite:// DSN names and ensures the schema.
// "sqlite://:memory:" opens an in-memory database.
func OpenSQLite(ctx context.Context, dsn string, log zerolog.Logger) (*SQLite, error) {
	path := strings.TrimSpace(strings.TrimPrefix(dsn, "sqlite://"))
	if path == "" {
		return nil, errors.New("empty sqlite path")
	}
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// :memory: databases and pragmas are per connection.
	d.SetMaxOpenConns(1)

	s := &SQLite{db: d, log: log}
	if err := s.EnsureSchema(ctx); err != nil {
		d.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the tables if they do not exist.
func (s *SQLite) EnsureSchema(ctx context.Context) error {
	for _, q := range []string{"PRAGMA busy_timeout=3000;", "PRAGMA foreign_keys=ON;"} {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("sqlite pragma: %w", err)
		}
	}
	if _, err := s.db.ExecContext(ctx, embedsql.SQLiteSchema); err != nil {
		return fmt.Errorf("create sqlite schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error { return s.db.Close() }

// Save writes the whole report in one transaction.
func (s *SQLite) Save(ctx context.Context, rep *model.CheckReport) error {
	files, err := logFiles(rep)
	if err != nil {
		return fmt.Errorf("hash log files: %w", err)
	}
	lifelines, commands := rows(rep)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	runID := rep.RunID.String()
	sum := rep.Summary
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO check_runs(run_id, started_at, finished_at, n_lifelines, crashed, unflushed, unfinished, leak)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?);`,
		runID, timeText(rep.StartedAt), timeText(rep.FinishedAt), len(rep.Results),
		boolInt(sum.Crashed), boolInt(sum.Unflushed), boolInt(sum.Unfinished), boolInt(sum.Leak),
	); err != nil {
		return fmt.Errorf("insert check run: %w", err)
	}

	for _, f := range files {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO log_files(run_id, path, kind, sha256, size_bytes)
			VALUES(?, ?, ?, ?, ?)
			ON CONFLICT(run_id, path) DO NOTHING;`,
			runID, f.Path, f.Kind, f.SHA256, f.Size,
		); err != nil {
			return fmt.Errorf("insert log file: %w", err)
		}
	}

	for _, r := range lifelines {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO lifelines(run_id, seq, pid, version, status, start_time, end_time,
				start_log_path, end_log_path, n_leaks, crashed, finished, n_important_entries)
			VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
			runID, r.Seq, nullInt32(r.PID), nullString(r.Version), r.Status,
			timeText(r.StartTime), timeText(r.EndTime), r.StartLogPath, r.EndLogPath,
			r.Leaks, boolInt(r.Crashed), boolInt(r.Finished), r.NImportant,
		); err != nil {
			return fmt.Errorf("insert lifeline %d: %w", r.Seq, err)
		}
	}

	for _, r := range commands {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO commands(run_id, lifeline_seq, kind, context_id, start_time, command_name, raw_command)
			VALUES(?, ?, ?, ?, ?, ?, ?);`,
			runID, r.LifelineSeq, r.Kind, r.ContextID, timeText(r.StartTime),
			nullString(r.CommandName), r.RawCommand,
		); err != nil {
			return fmt.Errorf("insert command: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.log.Info().
		Str("run_id", runID).
		Int("lifelines", len(lifelines)).
		Int("commands", len(commands)).
		Msg("report stored in sqlite")
	return nil
}

func timeText(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullInt32(p *int32) sql.NullInt32 {
	if p == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: *p, Valid: true}
}
