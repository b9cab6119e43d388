package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/qlcheck/internal/db"
	"github.com/gyeh/qlcheck/internal/logging"
)

const (
	testPort     = 15433
	testDB       = "qlchecktest"
	testUser     = "postgres"
	testPassword = "postgres"
)

// TestPostgresSave needs to download and start a Postgres binary, so it only
// runs with QLCHECK_PG_TEST=1.
func TestPostgresSave(t *testing.T) {
	if testing.Short() || os.Getenv("QLCHECK_PG_TEST") == "" {
		t.Skip("set QLCHECK_PG_TEST=1 to run the embedded postgres test")
	}

	pg := embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(uint32(testPort)).
			Database(testDB).
			Username(testUser).
			Password(testPassword).
			Version(embeddedpostgres.V16).
			RuntimePath(t.TempDir()).
			StartTimeout(30 * time.Second),
	)
	if err := pg.Start(); err != nil {
		t.Fatalf("start embedded postgres: %v", err)
	}
	t.Cleanup(func() {
		if err := pg.Stop(); err != nil {
			t.Logf("stop embedded postgres: %v", err)
		}
	})

	ctx := context.Background()
	dsn := fmt.Sprintf("postgresql://%s:%s@localhost:%d/%s?sslmode=disable",
		testUser, testPassword, testPort, testDB)
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	log := logging.New(os.Stderr, "text", zerolog.InfoLevel)

	applied, err := db.ApplyMigrations(ctx, pool, log)
	if err != nil {
		t.Fatalf("migrations: %v", err)
	}
	if len(applied) == 0 {
		t.Fatal("expected migrations to be applied")
	}
	again, err := db.ApplyMigrations(ctx, pool, log)
	if err != nil {
		t.Fatalf("re-apply migrations: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("migrations applied twice: %v", again)
	}

	s := NewPostgres(pool, log)
	defer s.Close()
	rep := sampleReport(t, t.TempDir())
	if err := s.Save(ctx, rep); err != nil {
		t.Fatalf("Save: %v", err)
	}

	t.Run("row_counts", func(t *testing.T) {
		for table, want := range map[string]int64{
			"qlcheck.check_runs": 1,
			"qlcheck.log_files":  2,
			"qlcheck.lifelines":  2,
			"qlcheck.commands":   2,
		} {
			var n int64
			if err := pool.QueryRow(ctx, "SELECT count(*) FROM "+table).Scan(&n); err != nil {
				t.Fatalf("count %s: %v", table, err)
			}
			if n != want {
				t.Errorf("%s: got %d rows, want %d", table, n, want)
			}
		}
	})

	t.Run("null_pid_for_degenerate_lifeline", func(t *testing.T) {
		var pid *int32
		err := pool.QueryRow(ctx, "SELECT pid FROM qlcheck.lifelines WHERE run_id = $1 AND seq = 2", rep.RunID).Scan(&pid)
		if err != nil {
			t.Fatal(err)
		}
		if pid != nil {
			t.Errorf("pid = %d, want NULL", *pid)
		}
	})

	t.Run("duplicate_run_rolls_back", func(t *testing.T) {
		if err := s.Save(ctx, rep); err == nil {
			t.Fatal("expected duplicate run id to fail")
		}
		var n int64
		if err := pool.QueryRow(ctx, "SELECT count(*) FROM qlcheck.lifelines").Scan(&n); err != nil {
			t.Fatal(err)
		}
		if n != 2 {
			t.Errorf("got %d lifelines after failed save", n)
		}
	})
}
