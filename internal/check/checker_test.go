package check

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/gyeh/qlcheck/internal/logging"
	"github.com/gyeh/qlcheck/internal/model"
)

var jst = time.FixedZone("JST", 9*60*60)

func writeLog(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCheck(t *testing.T, level zerolog.Level, paths ...string) (*model.CheckReport, string) {
	t.Helper()
	var out bytes.Buffer
	c := New(paths, WithLocation(jst), WithReport(logging.NewReport(&out, level)))
	rep, err := c.Check(context.Background())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	return rep, out.String()
}

func lines(s ...string) string {
	return strings.Join(s, "\n") + "\n"
}

var crashLines = []string{
	"2000-01-01 12:00:00.000000|C|10:00000000: " + "-- CRASHED!!! --",
	"2000-01-01 12:00:00.000000|C|10:00000000: " + "grn_ctx_at+0x10",
	"2000-01-01 12:00:00.000000|C|10:00000000: " + "----------------",
}

var crashReport = []string{
	"Important entries:",
	"2000-01-01T12:00:00+09:00: 10: 00000000: critical: -- CRASHED!!! --",
	"2000-01-01T12:00:00+09:00: 10: 00000000: critical: grn_ctx_at+0x10",
	"2000-01-01T12:00:00+09:00: 10: 00000000: critical: ----------------",
}

func crashedGeneralLog(t *testing.T, dir string) string {
	return writeLog(t, dir, "groonga.log", append([]string{
		"2000-01-01 00:00:00.000000|n|10: grn_init: <1.2.3>",
	}, crashLines...)...)
}

func TestScenarioCleanRun(t *testing.T) {
	dir := t.TempDir()
	general := writeLog(t, dir, "groonga.log",
		"2000-01-01 00:00:00.000000|n|10: grn_init: <1.2.3>",
		"2000-01-01 00:00:10.000000|n|10: grn_fin (0)",
	)

	rep, out := runCheck(t, zerolog.DebugLevel, general)
	want := lines(
		"process success 1.2.3 2000-01-01T00:00:00+09:00 2000-01-01T00:00:10+09:00 10 "+general+" "+general,
		"Summary:",
		"crashed:no, unflushed:no, unfinished:no, leak:no",
		"OK: no problems.",
	)
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
	if rep.Summary.HasProblems() || len(rep.Results) != 1 {
		t.Errorf("unexpected report %+v", rep)
	}
}

func TestScenarioLeak(t *testing.T) {
	dir := t.TempDir()
	general := writeLog(t, dir, "groonga.log",
		"2000-01-01 00:00:00.000000|n|10: grn_init: <1.2.3>",
		"2000-01-01 00:00:10.000000|n|10: grn_fin (3)",
	)

	rep, out := runCheck(t, zerolog.DebugLevel, general)
	want := lines(
		"process success 1.2.3 2000-01-01T00:00:00+09:00 2000-01-01T00:00:10+09:00 10 "+general+" "+general,
		"leak 1.2.3 3 2000-01-01T00:00:10+09:00 10 "+general,
		"Summary:",
		"crashed:no, unflushed:no, unfinished:no, leak:yes",
		"NG: problems found. Please check the output and logs.",
	)
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
	if rep.Summary != (model.Summary{Leak: true}) {
		t.Errorf("summary = %+v", rep.Summary)
	}
}

func TestScenarioLeakHiddenAtInfo(t *testing.T) {
	dir := t.TempDir()
	general := writeLog(t, dir, "groonga.log",
		"2000-01-01 00:00:00.000000|n|10: grn_init: <1.2.3>",
		"2000-01-01 00:00:10.000000|n|10: grn_fin (3)",
	)

	_, out := runCheck(t, zerolog.InfoLevel, general)
	want := lines(
		"Summary:",
		"crashed:no, unflushed:no, unfinished:no, leak:yes",
		"NG: problems found. Please check the output and logs.",
	)
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestScenarioCrashWithUnflushedWrite(t *testing.T) {
	dir := t.TempDir()
	general := crashedGeneralLog(t, dir)
	query := writeLog(t, dir, "query.log",
		"2000-01-01 00:00:01.000000|0x1|>load --table Data",
		"2000-01-01 00:00:01.000100|0x1|:000000000100000 load(1)",
		"2000-01-01 00:00:01.000200|0x1|<000000000200000 rc=0",
	)

	rep, out := runCheck(t, zerolog.InfoLevel, general, query)
	want := lines(append(crashReport,
		"Unflushed commands in 2000-01-01T00:00:00+09:00/2000-01-01T12:00:00+09:00",
		"2000-01-01T00:00:01+09:00: load --table Data",
		"Summary:",
		"crashed:yes, unflushed:yes, unfinished:no, leak:no",
		"NG: problems found. Please check the output and logs.",
	)...)
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{general}, rep.GeneralLogPaths); diff != "" {
		t.Errorf("general paths (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{query}, rep.QueryLogPaths); diff != "" {
		t.Errorf("query paths (-want +got):\n%s", diff)
	}
	if len(rep.Results) != 1 || len(rep.Results[0].Unflushed) != 1 {
		t.Fatalf("unexpected results %+v", rep.Results)
	}
}

func TestScenarioCrashWithRunningQuery(t *testing.T) {
	dir := t.TempDir()
	general := crashedGeneralLog(t, dir)
	query := writeLog(t, dir, "query.log",
		"2000-01-01 00:00:01.000000|0x1|>load --table Data",
		"2000-01-01 00:00:01.000100|0x1|:000000000100000 load(1)",
	)

	rep, out := runCheck(t, zerolog.InfoLevel, general, query)
	want := lines(append(crashReport,
		"Running queries:",
		"2000-01-01T00:00:01+09:00:",
		"load \\",
		"  --table \"Data\"",
		"Summary:",
		"crashed:yes, unflushed:no, unfinished:yes, leak:no",
		"NG: problems found. Please check the output and logs.",
	)...)
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
	if len(rep.Results[0].Running) != 1 || len(rep.Results[0].Unflushed) != 0 {
		t.Errorf("unexpected result %+v", rep.Results[0])
	}
}

func TestScenarioFlushClearsPendingWrite(t *testing.T) {
	dir := t.TempDir()
	general := crashedGeneralLog(t, dir)
	query := writeLog(t, dir, "query.log",
		"2000-01-01 00:00:01.000000|0x1|>load --table Data",
		"2000-01-01 00:00:01.000200|0x1|<000000000200000 rc=0",
		"2000-01-01 00:00:02.000000|0x2|>io_flush --target_name Data --recursive yes",
		"2000-01-01 00:00:02.000200|0x2|<000000000200000 rc=0",
	)

	rep, out := runCheck(t, zerolog.InfoLevel, general, query)
	want := lines(append(crashReport,
		"Summary:",
		"crashed:yes, unflushed:no, unfinished:no, leak:no",
		"NG: problems found. Please check the output and logs.",
	)...)
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
	if rep.Summary != (model.Summary{Crashed: true}) {
		t.Errorf("summary = %+v", rep.Summary)
	}
}

func TestRestartScopesQueriesToEachLifeline(t *testing.T) {
	dir := t.TempDir()
	general := writeLog(t, dir, "groonga.log",
		"2000-01-01 00:00:00.000000|n|10: grn_init: <1.2.3>",
		"2000-01-01 00:00:05.000000|i|10: [io] opened",
		"2000-01-01 01:00:00.000000|n|10: grn_init: <1.2.3>",
		"2000-01-01 01:00:05.000000|i|10: [io] opened",
	)
	query := writeLog(t, dir, "query.log",
		"2000-01-01 00:00:01.000000|0x1|>load --table First",
		"2000-01-01 00:00:01.000200|0x1|<000000000200000 rc=0",
		"2000-01-01 01:00:01.000000|0x1|>delete --table Second --key a",
		"2000-01-01 01:00:01.000200|0x1|<000000000200000 rc=0",
	)

	rep, out := runCheck(t, zerolog.DebugLevel, general, query)
	want := lines(
		"process crashed 1.2.3 2000-01-01T00:00:00+09:00 2000-01-01T00:00:05+09:00 10 "+general+" "+general,
		"Unflushed commands in 2000-01-01T00:00:00+09:00/2000-01-01T00:00:05+09:00",
		"2000-01-01T00:00:01+09:00: load --table First",
		"process unfinished 1.2.3 2000-01-01T01:00:00+09:00 10 "+general,
		"Unflushed commands in 2000-01-01T01:00:00+09:00/2000-01-01T01:00:05+09:00",
		"2000-01-01T01:00:01+09:00: delete --table Second --key a",
		"Summary:",
		"crashed:yes, unflushed:yes, unfinished:no, leak:no",
		"NG: problems found. Please check the output and logs.",
	)
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
	if len(rep.Results) != 2 {
		t.Fatalf("expected 2 lifelines, got %d", len(rep.Results))
	}
}

func TestRunningQueryBeforeLifelineIsIgnored(t *testing.T) {
	dir := t.TempDir()
	general := writeLog(t, dir, "groonga.log",
		"2000-01-01 01:00:00.000000|n|10: grn_init: <1.2.3>",
		"2000-01-01 01:00:05.000000|i|10: [io] opened",
	)
	query := writeLog(t, dir, "query.log",
		"2000-01-01 00:00:01.000000|0x1|>select Data",
		"2000-01-01 01:00:02.000000|0x2|>select Other",
	)

	rep, out := runCheck(t, zerolog.InfoLevel, general, query)
	want := lines(
		"Running queries:",
		"2000-01-01T01:00:02+09:00:",
		"select \\",
		"  --table \"Other\"",
		"Summary:",
		"crashed:no, unflushed:no, unfinished:yes, leak:no",
		"NG: problems found. Please check the output and logs.",
	)
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
	if got := rep.Results[0].Running; len(got) != 1 || got[0].ContextID != "0x2" {
		t.Errorf("running = %+v", got)
	}
}

func TestDegenerateLifelineWithoutPID(t *testing.T) {
	dir := t.TempDir()
	general := writeLog(t, dir, "groonga.log",
		"2000-01-01 00:00:03.000000|e| [io][open] failed",
	)

	_, out := runCheck(t, zerolog.DebugLevel, general)
	want := lines(
		"process unfinished - 1970-01-01T09:00:00+09:00 - "+general,
		"Important entries:",
		"2000-01-01T00:00:03+09:00: : : error: [io][open] failed",
		"Summary:",
		"crashed:no, unflushed:no, unfinished:no, leak:no",
		"OK: no problems.",
	)
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestUnrecognizedFilesAreIgnored(t *testing.T) {
	dir := t.TempDir()
	notes := writeLog(t, dir, "notes.txt", "hello", "world")

	rep, out := runCheck(t, zerolog.InfoLevel, notes)
	if len(rep.GeneralLogPaths) != 0 || len(rep.QueryLogPaths) != 0 {
		t.Errorf("unexpected split %v %v", rep.GeneralLogPaths, rep.QueryLogPaths)
	}
	if !strings.HasSuffix(out, "OK: no problems.\n") {
		t.Errorf("out = %q", out)
	}
}

func TestIdempotent(t *testing.T) {
	dir := t.TempDir()
	general := crashedGeneralLog(t, dir)
	query := writeLog(t, dir, "query.log",
		"2000-01-01 00:00:01.000000|0x1|>load --table Data",
		"2000-01-01 00:00:01.000200|0x1|<000000000200000 rc=0",
		"2000-01-01 00:00:02.000000|0x2|>select Data",
	)

	_, first := runCheck(t, zerolog.DebugLevel, general, query)
	_, second := runCheck(t, zerolog.DebugLevel, general, query)
	if first != second {
		t.Errorf("outputs differ:\n%s\n---\n%s", first, second)
	}
}

func TestMissingFileIsIOError(t *testing.T) {
	var out bytes.Buffer
	c := New([]string{filepath.Join(t.TempDir(), "missing.log")}, WithReport(logging.NewReport(&out, zerolog.InfoLevel)))
	_, err := c.Check(context.Background())
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	var pe *PhaseError
	if !errors.As(err, &pe) || pe.Phase != PhaseSplit {
		t.Errorf("expected split phase error, got %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("no report expected, got %q", out.String())
	}
}

func TestCancelledCheckWritesNoSummary(t *testing.T) {
	dir := t.TempDir()
	general := crashedGeneralLog(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	c := New([]string{general}, WithLocation(jst), WithReport(logging.NewReport(&out, zerolog.InfoLevel)))
	rep, err := c.Check(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if rep != nil {
		t.Error("report should be discarded")
	}
	if strings.Contains(out.String(), "Summary:") {
		t.Errorf("summary written on cancel: %q", out.String())
	}
}
