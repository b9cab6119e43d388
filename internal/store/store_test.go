package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gyeh/qlcheck/internal/model"
)

// sampleReport builds a report with one crashed lifeline holding an
// unflushed load and a running select, backed by real files in dir.
func sampleReport(t *testing.T, dir string) *model.CheckReport {
	t.Helper()
	general := filepath.Join(dir, "groonga.log")
	query := filepath.Join(dir, "query.log")
	os.WriteFile(general, []byte("2000-01-01 00:00:00.000000|n|10: grn_init: <1.2.3>\n"), 0644)
	os.WriteFile(query, []byte("2000-01-01 00:00:01.000000|0x1|>load --table Data\n"), 0644)

	t0 := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	crashed := model.NewLifeline("1.2.3", 10, t0, general)
	crashed.EndTime = t0.Add(12 * time.Hour)
	crashed.MarkCrashed()
	crashed.ImportantEntries = []model.LogEntry{{Timestamp: crashed.EndTime, PID: 10, Level: model.LevelCritical, Message: "-- CRASHED!!! --"}}

	clean := model.NewLifeline("", 0, time.Unix(0, 0), general)
	clean.Finished = true
	clean.Leaks = 2

	load := model.NewStatistic("0x1", t0.Add(time.Second), "load --table Data")
	load.Finish(time.Millisecond, 0)
	sel := model.NewStatistic("0x2", t0.Add(2*time.Second), "select Data")

	return &model.CheckReport{
		RunID:           uuid.New(),
		StartedAt:       t0.Add(24 * time.Hour),
		FinishedAt:      t0.Add(24*time.Hour + time.Second),
		GeneralLogPaths: []string{general},
		QueryLogPaths:   []string{query},
		Results: []model.LifelineResult{
			{Lifeline: crashed, Running: []*model.Statistic{sel}, Unflushed: []*model.Statistic{load}},
			{Lifeline: clean},
		},
		Summary: model.Summary{Crashed: true, Unflushed: true, Unfinished: true, Leak: true},
	}
}

func TestRows(t *testing.T) {
	rep := sampleReport(t, t.TempDir())
	lifelines, commands := rows(rep)
	if len(lifelines) != 2 || len(commands) != 2 {
		t.Fatalf("got %d lifelines, %d commands", len(lifelines), len(commands))
	}
	if lifelines[0].Seq != 1 || lifelines[0].Status != "crashed" || *lifelines[0].PID != 10 {
		t.Errorf("unexpected first lifeline row %+v", lifelines[0])
	}
	if lifelines[1].PID != nil || lifelines[1].Version != nil || lifelines[1].Leaks != 2 {
		t.Errorf("degenerate lifeline should have null pid and version: %+v", lifelines[1])
	}
	if commands[0].Kind != model.CommandKindRunning || commands[1].Kind != model.CommandKindUnflushed {
		t.Errorf("unexpected command kinds %s, %s", commands[0].Kind, commands[1].Kind)
	}
	if len(lifelines[0].CopyValues()) != len(model.LifelineColumns()) {
		t.Error("lifeline values and columns differ in length")
	}
	if len(commands[0].CopyValues()) != len(model.CommandColumns()) {
		t.Error("command values and columns differ in length")
	}
}

func TestLogFiles(t *testing.T) {
	rep := sampleReport(t, t.TempDir())
	files, err := logFiles(rep)
	if err != nil {
		t.Fatalf("logFiles: %v", err)
	}
	if len(files) != 2 || files[0].Kind != KindGeneral || files[1].Kind != KindQuery {
		t.Fatalf("unexpected files %+v", files)
	}
	if len(files[0].SHA256) != 64 || files[0].Size == 0 {
		t.Errorf("unexpected file record %+v", files[0])
	}
}

func TestLogFilesMissing(t *testing.T) {
	rep := &model.CheckReport{GeneralLogPaths: []string{filepath.Join(t.TempDir(), "gone.log")}}
	if _, err := logFiles(rep); err == nil {
		t.Fatal("expected error for missing file")
	}
}
