package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewReportWritesBareMessages(t *testing.T) {
	var buf bytes.Buffer
	report := NewReport(&buf, zerolog.InfoLevel)
	report.Info().Msg("Summary:")
	report.Debug().Msg("process success")
	report.Info().Msgf("crashed:%s", "no")
	report.Info().Msg("load \\\n  --table \"Data\"")

	want := "Summary:\ncrashed:no\nload \\\n  --table \"Data\"\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestNewReportDebug(t *testing.T) {
	var buf bytes.Buffer
	report := NewReport(&buf, zerolog.DebugLevel)
	report.Debug().Msg("leak 1.2.3 3")
	if buf.String() != "leak 1.2.3 3\n" {
		t.Errorf("got %q", buf.String())
	}
}

func TestParseOutputLevel(t *testing.T) {
	for in, want := range map[string]zerolog.Level{"info": zerolog.InfoLevel, "debug": zerolog.DebugLevel} {
		got, err := ParseOutputLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseOutputLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseOutputLevel("warn"); err == nil {
		t.Error("expected error for warn")
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "json", zerolog.InfoLevel)
	log.Info().Str("path", "groonga.log").Msg("classified log file")
	out := buf.String()
	if !strings.Contains(out, `"path":"groonga.log"`) || !strings.Contains(out, `"message":"classified log file"`) {
		t.Errorf("unexpected json log %q", out)
	}
}

func TestOpenOutputFileAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.log")
	for _, line := range []string{"first\n", "second\n"} {
		w := OpenOutput(path, os.Stdout)
		if _, err := w.Write([]byte(line)); err != nil {
			t.Fatal(err)
		}
		if err := w.Close(); err != nil {
			t.Fatal(err)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "first\nsecond\n" {
		t.Errorf("file = %q", data)
	}
}

func TestOpenOutputStdout(t *testing.T) {
	var buf bytes.Buffer
	w := OpenOutput("-", &buf)
	w.Write([]byte("OK: no problems.\n"))
	if err := w.Close(); err != nil {
		t.Errorf("closing stdout wrapper: %v", err)
	}
	if buf.String() != "OK: no problems.\n" {
		t.Errorf("got %q", buf.String())
	}
}

func TestNewDropsDebugAtInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "text", zerolog.InfoLevel)
	log.Debug().Msg("replayed query logs")
	if buf.Len() != 0 {
		t.Errorf("debug event written at info level: %q", buf.String())
	}

	log = New(&buf, "text", zerolog.DebugLevel)
	log.Debug().Msg("replayed query logs")
	if !strings.Contains(buf.String(), "replayed query logs") {
		t.Errorf("debug event missing at debug level: %q", buf.String())
	}
}

func TestParseLogLevel(t *testing.T) {
	for _, in := range []string{"debug", "info", "warn", "error"} {
		if _, err := ParseLogLevel(in); err != nil {
			t.Errorf("ParseLogLevel(%q): %v", in, err)
		}
	}
	for _, in := range []string{"", "trace", "fatal"} {
		if _, err := ParseLogLevel(in); err == nil {
			t.Errorf("ParseLogLevel(%q): expected error", in)
		}
	}
}
