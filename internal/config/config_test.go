package config

import (
	"os"
	"path/filepath"
	"testing"
)

func defaults() Config {
	return Config{LogFormat: "text", LogLevel: "info", OutputLevel: "info", Output: "-"}
}

func TestLoadFromFile_Valid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("log_level: warn\noutput_level: debug\ntimezone: Asia/Tokyo\nstore_dsn: sqlite:///tmp/q.db\ntarget_tables:\n  - Data\n"), 0644)

	c := defaults()
	if err := c.LoadFromFile(path, nil); err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if c.OutputLevel != "debug" || c.Timezone != "Asia/Tokyo" || c.StoreDSN != "sqlite:///tmp/q.db" {
		t.Errorf("unexpected config: %+v", c)
	}
	if c.LogLevel != "warn" {
		t.Errorf("log level = %q", c.LogLevel)
	}
	if c.Output != "-" {
		t.Errorf("unset key should keep default, got output %q", c.Output)
	}
	if len(c.TargetTables) != 1 || c.TargetTables[0] != "Data" {
		t.Errorf("unexpected target tables: %v", c.TargetTables)
	}
}

func TestLoadFromFile_FlagsWin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("output_level: debug\noutput: /var/log/qlcheck.log\n"), 0644)

	c := defaults()
	c.OutputLevel = "info"
	changed := func(flag string) bool { return flag == "output-level" }
	if err := c.LoadFromFile(path, changed); err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if c.OutputLevel != "info" {
		t.Errorf("flag value overwritten: %q", c.OutputLevel)
	}
	if c.Output != "/var/log/qlcheck.log" {
		t.Errorf("output = %q", c.Output)
	}
}

func TestLoadFromFile_BadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("output_level: [debug\n"), 0644)

	c := defaults()
	if err := c.LoadFromFile(path, nil); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	c := defaults()
	err := c.LoadFromFile("/nonexistent/config.yaml", nil)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"debug level", func(c *Config) { c.OutputLevel = "debug" }, false},
		{"bad level", func(c *Config) { c.OutputLevel = "trace" }, true},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, true},
		{"debug log level", func(c *Config) { c.LogLevel = "debug" }, false},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, true},
		{"utc", func(c *Config) { c.Timezone = "UTC" }, false},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, true},
		{"postgres dsn", func(c *Config) { c.StoreDSN = "postgres://u@localhost/db" }, false},
		{"sqlite dsn", func(c *Config) { c.StoreDSN = "sqlite://qlcheck.db" }, false},
		{"mysql dsn", func(c *Config) { c.StoreDSN = "mysql://u@localhost/db" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := defaults()
			tt.mutate(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateExtract_RequiresOutput(t *testing.T) {
	c := defaults()
	if err := c.ValidateExtract(); err == nil {
		t.Fatal("expected error without parquet path")
	}
	c.ParquetPath = "stats.parquet"
	if err := c.ValidateExtract(); err != nil {
		t.Fatalf("ValidateExtract: %v", err)
	}
}

func TestLocation_DefaultsToLocal(t *testing.T) {
	c := defaults()
	loc, err := c.Location()
	if err != nil {
		t.Fatal(err)
	}
	if loc.String() != "Local" {
		t.Errorf("location = %s", loc)
	}
}
