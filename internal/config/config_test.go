package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.yaml", `
pattern:
  text: "bd sn"
  debounce: 300ms
clock:
  cps: 0.5
  seed: 7
sounder:
  driver: osc
  host: 127.0.0.1
  port: 57120
journal:
  driver: sqlite
  path: /tmp/journal.db
logging:
  level: DEBUG
  console: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Pattern.Text != "bd sn" || cfg.Pattern.Debounce != "300ms" {
		t.Fatalf("pattern = %+v", cfg.Pattern)
	}
	if cfg.Clock.CPS != 0.5 || cfg.Clock.Seed != 7 {
		t.Fatalf("clock = %+v", cfg.Clock)
	}
	if cfg.Sounder.Driver != "osc" || cfg.Sounder.Port != 57120 {
		t.Fatalf("sounder = %+v", cfg.Sounder)
	}
	if cfg.Journal.Driver != "sqlite" {
		t.Fatalf("journal = %+v", cfg.Journal)
	}
	if cfg.Logging.Level != "DEBUG" {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
}

func TestLoadJSON(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.json", `{
  "pattern": {"text": "bd sn hh cp"},
  "clock": {"cps": 2},
  "logging": {"console": false}
}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Clock.CPS != 2 {
		t.Fatalf("CPS = %g, want 2", cfg.Clock.CPS)
	}
	// Defaults survive for sections the file does not mention.
	if cfg.Sounder.Driver != "log" || cfg.Journal.Driver != "memory" {
		t.Fatalf("defaults not kept: %+v %+v", cfg.Sounder, cfg.Journal)
	}
}

func TestLoadRejectsUnknownField(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.yaml", `
clock:
  cyclesPerSecond: 2
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
	if !strings.Contains(err.Error(), "unknown field") {
		t.Fatalf("error = %v, want unknown field", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "default ok", mutate: func(c *Config) {}},
		{name: "negative cps", mutate: func(c *Config) { c.Clock.CPS = -1 }, wantErr: true},
		{name: "bad timeout", mutate: func(c *Config) { c.Clock.SounderTimeout = "soon" }, wantErr: true},
		{name: "bad debounce", mutate: func(c *Config) { c.Pattern.Debounce = "fast" }, wantErr: true},
		{
			name: "setlist entry missing pattern",
			mutate: func(c *Config) {
				c.Setlist.Enabled = true
				c.Setlist.Entries = []SetlistEntry{{Name: "drop", At: "0 * * * * *"}}
			},
			wantErr: true,
		},
		{
			name: "setlist disabled skips entry checks",
			mutate: func(c *Config) {
				c.Setlist.Entries = []SetlistEntry{{Name: "drop"}}
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
