package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// Config is the full configuration file. YAML and JSON are both accepted;
// unknown fields are rejected so typos fail loudly at startup.
//
// All durations are Go duration strings (e.g. "500ms", "2s").
type Config struct {
	Pattern PatternConfig `json:"pattern"`
	Clock   ClockConfig   `json:"clock"`
	Sounder SounderConfig `json:"sounder"`
	Journal JournalConfig `json:"journal,omitempty"`
	Logging LoggingConfig `json:"logging"`
	Setlist SetlistConfig `json:"setlist,omitempty"`
	Debug   DebugConfig   `json:"debug,omitempty"`
}

// PatternConfig selects what plays at startup and which file is watched for
// live edits. Text wins over File for the initial pattern; File keeps being
// watched either way.
type PatternConfig struct {
	Text     string `json:"text,omitempty"`
	File     string `json:"file,omitempty"`
	Debounce string `json:"debounce,omitempty"` // watch debounce, default 200ms
}

type ClockConfig struct {
	CPS            float64 `json:"cps,omitempty"`
	Seed           int64   `json:"seed,omitempty"`
	SounderTimeout string  `json:"sounder_timeout,omitempty"`
}

// SounderConfig picks the output driver: "osc" (SuperDirt) or "log".
type SounderConfig struct {
	Driver string `json:"driver,omitempty"`
	Host   string `json:"host,omitempty"`
	Port   int    `json:"port,omitempty"`
}

// JournalConfig controls the session journal: "sqlite", "memory" or "none".
type JournalConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	Capacity    int    `json:"capacity,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string        `json:"level,omitempty"`
	Console bool          `json:"console"`
	File    LogFileConfig `json:"file,omitempty"`
}

type LogFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// DebugConfig exposes the pprof endpoints. Off by default; a non-loopback
// bind needs a token.
type DebugConfig struct {
	Pprof PprofConfig `json:"pprof,omitempty"`
}

type PprofConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"`
	Token   string `json:"token,omitempty"`
}

// SetlistConfig programs unattended pattern changes at wall-clock times.
type SetlistConfig struct {
	Enabled  bool           `json:"enabled"`
	Timezone string         `json:"timezone,omitempty"` // IANA TZ, e.g. "Europe/Athens"
	Entries  []SetlistEntry `json:"entries,omitempty"`
}

// SetlistEntry swaps to Pattern whenever At fires. At is a cron spec
// (seconds field optional) or "@every <duration>".
type SetlistEntry struct {
	Name    string `json:"name"`
	At      string `json:"at"`
	Pattern string `json:"pattern"`
}

// Default returns the configuration used when no file is given: log sounder,
// in-memory journal, console logging.
func Default() Config {
	return Config{
		Clock:   ClockConfig{CPS: 1},
		Sounder: SounderConfig{Driver: "log"},
		Journal: JournalConfig{Driver: "memory"},
		Logging: LoggingConfig{Level: "INFO", Console: true},
	}
}

// Load reads and strictly decodes a config file. YAML input is coerced to
// JSON first so both formats share the DisallowUnknownFields decoder.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Decode(path, data)
}

// Decode parses raw config bytes; path picks the format by extension.
func Decode(path string, data []byte) (Config, error) {
	jsonBytes, format, err := coerceToJSONBytes(path, data)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	dec := json.NewDecoder(bytes.NewReader(jsonBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode %s config: %w", format, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints that the decoder cannot.
func (c Config) Validate() error {
	if c.Clock.CPS < 0 {
		return fmt.Errorf("clock.cps: must be >= 0")
	}
	if _, err := ParseDurationField("clock.sounder_timeout", c.Clock.SounderTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("pattern.debounce", c.Pattern.Debounce); err != nil {
		return err
	}
	if _, err := ParseDurationField("journal.busy_timeout", c.Journal.BusyTimeout); err != nil {
		return err
	}
	if c.Setlist.Enabled {
		for i, e := range c.Setlist.Entries {
			if e.At == "" || e.Pattern == "" {
				return fmt.Errorf("setlist.entries[%d]: at and pattern are required", i)
			}
		}
	}
	return nil
}
