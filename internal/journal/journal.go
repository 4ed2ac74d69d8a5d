// Package journal records what the scheduler actually did during a session:
// fired events, pattern swaps, rate changes and sounder failures. It is an
// append-only log for post-performance inspection, not a pattern store.
package journal

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "tidalgo/pkg/logx"
)

var ErrDisabled = errors.New("journal disabled")

// Entry kinds.
const (
	KindEvent = "event"
	KindSwap  = "swap"
	KindStart = "start"
	KindStop  = "stop"
	KindError = "error"
)

// Entry is one journal line. Keep it compact and schema-stable.
type Entry struct {
	At       time.Time
	Kind     string
	Value    string        // sound value for events
	Cycle    int64         // cycle index the entry belongs to
	Onset    float64       // cycle-relative onset for events
	Duration time.Duration // event duration
	Detail   string        // pattern text, error message, rate, ...
}

// Store is the append-only persistence API used by the scheduler and app.
type Store interface {
	Append(ctx context.Context, e Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

// Config selects the journal backend.
//
// Driver values:
//   - "memory": in-process ring buffer
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", the journal is disabled and Open returns
// (nil, nil).
type Config struct {
	Driver      string
	Path        string
	Capacity    int           // memory only; 0 means default
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "memory":
		return newMemory(cfg.Capacity), nil
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown journal driver: " + driver)
	}
}
