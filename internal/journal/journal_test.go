package journal

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	logx "tidalgo/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none", " NONE "} {
		store, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil {
			t.Fatalf("Open(%q) error: %v", driver, err)
		}
		if store != nil {
			t.Fatalf("Open(%q) = %T, want nil", driver, store)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	_, err := Open(Config{Driver: "postgres"}, logx.Nop())
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestMemoryAppendRecent(t *testing.T) {
	t.Parallel()
	store, err := Open(Config{Driver: "memory"}, logx.Nop())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		e := Entry{
			At:    time.Now(),
			Kind:  KindEvent,
			Value: fmt.Sprintf("bd:%d", i),
			Cycle: int64(i),
		}
		if err := store.Append(ctx, e); err != nil {
			t.Fatalf("Append error: %v", err)
		}
	}

	got, err := store.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3", len(got))
	}
	// Oldest of the kept window first.
	if got[0].Value != "bd:2" || got[2].Value != "bd:4" {
		t.Fatalf("window = %q..%q, want bd:2..bd:4", got[0].Value, got[2].Value)
	}
}

func TestMemoryCapacityBound(t *testing.T) {
	t.Parallel()
	store := newMemory(4)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		_ = store.Append(ctx, Entry{Kind: KindEvent, Cycle: int64(i)})
	}
	got, err := store.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent error: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("kept %d entries, want 4", len(got))
	}
	if got[0].Cycle != 6 || got[3].Cycle != 9 {
		t.Fatalf("window cycles = %d..%d, want 6..9", got[0].Cycle, got[3].Cycle)
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "journal.db")
	store, err := Open(Config{Driver: "sqlite", Path: path, BusyTimeout: time.Second}, logx.Nop())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	entries := []Entry{
		{Kind: KindStart, Detail: "bd sn"},
		{Kind: KindEvent, Value: "bd", Cycle: 0, Onset: 0, Duration: 250 * time.Millisecond},
		{Kind: KindEvent, Value: "sn", Cycle: 0, Onset: 0.5, Duration: 250 * time.Millisecond},
		{Kind: KindError, Value: "hh", Detail: "device gone"},
		{Kind: KindStop},
	}
	for _, e := range entries {
		if err := store.Append(ctx, e); err != nil {
			t.Fatalf("Append(%s) error: %v", e.Kind, err)
		}
	}

	got, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent error: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("got %d entries, want %d", len(got), len(entries))
	}
	for i, e := range got {
		if e.Kind != entries[i].Kind || e.Value != entries[i].Value || e.Detail != entries[i].Detail {
			t.Fatalf("entry %d = %+v, want %+v", i, e, entries[i])
		}
		if e.At.IsZero() {
			t.Fatalf("entry %d has zero timestamp", i)
		}
	}
	if got[2].Onset != 0.5 || got[2].Duration != 250*time.Millisecond {
		t.Fatalf("event fields not preserved: %+v", got[2])
	}
}

func TestSQLiteRecentLimit(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "journal.db")
	store, err := Open(Config{Driver: "sqlite", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < 8; i++ {
		_ = store.Append(ctx, Entry{Kind: KindEvent, Cycle: int64(i)})
	}
	got, err := store.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3", len(got))
	}
	// Newest three, oldest first.
	if got[0].Cycle != 5 || got[2].Cycle != 7 {
		t.Fatalf("cycles = %d..%d, want 5..7", got[0].Cycle, got[2].Cycle)
	}
}

func TestSQLiteRequiresPath(t *testing.T) {
	t.Parallel()
	_, err := Open(Config{Driver: "sqlite"}, logx.Nop())
	if err == nil {
		t.Fatal("expected error for missing path")
	}
}
