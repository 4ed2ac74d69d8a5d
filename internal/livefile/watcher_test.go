package livefile

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	logx "tidalgo/pkg/logx"
)

type recorder struct {
	mu    sync.Mutex
	texts []string
}

func (r *recorder) record(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.texts))
	copy(out, r.texts)
	return out
}

func (r *recorder) waitFor(t *testing.T, d time.Duration, want string) bool {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		for _, v := range r.all() {
			if v == want {
				return true
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func TestWatcherDeliversSavedText(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "pattern.tidal")
	if err := os.WriteFile(path, []byte("bd sn\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	rec := &recorder{}
	w := New(path, 50*time.Millisecond, rec.record, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	// Give the watch loop a moment to attach before saving.
	time.Sleep(200 * time.Millisecond)
	if err := os.WriteFile(path, []byte("bd sn hh cp\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !rec.waitFor(t, 3*time.Second, "bd sn hh cp") {
		t.Fatalf("change never delivered: %v", rec.all())
	}
}

func TestWatcherDebouncesBursts(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "pattern.tidal")
	if err := os.WriteFile(path, []byte("bd\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	rec := &recorder{}
	w := New(path, 150*time.Millisecond, rec.record, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	time.Sleep(200 * time.Millisecond)
	// A burst of saves inside the debounce window collapses to the last one.
	for _, text := range []string{"bd sn", "bd sn hh", "bd sn hh cp"} {
		if err := os.WriteFile(path, []byte(text+"\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	if !rec.waitFor(t, 3*time.Second, "bd sn hh cp") {
		t.Fatalf("final text never delivered: %v", rec.all())
	}
	for _, v := range rec.all() {
		if v == "bd sn" {
			t.Fatalf("intermediate save leaked through debounce: %v", rec.all())
		}
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "pattern.tidal")
	if err := os.WriteFile(path, []byte("bd\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	rec := &recorder{}
	w := New(path, 50*time.Millisecond, rec.record, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	time.Sleep(200 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	time.Sleep(300 * time.Millisecond)
	if got := rec.all(); len(got) != 0 {
		t.Fatalf("unrelated file triggered callback: %v", got)
	}
}
