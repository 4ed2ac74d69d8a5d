package clock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tidalgo/internal/notation"
	logx "tidalgo/pkg/logx"
)

// fakeSounder records every Play call.
type fakeSounder struct {
	mu     sync.Mutex
	values []string
	err    error
}

func (f *fakeSounder) Play(ctx context.Context, value string, at time.Time, dur time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = append(f.values, value)
	return f.err
}

func (f *fakeSounder) Close() error { return nil }

func (f *fakeSounder) played() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.values))
	copy(out, f.values)
	return out
}

func mustParse(t *testing.T, text string) notation.Node {
	t.Helper()
	seq, err := notation.ParseString(text)
	if err != nil {
		t.Fatalf("ParseString(%q) error: %v", text, err)
	}
	return seq
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestStartFiresEventsAcrossCycles(t *testing.T) {
	t.Parallel()
	snd := &fakeSounder{}
	s := New(Config{}, snd, nil, logx.Nop())
	defer s.Stop()

	if err := s.Start(mustParse(t, "bd sn"), 20); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	// 20 cycles/s, two events per cycle: at least four plays well inside a
	// quarter second.
	if !waitFor(t, time.Second, func() bool { return len(snd.played()) >= 4 }) {
		t.Fatalf("only %d events fired", len(snd.played()))
	}

	got := snd.played()
	for i, v := range got[:4] {
		want := []string{"bd", "sn", "bd", "sn"}[i]
		if v != want {
			t.Fatalf("play %d = %q, want %q (all %v)", i, v, want, got)
		}
	}
}

func TestStartWhileRunning(t *testing.T) {
	t.Parallel()
	s := New(Config{}, &fakeSounder{}, nil, logx.Nop())
	defer s.Stop()

	if err := s.Start(mustParse(t, "bd"), 1); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if err := s.Start(mustParse(t, "sn"), 1); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Start error = %v, want ErrAlreadyRunning", err)
	}
}

func TestStartBadPatternLeavesClockStopped(t *testing.T) {
	t.Parallel()
	s := New(Config{}, &fakeSounder{}, nil, logx.Nop())

	if err := s.Start(mustParse(t, "7%0"), 1); err == nil {
		t.Fatal("expected evaluation error")
	}
	if snap := s.Snapshot(); snap.Running {
		t.Fatal("clock running after failed Start")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	t.Parallel()
	s := New(Config{}, &fakeSounder{}, nil, logx.Nop())
	if err := s.Start(mustParse(t, "bd sn hh cp"), 1); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	s.Stop()
	s.Stop()

	snap := s.Snapshot()
	if snap.Running {
		t.Fatal("still running after Stop")
	}
	if snap.Pending != 0 {
		t.Fatalf("Pending = %d after Stop, want 0", snap.Pending)
	}
}

func TestReplaceNotRunning(t *testing.T) {
	t.Parallel()
	s := New(Config{}, &fakeSounder{}, nil, logx.Nop())
	if err := s.Replace(mustParse(t, "bd")); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("Replace error = %v, want ErrNotRunning", err)
	}
}

func TestReplaceCancelsFutureEventsOnly(t *testing.T) {
	t.Parallel()
	snd := &fakeSounder{}
	s := New(Config{}, snd, nil, logx.Nop())
	defer s.Stop()

	// One cycle per second: onsets land at 0ms, 250ms, 500ms, 750ms.
	if err := s.Start(mustParse(t, "bd sn hh cp"), 1); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	time.Sleep(300 * time.Millisecond)
	if err := s.Replace(mustParse(t, "x1 x2 x3 x4")); err != nil {
		t.Fatalf("Replace error: %v", err)
	}

	// Let the rest of the cycle play out, then stop before cycle 1.
	waitFor(t, 900*time.Millisecond, func() bool {
		for _, v := range snd.played() {
			if v == "x4" {
				return true
			}
		}
		return false
	})
	s.Stop()

	got := snd.played()
	seen := map[string]bool{}
	for _, v := range got {
		seen[v] = true
	}
	for _, v := range []string{"bd", "sn", "x3", "x4"} {
		if !seen[v] {
			t.Fatalf("missing %q in %v", v, got)
		}
	}
	for _, v := range []string{"hh", "cp", "x1", "x2"} {
		if seen[v] {
			t.Fatalf("canceled or past event %q fired: %v", v, got)
		}
	}
}

func TestReplaceBadPatternKeepsOldOne(t *testing.T) {
	t.Parallel()
	snd := &fakeSounder{}
	s := New(Config{}, snd, nil, logx.Nop())
	defer s.Stop()

	if err := s.Start(mustParse(t, "bd sn"), 10); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if err := s.Replace(mustParse(t, "7%0")); err == nil {
		t.Fatal("expected evaluation error")
	}
	if snap := s.Snapshot(); !snap.Running {
		t.Fatal("clock stopped after failed Replace")
	}
	if !waitFor(t, time.Second, func() bool { return len(snd.played()) >= 2 }) {
		t.Fatal("old pattern no longer firing")
	}
}

func TestSetRate(t *testing.T) {
	t.Parallel()
	s := New(Config{}, &fakeSounder{}, nil, logx.Nop())
	defer s.Stop()

	if err := s.SetRate(0); !errors.Is(err, ErrBadRate) {
		t.Fatalf("SetRate(0) error = %v, want ErrBadRate", err)
	}
	if err := s.SetRate(-1); !errors.Is(err, ErrBadRate) {
		t.Fatalf("SetRate(-1) error = %v, want ErrBadRate", err)
	}

	// While stopped the rate is stored for the next Start.
	if err := s.SetRate(4); err != nil {
		t.Fatalf("SetRate error: %v", err)
	}
	if snap := s.Snapshot(); snap.CPS != 4 {
		t.Fatalf("CPS = %g, want 4", snap.CPS)
	}

	if err := s.Start(mustParse(t, "bd"), 0); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if err := s.SetRate(8); err != nil {
		t.Fatalf("SetRate while running error: %v", err)
	}
	if snap := s.Snapshot(); snap.CPS != 8 || !snap.Running {
		t.Fatalf("snapshot = %+v, want running at 8 cps", snap)
	}
}

func TestErrsDeliversSounderFailures(t *testing.T) {
	t.Parallel()
	snd := &fakeSounder{err: errors.New("device gone")}
	s := New(Config{}, snd, nil, logx.Nop())
	defer s.Stop()

	if err := s.Start(mustParse(t, "bd"), 10); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	select {
	case err := <-s.Errs():
		if err == nil || err.Error() != "device gone" {
			t.Fatalf("err = %v, want device gone", err)
		}
	case <-time.After(time.Second):
		t.Fatal("no error delivered")
	}
}

func TestPosition(t *testing.T) {
	t.Parallel()
	s := New(Config{}, &fakeSounder{}, nil, logx.Nop())
	defer s.Stop()

	cycle, pos := s.Position()
	if cycle != 0 || pos != 0 {
		t.Fatalf("position before start = %d %g, want 0 0", cycle, pos)
	}

	if err := s.Start(mustParse(t, "bd"), 1); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	_, pos = s.Position()
	if pos <= 0 || pos >= 1 {
		t.Fatalf("position = %g, want in (0,1)", pos)
	}
}
