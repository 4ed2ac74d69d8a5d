package clock

import (
	"context"
	"math"
	"time"

	"golang.org/x/time/rate"

	"tidalgo/internal/journal"
	"tidalgo/internal/notation"
	"tidalgo/internal/pattern"
	"tidalgo/internal/sounder"
	logx "tidalgo/pkg/logx"
)

func New(cfg Config, snd sounder.Sounder, jrn journal.Store, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.CPS <= 0 {
		cfg.CPS = DefaultCPS
	}
	if cfg.SounderTimeout <= 0 {
		cfg.SounderTimeout = 100 * time.Millisecond
	}
	errBuf := cfg.ErrBuffer
	if errBuf <= 0 {
		errBuf = 16
	}
	perSec := cfg.ErrLogPerSec
	if perSec <= 0 {
		perSec = 2
	}
	return &Service{
		log:     log,
		cfg:     cfg,
		snd:     snd,
		jrn:     jrn,
		cps:     cfg.CPS,
		pending: map[uint64]*scheduled{},
		lim:     rate.NewLimiter(rate.Limit(perSec), perSec),
		errs:    make(chan error, errBuf),
	}
}

// Errs delivers sounder failures out of band. The channel is buffered and
// never blocks the scheduler; drops are counted in the log.
func (s *Service) Errs() <-chan error { return s.errs }

// Position reports the current cycle index and the in-cycle position.
func (s *Service) Position() (int64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return s.cycle, 0
	}
	return s.cycle, s.positionLocked(time.Now())
}

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Running: s.running,
		Cycle:   s.cycle,
		CPS:     s.cps,
		Pending: len(s.pending),
	}
}

// Start begins firing the pattern at the given rate. cps <= 0 uses the
// configured default. Fails with ErrAlreadyRunning while running.
func (s *Service) Start(ast notation.Node, cps float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}
	if cps <= 0 {
		cps = s.cfg.CPS
	}

	evs, err := pattern.Query(ast, s.queryOptions(0))
	if err != nil {
		return err
	}

	s.running = true
	s.ast = ast
	s.cps = cps
	s.cycle = 0
	s.cycleStart = time.Now()
	s.epoch++

	for _, ev := range evs {
		s.scheduleLocked(ev)
	}
	s.armBoundaryLocked()

	s.log.Info("clock started", logx.Float64("cps", cps), logx.Int("events", len(evs)))
	return nil
}

// Replace hot-swaps the pattern mid-cycle. Pending events of the old
// pattern that lie in the future are canceled; anything at or before the
// current position is left to complete. The remainder of the cycle is
// scheduled from the new tree and the next cycle boundary is untouched, so
// cycle N+1 plays the new pattern from time zero.
func (s *Service) Replace(ast notation.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrNotRunning
	}

	elapsed := s.positionLocked(time.Now())
	evs, err := pattern.QuerySpan(ast, elapsed, 1, s.queryOptions(s.cycle))
	if err != nil {
		// The old pattern keeps running untouched.
		return err
	}

	canceled := 0
	for id, sc := range s.pending {
		if sc.ev.Start > elapsed {
			sc.timer.Stop()
			delete(s.pending, id)
			canceled++
		}
	}
	for _, ev := range evs {
		s.scheduleLocked(ev)
	}
	s.ast = ast

	s.log.Info("pattern replaced",
		logx.Float64("at", elapsed),
		logx.Int("canceled", canceled),
		logx.Int("scheduled", len(evs)),
	)
	return nil
}

// SetRate changes the cycle rate. While running, the in-cycle position is
// preserved at the instant of the change and all future events are retimed.
func (s *Service) SetRate(cps float64) error {
	if cps <= 0 {
		return ErrBadRate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		s.cps = cps
		s.cfg.CPS = cps
		return nil
	}

	now := time.Now()
	elapsed := s.positionLocked(now)

	for id, sc := range s.pending {
		sc.timer.Stop()
		delete(s.pending, id)
	}

	s.cps = cps
	// Keep the cycle position: now corresponds to `elapsed` into the cycle.
	s.cycleStart = now.Add(-time.Duration(elapsed / cps * float64(time.Second)))
	s.epoch++

	evs, err := pattern.QuerySpan(s.ast, elapsed, 1, s.queryOptions(s.cycle))
	if err != nil {
		s.stopLocked()
		return err
	}
	for _, ev := range evs {
		s.scheduleLocked(ev)
	}
	s.armBoundaryLocked()

	s.log.Info("rate changed", logx.Float64("cps", cps), logx.Float64("at", elapsed))
	return nil
}

// Stop cancels everything and halts the clock. Idempotent.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.stopLocked()
	s.log.Info("clock stopped")
}

func (s *Service) stopLocked() {
	for id, sc := range s.pending {
		sc.timer.Stop()
		delete(s.pending, id)
	}
	s.epoch++ // orphan the boundary timer
	s.running = false
	s.ast = nil
}

// ---- internals (all assume s.mu held unless noted) ----

func (s *Service) queryOptions(cycle int64) pattern.Options {
	return pattern.Options{
		Cycle:  int(cycle),
		Policy: s.cfg.Policy,
		Seed:   s.cfg.Seed,
	}
}

func (s *Service) cycleDurLocked() time.Duration {
	return time.Duration(float64(time.Second) / s.cps)
}

// positionLocked returns the cycle-relative position of t in [0,1).
func (s *Service) positionLocked(t time.Time) float64 {
	el := t.Sub(s.cycleStart).Seconds() * s.cps
	if el < 0 {
		return 0
	}
	if el >= 1 {
		el = math.Mod(el, 1)
	}
	return el
}

func (s *Service) scheduleLocked(ev pattern.Event) {
	s.nextID++
	id := s.nextID
	at := s.cycleStart.Add(time.Duration(ev.Start / s.cps * float64(time.Second)))
	sc := &scheduled{id: id, ev: ev, at: at}
	sc.timer = time.AfterFunc(time.Until(at), func() { s.fire(id) })
	s.pending[id] = sc
}

func (s *Service) armBoundaryLocked() {
	epoch := s.epoch
	next := s.cycleStart.Add(s.cycleDurLocked())
	time.AfterFunc(time.Until(next), func() { s.onBoundary(epoch) })
}

// onBoundary advances to the next cycle and schedules its events. A stale
// epoch means the run or rate that armed this timer is gone.
func (s *Service) onBoundary(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || epoch != s.epoch {
		return
	}

	s.cycle++
	// Advance by the nominal duration, not time.Now(), so late timer
	// delivery does not accumulate drift.
	s.cycleStart = s.cycleStart.Add(s.cycleDurLocked())

	evs, err := pattern.Query(s.ast, s.queryOptions(s.cycle))
	if err != nil {
		// A pure evaluator failing now will fail every cycle; halt.
		s.log.Error("cycle evaluation failed", logx.Err(err), logx.Int64("cycle", s.cycle))
		s.report(err)
		s.stopLocked()
		return
	}
	for _, ev := range evs {
		s.scheduleLocked(ev)
	}
	s.armBoundaryLocked()
}

// fire runs in the event timer's goroutine. Removing the id from pending
// under the lock makes fire and cancel mutually exclusive.
func (s *Service) fire(id uint64) {
	s.mu.Lock()
	sc, ok := s.pending[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.pending, id)
	snd := s.snd
	cycle := s.cycle
	cps := s.cps
	timeout := s.cfg.SounderTimeout
	s.mu.Unlock()

	dur := time.Duration(sc.ev.Duration() / cps * float64(time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	err := snd.Play(ctx, sc.ev.Value, sc.at, dur)
	cancel()

	entry := journal.Entry{
		Kind:     journal.KindEvent,
		Value:    sc.ev.Value,
		Cycle:    cycle,
		Onset:    sc.ev.Start,
		Duration: dur,
	}
	if err != nil {
		entry.Kind = journal.KindError
		entry.Detail = err.Error()
		s.report(err)
		if s.lim.Allow() {
			s.log.Warn("sounder failed", logx.Err(err), logx.String("value", sc.ev.Value))
		}
	}
	s.journal(entry)
}

// report pushes an error onto the out-of-band channel without blocking.
func (s *Service) report(err error) {
	select {
	case s.errs <- err:
	default:
	}
}

// journal appends asynchronously; the firing path never waits on storage.
func (s *Service) journal(e journal.Entry) {
	if s.jrn == nil {
		return
	}
	jrn := s.jrn
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = jrn.Append(ctx, e)
	}()
}
