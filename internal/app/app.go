// Package app wires configuration, logging, the sounder, the journal, the
// cycle clock, the setlist and the live pattern file into one lifecycle and
// exposes the control surface the binary talks to.
package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"tidalgo/internal/clock"
	"tidalgo/internal/config"
	"tidalgo/internal/journal"
	"tidalgo/internal/livefile"
	"tidalgo/internal/notation"
	"tidalgo/internal/observability/pprof"
	"tidalgo/internal/setlist"
	"tidalgo/internal/sounder"
	logx "tidalgo/pkg/logx"
)

type App struct {
	cfg config.Config

	logs *logx.Service
	log  logx.Logger

	snd   sounder.Sounder
	jrn   journal.Store
	clk   *clock.Service
	set   *setlist.Service
	watch *livefile.Watcher
	prof  *pprof.Service
}

func New(cfg config.Config) (*App, error) {
	logs, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	jrn, err := journal.Open(journal.Config{
		Driver:      cfg.Journal.Driver,
		Path:        cfg.Journal.Path,
		Capacity:    cfg.Journal.Capacity,
		BusyTimeout: mustDuration(cfg.Journal.BusyTimeout),
	}, log.With(logx.String("comp", "journal")))
	if err != nil {
		_ = logs.Close()
		return nil, fmt.Errorf("open journal: %w", err)
	}

	snd, err := sounder.Open(sounder.Config{
		Driver: cfg.Sounder.Driver,
		Host:   cfg.Sounder.Host,
		Port:   cfg.Sounder.Port,
	}, log.With(logx.String("comp", "sounder")))
	if err != nil {
		closeAll(jrn, nil, logs)
		return nil, fmt.Errorf("open sounder: %w", err)
	}

	a := &App{
		cfg:  cfg,
		logs: logs,
		log:  log,
		snd:  snd,
		jrn:  jrn,
	}

	a.clk = clock.New(clock.Config{
		CPS:            cfg.Clock.CPS,
		Seed:           cfg.Clock.Seed,
		SounderTimeout: mustDuration(cfg.Clock.SounderTimeout),
	}, snd, jrn, log.With(logx.String("comp", "clock")))

	a.set = setlist.New(setlist.Config{
		Enabled:  cfg.Setlist.Enabled,
		Timezone: cfg.Setlist.Timezone,
	}, a.swapNamed, log.With(logx.String("comp", "setlist")))

	if file := strings.TrimSpace(cfg.Pattern.File); file != "" {
		a.watch = livefile.New(file, mustDuration(cfg.Pattern.Debounce), a.onFileChange,
			log.With(logx.String("comp", "livefile")))
	}

	a.prof = pprof.New(pprof.Config{
		Enabled: cfg.Debug.Pprof.Enabled,
		Addr:    cfg.Debug.Pprof.Addr,
		Token:   cfg.Debug.Pprof.Token,
	}, log.With(logx.String("comp", "pprof")))

	return a, nil
}

// Start brings everything up and, when an initial pattern is configured,
// starts the clock with it.
func (a *App) Start(ctx context.Context) error {
	if a.set.Enabled() {
		entries := make([]setlist.Entry, 0, len(a.cfg.Setlist.Entries))
		for _, e := range a.cfg.Setlist.Entries {
			entries = append(entries, setlist.Entry{Name: e.Name, At: e.At, Pattern: e.Pattern})
		}
		if err := a.set.Add(entries...); err != nil {
			return fmt.Errorf("setlist: %w", err)
		}
		a.set.Start()
	}
	if a.watch != nil {
		a.watch.Start(ctx)
	}
	if err := a.prof.Start(); err != nil {
		return fmt.Errorf("pprof: %w", err)
	}

	if text := a.initialPattern(); text != "" {
		if err := a.StartPattern(text, a.cfg.Clock.CPS); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if a.watch != nil {
		a.watch.Stop()
	}
	a.set.Stop()
	a.clk.Stop()
	a.prof.Stop(ctx)
	closeAll(a.jrn, a.snd, nil)
	return a.logs.Close()
}

// Close releases the log sinks; call after Stop.
func (a *App) Close() { _ = a.logs.Close() }

// ---- control surface ----

// StartPattern parses text and starts the clock. A parse failure leaves the
// clock untouched.
func (a *App) StartPattern(text string, cps float64) error {
	ast, err := notation.ParseString(text)
	if err != nil {
		return err
	}
	if err := a.clk.Start(ast, cps); err != nil {
		return err
	}
	a.journalControl(journal.KindStart, text)
	return nil
}

// Replace parses text and hot-swaps the running pattern. A parse failure
// leaves the current pattern playing.
func (a *App) Replace(text string) error {
	ast, err := notation.ParseString(text)
	if err != nil {
		return err
	}
	if err := a.clk.Replace(ast); err != nil {
		return err
	}
	a.journalControl(journal.KindSwap, text)
	return nil
}

// Apply is the live-coding entry point: replace while running, start
// otherwise.
func (a *App) Apply(text string) error {
	if a.clk.Snapshot().Running {
		return a.Replace(text)
	}
	return a.StartPattern(text, a.cfg.Clock.CPS)
}

func (a *App) SetRate(cps float64) error { return a.clk.SetRate(cps) }

func (a *App) StopPattern() {
	a.clk.Stop()
	a.journalControl(journal.KindStop, "")
}

func (a *App) Snapshot() clock.Snapshot { return a.clk.Snapshot() }

// Errs exposes the clock's out-of-band sounder failures.
func (a *App) Errs() <-chan error { return a.clk.Errs() }

// Recent returns the newest journal entries, oldest first.
func (a *App) Recent(ctx context.Context, n int) ([]journal.Entry, error) {
	if a.jrn == nil {
		return nil, journal.ErrDisabled
	}
	return a.jrn.Recent(ctx, n)
}

// ---- internals ----

func (a *App) initialPattern() string {
	if text := strings.TrimSpace(a.cfg.Pattern.Text); text != "" {
		return text
	}
	file := strings.TrimSpace(a.cfg.Pattern.File)
	if file == "" {
		return ""
	}
	data, err := os.ReadFile(file)
	if err != nil {
		a.log.Warn("initial pattern file unreadable", logx.Err(err), logx.String("file", file))
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (a *App) onFileChange(text string) {
	if err := a.Apply(text); err != nil {
		a.log.Warn("pattern file rejected", logx.Err(err))
	}
}

func (a *App) swapNamed(name, pattern string) error {
	return a.Apply(pattern)
}

func (a *App) journalControl(kind, text string) {
	if a.jrn == nil {
		return
	}
	cycle, pos := a.clk.Position()
	jrn := a.jrn
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = jrn.Append(ctx, journal.Entry{
			Kind:   kind,
			Cycle:  cycle,
			Onset:  pos,
			Detail: text,
		})
	}()
}

// mustDuration parses a pre-validated duration field.
func mustDuration(raw string) time.Duration {
	d, _ := config.ParseDurationField("", raw)
	return d
}

func closeAll(jrn journal.Store, snd sounder.Sounder, logs *logx.Service) {
	if jrn != nil {
		_ = jrn.Close()
	}
	if snd != nil {
		_ = snd.Close()
	}
	if logs != nil {
		_ = logs.Close()
	}
}
