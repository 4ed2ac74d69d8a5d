// Package livefile watches a pattern file and hands its contents to a
// callback on every save. Editing the file is the primary live-coding
// surface: the app parses the new text and hot-swaps the running pattern.
package livefile

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	logx "tidalgo/pkg/logx"
)

const (
	defaultDebounce    = 200 * time.Millisecond
	restartBackoffBase = 500 * time.Millisecond
	restartBackoffMax  = 30 * time.Second
)

// Watcher tails one file. OnChange receives the full file contents after
// each (debounced) modification.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(text string)
	log      logx.Logger

	mu    sync.Mutex
	timer *time.Timer

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func New(path string, debounce time.Duration, onChange func(text string), log logx.Logger) *Watcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Watcher{path: path, debounce: debounce, onChange: onChange, log: log}
}

// Start launches the watch loop. It returns immediately; the loop keeps
// recreating its watcher with jittered backoff when the backend breaks
// (editors that rename-and-replace routinely do this).
func (w *Watcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
}

func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()
}

func (w *Watcher) run(ctx context.Context) {
	dir := filepath.Dir(w.path)
	file := filepath.Base(w.path)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	backoff := restartBackoffBase

	wait := func() bool {
		d := backoff + time.Duration(rng.Int63n(int64(backoff/2)+1))
		if backoff < restartBackoffMax {
			backoff *= 2
			if backoff > restartBackoffMax {
				backoff = restartBackoffMax
			}
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(d):
			return true
		}
	}

	for {
		if ctx.Err() != nil {
			return
		}

		fw, err := fsnotify.NewWatcher()
		if err != nil {
			w.log.Warn("pattern watch init failed", logx.Err(err), logx.String("dir", dir))
			if !wait() {
				return
			}
			continue
		}
		// Watch the directory, not the file: saves that replace the file
		// would otherwise drop the watch.
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			w.log.Warn("pattern watch add failed", logx.Err(err), logx.String("dir", dir))
			if !wait() {
				return
			}
			continue
		}

		backoff = restartBackoffBase
		w.log.Debug("pattern watcher started", logx.String("file", w.path))

		broken := false
		for !broken {
			select {
			case <-ctx.Done():
				_ = fw.Close()
				return
			case ev, ok := <-fw.Events:
				if !ok {
					broken = true
					break
				}
				if !strings.EqualFold(filepath.Base(ev.Name), file) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Chmod) != 0 {
					w.kick()
				}
			case err, ok := <-fw.Errors:
				if !ok {
					broken = true
					break
				}
				if err == nil {
					continue
				}
				// Overflow means missed events; reload once and keep going.
				if strings.Contains(strings.ToLower(err.Error()), "overflow") {
					w.kick()
					continue
				}
				w.log.Warn("pattern watch error", logx.Err(err), logx.String("dir", dir))
				if strings.Contains(strings.ToLower(err.Error()), "closed") {
					broken = true
				}
			}
		}

		_ = fw.Close()
		if ctx.Err() != nil {
			return
		}
		if !wait() {
			return
		}
	}
}

// kick (re)arms the debounce timer; the last save in a burst wins.
func (w *Watcher) kick() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.load)
}

func (w *Watcher) load() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.log.Warn("pattern file read failed", logx.Err(err), logx.String("file", w.path))
		return
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return
	}
	w.onChange(text)
}
