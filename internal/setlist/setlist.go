// Package setlist swaps the live pattern at programmed wall-clock times, so
// a set can run unattended: each entry names a pattern and a cron spec for
// when to switch to it.
package setlist

import (
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "tidalgo/pkg/logx"
)

type Config struct {
	Enabled  bool
	Timezone string // IANA TZ; empty means local time
}

// Entry is one programmed change. At is a cron spec with an optional
// seconds field ("30 */2 * * * *") or a descriptor ("@every 90s").
type Entry struct {
	Name    string
	At      string
	Pattern string
}

// SwapFunc applies a pattern change; it returns the parse/scheduler error
// so the entry failure can be logged without stopping the program.
type SwapFunc func(name, pattern string) error

type Service struct {
	mu sync.Mutex

	log     logx.Logger
	cfg     Config
	parser  cron.Parser
	loc     *time.Location
	c       *cron.Cron
	entries []Entry
	swap    SwapFunc
}

func New(cfg Config, swap SwapFunc, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:  cfg,
		swap: swap,
		log:  log,
		// SecondOptional allows both 5-field and 6-field cron specs.
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

func (s *Service) Enabled() bool { return s.cfg.Enabled }

// Add registers entries. Valid before or after Start; duplicates by name
// replace the earlier definition.
func (s *Service) Add(entries ...Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if _, err := s.parser.Parse(e.At); err != nil {
			return err
		}
		s.entries = append(removeByName(s.entries, e.Name), e)
		if s.c != nil {
			s.registerLocked(e)
		}
	}
	return nil
}

func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return
	}
	s.loc = s.loadLocationLocked()
	s.c = cron.New(cron.WithParser(s.parser), cron.WithLocation(s.loc))
	for _, e := range s.entries {
		s.registerLocked(e)
	}
	s.c.Start()
	s.log.Info("setlist started", logx.Int("entries", len(s.entries)), logx.String("tz", s.loc.String()))
}

func (s *Service) Stop() {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
		s.log.Info("setlist stopped")
	}
}

func (s *Service) registerLocked(e Entry) {
	entry := e
	_, err := s.c.AddFunc(e.At, func() {
		if err := s.swap(entry.Name, entry.Pattern); err != nil {
			s.log.Warn("setlist swap failed", logx.String("name", entry.Name), logx.Err(err))
			return
		}
		s.log.Info("setlist swap", logx.String("name", entry.Name))
	})
	if err != nil {
		s.log.Error("setlist register failed", logx.String("name", e.Name), logx.String("at", e.At), logx.Err(err))
	}
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone, falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}

func removeByName(entries []Entry, name string) []Entry {
	out := entries[:0]
	for _, e := range entries {
		if e.Name != name {
			out = append(out, e)
		}
	}
	return out
}
