package clock

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"tidalgo/internal/journal"
	"tidalgo/internal/notation"
	"tidalgo/internal/pattern"
	"tidalgo/internal/sounder"
	logx "tidalgo/pkg/logx"
)

var (
	ErrAlreadyRunning = errors.New("clock already running")
	ErrNotRunning     = errors.New("clock not running")
	ErrBadRate        = errors.New("cycles per second must be > 0")
)

// DefaultCPS is the cycle rate used when none is configured. One cycle per
// second keeps onsets and wall clock easy to line up by eye.
const DefaultCPS = 1.0

// Config controls the cycle clock.
type Config struct {
	CPS float64 // default cycle rate; Start's argument wins when > 0

	// Seed feeds the evaluator's random source (degrade, sometimes).
	Seed int64

	// Policy picks the alternation child per cycle. Nil is round-robin.
	Policy pattern.ChoicePolicy

	// SounderTimeout bounds one Play call. 0 means 100ms.
	SounderTimeout time.Duration

	// ErrBuffer sizes the out-of-band error channel. 0 means 16.
	ErrBuffer int

	// ErrLogPerSec throttles sounder-failure logging. 0 means 2/s.
	ErrLogPerSec int
}

// scheduled binds one evaluated event to a wall-clock onset and its one-shot
// timer. Owned by the service; removed on fire or cancel, never both.
type scheduled struct {
	id    uint64
	ev    pattern.Event
	at    time.Time
	timer *time.Timer
}

// Service is the cycle scheduler. All state mutations (Start, Replace,
// SetRate, Stop, timer fire, cycle boundary) are serialized through mu, so a
// scheduled event can be fired or canceled but never both.
type Service struct {
	mu sync.Mutex

	log logx.Logger
	cfg Config
	snd sounder.Sounder
	jrn journal.Store

	running    bool
	ast        notation.Node
	cps        float64
	cycle      int64
	cycleStart time.Time

	// epoch invalidates boundary timers armed by a previous run or rate.
	epoch   uint64
	nextID  uint64
	pending map[uint64]*scheduled

	lim  *rate.Limiter
	errs chan error
}

// Snapshot is a point-in-time view for diagnostics and tests.
type Snapshot struct {
	Running bool
	Cycle   int64
	CPS     float64
	Pending int
}
