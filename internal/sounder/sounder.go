// Package sounder defines the capability the scheduler fires events into,
// plus the built-in implementations: an OSC trigger for SuperDirt/scsynth
// and a log printer for development.
package sounder

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var errUnknownDriver = errors.New("unknown sounder driver")

// Sounder turns one scheduled event into audible output. Play is invoked
// from the scheduler's timer context and must return promptly; slow
// transports have to dispatch asynchronously or honor ctx's deadline.
type Sounder interface {
	Play(ctx context.Context, value string, at time.Time, dur time.Duration) error
	Close() error
}

// Error wraps a failure to produce sound. It is reported, never fatal: the
// cycle keeps running.
type Error struct {
	Driver string
	Value  string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("sounder %s: play %q: %v", e.Driver, e.Value, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Config selects and parameterizes the sounder implementation.
//
// Driver values:
//   - "osc": send SuperDirt-style OSC triggers to Host:Port
//   - "log": print events through the logger (development)
type Config struct {
	Driver string
	Host   string
	Port   int
}
