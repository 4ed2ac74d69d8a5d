package sounder

import (
	"context"
	"time"

	logx "tidalgo/pkg/logx"
)

// Log prints every trigger instead of producing sound. Useful while writing
// patterns without a synth attached.
type Log struct {
	log logx.Logger
}

func NewLog(log logx.Logger) *Log {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Log{log: log}
}

func (l *Log) Play(_ context.Context, value string, at time.Time, dur time.Duration) error {
	l.log.Info("play",
		logx.String("value", value),
		logx.Time("at", at),
		logx.Duration("dur", dur),
	)
	return nil
}

func (l *Log) Close() error { return nil }

// Open builds the configured sounder.
func Open(cfg Config, log logx.Logger) (Sounder, error) {
	switch cfg.Driver {
	case "", "log":
		return NewLog(log), nil
	case "osc":
		return NewOSC(cfg, log)
	default:
		return nil, &Error{Driver: cfg.Driver, Err: errUnknownDriver}
	}
}
