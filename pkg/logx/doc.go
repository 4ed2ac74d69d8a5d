// Package logx is tidalgo's structured logging layer on top of zerolog.
//
// It exposes a small Logger value type with closure-based Fields, plus a
// Service that owns the configured sinks (console and/or file) and can swap
// them at runtime without invalidating loggers handed out earlier.
//
// The zero Logger is a safe no-op; components should accept a Logger value
// and call Nop() as the fallback.
package logx
