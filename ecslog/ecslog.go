// Package ecslog is the small structured-logging shim used across
// ecsframe for contract-violation and recoverable-error reporting.
//
// It keeps the shape of edwinsyarief-katsu2d's logger package (a small
// struct with leveled methods and a debug-mode switch) but backs it with
// zerolog instead of a hand-rolled formatter, since query iteration and
// change-tick bookkeeping run every frame and zerolog's structured,
// allocation-free hot path matters there.
package ecslog

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Logger wraps a zerolog.Logger with the leveled, debug-gated surface the
// rest of ecsframe calls.
type Logger struct {
	zl      zerolog.Logger
	isDebug bool
}

var (
	defaultOnce sync.Once
	defaultLog  *Logger
)

// Default returns the process-wide default logger, writing to stderr in
// a human-readable console format. Call SetDebugMode to enable Info/Debug
// output; Error and Warn are always emitted.
func Default() *Logger {
	defaultOnce.Do(func() {
		defaultLog = New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	})
	return defaultLog
}

// New builds a Logger writing to w.
func New(w zerolog.ConsoleWriter) *Logger {
	return &Logger{zl: zerolog.New(w).With().Timestamp().Logger()}
}

// SetDebugMode toggles Info/Debug output.
func (l *Logger) SetDebugMode(debug bool) {
	l.isDebug = debug
}

// Error logs at error level with structured key/value context.
func (l *Logger) Error(msg string, kv ...any) {
	event(l.zl.Error(), kv...).Msg(msg)
}

// Warn logs at warn level with structured key/value context.
func (l *Logger) Warn(msg string, kv ...any) {
	event(l.zl.Warn(), kv...).Msg(msg)
}

// Info logs at info level when debug mode is enabled.
func (l *Logger) Info(msg string, kv ...any) {
	if !l.isDebug {
		return
	}
	event(l.zl.Info(), kv...).Msg(msg)
}

// Debug logs at debug level when debug mode is enabled.
func (l *Logger) Debug(msg string, kv ...any) {
	if !l.isDebug {
		return
	}
	event(l.zl.Debug(), kv...).Msg(msg)
}

func event(e *zerolog.Event, kv ...any) *zerolog.Event {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, kv[i+1])
	}
	return e
}
