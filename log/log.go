// Package log wraps github.com/rs/zerolog behind a small named-logger
// façade (Info.Println, Debug.Printf, ...) so call sites read like plain
// leveled logging while still gaining zerolog's structured fields.
package log

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// Logger is a thin Println/Printf façade over one zerolog level.
type Logger struct {
	level zerolog.Level
}

func (l Logger) event() *zerolog.Event {
	return base.WithLevel(l.level)
}

// Println logs args space-joined, like fmt.Println, at this logger's level.
func (l Logger) Println(args ...interface{}) {
	l.event().Msg(fmt.Sprintln(args...))
}

// Printf logs a formatted message at this logger's level.
func (l Logger) Printf(format string, args ...interface{}) {
	l.event().Msg(fmt.Sprintf(format, args...))
}

// Fatal logs at error level then exits the process, matching the
// server/server.go and cmd/hapd's fatal-startup-error use.
func (l Logger) Fatal(args ...interface{}) {
	base.Error().Msg(fmt.Sprintln(args...))
	os.Exit(1)
}

var base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

// Info, Debug and Verbose are three named loggers, one per level.
var (
	Info    = Logger{level: zerolog.InfoLevel}
	Debug   = Logger{level: zerolog.DebugLevel}
	Verbose = Logger{level: zerolog.TraceLevel}
)

// SetLevel adjusts the minimum level emitted by this package's loggers.
func SetLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}
